package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/samcharles93/lattice/internal/fabric"
)

// Run is one deployment: the image set generated from a single config.
type Run struct {
	ID              string    `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	Seed            int64     `json:"seed"`
	NTimesteps      int       `json:"n_timesteps"`
	MachineTimeStep uint32    `json:"machine_time_step"`
	TimeScaleFactor uint32    `json:"time_scale_factor"`
	OutputDir       string    `json:"output_dir"`
}

// Image is one generated cell image.
type Image struct {
	RunID      string           `json:"run_id"`
	Label      string           `json:"label"`
	Seq        int              `json:"seq"`
	GridX      int              `json:"grid_x"`
	GridY      int              `json:"grid_y"`
	Placement  fabric.Placement `json:"placement"`
	Path       string           `json:"path"`
	SizeBytes  int              `json:"size_bytes"`
	FixedBytes int              `json:"fixed_bytes"`
}

// CreateRun inserts run. A zero CreatedAt is stamped with the current time.
func (s *Store) CreateRun(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		return Run{}, errors.New("store: create run: empty id")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = s.now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, created_at, seed, n_timesteps, machine_time_step, time_scale_factor, output_dir)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.CreatedAt.UTC().Format(timeLayout),
		run.Seed,
		run.NTimesteps,
		run.MachineTimeStep,
		run.TimeScaleFactor,
		run.OutputDir,
	)
	if err != nil {
		return Run{}, fmt.Errorf("store: create run: %w", err)
	}
	return run, nil
}

// timeLayout sorts lexically for UTC timestamps.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = `id, created_at, seed, n_timesteps, machine_time_step, time_scale_factor, output_dir`

func scanRun(row interface{ Scan(...any) error }) (Run, error) {
	var (
		r       Run
		created string
	)
	if err := row.Scan(&r.ID, &created, &r.Seed, &r.NTimesteps, &r.MachineTimeStep, &r.TimeScaleFactor, &r.OutputDir); err != nil {
		return Run{}, err
	}
	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return Run{}, fmt.Errorf("parse created_at of run %s: %w", r.ID, err)
	}
	r.CreatedAt = t
	return r, nil
}

// GetRun returns the run with id, or ErrRunNotFound.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("store: get run: %w", err)
	}
	return r, nil
}

// LatestRun returns the most recently created run.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id DESC LIMIT 1`)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("store: latest run: %w", err)
	}
	return r, nil
}

// ListRuns returns every run, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list runs: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate runs: %w", err)
	}
	return runs, nil
}

// RecordImages lists images against their run in one transaction.
func (s *Store) RecordImages(ctx context.Context, images []Image) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO images
			(run_id, label, seq, grid_x, grid_y, x, y, p, path, size_bytes, fixed_bytes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, img := range images {
			if _, err := stmt.ExecContext(ctx,
				img.RunID, img.Label, img.Seq, img.GridX, img.GridY,
				img.Placement.X, img.Placement.Y, img.Placement.P,
				img.Path, img.SizeBytes, img.FixedBytes,
			); err != nil {
				return fmt.Errorf("image %s: %w", img.Label, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store: record images: %w", err)
	}
	return nil
}

// RecordImage lists a single image against its run.
func (s *Store) RecordImage(ctx context.Context, img Image) error {
	return s.RecordImages(ctx, []Image{img})
}

// Images returns the images of a run in generation order.
func (s *Store) Images(ctx context.Context, runID string) ([]Image, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, label, seq, grid_x, grid_y, x, y, p, path, size_bytes, fixed_bytes
		FROM images
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("store: query images: %w", err)
	}
	defer rows.Close()

	images := []Image{}
	for rows.Next() {
		var img Image
		if err := rows.Scan(
			&img.RunID, &img.Label, &img.Seq, &img.GridX, &img.GridY,
			&img.Placement.X, &img.Placement.Y, &img.Placement.P,
			&img.Path, &img.SizeBytes, &img.FixedBytes,
		); err != nil {
			return nil, fmt.Errorf("store: scan image: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate images: %w", err)
	}
	return images, nil
}
