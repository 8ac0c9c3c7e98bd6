package deploy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/samcharles93/lattice/internal/config"
	"github.com/samcharles93/lattice/internal/fabric"
	"github.com/samcharles93/lattice/internal/lattice"
	"github.com/samcharles93/lattice/internal/logger"
	"github.com/samcharles93/lattice/internal/store"
	"github.com/samcharles93/lattice/pkg/dsg"
)

// ManifestName is the file Run writes next to the images.
const ManifestName = "manifest.json"

// ImageExt is the extension of generated cell images.
const ImageExt = ".dsg"

// Options controls where Run puts its output.
type Options struct {
	OutputDir string
	// Ledger, when set, records the run and its images.
	Ledger *store.Store
	// RunID overrides the generated run id.
	RunID string
}

// CellResult is the outcome for one cell. Err is set when the cell could not
// be deployed; the other cells are unaffected.
type CellResult struct {
	Label     string                 `json:"label"`
	GridX     int                    `json:"grid_x"`
	GridY     int                    `json:"grid_y"`
	Placement fabric.Placement       `json:"placement"`
	Path      string                 `json:"path,omitempty"`
	SizeBytes int                    `json:"size_bytes,omitempty"`
	Resources fabric.ResourceRequest `json:"resources"`
	Err       error                  `json:"-"`
	Error     string                 `json:"error,omitempty"`
}

// Result is the outcome of a Run.
type Result struct {
	RunID      string        `json:"run_id"`
	CreatedAt  time.Time     `json:"created_at"`
	Seed       int64         `json:"seed"`
	NTimesteps int           `json:"n_timesteps"`
	Timing     fabric.Timing `json:"timing"`
	Cells      []CellResult  `json:"cells"`
}

// Failed returns the cells that could not be deployed.
func (r Result) Failed() []CellResult {
	var out []CellResult
	for _, c := range r.Cells {
		if c.Err != nil {
			out = append(out, c)
		}
	}
	return out
}

// Run generates an image for every cell of d into opts.OutputDir and writes
// the run manifest.
//
// A cell with a configuration error gets no image; its error is reported in
// the result and joined into the returned error. Infrastructure failures
// (output directory, ledger) abort the run.
func Run(ctx context.Context, d config.Deployment, opts Options) (Result, error) {
	log := logger.FromContext(ctx)
	if opts.OutputDir == "" {
		return Result{}, errors.New("deploy: no output directory")
	}
	plan, err := Build(d)
	if err != nil {
		return Result{}, err
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("deploy: create output dir: %w", err)
	}

	res := Result{
		RunID:      opts.RunID,
		CreatedAt:  time.Now().UTC(),
		Seed:       d.Seed,
		NTimesteps: plan.NTimesteps,
		Timing:     plan.Timing,
	}
	if res.RunID == "" {
		res.RunID = uuid.NewString()
	}
	log = log.With("run", res.RunID)
	log.Info("deploying", "cells", len(plan.Cells), "n_timesteps", plan.NTimesteps, "out", opts.OutputDir)

	var cellErrs []error
	for _, c := range plan.Cells {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		cr, err := generateCell(ctx, plan, c, opts.OutputDir)
		if err != nil {
			if !errors.Is(err, lattice.ErrConfiguration) {
				return res, err
			}
			cr.Err = err
			cr.Error = err.Error()
			cellErrs = append(cellErrs, err)
			log.Error("cell not deployed", "cell", c.Label(), "error", err)
		}
		res.Cells = append(res.Cells, cr)
	}

	if err := writeManifest(filepath.Join(opts.OutputDir, ManifestName), res); err != nil {
		return res, err
	}
	if opts.Ledger != nil {
		if err := record(ctx, opts.Ledger, res, opts.OutputDir); err != nil {
			return res, err
		}
	}
	log.Info("deployed", "images", len(res.Cells)-len(cellErrs), "failed", len(cellErrs))
	return res, errors.Join(cellErrs...)
}

func generateCell(ctx context.Context, plan *Plan, c *lattice.Cell, dir string) (CellResult, error) {
	cr := CellResult{
		Label:     c.Label(),
		GridX:     c.X(),
		GridY:     c.Y(),
		Resources: c.ResourcesRequired(),
	}
	ic, err := plan.ImageContext(c)
	if err != nil {
		return cr, err
	}
	cr.Placement = ic.Placement

	spec := dsg.NewSpec()
	if err := c.GenerateImage(ctx, spec, ic); err != nil {
		return cr, err
	}

	path := filepath.Join(dir, c.Label()+ImageExt)
	n, err := writeImage(path, spec)
	if err != nil {
		return cr, err
	}
	cr.Path = path
	cr.SizeBytes = int(n)
	return cr, nil
}

func writeImage(path string, spec *dsg.Spec) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("deploy: create image: %w", err)
	}
	n, err := spec.WriteTo(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("deploy: write %s: %w", filepath.Base(path), err)
	}
	return n, nil
}

func writeManifest(path string, res Result) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("deploy: encode manifest: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("deploy: write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads the manifest a previous Run wrote into dir.
func ReadManifest(dir string) (Result, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return Result{}, fmt.Errorf("deploy: read manifest: %w", err)
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return Result{}, fmt.Errorf("deploy: decode manifest: %w", err)
	}
	return res, nil
}

func record(ctx context.Context, ledger *store.Store, res Result, dir string) error {
	if _, err := ledger.CreateRun(ctx, store.Run{
		ID:              res.RunID,
		CreatedAt:       res.CreatedAt,
		Seed:            res.Seed,
		NTimesteps:      res.NTimesteps,
		MachineTimeStep: res.Timing.MachineTimeStep,
		TimeScaleFactor: res.Timing.TimeScaleFactor,
		OutputDir:       dir,
	}); err != nil {
		return err
	}
	images := make([]store.Image, 0, len(res.Cells))
	for i, c := range res.Cells {
		if c.Err != nil {
			continue
		}
		images = append(images, store.Image{
			RunID:      res.RunID,
			Label:      c.Label,
			Seq:        i,
			GridX:      c.GridX,
			GridY:      c.GridY,
			Placement:  c.Placement,
			Path:       c.Path,
			SizeBytes:  c.SizeBytes,
			FixedBytes: c.Resources.FixedBytes,
		})
	}
	return ledger.RecordImages(ctx, images)
}
