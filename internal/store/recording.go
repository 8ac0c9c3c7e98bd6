package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/samcharles93/lattice/internal/fabric"
)

// PutRecording stores the bytes drained from one channel of a core.
// missing marks a drain that lost data. A second put for the same channel
// replaces the first.
func (s *Store) PutRecording(ctx context.Context, runID string, p fabric.Placement, channel int, data []byte, missing bool) error {
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recordings (run_id, x, y, p, channel, data, missing)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, x, y, p, channel) DO UPDATE SET
			data = excluded.data,
			missing = excluded.missing
	`, runID, p.X, p.Y, p.P, channel, data, missing)
	if err != nil {
		return fmt.Errorf("store: put recording at %s: %w", p, err)
	}
	return nil
}

// Buffers serves the recordings of one run.
type Buffers struct {
	store *Store
	runID string
}

var _ fabric.BufferSource = (*Buffers)(nil)

// Buffers returns the buffer source for runID.
func (s *Store) Buffers(runID string) *Buffers {
	return &Buffers{store: s, runID: runID}
}

// DataByPlacement returns the recorded bytes of channel on p. A channel that
// was never drained is reported as missing with no data.
func (b *Buffers) DataByPlacement(ctx context.Context, p fabric.Placement, channel int) ([]byte, bool, error) {
	var (
		data    []byte
		missing bool
	)
	err := b.store.db.QueryRowContext(ctx, `
		SELECT data, missing FROM recordings
		WHERE run_id = ? AND x = ? AND y = ? AND p = ? AND channel = ?
	`, b.runID, p.X, p.Y, p.P, channel).Scan(&data, &missing)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: read recording at %s: %w", p, err)
	}
	return data, missing, nil
}
