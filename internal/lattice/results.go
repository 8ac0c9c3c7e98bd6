package lattice

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/samcharles93/lattice/internal/fabric"
	"github.com/samcharles93/lattice/internal/logger"
	"github.com/samcharles93/lattice/pkg/dsg"
)

// DecodeResults reinterprets raw as consecutive little-endian float32 samples,
// one per recorded timestep. Trailing bytes short of a word are ignored.
func DecodeResults(raw []byte) []float32 {
	out := make([]float32, len(raw)/dsg.BytesPerWord)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*dsg.BytesPerWord:]))
	}
	return out
}

// GetData drains the cell's recorded channel and decodes it.
//
// When the transfer service reports lost data the gap is logged and the
// samples that were recovered are returned together with an error wrapping
// ErrDataMissing.
func (c *Cell) GetData(ctx context.Context, src fabric.BufferSource, p fabric.Placement) ([]float32, error) {
	raw, missing, err := src.DataByPlacement(ctx, p, RecordingChannel)
	if err != nil {
		return nil, fmt.Errorf("lattice: read recording of %s at %s: %w", c.label, p, err)
	}
	samples := DecodeResults(raw)
	if missing {
		logger.FromContext(ctx).Warn("missing data", "cell", c.label, "placement", p.String(), "samples", len(samples))
		return samples, fmt.Errorf("%w: cell %s at %s", ErrDataMissing, c.label, p)
	}
	return samples, nil
}
