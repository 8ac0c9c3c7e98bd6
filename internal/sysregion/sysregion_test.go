package sysregion

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samcharles93/lattice/internal/fabric"
	"github.com/samcharles93/lattice/pkg/dsg"
)

type binVertex struct{}

func (binVertex) Label() string      { return "v" }
func (binVertex) BinaryName() string { return "lattice_cell.aplx" }

func TestWriteSystemRegion(t *testing.T) {
	t.Parallel()

	spec := dsg.NewSpec()
	timing := fabric.Timing{MachineTimeStep: 1000, TimeScaleFactor: 5}
	require.NoError(t, Generator{}.WriteSystemRegion(spec, 0, binVertex{}, timing, 12))

	raw, ok := spec.RegionData(0)
	require.True(t, ok)
	require.Len(t, raw, BytesRequirement)

	words := make([]uint32, systemWords)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	assert.Equal(t, ApplicationHash("lattice_cell.aplx"), words[0])
	assert.Equal(t, []uint32{1000, 5, 0, 12}, words[1:])
}

func TestWriteSystemRegionInfinite(t *testing.T) {
	t.Parallel()

	spec := dsg.NewSpec()
	timing := fabric.Timing{MachineTimeStep: 1000, TimeScaleFactor: 1}
	require.NoError(t, Generator{}.WriteSystemRegion(spec, 0, binVertex{}, timing, -1))
	raw, _ := spec.RegionData(0)
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(raw[12:]))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(raw[16:]))
}

func TestWriteSystemRegionRejectsZeroTiming(t *testing.T) {
	t.Parallel()

	err := Generator{}.WriteSystemRegion(dsg.NewSpec(), 0, binVertex{}, fabric.Timing{}, 1)
	require.Error(t, err)
}

func TestApplicationHashStable(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ApplicationHash("a"), ApplicationHash("a"))
	assert.NotEqual(t, ApplicationHash("a"), ApplicationHash("b"))
}
