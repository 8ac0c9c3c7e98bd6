package lattice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirections(t *testing.T) {
	t.Parallel()

	names := []string{"N", "W", "S", "E", "NW", "SW", "SE", "NE"}
	for i, d := range Directions() {
		assert.Equal(t, names[i], d.String())
		parsed, err := ParseDirection(names[i])
		require.NoError(t, err)
		assert.Equal(t, d, parsed)
	}
	_, err := ParseDirection("north")
	require.Error(t, err)
	assert.Equal(t, "Direction(9)", Direction(9).String())
}

func TestCellAccessors(t *testing.T) {
	t.Parallel()

	c := NewCell("", 3, 4, 0.5, -0.5)
	assert.Equal(t, "cell_3_4", c.Label())
	assert.Equal(t, "cell_3_4", c.String())
	assert.Equal(t, 3, c.X())
	assert.Equal(t, 4, c.Y())
	ux, uy := c.Velocity()
	assert.Equal(t, 0.5, ux)
	assert.Equal(t, -0.5, uy)
	assert.Equal(t, BinaryName, c.BinaryName())
	assert.Equal(t, 8, c.KeysForPartition(PartitionID))
	assert.Equal(t, []int{0}, c.RecordedRegionIDs())
}

func TestSetNeighbour(t *testing.T) {
	t.Parallel()

	c := NewCell("c", 0, 0, 0, 0)
	n := &stubVertex{label: "n"}
	require.NoError(t, c.SetNeighbour(SouthEast, n))
	assert.Same(t, n, c.Neighbour(SouthEast))
	assert.Nil(t, c.Neighbour(North))
	assert.Nil(t, c.Neighbour(Direction(-1)))
	require.Error(t, c.SetNeighbour(Direction(8), n))
}

func TestNeighbourKeysWords(t *testing.T) {
	t.Parallel()

	nk := NeighbourKeys{Mask: 0xFFFFFF00}
	for i := range nk.Keys {
		nk.Keys[i] = int32(i)
	}
	nk.Keys[West] = MissingKey
	words := nk.Words()
	require.Len(t, words, 9)
	assert.Equal(t, uint32(0xFFFFFFFF), words[West])
	assert.Equal(t, uint32(0xFFFFFF00), words[8])
	assert.Equal(t, MissingKey, nk.Key(Direction(12)))
	assert.Equal(t, int32(2), nk.Key(South))
}

func TestResolveNeighbourKeysWithoutSouth(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.routing.Set(f.neighbours[South], "STATE")
	keys, err := f.cell.ResolveNeighbourKeys(quietContext(), f.routing)
	require.NoError(t, err)
	assert.Equal(t, MissingKey, keys.Key(South))
	assert.Equal(t, uint32(sharedMask), keys.Mask)
}

func TestResolveNeighbourKeysNoneResolved(t *testing.T) {
	t.Parallel()

	c := NewCell("lonely", 0, 0, 0, 0)
	f := newFixture(t)
	keys, err := c.ResolveNeighbourKeys(quietContext(), f.routing)
	require.NoError(t, err)
	for _, d := range Directions() {
		assert.Equal(t, MissingKey, keys.Key(d))
	}
	assert.Zero(t, keys.Mask)
}
