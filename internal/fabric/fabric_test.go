package fabric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testVertex struct {
	label string
	keys  int
}

func (v *testVertex) Label() string { return v.label }

func (v *testVertex) KeysForPartition(string) int { return v.keys }

func TestGraphQueries(t *testing.T) {
	t.Parallel()

	g := NewGraph()
	a, b, c := &testVertex{label: "a"}, &testVertex{label: "b"}, &testVertex{label: "c"}
	for _, v := range []Vertex{a, b, c} {
		require.NoError(t, g.AddVertex(v))
	}
	require.ErrorIs(t, g.AddVertex(a), ErrDuplicateVertex)

	require.NoError(t, g.AddEdge(a, c, "STATE"))
	require.NoError(t, g.AddEdge(b, c, "STATE"))
	require.NoError(t, g.AddEdge(b, c, "CONTROL"))
	require.NoError(t, g.AddEdge(b, a, "STATE"))
	require.ErrorIs(t, g.AddEdge(a, &testVertex{label: "x"}, "STATE"), ErrUnknownVertex)

	assert.Equal(t, 0, g.IndexOf(a))
	assert.Equal(t, 2, g.IndexOf(c))
	assert.Equal(t, -1, g.IndexOf(&testVertex{label: "x"}))
	assert.Equal(t, []string{"CONTROL", "STATE"}, g.OutgoingPartitions(b))
	assert.Equal(t, []string{"STATE"}, g.OutgoingPartitions(a))
	assert.Empty(t, g.OutgoingPartitions(c))
	assert.Len(t, g.EdgesEndingAt(c), 3)
	assert.Len(t, g.EdgesEndingAtWithPartition(c, "STATE"), 2)
	assert.Len(t, g.EdgesStartingAt(b), 3)
	assert.Equal(t, "a -[STATE]-> c", g.EdgesEndingAt(c)[0].String())
}

func TestKeyBlock(t *testing.T) {
	t.Parallel()

	cases := []struct {
		n     int
		block uint64
		mask  uint32
	}{
		{0, 1, 0xFFFFFFFF},
		{1, 1, 0xFFFFFFFF},
		{2, 2, 0xFFFFFFFE},
		{5, 8, 0xFFFFFFF8},
		{8, 8, 0xFFFFFFF8},
		{9, 16, 0xFFFFFFF0},
	}
	for _, tc := range cases {
		km, block := KeyBlock(0x100, tc.n)
		assert.Equal(t, tc.block, block, "n=%d", tc.n)
		assert.Equal(t, tc.mask, km.Mask, "n=%d", tc.n)
		assert.Equal(t, uint32(0x100), km.Key)
	}
}

func TestAllocateKeysAlignsBlocks(t *testing.T) {
	t.Parallel()

	g := NewGraph()
	a := &testVertex{label: "a", keys: 1}
	b := &testVertex{label: "b", keys: 8}
	c := &testVertex{label: "c", keys: 8}
	for _, v := range []Vertex{a, b, c} {
		require.NoError(t, g.AddVertex(v))
	}
	require.NoError(t, g.AddEdge(a, b, "STATE"))
	require.NoError(t, g.AddEdge(b, c, "STATE"))
	require.NoError(t, g.AddEdge(c, a, "STATE"))

	rt, err := AllocateKeys(g, 0x1000)
	require.NoError(t, err)

	assert.Equal(t, []KeyAndMask{{Key: 0x1000, Mask: 0xFFFFFFFF}}, rt.KeysAndMasks(a, "STATE"))
	assert.Equal(t, []KeyAndMask{{Key: 0x1008, Mask: 0xFFFFFFF8}}, rt.KeysAndMasks(b, "STATE"))
	assert.Equal(t, []KeyAndMask{{Key: 0x1010, Mask: 0xFFFFFFF8}}, rt.KeysAndMasks(c, "STATE"))

	key, ok := rt.FirstKey(c, "STATE")
	require.True(t, ok)
	assert.Equal(t, uint32(0x1010), key)

	_, ok = rt.FirstKey(c, "OTHER")
	assert.False(t, ok)
}

func TestAllocateKeysExhausted(t *testing.T) {
	t.Parallel()

	g := NewGraph()
	a := &testVertex{label: "a", keys: 8}
	require.NoError(t, g.AddVertex(a))
	require.NoError(t, g.AddEdge(a, a, "STATE"))

	_, err := AllocateKeys(g, 0xFFFFFFFC)
	require.ErrorIs(t, err, ErrKeySpaceExhausted)
}

func TestPlaceSequential(t *testing.T) {
	t.Parallel()

	g := NewGraph()
	vs := make([]*testVertex, 23)
	for i := range vs {
		vs[i] = &testVertex{label: string(rune('a' + i))}
		require.NoError(t, g.AddVertex(vs[i]))
	}

	ps, err := PlaceSequential(g, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, 23, ps.Len())

	p0, err := ps.Of(vs[0])
	require.NoError(t, err)
	assert.Equal(t, Placement{X: 0, Y: 0, P: 1}, p0)

	p10, err := ps.Of(vs[10])
	require.NoError(t, err)
	assert.Equal(t, Placement{X: 1, Y: 0, P: 1}, p10)

	p22, err := ps.Of(vs[22])
	require.NoError(t, err)
	assert.Equal(t, Placement{X: 0, Y: 1, P: 3}, p22)

	v, ok := ps.At(Placement{X: 1, Y: 0, P: 10})
	require.True(t, ok)
	assert.Same(t, vs[19], v)

	_, err = ps.Of(&testVertex{label: "x"})
	require.ErrorIs(t, err, ErrNotPlaced)

	_, err = PlaceSequential(g, 0, 1)
	require.Error(t, err)
}
