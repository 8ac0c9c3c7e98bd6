package lattice

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/samcharles93/lattice/internal/fabric"
)

type stubVertex struct{ label string }

func (v *stubVertex) Label() string { return v.label }

type fixedJitter int

func (j fixedJitter) GenerateOffset(int) int { return int(j) }

const (
	sharedMask = 0xFFFFFF00
	ownKey     = 0x2000
)

type fixture struct {
	cell       *Cell
	graph      *fabric.Graph
	routing    *fabric.RoutingTable
	neighbours map[Direction]*stubVertex
}

// newFixture wires a cell at (5, 5) to one neighbour per direction in skip's
// complement. Neighbour d sends with key 0x1000+d under the shared mask.
func newFixture(t *testing.T, skip ...Direction) *fixture {
	t.Helper()

	f := &fixture{
		cell:       NewCell("cell_5_5", 5, 5, 0.1, -0.2),
		graph:      fabric.NewGraph(),
		routing:    fabric.NewRoutingTable(),
		neighbours: make(map[Direction]*stubVertex),
	}
	require.NoError(t, f.graph.AddVertex(f.cell))
	f.routing.Set(f.cell, PartitionID, fabric.KeyAndMask{Key: ownKey, Mask: 0xFFFFFFF8})

	skipped := make(map[Direction]bool)
	for _, d := range skip {
		skipped[d] = true
	}
	for _, d := range Directions() {
		if skipped[d] {
			continue
		}
		n := &stubVertex{label: "n_" + d.String()}
		f.neighbours[d] = n
		require.NoError(t, f.graph.AddVertex(n))
		require.NoError(t, f.graph.AddEdge(n, f.cell, PartitionID))
		require.NoError(t, f.graph.AddEdge(f.cell, n, PartitionID))
		require.NoError(t, f.cell.SetNeighbour(d, n))
		f.routing.Set(n, PartitionID, fabric.KeyAndMask{Key: 0x1000 + uint32(d), Mask: sharedMask})
	}
	return f
}

func (f *fixture) context(jitter fabric.OffsetGenerator) fabric.ImageContext {
	return fabric.ImageContext{
		Placement:  fabric.Placement{X: 0, Y: 0, P: 23},
		Graph:      f.graph,
		Routing:    f.routing,
		Timing:     fabric.Timing{MachineTimeStep: 1000, TimeScaleFactor: 5},
		NTimesteps: 3,
		Jitter:     jitter,
	}
}
