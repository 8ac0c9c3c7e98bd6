package deploy

import (
	"fmt"

	"github.com/samcharles93/lattice/internal/config"
	"github.com/samcharles93/lattice/internal/fabric"
	"github.com/samcharles93/lattice/internal/lattice"
)

// Plan is a deployment with every toolchain service finalised.
type Plan struct {
	Graph      *fabric.Graph
	Cells      []*lattice.Cell
	Placements *fabric.Placements
	Routing    *fabric.RoutingTable
	Timing     fabric.Timing
	NTimesteps int
	Jitter     *lattice.Jitter
}

// Build creates the cells of d, wires each configured neighbour as a STATE
// edge into the receiving cell, places the graph and allocates keys.
func Build(d config.Deployment) (*Plan, error) {
	specs, err := d.ExpandCells()
	if err != nil {
		return nil, err
	}

	g := fabric.NewGraph()
	byLabel := make(map[string]*lattice.Cell, len(specs))
	cells := make([]*lattice.Cell, 0, len(specs))
	for _, s := range specs {
		c := lattice.NewCell(s.Label, s.X, s.Y, s.UX, s.UY)
		if err := g.AddVertex(c); err != nil {
			return nil, err
		}
		byLabel[c.Label()] = c
		cells = append(cells, c)
	}

	for i, s := range specs {
		c := cells[i]
		for _, dir := range lattice.Directions() {
			from, ok := s.Neighbours[dir.String()]
			if !ok {
				continue
			}
			n, ok := byLabel[from]
			if !ok {
				return nil, fmt.Errorf("deploy: cell %s: unknown neighbour %q", c.Label(), from)
			}
			if err := g.AddEdge(n, c, lattice.PartitionID); err != nil {
				return nil, err
			}
			if err := c.SetNeighbour(dir, n); err != nil {
				return nil, err
			}
		}
	}

	placements, err := fabric.PlaceSequential(g, d.CoresPerChip, d.Chips.Width)
	if err != nil {
		return nil, fmt.Errorf("deploy: place: %w", err)
	}
	routing, err := fabric.AllocateKeys(g, d.KeyBase)
	if err != nil {
		return nil, fmt.Errorf("deploy: allocate keys: %w", err)
	}

	return &Plan{
		Graph:      g,
		Cells:      cells,
		Placements: placements,
		Routing:    routing,
		Timing:     fabric.Timing{MachineTimeStep: d.MachineTimeStep, TimeScaleFactor: d.TimeScaleFactor},
		NTimesteps: d.Timesteps(),
		Jitter:     lattice.NewJitterWith(d.Seed, d.CoresPerChip, d.MaxOffset),
	}, nil
}

// ImageContext returns the services c needs to write its image.
func (p *Plan) ImageContext(c *lattice.Cell) (fabric.ImageContext, error) {
	pl, err := p.Placements.Of(c)
	if err != nil {
		return fabric.ImageContext{}, err
	}
	return fabric.ImageContext{
		Placement:  pl,
		Graph:      p.Graph,
		Routing:    p.Routing,
		Timing:     p.Timing,
		NTimesteps: p.NTimesteps,
		Jitter:     p.Jitter,
	}, nil
}

// Targets lists every cell with its placement for Retrieve.
func (p *Plan) Targets() ([]Target, error) {
	out := make([]Target, 0, len(p.Cells))
	for _, c := range p.Cells {
		pl, err := p.Placements.Of(c)
		if err != nil {
			return nil, err
		}
		out = append(out, Target{Label: c.Label(), GridX: c.X(), GridY: c.Y(), Placement: pl, Reader: c})
	}
	return out, nil
}
