package fabric

import (
	"errors"
	"fmt"
)

// Placement locates a vertex on the machine: chip (X, Y) and core slot P.
type Placement struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
	P int `json:"p" yaml:"p"`
}

func (p Placement) String() string {
	return fmt.Sprintf("(%d, %d, %d)", p.X, p.Y, p.P)
}

var ErrNotPlaced = errors.New("fabric: vertex not placed")

// Placements maps vertices to cores.
type Placements struct {
	byVertex map[Vertex]Placement
	byCore   map[Placement]Vertex
}

func NewPlacements() *Placements {
	return &Placements{
		byVertex: make(map[Vertex]Placement),
		byCore:   make(map[Placement]Vertex),
	}
}

func (ps *Placements) Add(v Vertex, p Placement) error {
	if other, ok := ps.byCore[p]; ok {
		return fmt.Errorf("fabric: core %s already holds %s", p, other.Label())
	}
	if old, ok := ps.byVertex[v]; ok {
		delete(ps.byCore, old)
	}
	ps.byVertex[v] = p
	ps.byCore[p] = v
	return nil
}

func (ps *Placements) Of(v Vertex) (Placement, error) {
	p, ok := ps.byVertex[v]
	if !ok {
		return Placement{}, fmt.Errorf("%w: %s", ErrNotPlaced, labelOf(v))
	}
	return p, nil
}

func (ps *Placements) At(p Placement) (Vertex, bool) {
	v, ok := ps.byCore[p]
	return v, ok
}

func (ps *Placements) Len() int {
	return len(ps.byVertex)
}

// PlaceSequential fills chips row-major, coresPerChip application cores per
// chip starting at core 1 (core 0 is the monitor). width is the chip count
// per machine row.
func PlaceSequential(g *Graph, coresPerChip, width int) (*Placements, error) {
	if coresPerChip < 1 {
		return nil, fmt.Errorf("fabric: cores per chip must be positive, got %d", coresPerChip)
	}
	if width < 1 {
		return nil, fmt.Errorf("fabric: machine width must be positive, got %d", width)
	}
	ps := NewPlacements()
	for i, v := range g.vertices {
		chip := i / coresPerChip
		p := Placement{X: chip % width, Y: chip / width, P: 1 + i%coresPerChip}
		if err := ps.Add(v, p); err != nil {
			return nil, err
		}
	}
	return ps, nil
}
