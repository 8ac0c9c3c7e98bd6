package lattice

import (
	"fmt"
	"sync"

	"github.com/samcharles93/lattice/internal/fabric"
)

const (
	// PartitionID names the single outgoing partition every cell broadcasts on.
	PartitionID = "STATE"
	// BinaryName is the firmware binary a cell runs.
	BinaryName = "lattice_cell.aplx"
	// KeysPerPartition reserves one key per neighbour a cell sends to.
	KeysPerPartition = numDirections
	// RecordingChannel is the recorded channel holding the velocity samples.
	RecordingChannel = 0
)

// Cell is one grid cell of the lattice, deployed to exactly one core.
//
// A Cell is wired with SetNeighbour during grid construction. Once its image
// has been generated it is sealed and further wiring fails.
type Cell struct {
	label string
	x, y  int
	ux    float64
	uy    float64

	mu         sync.Mutex
	neighbours [numDirections]fabric.Vertex
	sealed     bool
}

var (
	_ fabric.Vertex                = (*Cell)(nil)
	_ fabric.DeploymentSizable     = (*Cell)(nil)
	_ fabric.ImageWritable         = (*Cell)(nil)
	_ fabric.ResultReadable        = (*Cell)(nil)
	_ fabric.PartitionKeyCountable = (*Cell)(nil)
)

// NewCell returns an unwired cell at grid position (x, y) with initial velocity (ux, uy).
func NewCell(label string, x, y int, ux, uy float64) *Cell {
	if label == "" {
		label = fmt.Sprintf("cell_%d_%d", x, y)
	}
	return &Cell{label: label, x: x, y: y, ux: ux, uy: uy}
}

// SetNeighbour records v as the cell sending into direction d.
func (c *Cell) SetNeighbour(d Direction, v fabric.Vertex) error {
	if !d.Valid() {
		return fmt.Errorf("lattice: invalid direction %d", int(d))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sealed {
		return fmt.Errorf("%w: %s", ErrCellSealed, c.label)
	}
	c.neighbours[d] = v
	return nil
}

// Neighbour returns the vertex wired to direction d, or nil.
func (c *Cell) Neighbour(d Direction) fabric.Vertex {
	if !d.Valid() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.neighbours[d]
}

func (c *Cell) neighbourSnapshot() [numDirections]fabric.Vertex {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.neighbours
}

func (c *Cell) seal() {
	c.mu.Lock()
	c.sealed = true
	c.mu.Unlock()
}

// Sealed reports whether the cell's image has been generated.
func (c *Cell) Sealed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sealed
}

func (c *Cell) Label() string { return c.label }

func (c *Cell) String() string { return c.label }

func (c *Cell) X() int { return c.x }

func (c *Cell) Y() int { return c.y }

func (c *Cell) Velocity() (float64, float64) { return c.ux, c.uy }

func (c *Cell) BinaryName() string { return BinaryName }

// KeysForPartition asks for one key per neighbour.
func (c *Cell) KeysForPartition(string) int { return KeysPerPartition }

// RecordedRegionIDs lists the recorded channels the buffer service drains.
func (c *Cell) RecordedRegionIDs() []int { return []int{RecordingChannel} }
