// Package config loads lattice deployment files and the per-user CLI config.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"maps"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/samcharles93/lattice/internal/lattice"
)

const (
	DefaultSeed            = 100
	DefaultRuntimeMS       = 12000
	DefaultMachineTimeStep = 1000 // microseconds
	DefaultTimeScaleFactor = 5
	DefaultCoresPerChip    = 10
	DefaultMaxOffset       = 1500
	DefaultChipWidth       = 8
	DefaultKeyBase         = 0x00010000
)

var ErrInvalid = errors.New("config: invalid deployment")

// Deployment describes one lattice run: the simulation clock, the jitter
// geometry and the cells with their wiring.
//
// Cells come either from an explicit list or from Grid, which expands to a
// periodic width x height lattice. Both may be given; labels must be unique
// across the union.
type Deployment struct {
	Seed            int64  `yaml:"seed"`
	RuntimeMS       int    `yaml:"runtime_ms"`
	NTimesteps      *int   `yaml:"n_timesteps"`
	MachineTimeStep uint32 `yaml:"machine_time_step"`
	TimeScaleFactor uint32 `yaml:"time_scale_factor"`
	CoresPerChip    int    `yaml:"cores_per_chip"`
	MaxOffset       int    `yaml:"max_offset"`
	KeyBase         uint32 `yaml:"key_base"`
	Chips           Chips  `yaml:"chips"`

	Grid  *Grid      `yaml:"grid"`
	Cells []CellSpec `yaml:"cells"`
}

// Chips is the machine shape cores are placed on, row-major.
type Chips struct {
	Width int `yaml:"width"`
}

// Grid expands to a torus of cells, each wired to its eight surrounding cells.
type Grid struct {
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	UX     float64 `yaml:"u_x"`
	UY     float64 `yaml:"u_y"`
}

// CellSpec is one explicitly configured cell. Neighbours maps a compass
// direction (N, W, S, E, NW, SW, SE, NE) to the label of the sending cell.
type CellSpec struct {
	Label      string            `yaml:"label"`
	X          int               `yaml:"x"`
	Y          int               `yaml:"y"`
	UX         float64           `yaml:"u_x"`
	UY         float64           `yaml:"u_y"`
	Neighbours map[string]string `yaml:"neighbours"`
}

// Default returns a deployment carrying every default and no cells.
func Default() Deployment {
	return Deployment{
		Seed:            DefaultSeed,
		RuntimeMS:       DefaultRuntimeMS,
		MachineTimeStep: DefaultMachineTimeStep,
		TimeScaleFactor: DefaultTimeScaleFactor,
		CoresPerChip:    DefaultCoresPerChip,
		MaxOffset:       DefaultMaxOffset,
		KeyBase:         DefaultKeyBase,
		Chips:           Chips{Width: DefaultChipWidth},
	}
}

// Timesteps returns the number of machine timesteps the run records.
// An explicit n_timesteps wins; otherwise it is derived from runtime_ms.
func (d Deployment) Timesteps() int {
	if d.NTimesteps != nil {
		return *d.NTimesteps
	}
	if d.MachineTimeStep == 0 {
		return 0
	}
	return int(int64(d.RuntimeMS) * 1000 / int64(d.MachineTimeStep))
}

// Load reads and validates a deployment file.
func Load(path string) (Deployment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Deployment{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	d, err := Parse(data)
	if err != nil {
		return Deployment{}, fmt.Errorf("config: %s: %w", filepath.Base(path), err)
	}
	return d, nil
}

// Parse decodes YAML on top of Default and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (Deployment, error) {
	d := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil && !errors.Is(err, io.EOF) {
		return Deployment{}, fmt.Errorf("decode yaml: %w", err)
	}
	if err := d.Validate(); err != nil {
		return Deployment{}, err
	}
	return d, nil
}

// Validate checks value ranges and that every neighbour reference resolves.
func (d Deployment) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if d.MachineTimeStep == 0 {
		bad("machine_time_step must be positive")
	}
	if d.TimeScaleFactor == 0 {
		bad("time_scale_factor must be positive")
	}
	if d.NTimesteps != nil && *d.NTimesteps < 0 {
		bad("n_timesteps must not be negative, got %d", *d.NTimesteps)
	}
	if d.NTimesteps == nil && d.RuntimeMS < 0 {
		bad("runtime_ms must not be negative, got %d", d.RuntimeMS)
	}
	if n := d.Timesteps(); n > lattice.MaxTimesteps {
		bad("run of %d timesteps exceeds the %d a cell can record", n, lattice.MaxTimesteps)
	}
	if d.CoresPerChip <= 0 {
		bad("cores_per_chip must be positive")
	}
	if d.MaxOffset <= 0 {
		bad("max_offset must be positive")
	}
	if d.Chips.Width <= 0 {
		bad("chips.width must be positive")
	}
	if d.Grid != nil && (d.Grid.Width < 3 || d.Grid.Height < 3) {
		bad("grid must be at least 3x3 so no cell neighbours itself, got %dx%d", d.Grid.Width, d.Grid.Height)
	}

	cells, err := d.ExpandCells()
	if err != nil {
		errs = append(errs, err)
	}
	labels := make(map[string]bool, len(cells))
	for _, c := range cells {
		labels[c.Label] = true
	}
	for _, c := range cells {
		wiredAs := make(map[string]string, len(c.Neighbours))
		for _, dir := range slices.Sorted(maps.Keys(c.Neighbours)) {
			from := c.Neighbours[dir]
			if !validDirection(dir) {
				bad("cell %s: unknown direction %q", c.Label, dir)
			}
			if !labels[from] {
				bad("cell %s: neighbour %s=%s is not a configured cell", c.Label, dir, from)
			}
			if from == c.Label {
				bad("cell %s: neighbour %s is the cell itself", c.Label, dir)
			}
			if prev, ok := wiredAs[from]; ok {
				bad("cell %s: neighbour %s appears as both %s and %s", c.Label, from, prev, dir)
			}
			wiredAs[from] = dir
		}
	}
	return errors.Join(errs...)
}

// ExpandCells returns the explicit cells followed by the grid cells, with
// empty labels defaulted to cell_X_Y.
func (d Deployment) ExpandCells() ([]CellSpec, error) {
	out := make([]CellSpec, 0, len(d.Cells))
	seen := make(map[string]bool)
	add := func(c CellSpec) error {
		if c.Label == "" {
			c.Label = CellLabel(c.X, c.Y)
		}
		if seen[c.Label] {
			return fmt.Errorf("%w: duplicate cell label %q", ErrInvalid, c.Label)
		}
		seen[c.Label] = true
		out = append(out, c)
		return nil
	}
	for _, c := range d.Cells {
		if err := add(c); err != nil {
			return nil, err
		}
	}
	if d.Grid != nil {
		for _, c := range d.Grid.Cells() {
			if err := add(c); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// CellLabel is the default label of the cell at (x, y).
func CellLabel(x, y int) string {
	return fmt.Sprintf("cell_%d_%d", x, y)
}

var directionOffsets = map[string][2]int{
	"N":  {0, 1},
	"W":  {-1, 0},
	"S":  {0, -1},
	"E":  {1, 0},
	"NW": {-1, 1},
	"SW": {-1, -1},
	"SE": {1, -1},
	"NE": {1, 1},
}

func validDirection(s string) bool {
	_, ok := directionOffsets[s]
	return ok
}

// Cells lays the grid out row by row from (0, 0). The neighbour in direction
// d is the cell one step that way, wrapping at the edges.
func (g Grid) Cells() []CellSpec {
	out := make([]CellSpec, 0, g.Width*g.Height)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			n := make(map[string]string, len(directionOffsets))
			for dir, off := range directionOffsets {
				nx := mod(x+off[0], g.Width)
				ny := mod(y+off[1], g.Height)
				n[dir] = CellLabel(nx, ny)
			}
			out = append(out, CellSpec{
				Label:      CellLabel(x, y),
				X:          x,
				Y:          y,
				UX:         g.UX,
				UY:         g.UY,
				Neighbours: n,
			})
		}
	}
	return out
}

func mod(a, m int) int {
	return ((a % m) + m) % m
}
