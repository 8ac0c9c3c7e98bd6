// Package cellimage reads generated cell images back into typed fields.
package cellimage

import (
	"errors"
	"fmt"

	"github.com/samcharles93/lattice/internal/lattice"
	"github.com/samcharles93/lattice/internal/recording"
	"github.com/samcharles93/lattice/pkg/dsg"
)

var ErrRegionMissing = errors.New("cellimage: region missing or short")

// File is an opened cell image.
type File struct {
	file *dsg.File
}

// Contents is everything a cell image tells the firmware.
type Contents struct {
	ApplicationHash uint32 `json:"application_hash"`
	MachineTimeStep uint32 `json:"machine_time_step"`
	TimeScaleFactor uint32 `json:"time_scale_factor"`
	Infinite        bool   `json:"infinite"`
	NTimesteps      uint32 `json:"n_timesteps"`

	Transmits bool   `json:"transmits"`
	Key       uint32 `json:"key"`

	X int32 `json:"x"`
	Y int32 `json:"y"`

	NeighbourKeys map[string]int32 `json:"neighbour_keys"`
	Mask          uint32           `json:"mask"`

	UX float32 `json:"u_x"`
	UY float32 `json:"u_y"`

	VertexIndex int32 `json:"vertex_index"`
	Offset      int32 `json:"offset"`

	Channels     []recording.Channel `json:"channels"`
	ResultsBytes uint64              `json:"results_bytes"`
}

// Open maps the image at path.
func Open(path string) (*File, error) {
	f, err := dsg.Open(path)
	if err != nil {
		return nil, err
	}
	return &File{file: f}, nil
}

// Parse wraps an image already in memory.
func Parse(data []byte) (*File, error) {
	f, err := dsg.Parse(data)
	if err != nil {
		return nil, err
	}
	return &File{file: f}, nil
}

func (f *File) Close() error {
	if f == nil || f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}

// DSG exposes the underlying region file.
func (f *File) DSG() *dsg.File {
	return f.file
}

func (f *File) words(id dsg.RegionID, n int) ([]uint32, error) {
	if f == nil || f.file == nil {
		return nil, errors.New("cellimage: file closed")
	}
	w := f.file.Words(id)
	if len(w) < n {
		return nil, fmt.Errorf("%w: %s has %d words, need %d", ErrRegionMissing, lattice.RegionName(id), len(w), n)
	}
	return w, nil
}

// Contents decodes every region.
func (f *File) Contents() (Contents, error) {
	var c Contents

	sys, err := f.words(lattice.RegionSystem, 5)
	if err != nil {
		return c, err
	}
	c.ApplicationHash = sys[0]
	c.MachineTimeStep = sys[1]
	c.TimeScaleFactor = sys[2]
	c.Infinite = sys[3] != 0
	c.NTimesteps = sys[4]

	tx, err := f.words(lattice.RegionTransmissions, 2)
	if err != nil {
		return c, err
	}
	c.Transmits = tx[0] != 0
	c.Key = tx[1]

	if _, err := f.words(lattice.RegionPosition, 2); err != nil {
		return c, err
	}
	pos := f.file.Int32s(lattice.RegionPosition)
	c.X, c.Y = pos[0], pos[1]

	keys, err := f.words(lattice.RegionNeighbourKeys, 9)
	if err != nil {
		return c, err
	}
	c.NeighbourKeys = make(map[string]int32, 8)
	for _, d := range lattice.Directions() {
		c.NeighbourKeys[d.String()] = int32(keys[d])
	}
	c.Mask = keys[8]

	if _, err := f.words(lattice.RegionVelocity, 2); err != nil {
		return c, err
	}
	vel := f.file.Float32s(lattice.RegionVelocity)
	c.UX, c.UY = vel[0], vel[1]

	if _, err := f.words(lattice.RegionVertexIndex, 2); err != nil {
		return c, err
	}
	vi := f.file.Int32s(lattice.RegionVertexIndex)
	c.VertexIndex, c.Offset = vi[0], vi[1]

	hdr, err := f.words(lattice.RegionResults, 1)
	if err != nil {
		return c, err
	}
	c.Channels, err = recording.ParseHeader(hdr)
	if err != nil {
		return c, err
	}
	c.ResultsBytes = f.file.Region(lattice.RegionResults).Size
	return c, nil
}
