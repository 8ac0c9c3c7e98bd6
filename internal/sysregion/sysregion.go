// Package sysregion writes the System region every application vertex carries.
package sysregion

import (
	"fmt"
	"hash/fnv"

	"github.com/samcharles93/lattice/internal/fabric"
	"github.com/samcharles93/lattice/pkg/dsg"
)

// Words written, in order: application hash, machine time step (µs), time
// scale factor, infinite-run flag, timesteps to run.
const systemWords = 5

// BytesRequirement is the size of the System region.
const BytesRequirement = systemWords * dsg.BytesPerWord

// Binary is implemented by vertices that run a named firmware binary.
type Binary interface {
	BinaryName() string
}

// Generator is the default fabric.SystemDataWriter.
type Generator struct{}

// ApplicationHash identifies a firmware binary by name.
func ApplicationHash(binary string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(binary))
	return h.Sum32()
}

// WriteSystemRegion reserves region and writes the timing configuration for v.
// A negative nTimesteps requests an unbounded run.
func (Generator) WriteSystemRegion(spec *dsg.Spec, region dsg.RegionID, v fabric.Vertex, timing fabric.Timing, nTimesteps int) error {
	if timing.MachineTimeStep == 0 {
		return fmt.Errorf("sysregion: machine time step must be positive")
	}
	if timing.TimeScaleFactor == 0 {
		return fmt.Errorf("sysregion: time scale factor must be positive")
	}

	var hash uint32
	if b, ok := v.(Binary); ok {
		hash = ApplicationHash(b.BinaryName())
	}
	infinite, steps := uint32(0), uint32(0)
	if nTimesteps < 0 {
		infinite = 1
	} else {
		steps = uint32(nTimesteps)
	}

	if err := spec.ReserveRegion(region, BytesRequirement, "system"); err != nil {
		return err
	}
	if err := spec.SwitchWriteFocus(region); err != nil {
		return err
	}
	return spec.WriteArray([]uint32{hash, timing.MachineTimeStep, timing.TimeScaleFactor, infinite, steps})
}
