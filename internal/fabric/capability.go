package fabric

import (
	"context"

	"github.com/samcharles93/lattice/pkg/dsg"
)

// ResourceRequest is the memory a vertex asks the placement service for:
// a fixed part plus a part that grows with the number of timesteps run.
type ResourceRequest struct {
	FixedBytes       int `json:"fixed_bytes"`
	BytesPerTimestep int `json:"bytes_per_timestep"`
}

// Total returns the bytes needed to run n timesteps.
func (r ResourceRequest) Total(n int) int {
	return r.FixedBytes + r.BytesPerTimestep*n
}

// Timing is the simulation clock configuration written to the System region.
type Timing struct {
	MachineTimeStep uint32 `json:"machine_time_step" yaml:"machine_time_step"` // microseconds
	TimeScaleFactor uint32 `json:"time_scale_factor" yaml:"time_scale_factor"`
}

// OffsetGenerator produces a startup delay for the vertex placed on coreSlot.
type OffsetGenerator interface {
	GenerateOffset(coreSlot int) int
}

// SystemDataWriter reserves and fills a vertex's System region.
type SystemDataWriter interface {
	WriteSystemRegion(spec *dsg.Spec, region dsg.RegionID, v Vertex, timing Timing, nTimesteps int) error
}

// BufferSource drains recorded bytes for a placement. missing reports that the
// recorder lost data; raw still holds whatever was recovered.
type BufferSource interface {
	DataByPlacement(ctx context.Context, p Placement, channel int) (raw []byte, missing bool, err error)
}

// ImageContext carries everything a vertex needs from the toolchain to write
// its image. All services must be finalised before it is built.
type ImageContext struct {
	Placement  Placement
	Graph      GraphQuery
	Routing    RoutingQuery
	Timing     Timing
	NTimesteps int
	Jitter     OffsetGenerator
	System     SystemDataWriter
}

// DeploymentSizable vertices report the memory they need.
type DeploymentSizable interface {
	ResourcesRequired() ResourceRequest
}

// ImageWritable vertices write their boot image into spec.
type ImageWritable interface {
	GenerateImage(ctx context.Context, spec *dsg.Spec, ic ImageContext) error
}

// ResultReadable vertices decode what they recorded during a run.
type ResultReadable interface {
	GetData(ctx context.Context, src BufferSource, p Placement) ([]float32, error)
}

// PartitionKeyCountable vertices choose how many routing keys each of their
// outgoing partitions needs.
type PartitionKeyCountable interface {
	KeysForPartition(partition string) int
}
