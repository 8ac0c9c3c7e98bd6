package lattice

import (
	"fmt"
	"math"

	"github.com/samcharles93/lattice/internal/fabric"
	"github.com/samcharles93/lattice/internal/recording"
	"github.com/samcharles93/lattice/internal/sysregion"
	"github.com/samcharles93/lattice/pkg/dsg"
)

// Region indices. The firmware addresses regions by these exact numbers.
const (
	RegionSystem        dsg.RegionID = 0
	RegionTransmissions dsg.RegionID = 1
	RegionPosition      dsg.RegionID = 2
	RegionNeighbourKeys dsg.RegionID = 3
	RegionVelocity      dsg.RegionID = 4
	RegionVertexIndex   dsg.RegionID = 5
	RegionResults       dsg.RegionID = 6
)

const (
	TransmissionDataSize = 2 * dsg.BytesPerWord // presence flag, key
	PositionDataSize     = 2 * dsg.BytesPerWord // x, y
	NeighbourKeysSize    = 9 * dsg.BytesPerWord // 8 keys and the mask
	VelocitySize         = 2 * dsg.BytesPerWord // u_x, u_y
	VertexIndexSize      = 2 * dsg.BytesPerWord // grid index, jitter offset
	RecordingElementSize = dsg.BytesPerWord     // one float32 per timestep

	recordedChannels = 1
)

var regionNames = map[dsg.RegionID]string{
	RegionSystem:        "System",
	RegionTransmissions: "Transmissions",
	RegionPosition:      "Position",
	RegionNeighbourKeys: "NeighbourKeys",
	RegionVelocity:      "Velocity",
	RegionVertexIndex:   "VertexIndex",
	RegionResults:       "Results",
}

// RegionName returns the display name of a cell image region.
func RegionName(id dsg.RegionID) string {
	if name, ok := regionNames[id]; ok {
		return name
	}
	return "Unknown"
}

// RegionPlan is one region's reservation.
type RegionPlan struct {
	ID    dsg.RegionID
	Label string
	Size  int
}

// PlanRegions returns every region of a cell image, in reservation order,
// sized for a run of nTimesteps.
func PlanRegions(nTimesteps int) []RegionPlan {
	return []RegionPlan{
		{RegionSystem, "system", sysregion.BytesRequirement},
		{RegionTransmissions, "inputs", TransmissionDataSize},
		{RegionPosition, "position", PositionDataSize},
		{RegionNeighbourKeys, "neighbour_keys", NeighbourKeysSize},
		{RegionVelocity, "velocity", VelocitySize},
		{RegionVertexIndex, "vertex_index", VertexIndexSize},
		{RegionResults, "results", ResultsRegionSize(nTimesteps)},
	}
}

// MaxTimesteps is the longest run whose recording fits the 32-bit space word
// of the results header.
var MaxTimesteps = int((math.MaxUint32 - uint64(recording.HeaderSize(recordedChannels))) / RecordingElementSize)

// CheckTimesteps rejects run lengths a cell image cannot record.
func CheckTimesteps(n int) error {
	if n < 0 || n > MaxTimesteps {
		return fmt.Errorf("%w: %d timesteps, want 0 to %d", ErrTimesteps, n, MaxTimesteps)
	}
	return nil
}

// ResultsRegionSize is the recording header plus one element per timestep.
func ResultsRegionSize(nTimesteps int) int {
	if nTimesteps < 0 {
		nTimesteps = 0
	}
	return recording.HeaderSize(recordedChannels) + nTimesteps*RecordingElementSize
}

// Resources returns the memory request of a single cell.
func Resources() fabric.ResourceRequest {
	fixed := sysregion.BytesRequirement +
		TransmissionDataSize +
		PositionDataSize +
		NeighbourKeysSize +
		VelocitySize +
		VertexIndexSize +
		recording.HeaderSize(recordedChannels)
	return fabric.ResourceRequest{
		FixedBytes:       fixed,
		BytesPerTimestep: RecordingElementSize,
	}
}

// ResourcesRequired implements fabric.DeploymentSizable.
func (c *Cell) ResourcesRequired() fabric.ResourceRequest {
	return Resources()
}
