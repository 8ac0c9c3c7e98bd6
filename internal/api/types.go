package api

import (
	"github.com/samcharles93/lattice/internal/cellimage"
	"github.com/samcharles93/lattice/internal/fabric"
)

type ErrorBody struct {
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type LayoutRegion struct {
	ID    uint32 `json:"id"`
	Name  string `json:"name"`
	Label string `json:"label"`
	Size  int    `json:"size"`
}

type LayoutResponse struct {
	NTimesteps       int            `json:"n_timesteps"`
	Regions          []LayoutRegion `json:"regions"`
	FixedBytes       int            `json:"fixed_bytes"`
	BytesPerTimestep int            `json:"bytes_per_timestep"`
	TotalBytes       int            `json:"total_bytes"`
}

// CellImageRequest describes one cell and the toolchain state around it.
// Neighbour keys are given per compass direction; a direction that is absent
// has a neighbour without a routing key.
type CellImageRequest struct {
	Label     string           `json:"label"`
	X         int              `json:"x"`
	Y         int              `json:"y"`
	UX        float64          `json:"u_x"`
	UY        float64          `json:"u_y"`
	Placement fabric.Placement `json:"placement"`

	NTimesteps      int     `json:"n_timesteps"`
	MachineTimeStep *uint32 `json:"machine_time_step"`
	TimeScaleFactor *uint32 `json:"time_scale_factor"`
	Seed            *int64  `json:"seed"`
	Offset          *int    `json:"offset"`

	VertexIndex   int               `json:"vertex_index"`
	Key           *uint32           `json:"key"`
	NeighbourKeys map[string]uint32 `json:"neighbour_keys"`
	Mask          uint32            `json:"mask"`
}

type CellImageResponse struct {
	SizeBytes int                `json:"size_bytes"`
	Contents  cellimage.Contents `json:"contents"`
}

// DecodeResponse carries decoded samples. Bits holds the exact IEEE-754
// pattern of each sample; Samples is null where a sample is not finite.
type DecodeResponse struct {
	Count   int        `json:"count"`
	Samples []*float32 `json:"samples"`
	Bits    []uint32   `json:"bits"`
}
