package lattice

import (
	"context"
	"errors"
	"fmt"

	"github.com/samcharles93/lattice/internal/fabric"
	"github.com/samcharles93/lattice/internal/logger"
	"github.com/samcharles93/lattice/internal/recording"
	"github.com/samcharles93/lattice/internal/sysregion"
	"github.com/samcharles93/lattice/pkg/dsg"
)

// ValidateConnectivity checks the wiring the image depends on: exactly one
// outgoing partition and eight incoming STATE edges from eight distinct
// cells, none of them the cell itself. Each wired neighbour must be one of
// those senders, and no neighbour may fill two directions.
func (c *Cell) ValidateConnectivity(g fabric.GraphQuery) error {
	if g.IndexOf(c) < 0 {
		return configErr(c.label, "cell is not in the machine graph")
	}

	partitions := g.OutgoingPartitions(c)
	if len(partitions) != 1 {
		return countErr(c.label, "can only handle one type of outgoing partition", len(partitions))
	}

	edges := g.EdgesEndingAt(c)
	if len(edges) != numDirections {
		return countErr(c.label, fmt.Sprintf("expected %d incoming connections", numDirections), len(edges))
	}
	for _, e := range edges {
		if e.Pre == fabric.Vertex(c) {
			return configErr(c.label, "cell is connected to itself")
		}
	}

	state := g.EdgesEndingAtWithPartition(c, PartitionID)
	if len(state) != numDirections {
		return countErr(c.label, fmt.Sprintf("expected %d incoming %s edges", numDirections, PartitionID), len(state))
	}
	senders := make(map[fabric.Vertex]bool, numDirections)
	for _, e := range state {
		senders[e.Pre] = true
	}
	if len(senders) != numDirections {
		return countErr(c.label, fmt.Sprintf("expected %s edges from %d distinct cells", PartitionID, numDirections), len(senders))
	}

	wired := make(map[fabric.Vertex]Direction, numDirections)
	for i, n := range c.neighbourSnapshot() {
		if n == nil {
			continue
		}
		d := Direction(i)
		if prev, ok := wired[n]; ok {
			return configErr(c.label, fmt.Sprintf("neighbour %s is wired to both %s and %s", n.Label(), prev, d))
		}
		wired[n] = d
		if !senders[n] {
			return configErr(c.label, fmt.Sprintf("neighbour %s (%s) sends no %s edge to the cell", d, n.Label(), PartitionID))
		}
	}
	return nil
}

// GenerateImage writes the cell's boot image into spec and ends it.
//
// Connectivity, the run length and the neighbour keys are checked before
// anything is written or a jitter offset drawn; a failure leaves spec
// untouched. Regions are then written in a fixed order: System, the Results
// header, Transmissions, Position, VertexIndex, NeighbourKeys, Velocity.
func (c *Cell) GenerateImage(ctx context.Context, spec *dsg.Spec, ic fabric.ImageContext) error {
	if spec == nil {
		return errors.New("lattice: nil spec")
	}
	if ic.Graph == nil || ic.Routing == nil {
		return errors.New("lattice: image context needs graph and routing services")
	}
	if ic.Jitter == nil {
		return errors.New("lattice: image context needs a jitter source")
	}
	if err := CheckTimesteps(ic.NTimesteps); err != nil {
		return err
	}
	system := ic.System
	if system == nil {
		system = sysregion.Generator{}
	}
	ctx = logger.WithContext(ctx, logger.FromContext(ctx).With("placement", ic.Placement.String()))
	log := logger.FromContext(ctx).With("cell", c.label)

	if err := c.ValidateConnectivity(ic.Graph); err != nil {
		return err
	}
	keys, err := c.ResolveNeighbourKeys(ctx, ic.Routing)
	if err != nil {
		return err
	}
	header, err := recording.HeaderArray([]int{RecordingElementSize * ic.NTimesteps})
	if err != nil {
		return err
	}

	if err := system.WriteSystemRegion(spec, RegionSystem, c, ic.Timing, ic.NTimesteps); err != nil {
		return fmt.Errorf("system region: %w", err)
	}
	for _, r := range PlanRegions(ic.NTimesteps) {
		if r.ID == RegionSystem {
			continue
		}
		if err := spec.ReserveRegion(r.ID, r.Size, r.Label); err != nil {
			return err
		}
	}

	if err := spec.SwitchWriteFocus(RegionResults); err != nil {
		return err
	}
	if err := spec.WriteArray(header); err != nil {
		return err
	}

	key, hasKey := ic.Routing.FirstKey(c, PartitionID)
	if !hasKey {
		log.Warn("cell has no outgoing key; it will not transmit")
		key = 0
	}
	if err := spec.SwitchWriteFocus(RegionTransmissions); err != nil {
		return err
	}
	if err := spec.WriteArray([]uint32{boolWord(hasKey), key}); err != nil {
		return err
	}

	if err := spec.SwitchWriteFocus(RegionPosition); err != nil {
		return err
	}
	if err := spec.WriteInt32(int32(c.x)); err != nil {
		return err
	}
	if err := spec.WriteInt32(int32(c.y)); err != nil {
		return err
	}

	offset := ic.Jitter.GenerateOffset(ic.Placement.P)
	if err := spec.SwitchWriteFocus(RegionVertexIndex); err != nil {
		return err
	}
	if err := spec.WriteInt32(int32(ic.Graph.IndexOf(c))); err != nil {
		return err
	}
	if err := spec.WriteInt32(int32(offset)); err != nil {
		return err
	}

	if err := spec.SwitchWriteFocus(RegionNeighbourKeys); err != nil {
		return err
	}
	if err := spec.WriteArray(keys.Words()); err != nil {
		return err
	}

	if err := spec.SwitchWriteFocus(RegionVelocity); err != nil {
		return err
	}
	if err := spec.WriteFloat32(float32(c.ux)); err != nil {
		return err
	}
	if err := spec.WriteFloat32(float32(c.uy)); err != nil {
		return err
	}

	if err := spec.EndSpecification(); err != nil {
		return err
	}
	c.seal()
	log.Debug("image generated", "key", key, "offset", offset)
	return nil
}

func boolWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
