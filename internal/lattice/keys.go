package lattice

import (
	"context"
	"fmt"

	"github.com/samcharles93/lattice/internal/fabric"
	"github.com/samcharles93/lattice/internal/logger"
)

// MissingKey fills a neighbour slot whose key could not be resolved.
const MissingKey int32 = -1

// NeighbourKeys is the content of the NeighbourKeys region.
type NeighbourKeys struct {
	Keys [numDirections]int32
	Mask uint32
}

// Words returns the region words: eight keys in direction order, then the mask.
func (nk NeighbourKeys) Words() []uint32 {
	out := make([]uint32, 0, numDirections+1)
	for _, k := range nk.Keys {
		out = append(out, uint32(k))
	}
	return append(out, nk.Mask)
}

// Key returns the key resolved for direction d.
func (nk NeighbourKeys) Key(d Direction) int32 {
	if !d.Valid() {
		return MissingKey
	}
	return nk.Keys[d]
}

// ResolveNeighbourKeys looks up the key each neighbour sends with and the mask
// that strips the sender's direction from an incoming key.
//
// A neighbour without a key gets MissingKey and a warning; that link is inert
// but the cell still deploys. The mask is taken from the south neighbour.
// Every resolved pair must carry the same mask.
func (c *Cell) ResolveNeighbourKeys(ctx context.Context, routing fabric.RoutingQuery) (NeighbourKeys, error) {
	log := logger.FromContext(ctx).With("cell", c.label)
	neighbours := c.neighbourSnapshot()

	var (
		out      NeighbourKeys
		masks    [numDirections]uint32
		resolved [numDirections]bool
	)
	for _, d := range Directions() {
		out.Keys[d] = MissingKey
		n := neighbours[d]
		if n == nil {
			log.Warn("lattice misses an edge", "direction", d.String(), "reason", "unwired")
			continue
		}
		pairs := routing.KeysAndMasks(n, PartitionID)
		if len(pairs) == 0 {
			log.Warn("lattice misses an edge", "direction", d.String(), "neighbour", n.Label(), "reason", "no routing key")
			continue
		}
		out.Keys[d] = int32(pairs[0].Key)
		masks[d] = pairs[0].Mask
		resolved[d] = true
	}

	ref := South
	if !resolved[ref] {
		ref = -1
		for _, d := range Directions() {
			if resolved[d] {
				ref = d
				break
			}
		}
	}
	if ref < 0 {
		log.Warn("no neighbour key resolved; writing zero mask")
		return out, nil
	}
	if ref != South {
		log.Warn("south neighbour unresolved; taking mask from another direction", "direction", ref.String())
	}
	out.Mask = masks[ref]

	for _, d := range Directions() {
		if resolved[d] && masks[d] != out.Mask {
			return out, configErr(c.label, fmt.Sprintf(
				"neighbour %s mask %#08x differs from shared mask %#08x", d, masks[d], out.Mask))
		}
	}
	return out, nil
}
