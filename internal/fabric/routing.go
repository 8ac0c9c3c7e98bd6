package fabric

import (
	"errors"
	"fmt"
	"math/bits"
)

// KeyAndMask is one routing entry: a message matches when key == message&mask.
type KeyAndMask struct {
	Key  uint32
	Mask uint32
}

// RoutingQuery is the read side of the routing-key service.
type RoutingQuery interface {
	// KeysAndMasks returns the ordered pairs assigned to v's outgoing partition.
	KeysAndMasks(v Vertex, partition string) []KeyAndMask
	// FirstKey returns the first key assigned to v's outgoing partition.
	FirstKey(v Vertex, partition string) (uint32, bool)
}

type partitionRef struct {
	v         Vertex
	partition string
}

// RoutingTable holds the keys assigned per outgoing partition.
type RoutingTable struct {
	entries map[partitionRef][]KeyAndMask
}

func NewRoutingTable() *RoutingTable {
	return &RoutingTable{entries: make(map[partitionRef][]KeyAndMask)}
}

// Set replaces the pairs assigned to v's partition.
func (t *RoutingTable) Set(v Vertex, partition string, pairs ...KeyAndMask) {
	t.entries[partitionRef{v, partition}] = append([]KeyAndMask(nil), pairs...)
}

func (t *RoutingTable) KeysAndMasks(v Vertex, partition string) []KeyAndMask {
	return append([]KeyAndMask(nil), t.entries[partitionRef{v, partition}]...)
}

func (t *RoutingTable) FirstKey(v Vertex, partition string) (uint32, bool) {
	pairs := t.entries[partitionRef{v, partition}]
	if len(pairs) == 0 {
		return 0, false
	}
	return pairs[0].Key, true
}

var ErrKeySpaceExhausted = errors.New("fabric: routing key space exhausted")

// KeyBlock returns the key and mask covering n keys starting at base.
// n is rounded up to a power of two; base must be aligned to that block.
func KeyBlock(base uint32, n int) (KeyAndMask, uint64) {
	if n < 1 {
		n = 1
	}
	block := uint64(1) << bits.Len(uint(n-1))
	return KeyAndMask{Key: base, Mask: ^uint32(block - 1)}, block
}

// AllocateKeys assigns a key block to every outgoing partition in graph vertex
// order. Each vertex asks for its key count through PartitionKeyCountable;
// vertices that do not implement it get one key.
func AllocateKeys(g *Graph, base uint32) (*RoutingTable, error) {
	t := NewRoutingTable()
	next := uint64(base)
	for _, v := range g.vertices {
		for _, p := range g.OutgoingPartitions(v) {
			n := 1
			if kc, ok := v.(PartitionKeyCountable); ok {
				n = kc.KeysForPartition(p)
			}
			_, block := KeyBlock(0, n)
			// Align the block start so the mask covers it exactly.
			next = (next + block - 1) &^ (block - 1)
			if next+block > 1<<32 {
				return nil, fmt.Errorf("%w: %s/%s", ErrKeySpaceExhausted, v.Label(), p)
			}
			km, _ := KeyBlock(uint32(next), n)
			t.Set(v, p, km)
			next += block
		}
	}
	return t, nil
}
