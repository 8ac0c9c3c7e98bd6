package fabric

import (
	"errors"
	"fmt"
	"sort"
)

// Vertex is anything that can be placed on a core.
type Vertex interface {
	Label() string
}

// Edge carries one partition's traffic from Pre to Post.
type Edge struct {
	Pre       Vertex
	Post      Vertex
	Partition string
}

func (e Edge) String() string {
	return fmt.Sprintf("%s -[%s]-> %s", labelOf(e.Pre), e.Partition, labelOf(e.Post))
}

var (
	ErrDuplicateVertex = errors.New("fabric: vertex already in graph")
	ErrUnknownVertex   = errors.New("fabric: vertex not in graph")
)

// GraphQuery is the read side of the machine graph used during image generation.
type GraphQuery interface {
	IndexOf(v Vertex) int
	OutgoingPartitions(v Vertex) []string
	EdgesEndingAt(v Vertex) []Edge
	EdgesEndingAtWithPartition(v Vertex, partition string) []Edge
}

// Graph is an ordered machine graph. Vertex order is insertion order and is
// the source of each vertex's sequential index.
type Graph struct {
	vertices []Vertex
	index    map[Vertex]int
	incoming map[Vertex][]Edge
	outgoing map[Vertex][]Edge
}

func NewGraph() *Graph {
	return &Graph{
		index:    make(map[Vertex]int),
		incoming: make(map[Vertex][]Edge),
		outgoing: make(map[Vertex][]Edge),
	}
}

func (g *Graph) AddVertex(v Vertex) error {
	if v == nil {
		return errors.New("fabric: nil vertex")
	}
	if _, ok := g.index[v]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateVertex, v.Label())
	}
	g.index[v] = len(g.vertices)
	g.vertices = append(g.vertices, v)
	return nil
}

// AddEdge adds an edge between two vertices already in the graph.
// Self-loops are accepted here; rejecting them is the consumer's call.
func (g *Graph) AddEdge(pre, post Vertex, partition string) error {
	if _, ok := g.index[pre]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownVertex, labelOf(pre))
	}
	if _, ok := g.index[post]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownVertex, labelOf(post))
	}
	e := Edge{Pre: pre, Post: post, Partition: partition}
	g.outgoing[pre] = append(g.outgoing[pre], e)
	g.incoming[post] = append(g.incoming[post], e)
	return nil
}

func (g *Graph) Vertices() []Vertex {
	out := make([]Vertex, len(g.vertices))
	copy(out, g.vertices)
	return out
}

// IndexOf returns the sequential index of v, or -1 if v is not in the graph.
func (g *Graph) IndexOf(v Vertex) int {
	if i, ok := g.index[v]; ok {
		return i
	}
	return -1
}

// OutgoingPartitions returns the distinct partition names starting at v, sorted.
func (g *Graph) OutgoingPartitions(v Vertex) []string {
	seen := make(map[string]struct{})
	for _, e := range g.outgoing[v] {
		seen[e.Partition] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (g *Graph) EdgesStartingAt(v Vertex) []Edge {
	return append([]Edge(nil), g.outgoing[v]...)
}

func (g *Graph) EdgesEndingAt(v Vertex) []Edge {
	return append([]Edge(nil), g.incoming[v]...)
}

func (g *Graph) EdgesEndingAtWithPartition(v Vertex, partition string) []Edge {
	var out []Edge
	for _, e := range g.incoming[v] {
		if e.Partition == partition {
			out = append(out, e)
		}
	}
	return out
}

func labelOf(v Vertex) string {
	if v == nil {
		return "<nil>"
	}
	return v.Label()
}
