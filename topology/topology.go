package topology

import (
	"fmt"
	"sort"

	"github.com/dominikbraun/graph"
	"github.com/emicklei/dot"
)

// Kind selects the sync graph the simulator runs merge rounds over.
type Kind string

const (
	Ring Kind = "ring"
	Mesh Kind = "mesh"
	Star Kind = "star"
)

// Topology is an undirected sync graph over replica ids. An edge means the
// two endpoints merge pairwise, in both directions, during a round.
type Topology struct {
	kind  Kind
	ids   []string
	edges []Edge
}

// Edge is one pairwise sync between two replicas.
type Edge struct {
	A, B string
}

// New builds the sync graph of the given kind over the replica ids. Star
// uses the first id (in sorted order) as the hub.
func New(kind Kind, ids []string) (*Topology, error) {
	if len(ids) < 2 {
		return nil, fmt.Errorf("topology needs at least two replicas, got %d", len(ids))
	}

	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)

	g := graph.New(graph.StringHash)
	for _, id := range sorted {
		if err := g.AddVertex(id); err != nil {
			return nil, fmt.Errorf("duplicate replica id %q", id)
		}
	}

	switch kind {
	case Ring:
		for i := range sorted {
			// the two-replica ring closes on its single edge
			_ = g.AddEdge(sorted[i], sorted[(i+1)%len(sorted)])
		}
	case Mesh:
		for i := range sorted {
			for j := i + 1; j < len(sorted); j++ {
				_ = g.AddEdge(sorted[i], sorted[j])
			}
		}
	case Star:
		for _, id := range sorted[1:] {
			_ = g.AddEdge(sorted[0], id)
		}
	default:
		return nil, fmt.Errorf("unknown topology kind %q", kind)
	}

	edges, err := g.Edges()
	if err != nil {
		return nil, fmt.Errorf("building %s topology: %w", kind, err)
	}
	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		a, b := e.Source, e.Target
		if a > b {
			a, b = b, a
		}
		out = append(out, Edge{A: a, B: b})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})

	return &Topology{kind: kind, ids: sorted, edges: out}, nil
}

func (t *Topology) Kind() Kind {
	return t.kind
}

// IDs returns the replica ids in sorted order.
func (t *Topology) IDs() []string {
	ids := make([]string, len(t.ids))
	copy(ids, t.ids)
	return ids
}

// Edges returns the pairwise syncs of one round in deterministic order.
func (t *Topology) Edges() []Edge {
	edges := make([]Edge, len(t.edges))
	copy(edges, t.edges)
	return edges
}

// DOT renders the sync graph for inspection with graphviz.
func (t *Topology) DOT() string {
	g := dot.NewGraph(dot.Undirected)
	nodes := make(map[string]dot.Node, len(t.ids))
	for _, id := range t.ids {
		nodes[id] = g.Node(id)
	}
	for _, e := range t.Edges() {
		g.Edge(nodes[e.A], nodes[e.B])
	}
	return g.String()
}
