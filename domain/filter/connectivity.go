// Package filter computes which nodes stay visible for a pair of label queries:
// every node connected, through any path, to a node whose label matches.
package filter

import (
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/traverse"

	"orgmap/domain/core/aggregates"
	"orgmap/domain/core/valueobjects"
)

// Partition splits the node set into visible and ghosted ids. When Active is
// false no filter applies and every node is visible.
type Partition struct {
	Visible []valueobjects.NodeID `json:"visible"`
	Ghosted []valueobjects.NodeID `json:"ghosted"`
	Active  bool                  `json:"active"`
}

// Query holds the two free-text label queries
type Query struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// IsEmpty reports whether both queries are blank after trimming
func (q Query) IsEmpty() bool {
	return strings.TrimSpace(q.From) == "" && strings.TrimSpace(q.To) == ""
}

// Compute returns the partition for q over g. Matching is a case-insensitive
// substring test on labels; a query with no match contributes nothing.
func Compute(g *aggregates.Graph, q Query) Partition {
	nodes := g.Nodes()
	if q.IsEmpty() {
		all := make([]valueobjects.NodeID, 0, len(nodes))
		for _, n := range nodes {
			all = append(all, n.ID)
		}
		return Partition{Visible: all, Ghosted: []valueobjects.NodeID{}, Active: false}
	}

	adj := g.Adjacency()
	visible := make(map[valueobjects.NodeID]struct{})
	for _, raw := range []string{q.From, q.To} {
		needle := strings.ToLower(strings.TrimSpace(raw))
		if needle == "" {
			continue
		}
		seeds := make([]valueobjects.NodeID, 0)
		for _, n := range nodes {
			if strings.Contains(strings.ToLower(n.Label), needle) {
				seeds = append(seeds, n.ID)
			}
		}
		for id := range Component(adj, seeds) {
			visible[id] = struct{}{}
		}
	}

	p := Partition{
		Visible: make([]valueobjects.NodeID, 0, len(visible)),
		Ghosted: make([]valueobjects.NodeID, 0, len(nodes)-len(visible)),
		Active:  true,
	}
	for _, n := range nodes {
		if _, ok := visible[n.ID]; ok {
			p.Visible = append(p.Visible, n.ID)
		} else {
			p.Ghosted = append(p.Ghosted, n.ID)
		}
	}
	return p
}

// Component returns the union of the connected components containing seeds
func Component(adj *aggregates.Adjacency, seeds []valueobjects.NodeID) map[valueobjects.NodeID]struct{} {
	reached := make(map[valueobjects.NodeID]struct{})
	bfs := traverse.BreadthFirst{
		Visit: func(n graph.Node) {
			reached[adj.NodeID(n)] = struct{}{}
		},
	}
	for _, id := range seeds {
		start, ok := adj.Node(id)
		if !ok || bfs.Visited(start) {
			continue
		}
		bfs.Walk(adj.Graph(), start, nil)
	}
	return reached
}

// Sorted returns a sorted copy of ids, handy for stable output
func Sorted(ids []valueobjects.NodeID) []valueobjects.NodeID {
	out := append([]valueobjects.NodeID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
