package aggregates

import (
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"

	"orgmap/domain/core/valueobjects"
)

// Adjacency is an undirected view of the store used for connectivity queries.
// Self-loops are left out. Parallel edges with different relationships
// collapse into a single link.
type Adjacency struct {
	g   *simple.UndirectedGraph
	ids map[valueobjects.NodeID]int64
	rev map[int64]valueobjects.NodeID
}

// Adjacency returns the undirected view, rebuilding it if the store changed
// since the last call.
func (g *Graph) Adjacency() *Adjacency {
	if g.adjacency != nil && !g.adjDirty {
		return g.adjacency
	}

	adj := &Adjacency{
		g:   simple.NewUndirectedGraph(),
		ids: make(map[valueobjects.NodeID]int64, len(g.nodes)),
		rev: make(map[int64]valueobjects.NodeID, len(g.nodes)),
	}

	var next int64
	g.labels.each(func(id valueobjects.NodeID) {
		adj.ids[id] = next
		adj.rev[next] = id
		adj.g.AddNode(simple.Node(next))
		next++
	})

	for _, eid := range g.edgeOrder {
		e := g.edges[eid]
		if e.IsSelfLoop() {
			continue
		}
		from, okFrom := adj.ids[e.From]
		to, okTo := adj.ids[e.To]
		if !okFrom || !okTo {
			continue
		}
		adj.g.SetEdge(adj.g.NewEdge(simple.Node(from), simple.Node(to)))
	}

	g.adjacency = adj
	g.adjDirty = false
	return adj
}

// Graph exposes the underlying gonum graph
func (a *Adjacency) Graph() graph.Undirected {
	return a.g
}

// Node returns the graph node standing for id
func (a *Adjacency) Node(id valueobjects.NodeID) (graph.Node, bool) {
	n, ok := a.ids[id]
	if !ok {
		return nil, false
	}
	return simple.Node(n), true
}

// NodeID maps a graph node back to the store identifier
func (a *Adjacency) NodeID(n graph.Node) valueobjects.NodeID {
	return a.rev[n.ID()]
}

// Neighbors lists the distinct nodes linked to id
func (a *Adjacency) Neighbors(id valueobjects.NodeID) []valueobjects.NodeID {
	n, ok := a.ids[id]
	if !ok {
		return nil
	}
	it := a.g.From(n)
	result := make([]valueobjects.NodeID, 0, it.Len())
	for it.Next() {
		result = append(result, a.rev[it.Node().ID()])
	}
	return result
}

// Len returns the number of nodes in the view
func (a *Adjacency) Len() int {
	return len(a.ids)
}
