package aggregates

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"orgmap/domain/core/entities"
	"orgmap/domain/core/valueobjects"
	pkgerrors "orgmap/pkg/errors"
	"orgmap/pkg/utils"
)

// Graph is the in-memory node/edge store behind the editor.
// It keeps edges unique by natural key and drops incident edges when a node is
// removed. Graph is not safe for concurrent use; the editor serializes access.
//
// Rows read from storage are kept even when they break those rules: an edge
// with a blank relationship, a missing endpoint or a repeated key is held as a
// loose edge, and a node row without an identity or with a repeated id is held
// as a stray. Both are written back unchanged on save.
type Graph struct {
	nodes     map[valueobjects.NodeID]*entities.Node
	edges     map[string]*entities.Edge
	edgeOrder []string
	byKey     map[valueobjects.EdgeKey]string
	loose     map[string]struct{}
	strays    []*entities.Node
	labels    *labelIndex
	adjacency *Adjacency
	adjDirty  bool
	version   int
}

// LoadReport lists the rows Replace kept outside the store's rules
type LoadReport struct {
	LooseEdges []*entities.Edge
	StrayNodes []*entities.Node
}

// Irregular counts the rows kept as loaded
func (r LoadReport) Irregular() int {
	return len(r.LooseEdges) + len(r.StrayNodes)
}

// NewGraph creates an empty store
func NewGraph() *Graph {
	return &Graph{
		nodes:    make(map[valueobjects.NodeID]*entities.Node),
		edges:    make(map[string]*entities.Edge),
		byKey:    make(map[valueobjects.EdgeKey]string),
		loose:    make(map[string]struct{}),
		labels:   newLabelIndex(),
		adjDirty: true,
	}
}

// Version increases on every mutation
func (g *Graph) Version() int {
	return g.version
}

// NodeCount returns the number of nodes
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// AddNode inserts a node. When node.ID is empty the identity is derived from
// type and label. An existing identity is returned untouched with created=false.
func (g *Graph) AddNode(node *entities.Node) (valueobjects.NodeID, bool, error) {
	if node == nil {
		return "", false, pkgerrors.NewValidationError("node cannot be nil")
	}

	n := node.Clone()
	n.Label = strings.TrimSpace(n.Label)
	n.Type = valueobjects.Normalize(n.Type)
	if n.ID.IsZero() {
		id, err := valueobjects.DeriveNodeID(n.Type, n.Label)
		if err != nil {
			return "", false, pkgerrors.NewValidationError(err.Error()).WithCode(pkgerrors.CodeMissingLabel)
		}
		n.ID = id
	}

	if _, exists := g.nodes[n.ID]; exists {
		return n.ID, false, nil
	}

	g.nodes[n.ID] = n
	g.labels.add(n)
	g.touch(true)
	return n.ID, true, nil
}

// GetNode returns a copy of the node
func (g *Graph) GetNode(id valueobjects.NodeID) (*entities.Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, false
	}
	return n.Clone(), true
}

// HasNode checks if a node exists
func (g *Graph) HasNode(id valueobjects.NodeID) bool {
	_, ok := g.nodes[id]
	return ok
}

// UpdateNode merges the patch into the node. Unknown ids are ignored.
// It reports whether the node changed.
func (g *Graph) UpdateNode(id valueobjects.NodeID, patch entities.NodePatch) bool {
	n, ok := g.nodes[id]
	if !ok {
		return false
	}
	if !n.Apply(patch) {
		return false
	}
	g.touch(false)
	return true
}

// RemoveNode deletes the node and every edge touching it. The removed edges
// are returned so callers can log or invert them.
func (g *Graph) RemoveNode(id valueobjects.NodeID) []*entities.Edge {
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}

	removed := make([]*entities.Edge, 0)
	for _, e := range g.EdgesTouching(id) {
		if edge, ok := g.RemoveEdge(e.ID); ok {
			removed = append(removed, edge)
		}
	}

	g.labels.remove(n)
	delete(g.nodes, id)
	g.touch(true)
	return removed
}

// AddEdge connects two existing nodes. If an edge with the same natural key
// exists (in either direction) it is returned with created=false.
func (g *Graph) AddEdge(from, to valueobjects.NodeID, relationship string) (*entities.Edge, bool, error) {
	return g.PutEdge(&entities.Edge{From: from, To: to, Relationship: relationship})
}

// PutEdge inserts a fully populated edge, keeping its ID and metadata when set.
func (g *Graph) PutEdge(edge *entities.Edge) (*entities.Edge, bool, error) {
	if edge == nil {
		return nil, false, pkgerrors.NewValidationError("edge cannot be nil")
	}
	rel := strings.TrimSpace(edge.Relationship)
	if rel == "" {
		return nil, false, pkgerrors.NewValidationError("relationship cannot be empty").WithCode(pkgerrors.CodeMissingRelation)
	}
	if !g.HasNode(edge.From) {
		return nil, false, pkgerrors.NewNotFoundError(fmt.Sprintf("node %q", edge.From)).WithCode(pkgerrors.CodeNodeNotFound)
	}
	if !g.HasNode(edge.To) {
		return nil, false, pkgerrors.NewNotFoundError(fmt.Sprintf("node %q", edge.To)).WithCode(pkgerrors.CodeNodeNotFound)
	}

	key := valueobjects.NewEdgeKey(edge.From, edge.To, rel)
	if existingID, ok := g.byKey[key]; ok {
		return g.edges[existingID].Clone(), false, nil
	}

	e := edge.Clone()
	e.Relationship = rel
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if _, taken := g.edges[e.ID]; taken {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt == "" {
		e.CreatedAt = utils.NowTimestamp()
	}

	g.edges[e.ID] = e
	g.edgeOrder = append(g.edgeOrder, e.ID)
	g.byKey[key] = e.ID
	g.touch(true)
	return e.Clone(), true, nil
}

// RemoveEdge deletes an edge by id
func (g *Graph) RemoveEdge(id string) (*entities.Edge, bool) {
	e, ok := g.edges[id]
	if !ok {
		return nil, false
	}
	delete(g.edges, id)
	delete(g.loose, id)
	for i, eid := range g.edgeOrder {
		if eid == id {
			g.edgeOrder = append(g.edgeOrder[:i], g.edgeOrder[i+1:]...)
			break
		}
	}
	g.unindex(e)
	g.touch(true)
	return e, true
}

// RestoreEdge puts back an edge exactly as it was, as undo does for a removal.
// Unlike PutEdge it accepts a blank relationship or a missing endpoint, which
// only loaded rows can have. An edge already holding the key is returned with
// created=false.
func (g *Graph) RestoreEdge(edge *entities.Edge) (*entities.Edge, bool) {
	if existingID, ok := g.byKey[edge.Key()]; ok && strings.TrimSpace(edge.Relationship) != "" {
		return g.edges[existingID].Clone(), false
	}
	return g.insertLoaded(edge).Clone(), true
}

// insertLoaded stores a row without the checks applied to user edits. It is
// indexed by natural key when the key is free and the relationship is set.
func (g *Graph) insertLoaded(edge *entities.Edge) *entities.Edge {
	e := edge.Clone()
	e.Relationship = strings.TrimSpace(e.Relationship)
	if _, taken := g.edges[e.ID]; e.ID == "" || taken {
		e.ID = uuid.New().String()
	}

	key := e.Key()
	_, taken := g.byKey[key]
	indexed := e.Relationship != "" && !taken
	if indexed {
		g.byKey[key] = e.ID
	}
	if !indexed || !g.HasNode(e.From) || !g.HasNode(e.To) {
		g.loose[e.ID] = struct{}{}
	}

	g.edges[e.ID] = e
	g.edgeOrder = append(g.edgeOrder, e.ID)
	g.touch(true)
	return e
}

// unindex drops e from the key index and hands the key to the next loose
// edge with the same key, if any.
func (g *Graph) unindex(e *entities.Edge) {
	key := e.Key()
	if g.byKey[key] != e.ID {
		return
	}
	delete(g.byKey, key)
	if e.Relationship == "" {
		return
	}
	for _, id := range g.edgeOrder {
		other := g.edges[id]
		if id == e.ID || other.Key() != key {
			continue
		}
		g.byKey[key] = id
		if g.HasNode(other.From) && g.HasNode(other.To) {
			delete(g.loose, id)
		}
		return
	}
}

// GetEdge returns a copy of the edge
func (g *Graph) GetEdge(id string) (*entities.Edge, bool) {
	e, ok := g.edges[id]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// FindEdgeByKey looks an edge up by its natural key, regardless of direction
func (g *Graph) FindEdgeByKey(a, b valueobjects.NodeID, relationship string) (*entities.Edge, bool) {
	id, ok := g.byKey[valueobjects.NewEdgeKey(a, b, strings.TrimSpace(relationship))]
	if !ok {
		return nil, false
	}
	return g.edges[id].Clone(), true
}

// UpdateEdgeRelationship changes the relationship of an edge. The new natural
// key must not already be taken by another edge.
func (g *Graph) UpdateEdgeRelationship(id string, relationship string) (*entities.Edge, error) {
	e, ok := g.edges[id]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("edge").WithCode(pkgerrors.CodeEdgeNotFound)
	}
	rel := strings.TrimSpace(relationship)
	if rel == "" {
		return nil, pkgerrors.NewValidationError("relationship cannot be empty").WithCode(pkgerrors.CodeMissingRelation)
	}
	if rel == e.Relationship {
		return e.Clone(), nil
	}

	newKey := valueobjects.NewEdgeKey(e.From, e.To, rel)
	if _, taken := g.byKey[newKey]; taken {
		return nil, pkgerrors.NewConflictError("an edge with that relationship already exists").WithCode(pkgerrors.CodeEdgeExists)
	}

	g.unindex(e)
	e.Relationship = rel
	g.byKey[newKey] = e.ID
	if g.HasNode(e.From) && g.HasNode(e.To) {
		delete(g.loose, e.ID)
	}
	g.touch(false)
	return e.Clone(), nil
}

// FindEdges returns copies of the edges matching the predicate, in insertion order
func (g *Graph) FindEdges(match func(*entities.Edge) bool) []*entities.Edge {
	result := make([]*entities.Edge, 0)
	for _, id := range g.edgeOrder {
		e := g.edges[id]
		if match == nil || match(e) {
			result = append(result, e.Clone())
		}
	}
	return result
}

// EdgesTouching returns every edge with id as an endpoint
func (g *Graph) EdgesTouching(id valueobjects.NodeID) []*entities.Edge {
	return g.FindEdges(func(e *entities.Edge) bool { return e.Touches(id) })
}

// Degree counts the edges touching id
func (g *Graph) Degree(id valueobjects.NodeID) int {
	count := 0
	for _, e := range g.edges {
		if e.Touches(id) {
			count++
		}
	}
	return count
}

// FindNodeByLabel finds a node whose trimmed label matches exactly, whatever its type
func (g *Graph) FindNodeByLabel(label string) (*entities.Node, bool) {
	id, ok := g.labels.exact(strings.TrimSpace(label))
	if !ok {
		return nil, false
	}
	return g.nodes[id].Clone(), true
}

// SuggestLabels returns up to limit nodes whose label starts with prefix,
// compared case-insensitively, in label order.
func (g *Graph) SuggestLabels(prefix string, limit int) []*entities.Node {
	ids := g.labels.prefix(strings.TrimSpace(prefix), limit)
	result := make([]*entities.Node, 0, len(ids))
	for _, id := range ids {
		result = append(result, g.nodes[id].Clone())
	}
	return result
}

// Nodes returns copies of all nodes ordered by label
func (g *Graph) Nodes() []*entities.Node {
	result := make([]*entities.Node, 0, len(g.nodes))
	g.labels.each(func(id valueobjects.NodeID) {
		result = append(result, g.nodes[id].Clone())
	})
	return result
}

// Edges returns copies of all edges in insertion order
func (g *Graph) Edges() []*entities.Edge {
	return g.FindEdges(nil)
}

// ClearAll empties the store
func (g *Graph) ClearAll() {
	g.nodes = make(map[valueobjects.NodeID]*entities.Node)
	g.edges = make(map[string]*entities.Edge)
	g.edgeOrder = nil
	g.byKey = make(map[valueobjects.EdgeKey]string)
	g.loose = make(map[string]struct{})
	g.strays = nil
	g.labels.clear()
	g.touch(true)
}

// Replace swaps the whole contents for the given rows. Every row is kept;
// those the store could not hold under its usual rules are reported.
func (g *Graph) Replace(nodes []*entities.Node, edges []*entities.Edge) LoadReport {
	g.ClearAll()

	var report LoadReport
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if _, created, err := g.AddNode(n); err != nil || !created {
			stray := n.Clone()
			g.strays = append(g.strays, stray)
			report.StrayNodes = append(report.StrayNodes, stray.Clone())
		}
	}
	for _, e := range edges {
		if e == nil {
			continue
		}
		stored := g.insertLoaded(e)
		if _, ok := g.loose[stored.ID]; ok {
			report.LooseEdges = append(report.LooseEdges, stored.Clone())
		}
	}
	return report
}

// StrayNodes returns copies of the node rows kept without an identity of their own
func (g *Graph) StrayNodes() []*entities.Node {
	result := make([]*entities.Node, 0, len(g.strays))
	for _, n := range g.strays {
		result = append(result, n.Clone())
	}
	return result
}

// Rows returns every node and edge, strays included, the way they are saved
func (g *Graph) Rows() ([]*entities.Node, []*entities.Edge) {
	return append(g.Nodes(), g.StrayNodes()...), g.Edges()
}

// Clone returns a deep copy of the store
func (g *Graph) Clone() *Graph {
	c := NewGraph()
	c.Replace(g.Rows())
	c.version = g.version
	return c
}

// Validate checks the structural invariants of the store
func (g *Graph) Validate() error {
	for _, e := range g.edges {
		if _, ok := g.loose[e.ID]; ok {
			continue
		}
		if !g.HasNode(e.From) {
			return fmt.Errorf("edge %s references missing node %s", e.ID, e.From)
		}
		if !g.HasNode(e.To) {
			return fmt.Errorf("edge %s references missing node %s", e.ID, e.To)
		}
		if g.byKey[e.Key()] != e.ID {
			return fmt.Errorf("edge %s is not indexed by its natural key", e.ID)
		}
	}
	if len(g.byKey) > len(g.edges) || len(g.edgeOrder) != len(g.edges) {
		return fmt.Errorf("edge index size mismatch")
	}
	if g.labels.len() != len(g.nodes) {
		return fmt.Errorf("label index size mismatch")
	}
	return nil
}

func (g *Graph) touch(structural bool) {
	g.version++
	if structural {
		g.adjDirty = true
	}
}
