package editor

import (
	"go.uber.org/zap"

	"orgmap/domain/core/entities"
	"orgmap/domain/core/valueobjects"
	"orgmap/domain/operations"
	"orgmap/domain/undo"
	pkgerrors "orgmap/pkg/errors"
)

// RelationshipInput is the quick-editor form: two labels and a relationship.
// Types are only used when an endpoint has to be created.
type RelationshipInput struct {
	From         string
	To           string
	Relationship string
	FromType     valueobjects.NodeType
	ToType       valueobjects.NodeType
}

// RelationshipResult reports what an edge mutation did
type RelationshipResult struct {
	Edge          *entities.Edge        `json:"edge"`
	EdgeCreated   bool                  `json:"edge_created"`
	CreatedNodes  []valueobjects.NodeID `json:"created_nodes,omitempty"`
	UnhiddenNodes []valueobjects.NodeID `json:"unhidden_nodes,omitempty"`
	Pending       int                   `json:"pending"`
}

// AddRelationship links two labels, creating missing endpoints and un-hiding
// hidden ones. The action can be undone.
func (e *Editor) AddRelationship(in RelationshipInput) (*RelationshipResult, error) {
	from, to, rel, err := e.validateRelationship(in.From, in.To, in.Relationship)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	action := undo.Action{Kind: undo.ActionAdd}
	result := &RelationshipResult{}

	fromID, err := e.resolveLocked(from, in.FromType, &action)
	if err != nil {
		return nil, err
	}
	toID, err := e.resolveLocked(to, in.ToType, &action)
	if err != nil {
		return nil, err
	}

	edge, created, err := e.graph.AddEdge(fromID, toID, rel)
	if err != nil {
		return nil, err
	}
	action.Ops = append(action.Ops, e.appendLocked(operations.EdgeAdd(fromID, toID, rel)))
	action.Edge = *edge
	action.EdgeExisted = !created
	e.undo.Arm(action)
	e.relationships[rel] = struct{}{}

	result.Edge = edge
	result.EdgeCreated = created
	result.CreatedNodes = action.CreatedNodes
	result.UnhiddenNodes = action.UnhiddenNodes
	result.Pending = e.log.Len()

	e.logger.Info("Relationship added",
		zap.String("from", string(fromID)),
		zap.String("to", string(toID)),
		zap.String("relationship", rel),
		zap.Bool("edge_created", created),
		zap.Int("created_nodes", len(action.CreatedNodes)),
		zap.Int("pending", result.Pending),
	)
	return result, nil
}

// RemoveRelationship deletes the edge between two existing labels. It never
// creates nodes. The action can be undone.
func (e *Editor) RemoveRelationship(in RelationshipInput) (*RelationshipResult, error) {
	from, to, rel, err := e.validateRelationship(in.From, in.To, in.Relationship)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	fromNode, okFrom := e.graph.FindNodeByLabel(from)
	toNode, okTo := e.graph.FindNodeByLabel(to)
	if !okFrom || !okTo {
		return nil, noSuchEdge()
	}
	edge, ok := e.graph.FindEdgeByKey(fromNode.ID, toNode.ID, rel)
	if !ok {
		return nil, noSuchEdge()
	}
	return e.removeEdgeLocked(edge, fromNode.ID, toNode.ID), nil
}

// ConnectNodes links two existing nodes by id, as the connection list does.
// An edge that already exists is left as is and nothing is staged.
func (e *Editor) ConnectNodes(from, to valueobjects.NodeID, relationship string) (*RelationshipResult, error) {
	rel, err := e.validate.Relationship(relationship)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.graph.HasNode(from) {
		return nil, nodeNotFound(from)
	}
	if !e.graph.HasNode(to) {
		return nil, nodeNotFound(to)
	}

	edge, created, err := e.graph.AddEdge(from, to, rel)
	if err != nil {
		return nil, err
	}
	result := &RelationshipResult{Edge: edge, EdgeCreated: created}
	if created {
		op := e.appendLocked(operations.EdgeAdd(from, to, rel))
		e.undo.Arm(undo.Action{Kind: undo.ActionAdd, Edge: *edge, Ops: []operations.Operation{op}})
		e.relationships[rel] = struct{}{}
	}
	result.Pending = e.log.Len()
	return result, nil
}

// DisconnectNodes removes the edge between two node ids
func (e *Editor) DisconnectNodes(from, to valueobjects.NodeID, relationship string) (*RelationshipResult, error) {
	rel, err := e.validate.Relationship(relationship)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	edge, ok := e.graph.FindEdgeByKey(from, to, rel)
	if !ok {
		return nil, noSuchEdge()
	}
	return e.removeEdgeLocked(edge, from, to), nil
}

// DeleteEdge removes an edge by id, as the edge dialog does
func (e *Editor) DeleteEdge(edgeID string) (*RelationshipResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	edge, ok := e.graph.GetEdge(edgeID)
	if !ok {
		return nil, noSuchEdge()
	}
	return e.removeEdgeLocked(edge, edge.From, edge.To), nil
}

// ChangeRelationship renames the relationship of an edge. It is staged as an
// edge update and is not undoable.
func (e *Editor) ChangeRelationship(edgeID, relationship string) (*RelationshipResult, error) {
	rel, err := e.validate.Relationship(relationship)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	before, ok := e.graph.GetEdge(edgeID)
	if !ok {
		return nil, noSuchEdge()
	}
	if before.Relationship == rel {
		return &RelationshipResult{Edge: before, Pending: e.log.Len()}, nil
	}

	after, err := e.graph.UpdateEdgeRelationship(edgeID, rel)
	if err != nil {
		return nil, err
	}
	e.appendLocked(operations.EdgeUpdate(before.From, before.To, before.Relationship, rel))
	e.relationships[rel] = struct{}{}

	e.logger.Info("Relationship changed",
		zap.String("edge_id", edgeID),
		zap.String("old", before.Relationship),
		zap.String("new", rel),
	)
	return &RelationshipResult{Edge: after, Pending: e.log.Len()}, nil
}

func (e *Editor) removeEdgeLocked(edge *entities.Edge, from, to valueobjects.NodeID) *RelationshipResult {
	removed, _ := e.graph.RemoveEdge(edge.ID)
	op := e.appendLocked(operations.EdgeRemove(from, to, removed.Relationship))
	e.undo.Arm(undo.Action{Kind: undo.ActionRemove, Edge: *removed, Ops: []operations.Operation{op}})

	e.logger.Info("Relationship removed",
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("relationship", removed.Relationship),
		zap.Int("pending", e.log.Len()),
	)
	return &RelationshipResult{Edge: removed, Pending: e.log.Len()}
}

// resolveLocked finds a node by exact label, whatever its type, or creates one
// with the given type. Creation and un-hiding are recorded on the action.
func (e *Editor) resolveLocked(label string, nodeType valueobjects.NodeType, action *undo.Action) (valueobjects.NodeID, error) {
	if existing, ok := e.graph.FindNodeByLabel(label); ok {
		if existing.Hidden {
			e.graph.UpdateNode(existing.ID, entities.HiddenPatch(false))
			action.Ops = append(action.Ops, e.appendLocked(operations.UpdateNode(existing.ID, entities.HiddenPatch(false))))
			action.UnhiddenNodes = append(action.UnhiddenNodes, existing.ID)
		}
		return existing.ID, nil
	}

	node, err := entities.NewNode(nodeType, label)
	if err != nil {
		return "", err
	}
	id, created, err := e.graph.AddNode(node)
	if err != nil {
		return "", err
	}
	if created {
		action.Ops = append(action.Ops, e.appendLocked(operations.AddNode(node)))
		action.CreatedNodes = append(action.CreatedNodes, id)
	}
	return id, nil
}

func (e *Editor) validateRelationship(from, to, relationship string) (string, string, string, error) {
	from, to, err := e.validate.Labels(from, to)
	if err != nil {
		return "", "", "", err
	}
	rel, err := e.validate.Relationship(relationship)
	if err != nil {
		return "", "", "", err
	}
	return from, to, rel, nil
}

func noSuchEdge() error {
	err := pkgerrors.NewNotFoundError("edge").WithCode(pkgerrors.CodeEdgeNotFound)
	err.Message = "No such edge found"
	return err
}
