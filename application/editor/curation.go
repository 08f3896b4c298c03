package editor

import (
	"fmt"

	"go.uber.org/zap"

	"orgmap/domain/core/entities"
	"orgmap/domain/core/valueobjects"
	"orgmap/domain/operations"
	pkgerrors "orgmap/pkg/errors"
)

// NodeChange reports the node after a curation edit and whether anything was staged
type NodeChange struct {
	Node    *entities.Node `json:"node"`
	Changed bool           `json:"changed"`
	Pending int            `json:"pending"`
}

// SetHidden flags a node as hidden or visible
func (e *Editor) SetHidden(id valueobjects.NodeID, hidden bool) (*NodeChange, error) {
	return e.patchNode(id, entities.HiddenPatch(hidden))
}

// SetURL changes a node's link. Surrounding whitespace is dropped.
func (e *Editor) SetURL(id valueobjects.NodeID, url string) (*NodeChange, error) {
	link, err := e.validate.URL(url)
	if err != nil {
		return nil, err
	}
	return e.patchNode(id, entities.URLPatch(link))
}

// SetType changes a node's type. The identifier keeps its original prefix.
func (e *Editor) SetType(id valueobjects.NodeID, nodeType string) (*NodeChange, error) {
	t, err := valueobjects.ParseNodeType(nodeType)
	if err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}
	return e.patchNode(id, entities.TypePatch(t))
}

// UpdateNode applies several field changes as a single update_node operation
func (e *Editor) UpdateNode(id valueobjects.NodeID, patch entities.NodePatch) (*NodeChange, error) {
	if patch.URL != nil {
		link, err := e.validate.URL(*patch.URL)
		if err != nil {
			return nil, err
		}
		patch.URL = &link
	}
	if patch.Type != nil {
		if !patch.Type.IsValid() {
			return nil, pkgerrors.NewValidationError(fmt.Sprintf("unknown node type %q", string(*patch.Type)))
		}
	}
	return e.patchNode(id, patch)
}

// patchNode stages only the fields that differ from the current node, so an
// edit that changes nothing appends nothing.
func (e *Editor) patchNode(id valueobjects.NodeID, patch entities.NodePatch) (*NodeChange, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	node, ok := e.graph.GetNode(id)
	if !ok {
		return nil, nodeNotFound(id)
	}

	effective := entities.NodePatch{}
	if patch.Type != nil && *patch.Type != node.Type {
		effective.Type = patch.Type
	}
	if patch.URL != nil && *patch.URL != node.URL {
		effective.URL = patch.URL
	}
	if patch.Hidden != nil && *patch.Hidden != node.Hidden {
		effective.Hidden = patch.Hidden
	}
	if effective.IsEmpty() {
		return &NodeChange{Node: node, Pending: e.log.Len()}, nil
	}

	e.graph.UpdateNode(id, effective)
	e.appendLocked(operations.UpdateNode(id, effective))
	updated, _ := e.graph.GetNode(id)

	e.logger.Info("Node updated",
		zap.String("node_id", string(id)),
		zap.Strings("fields", effective.Fields()),
		zap.Int("pending", e.log.Len()),
	)
	return &NodeChange{Node: updated, Changed: true, Pending: e.log.Len()}, nil
}
