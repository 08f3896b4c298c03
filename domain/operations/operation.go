// Package operations holds the pending-edit log: every local mutation that has
// not been persisted yet, in the order it was made.
package operations

import (
	"fmt"

	"orgmap/domain/core/entities"
	"orgmap/domain/core/valueobjects"
)

// Kind names the type of a pending operation
type Kind string

const (
	KindAddNode    Kind = "add_node"
	KindUpdateNode Kind = "update_node"
	KindEdgeAdd    Kind = "edge_add"
	KindEdgeRemove Kind = "edge_remove"
	KindEdgeUpdate Kind = "edge_update"
)

// Operation is one staged mutation. Only the fields relevant to Kind are set.
type Operation struct {
	Seq             uint64              `json:"seq"`
	Kind            Kind                `json:"type"`
	Node            *entities.Node      `json:"node,omitempty"`
	NodeID          valueobjects.NodeID `json:"id,omitempty"`
	Fields          entities.NodePatch  `json:"fields,omitempty"`
	From            valueobjects.NodeID `json:"from,omitempty"`
	To              valueobjects.NodeID `json:"to,omitempty"`
	Relationship    string              `json:"relationship,omitempty"`
	NewRelationship string              `json:"new_relationship,omitempty"`
}

// AddNode records the creation of a node
func AddNode(n *entities.Node) Operation {
	return Operation{Kind: KindAddNode, Node: n.Clone(), NodeID: n.ID}
}

// UpdateNode records a partial node update
func UpdateNode(id valueobjects.NodeID, fields entities.NodePatch) Operation {
	return Operation{Kind: KindUpdateNode, NodeID: id, Fields: fields}
}

// EdgeAdd records a new edge
func EdgeAdd(from, to valueobjects.NodeID, relationship string) Operation {
	return Operation{Kind: KindEdgeAdd, From: from, To: to, Relationship: relationship}
}

// EdgeRemove records the removal of an edge
func EdgeRemove(from, to valueobjects.NodeID, relationship string) Operation {
	return Operation{Kind: KindEdgeRemove, From: from, To: to, Relationship: relationship}
}

// EdgeUpdate records a relationship change on an existing edge
func EdgeUpdate(from, to valueobjects.NodeID, oldRelationship, newRelationship string) Operation {
	return Operation{
		Kind:            KindEdgeUpdate,
		From:            from,
		To:              to,
		Relationship:    oldRelationship,
		NewRelationship: newRelationship,
	}
}

// Same compares two operations by content, ignoring their sequence numbers
func (o Operation) Same(other Operation) bool {
	if o.Kind != other.Kind {
		return false
	}
	switch o.Kind {
	case KindAddNode:
		return o.NodeID == other.NodeID
	case KindUpdateNode:
		return o.NodeID == other.NodeID && o.Fields.Equal(other.Fields)
	default:
		return o.From == other.From &&
			o.To == other.To &&
			o.Relationship == other.Relationship &&
			o.NewRelationship == other.NewRelationship
	}
}

// String renders the operation for logs
func (o Operation) String() string {
	switch o.Kind {
	case KindAddNode, KindUpdateNode:
		return fmt.Sprintf("#%d %s %s", o.Seq, o.Kind, o.NodeID)
	case KindEdgeUpdate:
		return fmt.Sprintf("#%d %s %s-%s %s->%s", o.Seq, o.Kind, o.From, o.To, o.Relationship, o.NewRelationship)
	default:
		return fmt.Sprintf("#%d %s %s-%s %s", o.Seq, o.Kind, o.From, o.To, o.Relationship)
	}
}
