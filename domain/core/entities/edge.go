package entities

import (
	"orgmap/domain/core/valueobjects"
)

// Edge is an undirected relationship between two nodes. From/To keep the
// direction the edge was entered with, but identity ignores it.
type Edge struct {
	ID           string              `json:"id" yaml:"id"`
	From         valueobjects.NodeID `json:"from" yaml:"from"`
	To           valueobjects.NodeID `json:"to" yaml:"to"`
	Relationship string              `json:"relationship" yaml:"relationship"`
	Role         string              `json:"role,omitempty" yaml:"role,omitempty"`
	URL          string              `json:"url,omitempty" yaml:"url,omitempty"`
	Notes        string              `json:"notes,omitempty" yaml:"notes,omitempty"`
	CreatedAt    string              `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt    string              `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// Key returns the natural key of the edge
func (e *Edge) Key() valueobjects.EdgeKey {
	return valueobjects.NewEdgeKey(e.From, e.To, e.Relationship)
}

// Touches reports whether id is one of the endpoints
func (e *Edge) Touches(id valueobjects.NodeID) bool {
	return e.From == id || e.To == id
}

// Other returns the endpoint opposite to id
func (e *Edge) Other(id valueobjects.NodeID) valueobjects.NodeID {
	if e.From == id {
		return e.To
	}
	return e.From
}

// IsSelfLoop reports whether both endpoints are the same node
func (e *Edge) IsSelfLoop() bool {
	return e.From == e.To
}

// Clone returns a copy safe to hand out of the store
func (e *Edge) Clone() *Edge {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}

// Built-in relationship vocabulary offered by the editor
const (
	RelationshipPartnership = "partnership"
	RelationshipAffiliation = "affiliation"
	RelationshipMembership  = "membership"
)

// BuiltinRelationships lists the relationships always offered to the user
func BuiltinRelationships() []string {
	return []string{RelationshipPartnership, RelationshipAffiliation, RelationshipMembership}
}
