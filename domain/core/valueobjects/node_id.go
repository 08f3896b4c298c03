package valueobjects

import (
	"errors"
	"strings"
)

// NodeID is the deterministic identifier of a node: a type prefix followed by
// the trimmed label. Two nodes with the same type and trimmed label share an ID.
type NodeID string

// DeriveNodeID builds the identifier for a node of the given type and label.
// Unknown types fall back to the organization prefix.
func DeriveNodeID(nodeType NodeType, label string) (NodeID, error) {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return "", errors.New("label cannot be empty")
	}
	return NodeID(Normalize(nodeType).Prefix() + trimmed), nil
}

// MustDeriveNodeID is DeriveNodeID for labels already known to be non-empty.
func MustDeriveNodeID(nodeType NodeType, label string) NodeID {
	id, err := DeriveNodeID(nodeType, label)
	if err != nil {
		panic(err)
	}
	return id
}

// TypeFromID reads the node type back out of an identifier prefix.
func TypeFromID(id string) NodeType {
	switch {
	case strings.HasPrefix(id, PersonType.Prefix()):
		return PersonType
	case strings.HasPrefix(id, ProjectType.Prefix()):
		return ProjectType
	default:
		return OrganizationType
	}
}

// String returns the string representation of the NodeID
func (id NodeID) String() string {
	return string(id)
}

// IsZero checks if the NodeID is the zero value
func (id NodeID) IsZero() bool {
	return id == ""
}

// Label strips the type prefix. IDs that carry no known prefix are returned as-is.
func (id NodeID) Label() string {
	s := string(id)
	for _, t := range AllNodeTypes() {
		if strings.HasPrefix(s, t.Prefix()) {
			return strings.TrimPrefix(s, t.Prefix())
		}
	}
	return s
}
