package valueobjects

import (
	"fmt"
	"strings"
)

// NodeType classifies an entity in the relationship graph
type NodeType string

const (
	OrganizationType NodeType = "organization"
	PersonType       NodeType = "person"
	ProjectType      NodeType = "project"
)

// AllNodeTypes returns every supported node type
func AllNodeTypes() []NodeType {
	return []NodeType{OrganizationType, PersonType, ProjectType}
}

// Prefix returns the identifier prefix for the type
func (t NodeType) Prefix() string {
	switch t {
	case PersonType:
		return "person::"
	case ProjectType:
		return "project::"
	default:
		return "org::"
	}
}

// IsValid reports whether t is one of the known types
func (t NodeType) IsValid() bool {
	switch t {
	case OrganizationType, PersonType, ProjectType:
		return true
	}
	return false
}

// Normalize maps empty or unknown values to organization.
func Normalize(t NodeType) NodeType {
	if t.IsValid() {
		return t
	}
	return OrganizationType
}

// ParseNodeType parses user input. Empty input yields organization, anything
// else unknown is rejected.
func ParseNodeType(s string) (NodeType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return OrganizationType, nil
	}
	t := NodeType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown node type %q", s)
	}
	return t, nil
}
