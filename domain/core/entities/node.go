package entities

import (
	"strings"

	"orgmap/domain/core/valueobjects"
	pkgerrors "orgmap/pkg/errors"
	"orgmap/pkg/utils"
)

// Node is an entity in the relationship graph (organization, person or project).
// The ID never changes after creation. Notes, Member, Origin and CreatedAt are
// carried through from storage and never edited here.
type Node struct {
	ID        valueobjects.NodeID   `json:"id" yaml:"id"`
	Label     string                `json:"label" yaml:"label"`
	Type      valueobjects.NodeType `json:"type" yaml:"type"`
	URL       string                `json:"url,omitempty" yaml:"url,omitempty"`
	Hidden    bool                  `json:"hidden" yaml:"hidden"`
	Notes     string                `json:"notes,omitempty" yaml:"notes,omitempty"`
	Member    string                `json:"member,omitempty" yaml:"member,omitempty"`
	Origin    string                `json:"origin,omitempty" yaml:"origin,omitempty"`
	CreatedAt string                `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt string                `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// NewNode creates a node whose identity is derived from its type and label
func NewNode(nodeType valueobjects.NodeType, label string) (*Node, error) {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return nil, pkgerrors.NewValidationError("label cannot be empty")
	}

	nodeType = valueobjects.Normalize(nodeType)
	id, err := valueobjects.DeriveNodeID(nodeType, trimmed)
	if err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}

	return &Node{
		ID:        id,
		Label:     trimmed,
		Type:      nodeType,
		CreatedAt: utils.NowTimestamp(),
	}, nil
}

// Clone returns a copy safe to hand out of the store
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	return &c
}

// Apply merges the set fields of a patch. It reports whether anything changed.
func (n *Node) Apply(p NodePatch) bool {
	changed := false
	if p.Type != nil && *p.Type != n.Type {
		n.Type = *p.Type
		changed = true
	}
	if p.URL != nil && *p.URL != n.URL {
		n.URL = *p.URL
		changed = true
	}
	if p.Hidden != nil && *p.Hidden != n.Hidden {
		n.Hidden = *p.Hidden
		changed = true
	}
	return changed
}

// NodePatch is a partial update. Nil fields are left untouched.
type NodePatch struct {
	Type   *valueobjects.NodeType `json:"node_type,omitempty"`
	URL    *string                `json:"url,omitempty"`
	Hidden *bool                  `json:"hidden,omitempty"`
}

// IsEmpty reports whether the patch sets no field
func (p NodePatch) IsEmpty() bool {
	return p.Type == nil && p.URL == nil && p.Hidden == nil
}

// Equal compares two patches by value
func (p NodePatch) Equal(o NodePatch) bool {
	return eqPtr(p.Type, o.Type) && eqPtr(p.URL, o.URL) && eqPtr(p.Hidden, o.Hidden)
}

// Fields names the fields the patch sets
func (p NodePatch) Fields() []string {
	var fields []string
	if p.Type != nil {
		fields = append(fields, "node_type")
	}
	if p.URL != nil {
		fields = append(fields, "url")
	}
	if p.Hidden != nil {
		fields = append(fields, "hidden")
	}
	return fields
}

// HiddenPatch sets only the hidden flag
func HiddenPatch(hidden bool) NodePatch {
	return NodePatch{Hidden: &hidden}
}

// URLPatch sets only the url
func URLPatch(url string) NodePatch {
	return NodePatch{URL: &url}
}

// TypePatch sets only the node type
func TypePatch(t valueobjects.NodeType) NodePatch {
	return NodePatch{Type: &t}
}

func eqPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
