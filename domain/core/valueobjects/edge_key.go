package valueobjects

// EdgeKey is the natural key of an edge: the unordered endpoint pair plus the
// relationship. A-B and B-A with the same relationship produce the same key.
type EdgeKey struct {
	A            NodeID
	B            NodeID
	Relationship string
}

// NewEdgeKey orders the endpoints so the key is direction independent.
func NewEdgeKey(from, to NodeID, relationship string) EdgeKey {
	if to < from {
		from, to = to, from
	}
	return EdgeKey{A: from, B: to, Relationship: relationship}
}

// String returns a stable textual form of the key
func (k EdgeKey) String() string {
	return string(k.A) + "|" + string(k.B) + "|" + k.Relationship
}
