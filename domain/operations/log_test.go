package operations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgmap/domain/core/aggregates"
	"orgmap/domain/core/entities"
	"orgmap/domain/core/valueobjects"
)

func TestLogAppendAssignsIncreasingSeq(t *testing.T) {
	l := NewLog()
	assert.True(t, l.IsEmpty())

	a := l.Append(EdgeAdd("org::A", "org::B", "partnership"))
	b := l.Append(EdgeRemove("org::A", "org::B", "partnership"))
	assert.Equal(t, uint64(1), a.Seq)
	assert.Equal(t, uint64(2), b.Seq)
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, uint64(2), l.LastSeq())
}

func TestLogPopLastAndFlush(t *testing.T) {
	l := NewLog()
	_, ok := l.PopLast()
	assert.False(t, ok)

	l.Append(EdgeAdd("org::A", "org::B", "partnership"))
	l.Append(UpdateNode("org::A", entities.HiddenPatch(false)))

	last, ok := l.PopLast()
	require.True(t, ok)
	assert.Equal(t, KindUpdateNode, last.Kind)
	assert.Equal(t, 1, l.Len())

	flushed := l.Flush()
	assert.Len(t, flushed, 1)
	assert.True(t, l.IsEmpty())

	next := l.Append(EdgeAdd("org::A", "org::C", "partnership"))
	assert.Equal(t, uint64(3), next.Seq, "sequence keeps increasing after flush")
}

func TestLogDiscardThroughKeepsLaterEntries(t *testing.T) {
	l := NewLog()
	l.Append(EdgeAdd("org::A", "org::B", "partnership"))
	mark := l.Append(EdgeAdd("org::A", "org::C", "partnership")).Seq
	l.Append(EdgeAdd("org::A", "org::D", "partnership"))

	assert.Equal(t, 2, l.DiscardThrough(mark))
	require.Equal(t, 1, l.Len())
	assert.Equal(t, valueobjects.NodeID("org::D"), l.Snapshot()[0].To)
	assert.Equal(t, 0, l.DiscardThrough(mark))
}

func TestLogTail(t *testing.T) {
	l := NewLog()
	l.Append(EdgeAdd("org::A", "org::B", "x"))
	l.Append(EdgeAdd("org::A", "org::C", "y"))
	l.Append(EdgeAdd("org::A", "org::D", "z"))

	tail := l.Tail(2)
	require.Len(t, tail, 2)
	assert.Equal(t, "y", tail[0].Relationship)
	assert.Equal(t, "z", tail[1].Relationship)
	assert.Nil(t, l.Tail(4))
	assert.Nil(t, l.Tail(0))
}

func TestOperationSameIgnoresSeq(t *testing.T) {
	a := EdgeAdd("org::A", "org::B", "partnership")
	b := a
	b.Seq = 99
	assert.True(t, a.Same(b))
	assert.False(t, a.Same(EdgeAdd("org::B", "org::A", "partnership")))
	assert.False(t, UpdateNode("org::A", entities.HiddenPatch(true)).Same(UpdateNode("org::A", entities.HiddenPatch(false))))
}

func TestReplayRebuildsState(t *testing.T) {
	acme, err := entities.NewNode(valueobjects.OrganizationType, "Acme")
	require.NoError(t, err)
	jane, err := entities.NewNode(valueobjects.PersonType, "Jane")
	require.NoError(t, err)

	ops := []Operation{
		AddNode(acme),
		AddNode(jane),
		EdgeAdd(acme.ID, jane.ID, "membership"),
		UpdateNode(acme.ID, entities.URLPatch("https://acme.example")),
		EdgeUpdate(acme.ID, jane.ID, "membership", "affiliation"),
		EdgeAdd(jane.ID, acme.ID, "partnership"),
		EdgeRemove(acme.ID, jane.ID, "partnership"),
	}

	g := aggregates.NewGraph()
	require.NoError(t, Replay(g, ops))

	assert.Equal(t, 2, g.NodeCount())
	require.Equal(t, 1, g.EdgeCount())
	_, ok := g.FindEdgeByKey(jane.ID, acme.ID, "affiliation")
	assert.True(t, ok)
	n, _ := g.GetNode(acme.ID)
	assert.Equal(t, "https://acme.example", n.URL)
}

func TestReplayFailsOnDanglingEdge(t *testing.T) {
	g := aggregates.NewGraph()
	err := Replay(g, []Operation{EdgeAdd("org::A", "org::B", "x")})
	assert.Error(t, err)
}
