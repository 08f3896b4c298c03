package aggregates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgmap/domain/core/entities"
	"orgmap/domain/core/valueobjects"
	pkgerrors "orgmap/pkg/errors"
)

func mustNode(t *testing.T, g *Graph, nodeType valueobjects.NodeType, label string) valueobjects.NodeID {
	t.Helper()
	n, err := entities.NewNode(nodeType, label)
	require.NoError(t, err)
	id, _, err := g.AddNode(n)
	require.NoError(t, err)
	return id
}

func TestAddNodeIsIdempotent(t *testing.T) {
	g := NewGraph()

	tests := []struct {
		name        string
		nodeType    valueobjects.NodeType
		label       string
		wantID      valueobjects.NodeID
		wantCreated bool
	}{
		{name: "first insert", nodeType: valueobjects.OrganizationType, label: "Acme Corp", wantID: "org::Acme Corp", wantCreated: true},
		{name: "same label again", nodeType: valueobjects.OrganizationType, label: "Acme Corp", wantID: "org::Acme Corp", wantCreated: false},
		{name: "surrounding whitespace", nodeType: valueobjects.OrganizationType, label: "  Acme Corp  ", wantID: "org::Acme Corp", wantCreated: false},
		{name: "same label different type", nodeType: valueobjects.PersonType, label: "Acme Corp", wantID: "person::Acme Corp", wantCreated: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, created, err := g.AddNode(&entities.Node{Label: tt.label, Type: tt.nodeType})
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantCreated, created)
		})
	}

	assert.Equal(t, 2, g.NodeCount())
	require.NoError(t, g.Validate())
}

func TestAddNodeRejectsBlankLabel(t *testing.T) {
	g := NewGraph()
	_, _, err := g.AddNode(&entities.Node{Label: "   "})
	assert.True(t, pkgerrors.IsValidation(err))
	assert.Equal(t, 0, g.NodeCount())
}

func TestAddEdgeNaturalKeyIgnoresDirection(t *testing.T) {
	g := NewGraph()
	a := mustNode(t, g, valueobjects.OrganizationType, "A")
	b := mustNode(t, g, valueobjects.OrganizationType, "B")

	first, created, err := g.AddEdge(a, b, "partnership")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, first.ID)

	second, created, err := g.AddEdge(b, a, "partnership")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	_, created, err = g.AddEdge(a, b, "affiliation")
	require.NoError(t, err)
	assert.True(t, created)

	assert.Equal(t, 2, g.EdgeCount())
	found, ok := g.FindEdgeByKey(b, a, "partnership")
	require.True(t, ok)
	assert.Equal(t, first.ID, found.ID)
}

func TestAddEdgeRequiresEndpoints(t *testing.T) {
	g := NewGraph()
	a := mustNode(t, g, valueobjects.OrganizationType, "A")

	_, _, err := g.AddEdge(a, "org::Missing", "partnership")
	assert.True(t, pkgerrors.IsNotFound(err))

	_, _, err = g.AddEdge(a, a, "  ")
	assert.True(t, pkgerrors.IsValidation(err))
	assert.Equal(t, 0, g.EdgeCount())
}

func TestRemoveNodeCascades(t *testing.T) {
	g := NewGraph()
	x := mustNode(t, g, valueobjects.OrganizationType, "X")
	y := mustNode(t, g, valueobjects.OrganizationType, "Y")
	z := mustNode(t, g, valueobjects.PersonType, "Z")

	_, _, err := g.AddEdge(x, y, "partnership")
	require.NoError(t, err)
	_, _, err = g.AddEdge(z, x, "membership")
	require.NoError(t, err)
	_, _, err = g.AddEdge(y, z, "affiliation")
	require.NoError(t, err)

	removed := g.RemoveNode(x)
	assert.Len(t, removed, 2)
	assert.False(t, g.HasNode(x))
	assert.Empty(t, g.EdgesTouching(x))
	assert.Equal(t, 1, g.EdgeCount())
	require.NoError(t, g.Validate())

	assert.Nil(t, g.RemoveNode("org::Nope"))
}

func TestUpdateNode(t *testing.T) {
	g := NewGraph()
	id := mustNode(t, g, valueobjects.OrganizationType, "Acme")

	assert.True(t, g.UpdateNode(id, entities.HiddenPatch(true)))
	assert.False(t, g.UpdateNode(id, entities.HiddenPatch(true)), "unchanged value")
	assert.False(t, g.UpdateNode("org::Ghost", entities.HiddenPatch(true)), "absent node is a no-op")

	assert.True(t, g.UpdateNode(id, entities.TypePatch(valueobjects.ProjectType)))
	n, ok := g.GetNode(id)
	require.True(t, ok)
	assert.True(t, n.Hidden)
	assert.Equal(t, valueobjects.ProjectType, n.Type)
	assert.Equal(t, id, n.ID, "identity never changes")
}

func TestUpdateEdgeRelationship(t *testing.T) {
	g := NewGraph()
	a := mustNode(t, g, valueobjects.OrganizationType, "A")
	b := mustNode(t, g, valueobjects.OrganizationType, "B")
	e1, _, err := g.AddEdge(a, b, "partnership")
	require.NoError(t, err)
	_, _, err = g.AddEdge(a, b, "affiliation")
	require.NoError(t, err)

	_, err = g.UpdateEdgeRelationship(e1.ID, "affiliation")
	assert.True(t, pkgerrors.IsConflict(err))

	updated, err := g.UpdateEdgeRelationship(e1.ID, "membership")
	require.NoError(t, err)
	assert.Equal(t, "membership", updated.Relationship)
	_, ok := g.FindEdgeByKey(a, b, "partnership")
	assert.False(t, ok)
	_, ok = g.FindEdgeByKey(b, a, "membership")
	assert.True(t, ok)

	_, err = g.UpdateEdgeRelationship("missing", "x")
	assert.True(t, pkgerrors.IsNotFound(err))
	require.NoError(t, g.Validate())
}

func TestFindNodeByLabelAndSuggest(t *testing.T) {
	g := NewGraph()
	mustNode(t, g, valueobjects.OrganizationType, "Acme Corp")
	mustNode(t, g, valueobjects.PersonType, "acme fan")
	mustNode(t, g, valueobjects.ProjectType, "Atlas")
	mustNode(t, g, valueobjects.OrganizationType, "Beta Fund")

	n, ok := g.FindNodeByLabel("  Acme Corp ")
	require.True(t, ok)
	assert.Equal(t, valueobjects.NodeID("org::Acme Corp"), n.ID)

	_, ok = g.FindNodeByLabel("acme corp")
	assert.False(t, ok, "exact label match is case sensitive")

	suggestions := g.SuggestLabels("ac", 10)
	require.Len(t, suggestions, 2)
	assert.Equal(t, "Acme Corp", suggestions[0].Label)
	assert.Equal(t, "acme fan", suggestions[1].Label)

	assert.Len(t, g.SuggestLabels("a", 1), 1)
	assert.Len(t, g.SuggestLabels("", 0), 4)
}

func TestReplaceKeepsIrregularRows(t *testing.T) {
	g := NewGraph()
	mustNode(t, g, valueobjects.OrganizationType, "Old")

	nodes := []*entities.Node{
		{ID: "org::A", Label: "A", Type: valueobjects.OrganizationType},
		{ID: "person::B", Label: "B", Type: valueobjects.PersonType},
		{ID: "person::B", Label: "B again", Type: valueobjects.PersonType},
		{Label: "", Type: valueobjects.OrganizationType},
	}
	edges := []*entities.Edge{
		{From: "org::A", To: "person::B", Relationship: "membership"},
		{From: "person::B", To: "org::A", Relationship: "membership"},
		{From: "org::A", To: "org::Gone", Relationship: "partnership"},
		{From: "org::A", To: "person::B", Relationship: ""},
	}

	report := g.Replace(nodes, edges)
	assert.Len(t, report.LooseEdges, 3)
	assert.Len(t, report.StrayNodes, 2)
	assert.Equal(t, 5, report.Irregular())
	assert.Equal(t, 2, g.NodeCount())
	assert.Equal(t, 4, g.EdgeCount())
	assert.False(t, g.HasNode("org::Old"))
	require.NoError(t, g.Validate())

	rowNodes, rowEdges := g.Rows()
	assert.Len(t, rowNodes, 4)
	assert.Len(t, rowEdges, 4)
}

func TestRemovingIndexedEdgePromotesDuplicate(t *testing.T) {
	g := NewGraph()
	g.Replace(
		[]*entities.Node{
			{ID: "org::A", Label: "A", Type: valueobjects.OrganizationType},
			{ID: "org::B", Label: "B", Type: valueobjects.OrganizationType},
		},
		[]*entities.Edge{
			{ID: "first", From: "org::A", To: "org::B", Relationship: "partnership"},
			{ID: "second", From: "org::B", To: "org::A", Relationship: "partnership"},
		},
	)

	found, ok := g.FindEdgeByKey("org::A", "org::B", "partnership")
	require.True(t, ok)
	assert.Equal(t, "first", found.ID)

	g.RemoveEdge("first")
	found, ok = g.FindEdgeByKey("org::A", "org::B", "partnership")
	require.True(t, ok)
	assert.Equal(t, "second", found.ID)
	require.NoError(t, g.Validate())
}

func TestRestoreEdgeAcceptsLoadedRows(t *testing.T) {
	g := NewGraph()
	a := mustNode(t, g, valueobjects.OrganizationType, "A")

	restored, created := g.RestoreEdge(&entities.Edge{ID: "x", From: a, To: "org::Gone", Relationship: "partnership"})
	assert.True(t, created)
	assert.Equal(t, "x", restored.ID)
	assert.Equal(t, 1, g.EdgeCount())
	require.NoError(t, g.Validate())

	_, created = g.RestoreEdge(&entities.Edge{ID: "y", From: "org::Gone", To: a, Relationship: "partnership"})
	assert.False(t, created)
	assert.Equal(t, 1, g.EdgeCount())
}

func TestAdjacencyRebuildsAfterMutation(t *testing.T) {
	g := NewGraph()
	a := mustNode(t, g, valueobjects.OrganizationType, "A")
	b := mustNode(t, g, valueobjects.OrganizationType, "B")
	c := mustNode(t, g, valueobjects.OrganizationType, "C")
	_, _, err := g.AddEdge(a, b, "partnership")
	require.NoError(t, err)
	_, _, err = g.AddEdge(a, a, "self")
	require.NoError(t, err)

	adj := g.Adjacency()
	assert.Same(t, adj, g.Adjacency(), "cached while clean")
	assert.ElementsMatch(t, []valueobjects.NodeID{b}, adj.Neighbors(a))

	_, _, err = g.AddEdge(c, a, "affiliation")
	require.NoError(t, err)
	assert.ElementsMatch(t, []valueobjects.NodeID{b, c}, g.Adjacency().Neighbors(a))
}

func TestCloneIsIndependent(t *testing.T) {
	g := NewGraph()
	a := mustNode(t, g, valueobjects.OrganizationType, "A")
	b := mustNode(t, g, valueobjects.OrganizationType, "B")
	e, _, err := g.AddEdge(a, b, "partnership")
	require.NoError(t, err)

	c := g.Clone()
	c.RemoveEdge(e.ID)
	assert.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, 0, c.EdgeCount())
}

func TestFindNodeByLabelPrefersEarliestAdded(t *testing.T) {
	g := NewGraph()
	project := mustNode(t, g, valueobjects.ProjectType, "Zeta")
	mustNode(t, g, valueobjects.OrganizationType, "Zeta")

	found, ok := g.FindNodeByLabel(" Zeta ")
	require.True(t, ok)
	assert.Equal(t, project, found.ID)

	g.RemoveNode(project)
	found, ok = g.FindNodeByLabel("Zeta")
	require.True(t, ok)
	assert.Equal(t, valueobjects.NodeID("org::Zeta"), found.ID)
	require.NoError(t, g.Validate())
}
