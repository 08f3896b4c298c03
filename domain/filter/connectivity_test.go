package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgmap/domain/core/aggregates"
	"orgmap/domain/core/entities"
	"orgmap/domain/core/valueobjects"
)

// fixture builds components {A,B,C}, {D} and {E,F}
func fixture(t *testing.T) *aggregates.Graph {
	t.Helper()
	g := aggregates.NewGraph()
	for _, label := range []string{"Alpha", "Bravo", "Charlie", "Delta", "Echo", "Foxtrot"} {
		n, err := entities.NewNode(valueobjects.OrganizationType, label)
		require.NoError(t, err)
		_, _, err = g.AddNode(n)
		require.NoError(t, err)
	}
	link := func(a, b string) {
		_, _, err := g.AddEdge(valueobjects.NodeID("org::"+a), valueobjects.NodeID("org::"+b), "partnership")
		require.NoError(t, err)
	}
	link("Alpha", "Bravo")
	link("Bravo", "Charlie")
	link("Echo", "Foxtrot")
	link("Delta", "Delta")
	return g
}

func ids(labels ...string) []valueobjects.NodeID {
	out := make([]valueobjects.NodeID, 0, len(labels))
	for _, l := range labels {
		out = append(out, valueobjects.NodeID("org::"+l))
	}
	return out
}

func TestComputeUnionOfComponents(t *testing.T) {
	g := fixture(t)

	p := Compute(g, Query{From: "alp", To: "DELTA"})
	assert.True(t, p.Active)
	assert.ElementsMatch(t, ids("Alpha", "Bravo", "Charlie", "Delta"), p.Visible)
	assert.ElementsMatch(t, ids("Echo", "Foxtrot"), p.Ghosted)
}

func TestComputeCases(t *testing.T) {
	g := fixture(t)

	tests := []struct {
		name        string
		query       Query
		wantActive  bool
		wantVisible []valueobjects.NodeID
	}{
		{
			name:        "both empty disables the filter",
			query:       Query{From: "  ", To: ""},
			wantActive:  false,
			wantVisible: ids("Alpha", "Bravo", "Charlie", "Delta", "Echo", "Foxtrot"),
		},
		{
			name:        "single query",
			query:       Query{To: "fox"},
			wantActive:  true,
			wantVisible: ids("Echo", "Foxtrot"),
		},
		{
			name:        "no match ghosts everything",
			query:       Query{From: "zulu"},
			wantActive:  true,
			wantVisible: []valueobjects.NodeID{},
		},
		{
			name:        "unmatched side contributes nothing",
			query:       Query{From: "charlie", To: "zulu"},
			wantActive:  true,
			wantVisible: ids("Alpha", "Bravo", "Charlie"),
		},
		{
			name:        "substring hits several components",
			query:       Query{From: "o"},
			wantActive:  true,
			wantVisible: ids("Alpha", "Bravo", "Charlie", "Echo", "Foxtrot"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Compute(g, tt.query)
			assert.Equal(t, tt.wantActive, p.Active)
			assert.ElementsMatch(t, tt.wantVisible, p.Visible)
			assert.Equal(t, g.NodeCount(), len(p.Visible)+len(p.Ghosted), "partition covers every node")
		})
	}
}

func TestComputeTracksStoreChanges(t *testing.T) {
	g := fixture(t)
	assert.ElementsMatch(t, ids("Delta"), Compute(g, Query{From: "delta"}).Visible)

	_, _, err := g.AddEdge("org::Delta", "org::Echo", "affiliation")
	require.NoError(t, err)
	assert.ElementsMatch(t, ids("Delta", "Echo", "Foxtrot"), Compute(g, Query{From: "delta"}).Visible)
}

func TestSorted(t *testing.T) {
	in := ids("b", "a")
	assert.Equal(t, ids("a", "b"), Sorted(in))
	assert.Equal(t, ids("b", "a"), in)
}
