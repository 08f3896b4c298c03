package tabular

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgmap/application/ports"
	"orgmap/domain/core/entities"
	"orgmap/domain/core/valueobjects"
)

func TestDecodeReadsByHeaderName(t *testing.T) {
	nodeRows := [][]string{
		{"label", "ID", "hidden", "type", "extra"},
		{"Acme Corp", "org::Acme Corp", "true", "", "x"},
		{"Bob", "person::Bob", "TRUE", "person"},
		{"", "", "", ""},
		{"Gamma", "", "", "project"},
	}
	edgeRows := [][]string{
		{"relationship", "target", "source"},
		{"membership", "org::Acme Corp", "person::Bob"},
		{"partnership", "", "org::Acme Corp"},
	}

	snap, warnings := Decode(nodeRows, edgeRows)
	require.Len(t, snap.Nodes, 3)
	require.Len(t, snap.Edges, 1)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Error(), "edges row 3")

	acme := snap.Nodes[0]
	assert.Equal(t, valueobjects.NodeID("org::Acme Corp"), acme.ID)
	assert.Equal(t, valueobjects.OrganizationType, acme.Type, "empty type means organization")
	assert.True(t, acme.Hidden)

	assert.False(t, snap.Nodes[1].Hidden, "only the literal true hides")
	assert.Equal(t, valueobjects.PersonType, snap.Nodes[1].Type)

	assert.Equal(t, valueobjects.NodeID("project::Gamma"), snap.Nodes[2].ID, "missing id is derived")

	edge := snap.Edges[0]
	assert.Equal(t, valueobjects.NodeID("person::Bob"), edge.From)
	assert.Equal(t, valueobjects.NodeID("org::Acme Corp"), edge.To)
	assert.Equal(t, "membership", edge.Relationship)
}

func TestDecodeEmptyTabs(t *testing.T) {
	snap, warnings := Decode(nil, [][]string{{"source", "target"}})
	assert.Empty(t, warnings)
	assert.NotNil(t, snap.Nodes)
	assert.Empty(t, snap.Edges)
}

func TestEncodeStampsUpdatedAt(t *testing.T) {
	now := time.Date(2024, 9, 22, 15, 4, 5, 0, time.FixedZone("EST", -5*3600))
	snap := &ports.Snapshot{
		Nodes: []*entities.Node{
			{ID: "org::Acme", Label: "Acme", Type: valueobjects.OrganizationType, Hidden: true, CreatedAt: "2024-01-01T00:00:00Z", UpdatedAt: "old"},
			{ID: "person::Bob", Label: "Bob", Type: valueobjects.PersonType},
		},
		Edges: []*entities.Edge{
			{ID: "e1", From: "person::Bob", To: "org::Acme", Relationship: "membership", Role: "board"},
		},
	}

	nodeRows, edgeRows := Encode(snap, now)
	require.Len(t, nodeRows, 3)
	assert.Equal(t, NodeColumns, nodeRows[0])
	assert.Equal(t, []string{"org::Acme", "Acme", "organization", "", "", "", "", "true", "2024-01-01T00:00:00Z", "2024-09-22T20:04:05Z"}, nodeRows[1])
	assert.Equal(t, "", nodeRows[2][7], "visible nodes write an empty hidden cell")

	require.Len(t, edgeRows, 2)
	assert.Equal(t, EdgeColumns, edgeRows[0])
	assert.Equal(t, []string{"person::Bob", "org::Acme", "membership", "board", "", "", "", "2024-09-22T20:04:05Z"}, edgeRows[1])
}

func TestEncodeDecodeKeepsMetadata(t *testing.T) {
	in := &ports.Snapshot{
		Nodes: []*entities.Node{
			{ID: "org::Acme", Label: "Acme", Type: valueobjects.OrganizationType, URL: "https://acme.example", Notes: "line one", Member: "yes", Origin: "import"},
		},
	}
	nodeRows, edgeRows := Encode(in, time.Now())
	out, warnings := Decode(nodeRows, edgeRows)
	require.Empty(t, warnings)
	require.Len(t, out.Nodes, 1)
	got := out.Nodes[0]
	assert.Equal(t, "https://acme.example", got.URL)
	assert.Equal(t, "line one", got.Notes)
	assert.Equal(t, "yes", got.Member)
	assert.Equal(t, "import", got.Origin)
	assert.NotEmpty(t, got.UpdatedAt)
}
