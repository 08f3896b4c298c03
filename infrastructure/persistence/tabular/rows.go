// Package tabular converts graph snapshots to and from header-keyed rows, the
// shape shared by the spreadsheet and table backed stores.
package tabular

import (
	"fmt"
	"strings"
	"time"

	"orgmap/application/ports"
	"orgmap/domain/core/entities"
	"orgmap/domain/core/valueobjects"
	"orgmap/pkg/utils"
)

// Tab names
const (
	NodesTab = "nodes"
	EdgesTab = "edges"
)

// Column order written on save. Reads go by header name, so stores may hold
// the columns in any order and may carry extra ones.
var (
	NodeColumns = []string{"id", "label", "type", "url", "notes", "member", "origin", "hidden", "created_at", "updated_at"}
	EdgeColumns = []string{"source", "target", "relationship", "role", "url", "notes", "created_at", "updated_at"}
)

// Record is one row keyed by column name
type Record map[string]string

// Get returns the trimmed cell for column, or "" when absent
func (r Record) Get(column string) string {
	return strings.TrimSpace(r[column])
}

// Records turns a header row plus data rows into records. Short rows are
// padded with empty cells and fully blank rows are dropped.
func Records(rows [][]string) []Record {
	if len(rows) == 0 {
		return nil
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	out := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(Record, len(header))
		blank := true
		for i, h := range header {
			if h == "" {
				continue
			}
			if i < len(row) {
				rec[h] = row[i]
				if strings.TrimSpace(row[i]) != "" {
					blank = false
				}
			}
		}
		if !blank {
			out = append(out, rec)
		}
	}
	return out
}

// Rows renders records as a header row followed by one row per record
func Rows(columns []string, records []Record) [][]string {
	out := make([][]string, 0, len(records)+1)
	out = append(out, append([]string(nil), columns...))
	for _, rec := range records {
		row := make([]string, len(columns))
		for i, c := range columns {
			row[i] = rec[c]
		}
		out = append(out, row)
	}
	return out
}

// NodeFromRecord reads a node. Only the literal "true" marks it hidden and an
// empty type means organization.
func NodeFromRecord(r Record) (*entities.Node, error) {
	label := r.Get("label")
	nodeType := valueobjects.Normalize(valueobjects.NodeType(strings.ToLower(r.Get("type"))))
	id := valueobjects.NodeID(r.Get("id"))
	if id.IsZero() {
		if label == "" {
			return nil, fmt.Errorf("node row has neither id nor label")
		}
		derived, err := valueobjects.DeriveNodeID(nodeType, label)
		if err != nil {
			return nil, err
		}
		id = derived
	}
	if label == "" {
		label = id.Label()
	}

	return &entities.Node{
		ID:        id,
		Label:     label,
		Type:      nodeType,
		URL:       r.Get("url"),
		Hidden:    r.Get("hidden") == "true",
		Notes:     r["notes"],
		Member:    r.Get("member"),
		Origin:    r.Get("origin"),
		CreatedAt: r.Get("created_at"),
		UpdatedAt: r.Get("updated_at"),
	}, nil
}

// EdgeFromRecord reads an edge. The store assigns ids, so none is read.
func EdgeFromRecord(r Record) (*entities.Edge, error) {
	from, to := r.Get("source"), r.Get("target")
	if from == "" || to == "" {
		return nil, fmt.Errorf("edge row needs source and target")
	}
	return &entities.Edge{
		From:         valueobjects.NodeID(from),
		To:           valueobjects.NodeID(to),
		Relationship: r.Get("relationship"),
		Role:         r.Get("role"),
		URL:          r.Get("url"),
		Notes:        r["notes"],
		CreatedAt:    r.Get("created_at"),
		UpdatedAt:    r.Get("updated_at"),
	}, nil
}

// NodeRecord writes a node, stamping updated_at with now
func NodeRecord(n *entities.Node, now time.Time) Record {
	hidden := ""
	if n.Hidden {
		hidden = "true"
	}
	nodeType := n.Type
	if nodeType == "" {
		nodeType = valueobjects.OrganizationType
	}
	return Record{
		"id":         string(n.ID),
		"label":      n.Label,
		"type":       string(nodeType),
		"url":        n.URL,
		"notes":      n.Notes,
		"member":     n.Member,
		"origin":     n.Origin,
		"hidden":     hidden,
		"created_at": n.CreatedAt,
		"updated_at": Timestamp(now),
	}
}

// EdgeRecord writes an edge, stamping updated_at with now
func EdgeRecord(e *entities.Edge, now time.Time) Record {
	return Record{
		"source":       string(e.From),
		"target":       string(e.To),
		"relationship": e.Relationship,
		"role":         e.Role,
		"url":          e.URL,
		"notes":        e.Notes,
		"created_at":   e.CreatedAt,
		"updated_at":   Timestamp(now),
	}
}

// Timestamp formats t the way every store records it
func Timestamp(t time.Time) string {
	return utils.FormatTimestamp(t)
}

// Decode reads both tabs. Rows that cannot be read are returned as warnings
// rather than failing the whole load.
func Decode(nodeRows, edgeRows [][]string) (*ports.Snapshot, []error) {
	snap := &ports.Snapshot{
		Nodes: make([]*entities.Node, 0),
		Edges: make([]*entities.Edge, 0),
	}
	var warnings []error
	for i, rec := range Records(nodeRows) {
		n, err := NodeFromRecord(rec)
		if err != nil {
			warnings = append(warnings, fmt.Errorf("%s row %d: %w", NodesTab, i+2, err))
			continue
		}
		snap.Nodes = append(snap.Nodes, n)
	}
	for i, rec := range Records(edgeRows) {
		e, err := EdgeFromRecord(rec)
		if err != nil {
			warnings = append(warnings, fmt.Errorf("%s row %d: %w", EdgesTab, i+2, err))
			continue
		}
		snap.Edges = append(snap.Edges, e)
	}
	return snap, warnings
}

// Encode renders both tabs with headers, stamping updated_at with now
func Encode(snap *ports.Snapshot, now time.Time) (nodeRows, edgeRows [][]string) {
	nodes := make([]Record, 0, len(snap.Nodes))
	for _, n := range snap.Nodes {
		nodes = append(nodes, NodeRecord(n, now))
	}
	edges := make([]Record, 0, len(snap.Edges))
	for _, e := range snap.Edges {
		edges = append(edges, EdgeRecord(e, now))
	}
	return Rows(NodeColumns, nodes), Rows(EdgeColumns, edges)
}
