package events

import (
	"time"
)

// Source identifies this service on the event bus
const Source = "orgmap.editor"

// Event types
const (
	TypeGraphSaved    = "graph.saved"
	TypeGraphReloaded = "graph.reloaded"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// GraphSaved is raised after pending operations were written to the store
type GraphSaved struct {
	BaseEvent
	Store      string         `json:"store"`
	Operations int            `json:"operations"`
	ByKind     map[string]int `json:"by_kind,omitempty"`
	Nodes      int            `json:"nodes"`
	Edges      int            `json:"edges"`
}

// NewGraphSaved creates a GraphSaved event
func NewGraphSaved(graphName, store string, operations int, byKind map[string]int, nodes, edges int, timestamp time.Time) GraphSaved {
	return GraphSaved{
		BaseEvent: BaseEvent{
			AggregateID: graphName,
			EventType:   TypeGraphSaved,
			Timestamp:   timestamp,
			Version:     1,
		},
		Store:      store,
		Operations: operations,
		ByKind:     byKind,
		Nodes:      nodes,
		Edges:      edges,
	}
}

// GraphReloaded is raised after the store was replaced from persistence
type GraphReloaded struct {
	BaseEvent
	Store          string `json:"store"`
	Nodes          int    `json:"nodes"`
	Edges          int    `json:"edges"`
	IrregularRows  int    `json:"irregular_rows"`
	DiscardedEdits int    `json:"discarded_edits"`
}

// NewGraphReloaded creates a GraphReloaded event
func NewGraphReloaded(graphName, store string, nodes, edges, irregular, discarded int, timestamp time.Time) GraphReloaded {
	return GraphReloaded{
		BaseEvent: BaseEvent{
			AggregateID: graphName,
			EventType:   TypeGraphReloaded,
			Timestamp:   timestamp,
			Version:     1,
		},
		Store:          store,
		Nodes:          nodes,
		Edges:          edges,
		IrregularRows:  irregular,
		DiscardedEdits: discarded,
	}
}
