// Package editor is the single owner of the live graph state: the store, the
// pending operation log and the undo controller. Every user-facing operation
// goes through an Editor, which applies one mutation at a time.
package editor

import (
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"orgmap/application/ports"
	domainconfig "orgmap/domain/config"
	"orgmap/domain/core/aggregates"
	"orgmap/domain/core/entities"
	"orgmap/domain/core/validators"
	"orgmap/domain/core/valueobjects"
	"orgmap/domain/filter"
	"orgmap/domain/operations"
	"orgmap/domain/undo"
	pkgerrors "orgmap/pkg/errors"
	"orgmap/pkg/observability"
)

// Editor is the context object for one editing session
type Editor struct {
	// mu guards the in-memory state below
	mu            sync.Mutex
	graph         *aggregates.Graph
	log           *operations.Log
	undo          *undo.Controller
	relationships map[string]struct{}
	pendingSave   bool
	loaded        bool
	// savingThrough is the last sequence number of the save in flight, or 0
	savingThrough uint64

	// ioMu serializes save and reload so a second request queues behind the first
	ioMu sync.Mutex

	store     ports.PersistenceAdapter
	auth      ports.Authenticator
	publisher ports.EventPublisher
	metrics   *observability.Collector
	rules     *domainconfig.DomainConfig
	validate  *validators.InputValidator
	graphName string
	logger    *zap.Logger
	now       func() time.Time
}

// Option customizes an Editor
type Option func(*Editor)

// WithPublisher announces saves and reloads through p
func WithPublisher(p ports.EventPublisher) Option {
	return func(e *Editor) { e.publisher = p }
}

// WithMetrics records editor activity on c
func WithMetrics(c *observability.Collector) Option {
	return func(e *Editor) { e.metrics = c }
}

// WithRules overrides the default domain rules
func WithRules(r *domainconfig.DomainConfig) Option {
	return func(e *Editor) {
		if r != nil {
			e.rules = r
		}
	}
}

// WithGraphName names the graph in published events
func WithGraphName(name string) Option {
	return func(e *Editor) { e.graphName = name }
}

// WithAuthenticator sets the write-credential holder explicitly. By default
// the store is used when it implements ports.Authenticator.
func WithAuthenticator(a ports.Authenticator) Option {
	return func(e *Editor) { e.auth = a }
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(e *Editor) { e.now = now }
}

// New creates an editor over an empty store. Call Reload to fill it.
func New(store ports.PersistenceAdapter, logger *zap.Logger, opts ...Option) *Editor {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Editor{
		graph:         aggregates.NewGraph(),
		log:           operations.NewLog(),
		undo:          undo.NewController(),
		relationships: make(map[string]struct{}),
		store:         store,
		rules:         domainconfig.DefaultDomainConfig(),
		graphName:     "default",
		logger:        logger,
		now:           time.Now,
	}
	if a, ok := store.(ports.Authenticator); ok {
		e.auth = a
	}
	for _, opt := range opts {
		opt(e)
	}
	e.validate = validators.NewInputValidator(e.rules)
	return e
}

// Rules returns the domain rules in effect
func (e *Editor) Rules() *domainconfig.DomainConfig {
	return e.rules
}

// StoreName names the persistence adapter
func (e *Editor) StoreName() string {
	if e.store == nil {
		return "none"
	}
	return e.store.Name()
}

// Status summarizes session state for the unsaved badge and exit warning
type Status struct {
	HasUnsaved   bool           `json:"has_unsaved"`
	PendingCount int            `json:"pending_count"`
	PendingKinds map[string]int `json:"pending_kinds,omitempty"`
	UndoArmed    bool           `json:"undo_armed"`
	AuthPending  bool           `json:"auth_pending"`
	Authorized   bool           `json:"authorized"`
	Loaded       bool           `json:"loaded"`
	Nodes        int            `json:"nodes"`
	Edges        int            `json:"edges"`
	Store        string         `json:"store"`
}

// Status reports the current session state
func (e *Editor) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	kinds := make(map[string]int)
	for k, v := range e.log.CountByKind() {
		kinds[string(k)] = v
	}
	return Status{
		HasUnsaved:   !e.log.IsEmpty(),
		PendingCount: e.log.Len(),
		PendingKinds: kinds,
		UndoArmed:    e.undo.Armed(),
		AuthPending:  e.pendingSave,
		Authorized:   e.auth == nil || e.auth.Authorized(),
		Loaded:       e.loaded,
		Nodes:        e.graph.NodeCount(),
		Edges:        e.graph.EdgeCount(),
		Store:        e.StoreName(),
	}
}

// HasUnsaved reports whether the log holds operations not yet saved
func (e *Editor) HasUnsaved() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.log.IsEmpty()
}

// PendingOperations returns a copy of the log
func (e *Editor) PendingOperations() []operations.Operation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.log.Snapshot()
}

// Snapshot returns copies of every node and edge
func (e *Editor) Snapshot() *ports.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Editor) snapshotLocked() *ports.Snapshot {
	nodes, edges := e.graph.Rows()
	return &ports.Snapshot{Nodes: nodes, Edges: edges}
}

// Node returns a single node
func (e *Editor) Node(id valueobjects.NodeID) (*entities.Node, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, ok := e.graph.GetNode(id)
	if !ok {
		return nil, nodeNotFound(id)
	}
	return n, nil
}

// Connection is one row of a node's connection list
type Connection struct {
	EdgeID       string                `json:"edge_id"`
	OtherID      valueobjects.NodeID   `json:"other_id"`
	OtherLabel   string                `json:"other_label"`
	OtherType    valueobjects.NodeType `json:"other_type"`
	Relationship string                `json:"relationship"`
	URL          string                `json:"url,omitempty"`
}

// Connections lists the edges touching id with the label on the other end
func (e *Editor) Connections(id valueobjects.NodeID) ([]Connection, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.graph.HasNode(id) {
		return nil, nodeNotFound(id)
	}
	edges := e.graph.EdgesTouching(id)
	result := make([]Connection, 0, len(edges))
	for _, edge := range edges {
		otherID := edge.Other(id)
		other, _ := e.graph.GetNode(otherID)
		c := Connection{
			EdgeID:       edge.ID,
			OtherID:      otherID,
			Relationship: edge.Relationship,
		}
		if other != nil {
			c.OtherLabel = other.Label
			c.OtherType = other.Type
			c.URL = other.URL
		}
		result = append(result, c)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return strings.ToLower(result[i].OtherLabel) < strings.ToLower(result[j].OtherLabel)
	})
	return result, nil
}

// Suggest returns labels starting with prefix for autocomplete
func (e *Editor) Suggest(prefix string) []*entities.Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.SuggestLabels(prefix, e.rules.SuggestLimit)
}

// Relationships returns the built-in vocabulary followed by custom values
// entered during this session.
func (e *Editor) Relationships() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := append([]string(nil), e.rules.BuiltinRelationships...)
	seen := make(map[string]struct{}, len(out))
	for _, r := range out {
		seen[r] = struct{}{}
	}
	custom := make([]string, 0, len(e.relationships))
	for r := range e.relationships {
		if _, ok := seen[r]; !ok {
			custom = append(custom, r)
		}
	}
	sort.Strings(custom)
	return append(out, custom...)
}

// Filter computes the partition for q immediately
func (e *Editor) Filter(q filter.Query) filter.Partition {
	e.mu.Lock()
	p := filter.Compute(e.graph, q)
	e.mu.Unlock()

	e.metrics.RecordFilter(p.Active)
	return p
}

// Undo reverts the last edge addition or removal. During a save, an action
// that save already carries is compensated rather than popped.
func (e *Editor) Undo() (undo.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res, err := e.undo.UndoAfter(e.graph, e.log, e.savingThrough)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNothingToUndo) {
			e.metrics.RecordUndo("idle")
		} else {
			e.metrics.RecordUndo("error")
		}
		return res, err
	}

	outcome := "popped"
	if res.Compensated {
		outcome = "compensated"
	}
	e.metrics.RecordUndo(outcome)
	e.metrics.SetPending(e.log.Len())
	e.logger.Info("Undid last action",
		zap.String("kind", string(res.Action.Kind)),
		zap.String("relationship", res.Action.Edge.Relationship),
		zap.Bool("compensated", res.Compensated),
		zap.Int("removed_nodes", len(res.RemovedNodes)),
		zap.Int("pending", e.log.Len()),
	)
	return res, nil
}

// appendLocked stages op and keeps the metrics in step
func (e *Editor) appendLocked(op operations.Operation) operations.Operation {
	op = e.log.Append(op)
	e.metrics.RecordOperation(string(op.Kind))
	e.metrics.SetPending(e.log.Len())
	return op
}

func nodeNotFound(id valueobjects.NodeID) error {
	return pkgerrors.NewNotFoundError("node "+string(id)).WithCode(pkgerrors.CodeNodeNotFound)
}
