package editor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"orgmap/application/ports"
	"orgmap/domain/events"
	pkgerrors "orgmap/pkg/errors"
)

const publishTimeout = 5 * time.Second

// SaveResult reports the outcome of a save
type SaveResult struct {
	Saved     int    `json:"saved"`
	Remaining int    `json:"remaining"`
	Skipped   bool   `json:"skipped"`
	Store     string `json:"store"`
}

// ReloadResult reports the outcome of a reload
type ReloadResult struct {
	Nodes          int    `json:"nodes"`
	Edges          int    `json:"edges"`
	LooseEdges     int    `json:"loose_edges"`
	StrayNodes     int    `json:"stray_nodes"`
	DiscardedEdits int    `json:"discarded_edits"`
	Store          string `json:"store"`
}

// Save writes the current graph through the adapter. Operations appended while
// the write is in flight stay pending. When the adapter holds no write
// credential the save is remembered and replayed by Authorize.
func (e *Editor) Save(ctx context.Context) (*SaveResult, error) {
	e.ioMu.Lock()
	defer e.ioMu.Unlock()

	e.mu.Lock()
	if e.log.IsEmpty() {
		e.pendingSave = false
		e.mu.Unlock()
		return &SaveResult{Skipped: true, Store: e.StoreName()}, nil
	}
	if e.auth != nil && !e.auth.Authorized() {
		e.pendingSave = true
		e.mu.Unlock()
		e.logger.Info("Save deferred until authorization", zap.String("store", e.StoreName()))
		return nil, pkgerrors.NewAuthRequiredError(e.StoreName())
	}
	snapshot := e.snapshotLocked()
	mark := e.log.LastSeq()
	e.savingThrough = mark
	count := e.log.Len()
	byKind := make(map[string]int)
	for k, v := range e.log.CountByKind() {
		byKind[string(k)] = v
	}
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.savingThrough = 0
		e.mu.Unlock()
	}()

	saveCtx, cancel := context.WithTimeout(ctx, e.rules.SaveTimeout)
	defer cancel()

	start := time.Now()
	if err := e.store.Save(saveCtx, snapshot); err != nil {
		if pkgerrors.IsAuthRequired(err) {
			e.mu.Lock()
			e.pendingSave = true
			e.mu.Unlock()
			e.logger.Info("Save deferred until authorization", zap.String("store", e.StoreName()))
			return nil, err
		}
		e.logger.Error("Failed to save graph",
			zap.String("store", e.StoreName()),
			zap.Int("pending", count),
			zap.Error(err),
		)
		if pkgerrors.IsAppError(err) {
			return nil, err
		}
		return nil, pkgerrors.NewExternalError(e.StoreName(), err).WithCode(pkgerrors.CodeSaveFailed)
	}

	e.mu.Lock()
	saved := e.log.DiscardThrough(mark)
	e.undo.ClearIfCovered(mark)
	e.pendingSave = false
	remaining := e.log.Len()
	nodes, edges := e.graph.NodeCount(), e.graph.EdgeCount()
	e.mu.Unlock()
	e.metrics.SetPending(remaining)

	e.logger.Info("Graph saved",
		zap.String("store", e.StoreName()),
		zap.Int("operations", saved),
		zap.Int("remaining", remaining),
		zap.Int("nodes", nodes),
		zap.Int("edges", edges),
		zap.Duration("duration", time.Since(start)),
	)

	e.publish(ctx, events.NewGraphSaved(e.graphName, e.StoreName(), saved, byKind, nodes, edges, e.now().UTC()))
	return &SaveResult{Saved: saved, Remaining: remaining, Store: e.StoreName()}, nil
}

// Authorize hands a write credential to the adapter. If a save was waiting
// for it, the save runs now and its result is returned; otherwise the result
// is nil. A rejected credential also drops the waiting save.
func (e *Editor) Authorize(ctx context.Context, creds ports.Credentials) (*SaveResult, error) {
	if e.auth == nil {
		return nil, pkgerrors.NewValidationError(e.StoreName() + " does not take credentials")
	}

	if err := e.auth.Authorize(ctx, creds); err != nil {
		e.mu.Lock()
		e.pendingSave = false
		e.mu.Unlock()
		e.logger.Warn("Authorization failed", zap.String("store", e.StoreName()), zap.Error(err))
		if pkgerrors.IsAppError(err) {
			return nil, err
		}
		return nil, pkgerrors.NewUnauthorizedError("authorization failed").
			WithCode(pkgerrors.CodeAuthFailed).
			WithCause(err)
	}

	e.mu.Lock()
	replay := e.pendingSave
	e.mu.Unlock()

	e.logger.Info("Store authorized", zap.String("store", e.StoreName()), zap.Bool("replay_save", replay))
	if !replay {
		return nil, nil
	}
	return e.Save(ctx)
}

// Reload replaces the graph with the store's contents. Pending operations are
// only discarded when discard is true; otherwise a conflict is returned. A
// failed load leaves the current graph untouched.
func (e *Editor) Reload(ctx context.Context, discard bool) (*ReloadResult, error) {
	e.ioMu.Lock()
	defer e.ioMu.Unlock()

	if !discard {
		if err := e.unsavedConflict(); err != nil {
			return nil, err
		}
	}

	loadCtx, cancel := context.WithTimeout(ctx, e.rules.LoadTimeout)
	defer cancel()

	snapshot, err := e.store.Load(loadCtx)
	if err != nil {
		e.logger.Error("Failed to load graph", zap.String("store", e.StoreName()), zap.Error(err))
		if pkgerrors.IsAppError(err) {
			return nil, err
		}
		return nil, pkgerrors.NewExternalError(e.StoreName(), err).WithCode(pkgerrors.CodeLoadFailed)
	}
	if snapshot == nil {
		snapshot = &ports.Snapshot{}
	}

	e.mu.Lock()
	if pending := e.log.Len(); !discard && pending > 0 {
		e.mu.Unlock()
		return nil, conflictUnsaved(pending)
	}
	discarded := e.log.Len()
	report := e.graph.Replace(snapshot.Nodes, snapshot.Edges)
	e.log.Flush()
	e.undo.Clear()
	e.pendingSave = false
	e.loaded = true
	e.relationships = make(map[string]struct{})
	for _, edge := range e.graph.Edges() {
		e.relationships[edge.Relationship] = struct{}{}
	}
	nodes, edges := e.graph.NodeCount(), e.graph.EdgeCount()
	e.mu.Unlock()
	e.metrics.SetPending(0)

	for _, edge := range report.LooseEdges {
		e.logger.Warn("Kept irregular edge row as loaded",
			zap.String("from", string(edge.From)),
			zap.String("to", string(edge.To)),
			zap.String("relationship", edge.Relationship),
		)
	}
	for _, n := range report.StrayNodes {
		e.logger.Warn("Kept irregular node row as loaded",
			zap.String("id", string(n.ID)),
			zap.String("label", n.Label),
		)
	}
	e.logger.Info("Graph reloaded",
		zap.String("store", e.StoreName()),
		zap.Int("nodes", nodes),
		zap.Int("edges", edges),
		zap.Int("loose_edges", len(report.LooseEdges)),
		zap.Int("stray_nodes", len(report.StrayNodes)),
		zap.Int("discarded", discarded),
	)

	e.publish(ctx, events.NewGraphReloaded(e.graphName, e.StoreName(), nodes, edges, report.Irregular(), discarded, e.now().UTC()))
	return &ReloadResult{
		Nodes:          nodes,
		Edges:          edges,
		LooseEdges:     len(report.LooseEdges),
		StrayNodes:     len(report.StrayNodes),
		DiscardedEdits: discarded,
		Store:          e.StoreName(),
	}, nil
}

func (e *Editor) unsavedConflict() error {
	e.mu.Lock()
	pending := e.log.Len()
	e.mu.Unlock()
	if pending == 0 {
		return nil
	}
	return conflictUnsaved(pending)
}

func conflictUnsaved(pending int) error {
	return pkgerrors.NewConflictError("reloading would discard unsaved changes").
		WithCode(pkgerrors.CodeUnsavedChanges).
		WithDetail("pending", pending)
}

// publish is best effort. A notification failure never fails the save or reload.
func (e *Editor) publish(ctx context.Context, event events.DomainEvent) {
	if e.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := e.publisher.Publish(pubCtx, event); err != nil {
		e.logger.Warn("Failed to publish event",
			zap.String("event_type", event.GetEventType()),
			zap.Error(err),
		)
	}
}
