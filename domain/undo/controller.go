// Package undo implements the single-level undo of the last edge addition or
// removal made through the editor.
package undo

import (
	"orgmap/domain/core/aggregates"
	"orgmap/domain/core/entities"
	"orgmap/domain/core/valueobjects"
	"orgmap/domain/operations"
	pkgerrors "orgmap/pkg/errors"
)

// ActionKind tells which edge mutation an action performed
type ActionKind string

const (
	ActionAdd    ActionKind = "add"
	ActionRemove ActionKind = "remove"
)

// Action describes the most recent undoable mutation. EdgeExisted marks an
// add that found the edge already present, so undo leaves the edge alone.
type Action struct {
	Kind          ActionKind
	Edge          entities.Edge
	EdgeExisted   bool
	CreatedNodes  []valueobjects.NodeID
	UnhiddenNodes []valueobjects.NodeID
	Ops           []operations.Operation
}

// Result reports what Undo did
type Result struct {
	Action       Action
	Compensated  bool
	RemovedNodes []valueobjects.NodeID
}

// Controller holds at most one armed action
type Controller struct {
	last *Action
}

// NewController creates an idle controller
func NewController() *Controller {
	return &Controller{}
}

// Arm replaces any previously armed action
func (c *Controller) Arm(a Action) {
	c.last = &a
}

// Armed reports whether an action can be undone
func (c *Controller) Armed() bool {
	return c.last != nil
}

// Last returns the armed action
func (c *Controller) Last() (Action, bool) {
	if c.last == nil {
		return Action{}, false
	}
	return *c.last, true
}

// Clear returns the controller to idle
func (c *Controller) Clear() {
	c.last = nil
}

// ClearIfCovered goes idle when every operation of the armed action has a
// sequence number up to seq, i.e. the action has been persisted.
func (c *Controller) ClearIfCovered(seq uint64) bool {
	if c.last == nil {
		return false
	}
	for _, op := range c.last.Ops {
		if op.Seq > seq {
			return false
		}
	}
	c.last = nil
	return true
}

// Undo inverts the armed action against the store and the log.
//
// When the log still ends with exactly the operations the action appended,
// they are popped, so the log returns to its length before the action. Nodes
// the action created are removed if nothing else links to them, and nodes it
// un-hid are hidden again.
//
// When other operations were appended afterwards, only the edge change is
// inverted and a compensating edge operation is appended instead, so replaying
// the log still reproduces the store.
func (c *Controller) Undo(g *aggregates.Graph, log *operations.Log) (Result, error) {
	return c.UndoAfter(g, log, 0)
}

// UndoAfter is Undo while a save covering every operation up to persisted is
// being written. Those operations may already be in storage, so an action
// touching them is always compensated rather than popped.
func (c *Controller) UndoAfter(g *aggregates.Graph, log *operations.Log, persisted uint64) (Result, error) {
	if c.last == nil {
		return Result{}, pkgerrors.NewNotFoundError("undoable action").WithCode(pkgerrors.CodeNothingToUndo)
	}
	action := *c.last
	c.last = nil

	result := Result{Action: action}
	if tailMatches(log, action.Ops) && after(action.Ops, persisted) {
		for range action.Ops {
			log.PopLast()
		}
		invertEdge(g, action)
		for _, id := range action.CreatedNodes {
			if g.HasNode(id) && g.Degree(id) == 0 {
				g.RemoveNode(id)
				result.RemovedNodes = append(result.RemovedNodes, id)
			}
		}
		for _, id := range action.UnhiddenNodes {
			g.UpdateNode(id, entities.HiddenPatch(true))
		}
		return result, nil
	}

	invertEdge(g, action)
	e := action.Edge
	switch {
	case action.Kind == ActionAdd && !action.EdgeExisted:
		log.Append(operations.EdgeRemove(e.From, e.To, e.Relationship))
	case action.Kind == ActionRemove:
		log.Append(operations.EdgeAdd(e.From, e.To, e.Relationship))
	}
	result.Compensated = true
	return result, nil
}

func invertEdge(g *aggregates.Graph, a Action) {
	e := a.Edge
	switch a.Kind {
	case ActionAdd:
		if a.EdgeExisted {
			return
		}
		if existing, ok := g.FindEdgeByKey(e.From, e.To, e.Relationship); ok {
			g.RemoveEdge(existing.ID)
		}
	case ActionRemove:
		g.RestoreEdge(&e)
	}
}

func after(ops []operations.Operation, seq uint64) bool {
	for _, op := range ops {
		if op.Seq <= seq {
			return false
		}
	}
	return true
}

func tailMatches(log *operations.Log, ops []operations.Operation) bool {
	if len(ops) == 0 {
		return false
	}
	tail := log.Tail(len(ops))
	if len(tail) != len(ops) {
		return false
	}
	for i := range ops {
		if tail[i].Seq != ops[i].Seq || !tail[i].Same(ops[i]) {
			return false
		}
	}
	return true
}
