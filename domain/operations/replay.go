package operations

import (
	"fmt"

	"orgmap/domain/core/aggregates"
)

// Replay applies ops in order to g. Replaying the log on top of the last saved
// state must reproduce the live store.
func Replay(g *aggregates.Graph, ops []Operation) error {
	for _, op := range ops {
		if err := apply(g, op); err != nil {
			return fmt.Errorf("replay %s: %w", op, err)
		}
	}
	return nil
}

func apply(g *aggregates.Graph, op Operation) error {
	switch op.Kind {
	case KindAddNode:
		if op.Node == nil {
			return fmt.Errorf("add_node without node")
		}
		_, _, err := g.AddNode(op.Node)
		return err
	case KindUpdateNode:
		g.UpdateNode(op.NodeID, op.Fields)
		return nil
	case KindEdgeAdd:
		_, _, err := g.AddEdge(op.From, op.To, op.Relationship)
		return err
	case KindEdgeRemove:
		if e, ok := g.FindEdgeByKey(op.From, op.To, op.Relationship); ok {
			g.RemoveEdge(e.ID)
		}
		return nil
	case KindEdgeUpdate:
		e, ok := g.FindEdgeByKey(op.From, op.To, op.Relationship)
		if !ok {
			return nil
		}
		_, err := g.UpdateEdgeRelationship(e.ID, op.NewRelationship)
		return err
	default:
		return fmt.Errorf("unknown operation kind %q", op.Kind)
	}
}
