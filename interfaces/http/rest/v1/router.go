// Package v1 registers the version 1 API routes.
package v1

import (
	"github.com/go-chi/chi/v5"

	"orgmap/interfaces/http/rest/handlers"
)

// Handlers groups the handlers served under /api/v1
type Handlers struct {
	Graph  *handlers.GraphHandler
	Node   *handlers.NodeHandler
	Edge   *handlers.EdgeHandler
	Filter *handlers.FilterHandler
}

// Mount registers the v1 endpoints on r
func Mount(r chi.Router, h Handlers) {
	// Graph and session endpoints
	r.Get("/graph", h.Graph.GetGraph)
	r.Get("/status", h.Graph.GetStatus)
	r.Get("/relationships/vocabulary", h.Graph.ListRelationships)
	r.Post("/save", h.Graph.Save)
	r.Post("/auth", h.Graph.Authorize)
	r.Post("/reload", h.Graph.Reload)
	r.Post("/undo", h.Graph.Undo)

	// Node endpoints
	r.Route("/nodes", func(r chi.Router) {
		r.Get("/suggest", h.Node.Suggest)
		r.Get("/{nodeID}", h.Node.GetNode)
		r.Patch("/{nodeID}", h.Node.UpdateNode)
		r.Get("/{nodeID}/connections", h.Node.Connections)
	})

	// Relationship endpoints by label
	r.Post("/relationships", h.Edge.AddRelationship)
	r.Delete("/relationships", h.Edge.RemoveRelationship)

	// Edge endpoints by id
	r.Route("/edges", func(r chi.Router) {
		r.Post("/", h.Edge.CreateEdge)
		r.Patch("/{edgeID}", h.Edge.UpdateEdge)
		r.Delete("/{edgeID}", h.Edge.DeleteEdge)
	})

	// Filter and view
	r.Get("/filter", h.Filter.Filter)
	r.Put("/filter", h.Filter.ScheduleFilter)
	r.Get("/view", h.Filter.View)
}
