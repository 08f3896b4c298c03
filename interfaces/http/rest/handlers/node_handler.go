package handlers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"orgmap/application/editor"
	"orgmap/domain/core/entities"
	"orgmap/domain/core/valueobjects"
	"orgmap/pkg/common"
	pkgerrors "orgmap/pkg/errors"
	"orgmap/pkg/utils"
)

// NodeHandler handles node lookups and curation edits
type NodeHandler struct {
	editor *editor.Editor
	errs   *pkgerrors.ErrorHandler
	logger *zap.Logger
}

// NewNodeHandler creates a new node handler
func NewNodeHandler(e *editor.Editor, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *NodeHandler {
	return &NodeHandler{
		editor: e,
		errs:   errs,
		logger: logger,
	}
}

// UpdateNodeRequest is the body of PATCH /nodes/{id}. Omitted fields are
// left unchanged.
type UpdateNodeRequest struct {
	Hidden *bool   `json:"hidden,omitempty"`
	URL    *string `json:"url,omitempty" validate:"omitempty,max=2048"`
	Type   *string `json:"type,omitempty" validate:"omitempty,oneof=organization person project"`
}

// SuggestResponse is the body of GET /nodes/suggest
type SuggestResponse struct {
	Prefix      string           `json:"prefix"`
	Suggestions []*entities.Node `json:"suggestions"`
}

// ConnectionsResponse is the body of GET /nodes/{id}/connections
type ConnectionsResponse struct {
	Node        *entities.Node      `json:"node"`
	Connections []editor.Connection `json:"connections"`
}

// GetNode handles GET /nodes/{id}
func (h *NodeHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	node, err := h.editor.Node(nodeIDParam(r))
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, node)
}

// Suggest handles GET /nodes/suggest?prefix=
func (h *NodeHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	suggestions := h.editor.Suggest(prefix)
	if suggestions == nil {
		suggestions = []*entities.Node{}
	}
	common.RespondJSON(w, http.StatusOK, SuggestResponse{Prefix: prefix, Suggestions: suggestions})
}

// Connections handles GET /nodes/{id}/connections
func (h *NodeHandler) Connections(w http.ResponseWriter, r *http.Request) {
	id := nodeIDParam(r)
	node, err := h.editor.Node(id)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	connections, err := h.editor.Connections(id)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, ConnectionsResponse{Node: node, Connections: connections})
}

// UpdateNode handles PATCH /nodes/{id}
func (h *NodeHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	var req UpdateNodeRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		h.errs.Handle(w, r, pkgerrors.NewValidationError("Invalid request body").WithCause(err))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	if req.Hidden == nil && req.URL == nil && req.Type == nil {
		h.errs.Handle(w, r, pkgerrors.NewValidationError("at least one of hidden, url or type is required"))
		return
	}

	patch := entities.NodePatch{Hidden: req.Hidden, URL: req.URL}
	if req.Type != nil {
		t, err := valueobjects.ParseNodeType(*req.Type)
		if err != nil {
			h.errs.Handle(w, r, pkgerrors.NewValidationError(err.Error()))
			return
		}
		patch.Type = &t
	}

	change, err := h.editor.UpdateNode(nodeIDParam(r), patch)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, change)
}

// nodeIDParam decodes the id segment; ids carry spaces and colons
func nodeIDParam(r *http.Request) valueobjects.NodeID {
	raw := chi.URLParam(r, "nodeID")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return valueobjects.NodeID(decoded)
	}
	return valueobjects.NodeID(raw)
}
