package handlers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"orgmap/application/editor"
	"orgmap/domain/core/valueobjects"
	"orgmap/pkg/common"
	pkgerrors "orgmap/pkg/errors"
	"orgmap/pkg/utils"
)

// EdgeHandler handles relationship edits, by label or by id
type EdgeHandler struct {
	editor *editor.Editor
	errs   *pkgerrors.ErrorHandler
	logger *zap.Logger
}

// NewEdgeHandler creates a new edge handler
func NewEdgeHandler(e *editor.Editor, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *EdgeHandler {
	return &EdgeHandler{
		editor: e,
		errs:   errs,
		logger: logger,
	}
}

// RelationshipRequest is the quick-editor form. Types only matter when an
// endpoint does not exist yet.
type RelationshipRequest struct {
	From         string `json:"from" validate:"required,max=200"`
	To           string `json:"to" validate:"required,max=200"`
	Relationship string `json:"relationship" validate:"required,max=100"`
	FromType     string `json:"from_type,omitempty" validate:"omitempty,oneof=organization person project"`
	ToType       string `json:"to_type,omitempty" validate:"omitempty,oneof=organization person project"`
}

// ConnectRequest is the body of POST /edges
type ConnectRequest struct {
	From         string `json:"from" validate:"required"`
	To           string `json:"to" validate:"required"`
	Relationship string `json:"relationship" validate:"required,max=100"`
}

// ChangeRelationshipRequest is the body of PATCH /edges/{id}
type ChangeRelationshipRequest struct {
	Relationship string `json:"relationship" validate:"required,max=100"`
}

// AddRelationship handles POST /relationships
func (h *EdgeHandler) AddRelationship(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeRelationship(w, r)
	if !ok {
		return
	}
	result, err := h.editor.AddRelationship(in)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	status := http.StatusOK
	if result.EdgeCreated {
		status = http.StatusCreated
	}
	common.RespondJSON(w, status, result)
}

// RemoveRelationship handles DELETE /relationships
func (h *EdgeHandler) RemoveRelationship(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeRelationship(w, r)
	if !ok {
		return
	}
	result, err := h.editor.RemoveRelationship(in)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// CreateEdge handles POST /edges
func (h *EdgeHandler) CreateEdge(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		h.errs.Handle(w, r, pkgerrors.NewValidationError("Invalid request body").WithCause(err))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	result, err := h.editor.ConnectNodes(valueobjects.NodeID(req.From), valueobjects.NodeID(req.To), req.Relationship)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	status := http.StatusOK
	if result.EdgeCreated {
		status = http.StatusCreated
	}
	common.RespondJSON(w, status, result)
}

// UpdateEdge handles PATCH /edges/{id}
func (h *EdgeHandler) UpdateEdge(w http.ResponseWriter, r *http.Request) {
	var req ChangeRelationshipRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		h.errs.Handle(w, r, pkgerrors.NewValidationError("Invalid request body").WithCause(err))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	result, err := h.editor.ChangeRelationship(edgeIDParam(r), req.Relationship)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// DeleteEdge handles DELETE /edges/{id}
func (h *EdgeHandler) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	result, err := h.editor.DeleteEdge(edgeIDParam(r))
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	h.logger.Debug("Edge deleted",
		zap.String("edge_id", result.Edge.ID),
		zap.String("editor", common.EditorID(r.Context())),
	)
	common.RespondJSON(w, http.StatusOK, result)
}

func (h *EdgeHandler) decodeRelationship(w http.ResponseWriter, r *http.Request) (editor.RelationshipInput, bool) {
	var req RelationshipRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		h.errs.Handle(w, r, pkgerrors.NewValidationError("Invalid request body").WithCause(err))
		return editor.RelationshipInput{}, false
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errs.Handle(w, r, err)
		return editor.RelationshipInput{}, false
	}
	return editor.RelationshipInput{
		From:         req.From,
		To:           req.To,
		Relationship: req.Relationship,
		FromType:     valueobjects.NodeType(req.FromType),
		ToType:       valueobjects.NodeType(req.ToType),
	}, true
}

func edgeIDParam(r *http.Request) string {
	raw := chi.URLParam(r, "edgeID")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}
