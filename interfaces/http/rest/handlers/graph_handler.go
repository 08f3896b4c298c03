// Package handlers contains the HTTP handlers of the REST API.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"orgmap/application/editor"
	"orgmap/application/ports"
	"orgmap/domain/core/entities"
	"orgmap/domain/core/valueobjects"
	"orgmap/pkg/common"
	pkgerrors "orgmap/pkg/errors"
	"orgmap/pkg/utils"
)

// GraphHandler serves whole-graph reads and the save/reload/undo session actions
type GraphHandler struct {
	editor *editor.Editor
	errs   *pkgerrors.ErrorHandler
	logger *zap.Logger
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(e *editor.Editor, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *GraphHandler {
	return &GraphHandler{
		editor: e,
		errs:   errs,
		logger: logger,
	}
}

// GraphResponse is the body of GET /graph
type GraphResponse struct {
	Nodes         []*entities.Node `json:"nodes"`
	Edges         []*entities.Edge `json:"edges"`
	Relationships []string         `json:"relationships"`
	Store         string           `json:"store"`
}

// AuthRequest carries a write credential obtained by the client
type AuthRequest struct {
	AccessToken string `json:"access_token" validate:"required"`
	ExpiresIn   int    `json:"expires_in,omitempty" validate:"omitempty,min=0"`
}

// UndoResponse is the body of POST /undo
type UndoResponse struct {
	Kind         string                `json:"kind"`
	Edge         entities.Edge         `json:"edge"`
	Compensated  bool                  `json:"compensated"`
	RemovedNodes []valueobjects.NodeID `json:"removed_nodes,omitempty"`
	Pending      int                   `json:"pending"`
}

// GetGraph handles GET /graph
func (h *GraphHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	snapshot := h.editor.Snapshot()
	common.RespondJSON(w, http.StatusOK, GraphResponse{
		Nodes:         snapshot.Nodes,
		Edges:         snapshot.Edges,
		Relationships: h.editor.Relationships(),
		Store:         h.editor.StoreName(),
	})
}

// GetStatus handles GET /status
func (h *GraphHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, h.editor.Status())
}

// ListRelationships handles GET /relationships
func (h *GraphHandler) ListRelationships(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"relationships": h.editor.Relationships(),
	})
}

// Save handles POST /save. A store without a credential answers 202 and the
// save runs once POST /auth succeeds.
func (h *GraphHandler) Save(w http.ResponseWriter, r *http.Request) {
	result, err := h.editor.Save(r.Context())
	if err != nil {
		if pkgerrors.IsAuthRequired(err) {
			common.RespondStatus(w, http.StatusAccepted, "auth_required", "Sign in to "+h.editor.StoreName()+" to finish saving")
			return
		}
		h.errs.Handle(w, r, err)
		return
	}

	h.logger.Info("Graph saved over HTTP",
		zap.String("editor", common.EditorID(r.Context())),
		zap.Int("saved", result.Saved),
		zap.Bool("skipped", result.Skipped),
	)
	common.RespondJSON(w, http.StatusOK, result)
}

// Authorize handles POST /auth
func (h *GraphHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	var req AuthRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		h.errs.Handle(w, r, pkgerrors.NewValidationError("Invalid request body").WithCause(err))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	result, err := h.editor.Authorize(r.Context(), ports.Credentials{
		AccessToken: req.AccessToken,
		ExpiresIn:   time.Duration(req.ExpiresIn) * time.Second,
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	if result == nil {
		common.RespondStatus(w, http.StatusOK, "authorized", "")
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// Reload handles POST /reload?discard=true
func (h *GraphHandler) Reload(w http.ResponseWriter, r *http.Request) {
	discard := false
	if raw := r.URL.Query().Get("discard"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			h.errs.Handle(w, r, pkgerrors.NewValidationError("discard must be true or false"))
			return
		}
		discard = parsed
	}

	result, err := h.editor.Reload(r.Context(), discard)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// Undo handles POST /undo
func (h *GraphHandler) Undo(w http.ResponseWriter, r *http.Request) {
	result, err := h.editor.Undo()
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, UndoResponse{
		Kind:         string(result.Action.Kind),
		Edge:         result.Action.Edge,
		Compensated:  result.Compensated,
		RemovedNodes: result.RemovedNodes,
		Pending:      h.editor.Status().PendingCount,
	})
}
