package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"orgmap/application/editor"
	"orgmap/domain/filter"
	"orgmap/infrastructure/view"
	"orgmap/pkg/common"
	pkgerrors "orgmap/pkg/errors"
	"orgmap/pkg/utils"
)

const maxViewWait = 30 * time.Second

// FilterHandler serves the connectivity filter and the polled view
type FilterHandler struct {
	editor    *editor.Editor
	scheduler *editor.FilterScheduler
	view      *view.State
	errs      *pkgerrors.ErrorHandler
	logger    *zap.Logger
}

// NewFilterHandler creates a new filter handler
func NewFilterHandler(
	e *editor.Editor,
	scheduler *editor.FilterScheduler,
	state *view.State,
	errs *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *FilterHandler {
	return &FilterHandler{
		editor:    e,
		scheduler: scheduler,
		view:      state,
		errs:      errs,
		logger:    logger,
	}
}

// FilterRequest is the body of PUT /filter. Both fields blank clears the filter.
type FilterRequest struct {
	From string `json:"from" validate:"max=200"`
	To   string `json:"to" validate:"max=200"`
}

// ScheduledResponse acknowledges a debounced filter update
type ScheduledResponse struct {
	Query   filter.Query `json:"query"`
	DelayMS int64        `json:"delay_ms"`
}

// Filter handles GET /filter?from=&to= and answers with the partition right away
func (h *FilterHandler) Filter(w http.ResponseWriter, r *http.Request) {
	q := filter.Query{
		From: r.URL.Query().Get("from"),
		To:   r.URL.Query().Get("to"),
	}
	common.RespondJSON(w, http.StatusOK, h.editor.Filter(q))
}

// ScheduleFilter handles PUT /filter. The partition lands in the view after
// the debounce delay; rapid updates collapse into the last one.
func (h *FilterHandler) ScheduleFilter(w http.ResponseWriter, r *http.Request) {
	var req FilterRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		h.errs.Handle(w, r, pkgerrors.NewValidationError("Invalid request body").WithCause(err))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	q := filter.Query{From: req.From, To: req.To}
	h.scheduler.Schedule(q)
	common.RespondJSON(w, http.StatusAccepted, ScheduledResponse{
		Query:   q,
		DelayMS: h.scheduler.Delay().Milliseconds(),
	})
}

// View handles GET /view. With ?after=<version> the request waits until a
// newer frame is applied or wait elapses.
func (h *FilterHandler) View(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("after")
	if raw == "" {
		common.RespondJSON(w, http.StatusOK, h.view.Current())
		return
	}

	after, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		h.errs.Handle(w, r, pkgerrors.NewValidationError("after must be a frame version"))
		return
	}
	wait := maxViewWait
	if rawWait := r.URL.Query().Get("wait"); rawWait != "" {
		d, err := time.ParseDuration(rawWait)
		if err != nil || d < 0 {
			h.errs.Handle(w, r, pkgerrors.NewValidationError("wait must be a duration such as 10s"))
			return
		}
		if d < wait {
			wait = d
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), wait)
	defer cancel()
	select {
	case <-h.view.Changed(after):
	case <-ctx.Done():
	}
	common.RespondJSON(w, http.StatusOK, h.view.Current())
}
