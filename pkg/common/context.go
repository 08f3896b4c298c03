package common

import (
	"context"
)

// ContextKey represents a context key type
type ContextKey string

const (
	ContextKeyEditorID    ContextKey = "editor_id"
	ContextKeyEditorEmail ContextKey = "editor_email"
)

// Editor identifies the caller of an API request
type Editor struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// WithEditor stores the authenticated caller in ctx
func WithEditor(ctx context.Context, e Editor) context.Context {
	ctx = context.WithValue(ctx, ContextKeyEditorID, e.ID)
	return context.WithValue(ctx, ContextKeyEditorEmail, e.Email)
}

// EditorFromContext returns the caller, if authentication ran
func EditorFromContext(ctx context.Context) (Editor, bool) {
	id, ok := ctx.Value(ContextKeyEditorID).(string)
	if !ok || id == "" {
		return Editor{}, false
	}
	email, _ := ctx.Value(ContextKeyEditorEmail).(string)
	return Editor{ID: id, Email: email}, true
}

// EditorID returns the caller id or "anonymous"
func EditorID(ctx context.Context) string {
	if e, ok := EditorFromContext(ctx); ok {
		return e.ID
	}
	return "anonymous"
}
