// Package di assembles the service from configuration.
package di

import (
	"context"
	"time"

	"go.uber.org/zap"

	"orgmap/application/editor"
	"orgmap/application/ports"
	"orgmap/infrastructure/config"
	"orgmap/infrastructure/persistence"
	"orgmap/infrastructure/view"
	"orgmap/interfaces/http/rest"
	"orgmap/pkg/auth"
	"orgmap/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	LogLevel    zap.AtomicLevel
	Logger      *zap.Logger
	Metrics     *observability.Collector
	Store       *persistence.ResilientStore
	Publisher   ports.EventPublisher
	Editor      *editor.Editor
	View        *view.State
	Scheduler   *editor.FilterScheduler
	RateLimiter *auth.IPRateLimiter
	Router      *rest.Router
}

// Start loads the graph and starts background work tied to ctx. A failed
// load is logged and left for the client to retry through /reload.
func (c *Container) Start(ctx context.Context) {
	if c.RateLimiter != nil {
		go c.RateLimiter.RunCleanup(ctx, 5*time.Minute)
	}
	if _, err := c.Editor.Reload(ctx, false); err != nil {
		c.Logger.Error("Initial load failed", zap.String("store", c.Store.Name()), zap.Error(err))
	}
}

// ApplyConfig carries the settings that can change without a restart
func (c *Container) ApplyConfig(updated *config.Config) {
	if level, err := ProvideLogLevel(updated); err == nil && level.Level() != c.LogLevel.Level() {
		c.LogLevel.SetLevel(level.Level())
		c.Logger.Info("Log level changed", zap.String("level", level.String()))
	}
	if d := updated.Editor.FilterDebounce; d != c.Scheduler.Delay() {
		c.Scheduler.SetDelay(d)
		c.Logger.Info("Filter debounce changed", zap.Duration("delay", d))
	}
	c.Config = updated
}

// Close stops timers and flushes the logger
func (c *Container) Close() {
	c.Scheduler.Stop()
	if c.Editor.HasUnsaved() {
		c.Logger.Warn("Shutting down with unsaved changes", zap.Int("pending", c.Editor.Status().PendingCount))
	}
	_ = c.Logger.Sync()
}
