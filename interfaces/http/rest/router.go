// Package rest wires the HTTP API onto a chi router.
package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"orgmap/infrastructure/config"
	"orgmap/interfaces/http/rest/middleware"
	v1 "orgmap/interfaces/http/rest/v1"
	"orgmap/pkg/auth"
	"orgmap/pkg/common"
	pkgerrors "orgmap/pkg/errors"
	"orgmap/pkg/observability"
)

// ReadinessFunc reports whether the service can take traffic
type ReadinessFunc func(ctx context.Context) error

// Router creates and configures the HTTP router
type Router struct {
	cfg       *config.Config
	handlers  v1.Handlers
	errs      *pkgerrors.ErrorHandler
	validator *auth.JWTValidator
	limiter   *auth.IPRateLimiter
	metrics   *observability.Collector
	ready     ReadinessFunc
	logger    *zap.Logger
}

// Option configures optional router collaborators
type Option func(*Router)

// WithJWT protects /api/v1 with bearer tokens
func WithJWT(v *auth.JWTValidator) Option {
	return func(rt *Router) { rt.validator = v }
}

// WithRateLimiter limits requests per client address
func WithRateLimiter(l *auth.IPRateLimiter) Option {
	return func(rt *Router) { rt.limiter = l }
}

// WithMetrics records request metrics and serves /metrics
func WithMetrics(c *observability.Collector) Option {
	return func(rt *Router) { rt.metrics = c }
}

// WithReadiness sets the /ready probe
func WithReadiness(fn ReadinessFunc) Option {
	return func(rt *Router) { rt.ready = fn }
}

// NewRouter creates a new router instance
func NewRouter(
	cfg *config.Config,
	handlers v1.Handlers,
	errs *pkgerrors.ErrorHandler,
	logger *zap.Logger,
	opts ...Option,
) *Router {
	rt := &Router{
		cfg:      cfg,
		handlers: handlers,
		errs:     errs,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(rt.errs.Middleware)
	router.Use(middleware.Logger(rt.logger))
	if rt.metrics != nil {
		router.Use(middleware.Metrics(rt.metrics))
	}

	if rt.cfg.CORS.Enabled {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   rt.cfg.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rt.errs.HandleStatus(w, r, http.StatusNotFound, "Route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		rt.errs.HandleStatus(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Probes
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.metrics != nil {
		router.Handle("/metrics", rt.metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		if rt.limiter != nil {
			r.Use(middleware.RateLimit(rt.limiter, rt.errs))
		}
		if rt.validator != nil {
			r.Use(middleware.Authenticate(rt.validator, rt.errs, rt.logger))
		}
		r.Use(chimiddleware.Timeout(rt.requestTimeout()))
		v1.Mount(r, rt.handlers)
	})

	return router
}

// requestTimeout leaves room for a save or load and the long-polled view
func (rt *Router) requestTimeout() time.Duration {
	timeout := rt.cfg.Server.WriteTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	return timeout
}

// healthCheck handles liveness requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	common.RespondStatus(w, http.StatusOK, "healthy", "")
}

// readinessCheck fails while the store is unreachable or the graph never loaded
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	if rt.ready != nil {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := rt.ready(ctx); err != nil {
			common.RespondStatus(w, http.StatusServiceUnavailable, "not_ready", err.Error())
			return
		}
	}
	common.RespondStatus(w, http.StatusOK, "ready", "")
}
