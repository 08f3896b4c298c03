// Package persistence holds the decorators shared by every store adapter.
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"orgmap/application/ports"
	pkgerrors "orgmap/pkg/errors"
	"orgmap/pkg/observability"
)

// BreakerConfig holds circuit breaker settings for a store
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns the settings used when none are configured
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      3,
	}
}

// ResilientStore wraps an adapter with a circuit breaker, a span per call and
// store metrics. It also forwards Authorize when the inner adapter has one.
type ResilientStore struct {
	inner   ports.PersistenceAdapter
	breaker *gobreaker.CircuitBreaker
	tracer  trace.Tracer
	metrics *observability.Collector
	logger  *zap.Logger
}

// NewResilientStore decorates inner. metrics may be nil.
func NewResilientStore(inner ports.PersistenceAdapter, cfg BreakerConfig, metrics *observability.Collector, logger *zap.Logger) *ResilientStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ResilientStore{
		inner:   inner,
		tracer:  observability.Tracer(),
		metrics: metrics,
		logger:  logger,
	}

	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Store circuit breaker changed state",
				zap.String("store", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			s.metrics.SetBreakerState(name, int(to))
		},
		// a missing credential or a rejected edit says nothing about the
		// store's health
		IsSuccessful: func(err error) bool {
			return err == nil ||
				pkgerrors.IsAuthRequired(err) ||
				pkgerrors.IsValidation(err) ||
				errors.Is(err, context.Canceled)
		},
	})
	s.metrics.SetBreakerState(inner.Name(), int(gobreaker.StateClosed))
	return s
}

// Name implements ports.PersistenceAdapter
func (s *ResilientStore) Name() string { return s.inner.Name() }

// Unwrap returns the decorated adapter
func (s *ResilientStore) Unwrap() ports.PersistenceAdapter { return s.inner }

// Load implements ports.PersistenceAdapter
func (s *ResilientStore) Load(ctx context.Context) (*ports.Snapshot, error) {
	var snap *ports.Snapshot
	err := s.call(ctx, "load", func(ctx context.Context) error {
		var err error
		snap, err = s.inner.Load(ctx)
		return err
	})
	return snap, err
}

// Save implements ports.PersistenceAdapter
func (s *ResilientStore) Save(ctx context.Context, snap *ports.Snapshot) error {
	return s.call(ctx, "save", func(ctx context.Context) error {
		return s.inner.Save(ctx, snap)
	}, attribute.Int("orgmap.nodes", len(snap.Nodes)), attribute.Int("orgmap.edges", len(snap.Edges)))
}

// Authorize forwards to the inner adapter. Stores without credentials
// report a validation error.
func (s *ResilientStore) Authorize(ctx context.Context, creds ports.Credentials) error {
	auth, ok := s.inner.(ports.Authenticator)
	if !ok {
		return pkgerrors.NewValidationError(s.inner.Name() + " does not take credentials")
	}
	ctx, span := s.tracer.Start(ctx, "store.authorize", trace.WithAttributes(attribute.String("orgmap.store", s.inner.Name())))
	defer span.End()

	start := time.Now()
	err := auth.Authorize(ctx, creds)
	s.metrics.RecordStoreOperation(s.inner.Name(), "authorize", err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// Authorized reports true for stores that never need a credential
func (s *ResilientStore) Authorized() bool {
	auth, ok := s.inner.(ports.Authenticator)
	if !ok {
		return true
	}
	return auth.Authorized()
}

// State exposes the breaker state for readiness checks
func (s *ResilientStore) State() gobreaker.State {
	return s.breaker.State()
}

func (s *ResilientStore) call(ctx context.Context, operation string, fn func(context.Context) error, attrs ...attribute.KeyValue) error {
	attrs = append(attrs, attribute.String("orgmap.store", s.inner.Name()))
	ctx, span := s.tracer.Start(ctx, "store."+operation, trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		s.logger.Warn("Store call rejected by circuit breaker",
			zap.String("store", s.inner.Name()),
			zap.String("operation", operation),
		)
		err = pkgerrors.NewUnavailableError(s.inner.Name()).
			WithCode(pkgerrors.CodeBreakerOpen).
			WithCause(err)
	}
	s.metrics.RecordStoreOperation(s.inner.Name(), operation, err, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
