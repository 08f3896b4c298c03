package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"orgmap/application/ports"
	"orgmap/infrastructure/persistence/memory"
	pkgerrors "orgmap/pkg/errors"
	"orgmap/pkg/observability"
)

func tripFast() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Hour,
		FailureThreshold: 0.5,
		MinRequests:      2,
	}
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	inner := memory.NewStore(zaptest.NewLogger(t))
	inner.FailLoads(true)
	metrics := observability.NewCollector("test")
	s := NewResilientStore(inner, tripFast(), metrics, zaptest.NewLogger(t))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := s.Load(ctx)
		require.ErrorIs(t, err, memory.ErrInjected)
	}
	assert.Equal(t, gobreaker.StateOpen, s.State())

	inner.FailLoads(false)
	_, err := s.Load(ctx)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeBreakerOpen))
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeUnavailable))

	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.StoreOperations.WithLabelValues(memory.Name, "load", "error")))
	assert.Equal(t, float64(gobreaker.StateOpen), testutil.ToFloat64(metrics.BreakerState.WithLabelValues(memory.Name)))
}

func TestAuthRequiredDoesNotTrip(t *testing.T) {
	inner := memory.NewStore(zaptest.NewLogger(t), memory.WithAuthRequired())
	s := NewResilientStore(inner, tripFast(), nil, zaptest.NewLogger(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := s.Save(ctx, &ports.Snapshot{})
		assert.True(t, pkgerrors.IsAuthRequired(err))
	}
	assert.Equal(t, gobreaker.StateClosed, s.State())
	assert.False(t, s.Authorized())

	require.NoError(t, s.Authorize(ctx, ports.Credentials{AccessToken: "token"}))
	assert.True(t, s.Authorized())
	require.NoError(t, s.Save(ctx, &ports.Snapshot{}))
	assert.Equal(t, 1, inner.Saves())
}

type readOnlyStore struct{}

func (readOnlyStore) Name() string { return "readonly" }

func (readOnlyStore) Load(context.Context) (*ports.Snapshot, error) { return &ports.Snapshot{}, nil }

func (readOnlyStore) Save(context.Context, *ports.Snapshot) error { return nil }

func TestAuthorizeWithoutAuthenticator(t *testing.T) {
	s := NewResilientStore(readOnlyStore{}, DefaultBreakerConfig(), nil, nil)
	assert.True(t, s.Authorized())
	err := s.Authorize(context.Background(), ports.Credentials{AccessToken: "x"})
	assert.True(t, pkgerrors.IsValidation(err))
	assert.Equal(t, "readonly", s.Name())
}
