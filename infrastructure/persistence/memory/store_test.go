package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgmap/application/ports"
	"orgmap/domain/core/entities"
	pkgerrors "orgmap/pkg/errors"
)

func TestSaveStampsAndCopies(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(nil, WithClock(func() time.Time { return now }))
	in := &ports.Snapshot{Nodes: []*entities.Node{{ID: "org::Acme", Label: "Acme"}}}

	require.NoError(t, s.Save(context.Background(), in))
	in.Nodes[0].Label = "mutated"

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got.Nodes, 1)
	assert.Equal(t, "Acme", got.Nodes[0].Label)
	assert.Equal(t, "2024-05-01T12:00:00Z", got.Nodes[0].UpdatedAt)
	assert.Equal(t, 1, s.Saves())
}

func TestAuthRequiredAndTokenExpiry(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(nil, WithAuthRequired(), WithClock(func() time.Time { return now }))
	assert.False(t, s.Authorized())

	err := s.Save(context.Background(), &ports.Snapshot{})
	assert.True(t, pkgerrors.IsAuthRequired(err))

	err = s.Authorize(context.Background(), ports.Credentials{})
	assert.True(t, pkgerrors.IsValidation(err))

	require.NoError(t, s.Authorize(context.Background(), ports.Credentials{AccessToken: "t", ExpiresIn: time.Hour}))
	assert.True(t, s.Authorized())
	require.NoError(t, s.Save(context.Background(), &ports.Snapshot{}))

	now = now.Add(2 * time.Hour)
	assert.False(t, s.Authorized())
}

func TestFailureInjection(t *testing.T) {
	s := NewStore(nil, WithSeed(&ports.Snapshot{Nodes: []*entities.Node{{ID: "org::A", Label: "A"}}}))
	s.FailLoads(true)
	_, err := s.Load(context.Background())
	assert.ErrorIs(t, err, ErrInjected)

	s.FailSaves(true)
	assert.ErrorIs(t, s.Save(context.Background(), &ports.Snapshot{}), ErrInjected)
	assert.Len(t, s.Current().Nodes, 1, "failed save leaves contents alone")
}
