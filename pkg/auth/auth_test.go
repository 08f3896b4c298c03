package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	cfg := JWTConfig{SecretKey: "s3cret", Issuer: "orgmap"}
	token, err := GenerateToken(cfg, "editor-1", "editor@example.org", time.Hour)
	require.NoError(t, err)

	v, err := NewJWTValidator(cfg)
	require.NoError(t, err)

	claims, err := v.ValidateToken("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "editor-1", claims.Subject)
	assert.Equal(t, "editor@example.org", claims.Email)
}

func TestJWTRejections(t *testing.T) {
	cfg := JWTConfig{SecretKey: "s3cret", Issuer: "orgmap"}
	v, err := NewJWTValidator(cfg)
	require.NoError(t, err)

	expired, err := GenerateToken(cfg, "editor-1", "", -time.Minute)
	require.NoError(t, err)
	otherKey, err := GenerateToken(JWTConfig{SecretKey: "other", Issuer: "orgmap"}, "editor-1", "", time.Hour)
	require.NoError(t, err)
	otherIssuer, err := GenerateToken(JWTConfig{SecretKey: "s3cret", Issuer: "someone-else"}, "editor-1", "", time.Hour)
	require.NoError(t, err)
	noSubject, err := GenerateToken(cfg, "", "", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrMissingToken},
		{"expired", expired, ErrExpiredToken},
		{"wrong key", otherKey, ErrInvalidToken},
		{"wrong issuer", otherIssuer, ErrInvalidToken},
		{"no subject", noSubject, ErrInvalidClaims},
		{"garbage", "not.a.token", ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.ValidateToken(tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err = NewJWTValidator(JWTConfig{})
	assert.Error(t, err)
}

func TestSlidingWindowLimiter(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewSlidingWindowLimiter(2, time.Minute)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "k")
	assert.False(t, ok)

	ok, _ = l.Allow(ctx, "other")
	assert.True(t, ok)

	now = now.Add(61 * time.Second)
	ok, _ = l.Allow(ctx, "k")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 2, l.Prune())

	require.NoError(t, l.Reset(ctx, "k"))
}

func TestIPRateLimiterIncludesBurst(t *testing.T) {
	l := NewIPRateLimiter(1, 1)
	ctx := context.Background()
	ok, _ := l.Allow(ctx, "10.0.0.1")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "10.0.0.1")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "10.0.0.1")
	assert.False(t, ok)

	require.NoError(t, l.Reset(ctx, "10.0.0.1"))
	ok, _ = l.Allow(ctx, "10.0.0.1")
	assert.True(t, ok)
}
