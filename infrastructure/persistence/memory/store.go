// Package memory is an in-process persistence adapter. It backs local
// development runs and tests, and can be told to require a credential or to
// fail so the editor's save paths can be exercised without a remote store.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"orgmap/application/ports"
	"orgmap/infrastructure/persistence/tabular"
	pkgerrors "orgmap/pkg/errors"
)

// Name identifies this adapter
const Name = "memory"

// ErrInjected is returned by loads and saves while failure injection is on
var ErrInjected = errors.New("memory store: injected failure")

// Store keeps the last saved snapshot in memory
type Store struct {
	mu          sync.RWMutex
	snapshot    *ports.Snapshot
	requireAuth bool
	token       string
	expiresAt   time.Time
	failLoad    bool
	failSave    bool
	saves       int
	now         func() time.Time
	logger      *zap.Logger
}

// Option configures a Store
type Option func(*Store)

// WithSeed starts the store with a snapshot
func WithSeed(s *ports.Snapshot) Option {
	return func(st *Store) { st.snapshot = clone(s) }
}

// WithAuthRequired makes saves fail until Authorize is called
func WithAuthRequired() Option {
	return func(st *Store) { st.requireAuth = true }
}

// WithClock replaces time.Now, for token expiry tests
func WithClock(now func() time.Time) Option {
	return func(st *Store) { st.now = now }
}

// NewStore creates an empty store
func NewStore(logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		snapshot: &ports.Snapshot{},
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements ports.PersistenceAdapter
func (s *Store) Name() string { return Name }

// Load returns a copy of the stored snapshot
func (s *Store) Load(ctx context.Context) (*ports.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failLoad {
		return nil, ErrInjected
	}
	return clone(s.snapshot), nil
}

// Save replaces the stored snapshot and stamps updated_at
func (s *Store) Save(ctx context.Context, snap *ports.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.requireAuth && !s.authorizedLocked() {
		return pkgerrors.NewAuthRequiredError(Name)
	}
	if s.failSave {
		return ErrInjected
	}

	stamp := tabular.Timestamp(s.now())
	out := clone(snap)
	for _, n := range out.Nodes {
		n.UpdatedAt = stamp
	}
	for _, e := range out.Edges {
		e.UpdatedAt = stamp
	}
	s.snapshot = out
	s.saves++

	s.logger.Debug("Memory store saved",
		zap.Int("nodes", len(out.Nodes)),
		zap.Int("edges", len(out.Edges)),
	)
	return nil
}

// Authorize accepts any non-empty token
func (s *Store) Authorize(ctx context.Context, creds ports.Credentials) error {
	if creds.AccessToken == "" {
		return pkgerrors.NewValidationError("access token is required").WithCode(pkgerrors.CodeInvalidCredential)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = creds.AccessToken
	s.expiresAt = time.Time{}
	if creds.ExpiresIn > 0 {
		s.expiresAt = s.now().Add(creds.ExpiresIn)
	}
	return nil
}

// Authorized reports whether saves are currently allowed
func (s *Store) Authorized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.requireAuth || s.authorizedLocked()
}

func (s *Store) authorizedLocked() bool {
	if s.token == "" {
		return false
	}
	return s.expiresAt.IsZero() || s.now().Before(s.expiresAt)
}

// FailLoads toggles load failure injection
func (s *Store) FailLoads(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failLoad = fail
}

// FailSaves toggles save failure injection
func (s *Store) FailSaves(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSave = fail
}

// Saves counts successful saves
func (s *Store) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// Current returns a copy of the stored snapshot
func (s *Store) Current() *ports.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.snapshot)
}

func clone(in *ports.Snapshot) *ports.Snapshot {
	out := &ports.Snapshot{}
	if in == nil {
		return out
	}
	for _, n := range in.Nodes {
		out.Nodes = append(out.Nodes, n.Clone())
	}
	for _, e := range in.Edges {
		out.Edges = append(out.Edges, e.Clone())
	}
	return out
}
