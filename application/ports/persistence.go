package ports

import (
	"context"
	"time"

	"orgmap/domain/core/entities"
)

// Snapshot is the full contents of the graph as exchanged with a store
type Snapshot struct {
	Nodes []*entities.Node `json:"nodes" yaml:"nodes"`
	Edges []*entities.Edge `json:"edges" yaml:"edges"`
}

// PersistenceAdapter loads and saves whole-graph snapshots.
// This is a port in hexagonal architecture - the editor doesn't know about the implementation
type PersistenceAdapter interface {
	// Name identifies the backing store in logs and events
	Name() string

	// Load reads every node and edge. Nothing is returned on partial failure.
	Load(ctx context.Context) (*Snapshot, error)

	// Save overwrites the store with the snapshot and stamps updated_at
	Save(ctx context.Context, snapshot *Snapshot) error
}

// Credentials carries a write credential obtained by the user
type Credentials struct {
	AccessToken string        `json:"access_token" validate:"required"`
	ExpiresIn   time.Duration `json:"expires_in,omitempty"`
}

// Authenticator is implemented by adapters that need a credential to write
type Authenticator interface {
	// Authorize installs the credential, validating it where the store allows
	Authorize(ctx context.Context, creds Credentials) error

	// Authorized reports whether a usable write credential is held
	Authorized() bool
}
