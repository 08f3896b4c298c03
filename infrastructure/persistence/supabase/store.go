// Package supabase persists the graph in two PostgREST tables, nodes and
// edges, laid out like the spreadsheet tabs. Reads use the anon key; writes
// run with a signed-in user's access token.
package supabase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/supabase-community/supabase-go"
	"go.uber.org/zap"

	"orgmap/application/ports"
	"orgmap/infrastructure/persistence/tabular"
	pkgerrors "orgmap/pkg/errors"
)

// Name identifies this adapter
const Name = "supabase"

// Config holds the project settings
type Config struct {
	URL        string
	AnonKey    string
	NodesTable string
	EdgesTable string
	Schema     string
	TokenTTL   time.Duration
}

// Store talks to the project's REST endpoint
type Store struct {
	cfg    Config
	anon   *supabase.Client
	logger *zap.Logger
	now    func() time.Time

	mu        sync.RWMutex
	writer    *supabase.Client
	expiresAt time.Time
}

// NewStore creates the anonymous read client
func NewStore(cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.URL == "" || cfg.AnonKey == "" {
		return nil, pkgerrors.NewValidationError("supabase: url and anon key are required")
	}
	if cfg.NodesTable == "" {
		cfg.NodesTable = tabular.NodesTab
	}
	if cfg.EdgesTable == "" {
		cfg.EdgesTable = tabular.EdgesTab
	}
	if cfg.Schema == "" {
		cfg.Schema = "public"
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	anon, err := supabase.NewClient(cfg.URL, cfg.AnonKey, &supabase.ClientOptions{Schema: cfg.Schema})
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	return &Store{cfg: cfg, anon: anon, logger: logger, now: time.Now}, nil
}

// Name implements ports.PersistenceAdapter
func (s *Store) Name() string { return Name }

// Load selects every row of both tables
func (s *Store) Load(ctx context.Context) (*ports.Snapshot, error) {
	nodeRows, err := s.selectAll(s.anon, s.cfg.NodesTable, tabular.NodeColumns)
	if err != nil {
		return nil, err
	}
	edgeRows, err := s.selectAll(s.anon, s.cfg.EdgesTable, tabular.EdgeColumns)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap, warnings := tabular.Decode(nodeRows, edgeRows)
	for _, w := range warnings {
		s.logger.Warn("Skipped unreadable row", zap.Error(w))
	}
	s.logger.Info("Loaded graph from supabase",
		zap.Int("nodes", len(snap.Nodes)),
		zap.Int("edges", len(snap.Edges)),
	)
	return snap, nil
}

// selectAll returns the table as a header row plus one row per record, so it
// goes through the same codec as the spreadsheet.
func (s *Store) selectAll(client *supabase.Client, table string, columns []string) ([][]string, error) {
	var records []map[string]interface{}
	if _, err := client.From(table).Select("*", "", false).ExecuteTo(&records); err != nil {
		return nil, fmt.Errorf("failed to select %s: %w", table, err)
	}

	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, columns)
	for _, rec := range records {
		row := make([]string, len(columns))
		for i, c := range columns {
			if v, ok := rec[c]; ok && v != nil {
				row[i] = fmt.Sprint(v)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Save deletes every row, then inserts the snapshot
func (s *Store) Save(ctx context.Context, snap *ports.Snapshot) error {
	writer, ok := s.currentWriter()
	if !ok {
		return pkgerrors.NewAuthRequiredError(Name)
	}

	now := s.now()
	nodes := make([]tabular.Record, 0, len(snap.Nodes))
	for _, n := range snap.Nodes {
		nodes = append(nodes, tabular.NodeRecord(n, now))
	}
	edges := make([]tabular.Record, 0, len(snap.Edges))
	for _, e := range snap.Edges {
		edges = append(edges, tabular.EdgeRecord(e, now))
	}

	// edges go first on delete and last on insert so a foreign key from
	// edges to nodes is never violated
	if err := s.clear(ctx, writer, s.cfg.EdgesTable, "source"); err != nil {
		return err
	}
	if err := s.clear(ctx, writer, s.cfg.NodesTable, "id"); err != nil {
		return err
	}
	if err := s.insert(ctx, writer, s.cfg.NodesTable, nodes); err != nil {
		return err
	}
	if err := s.insert(ctx, writer, s.cfg.EdgesTable, edges); err != nil {
		return err
	}

	s.logger.Info("Saved graph to supabase",
		zap.Int("nodes", len(nodes)),
		zap.Int("edges", len(edges)),
	)
	return nil
}

func (s *Store) clear(ctx context.Context, client *supabase.Client, table, keyColumn string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, _, err := client.From(table).Delete("minimal", "").Neq(keyColumn, "").Execute(); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}
	return nil
}

func (s *Store) insert(ctx context.Context, client *supabase.Client, table string, records []tabular.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, _, err := client.From(table).Insert(records, false, "", "minimal", "").Execute(); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return nil
}

// Authorize checks the user's access token with the auth service and builds
// a client that sends it on every write.
func (s *Store) Authorize(ctx context.Context, creds ports.Credentials) error {
	if creds.AccessToken == "" {
		return pkgerrors.NewValidationError("access token is required").WithCode(pkgerrors.CodeInvalidCredential)
	}

	user, err := s.anon.Auth.WithToken(creds.AccessToken).GetUser()
	if err != nil {
		return pkgerrors.NewUnauthorizedError("supabase rejected the access token").
			WithCode(pkgerrors.CodeAuthFailed).
			WithCause(err)
	}

	writer, err := supabase.NewClient(s.cfg.URL, s.cfg.AnonKey, &supabase.ClientOptions{
		Schema:  s.cfg.Schema,
		Headers: map[string]string{"Authorization": "Bearer " + creds.AccessToken},
	})
	if err != nil {
		return fmt.Errorf("failed to create supabase write client: %w", err)
	}

	ttl := creds.ExpiresIn
	if ttl <= 0 {
		ttl = s.cfg.TokenTTL
	}
	expiresAt := s.now().Add(ttl)

	s.mu.Lock()
	s.writer = writer
	s.expiresAt = expiresAt
	s.mu.Unlock()

	s.logger.Info("Supabase write access granted",
		zap.String("user_id", user.ID.String()),
		zap.Time("expires_at", expiresAt),
	)
	return nil
}

// Authorized reports whether an unexpired user token is held
func (s *Store) Authorized() bool {
	_, ok := s.currentWriter()
	return ok
}

func (s *Store) currentWriter() (*supabase.Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.writer == nil || !s.now().Before(s.expiresAt) {
		return nil, false
	}
	return s.writer, true
}
