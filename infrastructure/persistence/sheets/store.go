// Package sheets persists the graph in a Google spreadsheet with one tab for
// nodes and one for edges. Reads use an API key; writes need an OAuth access
// token handed over through Authorize.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"orgmap/application/ports"
	"orgmap/infrastructure/persistence/tabular"
	pkgerrors "orgmap/pkg/errors"
)

// Name identifies this adapter
const Name = "sheets"

const readRange = "!A:Z"

// Config holds the spreadsheet settings
type Config struct {
	SpreadsheetID string
	APIKey        string
	TokenTTL      time.Duration

	// Endpoint and HTTPClient override the Google defaults, for tests
	Endpoint   string
	HTTPClient *http.Client
}

// Store reads and writes the nodes and edges tabs
type Store struct {
	cfg    Config
	reader *gsheets.Service
	logger *zap.Logger
	now    func() time.Time

	mu        sync.RWMutex
	writer    *gsheets.Service
	expiresAt time.Time
}

// NewStore creates the read client. No credential is held until Authorize.
func NewStore(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.SpreadsheetID == "" {
		return nil, pkgerrors.NewValidationError("sheets: spreadsheet id is required")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := endpointOptions(cfg)
	switch {
	case cfg.HTTPClient != nil:
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	default:
		opts = append(opts, option.WithoutAuthentication())
	}

	reader, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets reader: %w", err)
	}

	return &Store{
		cfg:    cfg,
		reader: reader,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Name implements ports.PersistenceAdapter
func (s *Store) Name() string { return Name }

// Load reads both tabs concurrently. Either tab failing fails the load.
func (s *Store) Load(ctx context.Context) (*ports.Snapshot, error) {
	var (
		wg                 sync.WaitGroup
		nodeRows, edgeRows [][]string
		nodeErr, edgeErr   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		nodeRows, nodeErr = s.readTab(ctx, tabular.NodesTab)
	}()
	go func() {
		defer wg.Done()
		edgeRows, edgeErr = s.readTab(ctx, tabular.EdgesTab)
	}()
	wg.Wait()

	if err := errors.Join(nodeErr, edgeErr); err != nil {
		return nil, err
	}

	snap, warnings := tabular.Decode(nodeRows, edgeRows)
	for _, w := range warnings {
		s.logger.Warn("Skipped unreadable row", zap.Error(w))
	}
	s.logger.Info("Loaded graph from sheets",
		zap.String("spreadsheet_id", s.cfg.SpreadsheetID),
		zap.Int("nodes", len(snap.Nodes)),
		zap.Int("edges", len(snap.Edges)),
	)
	return snap, nil
}

func (s *Store) readTab(ctx context.Context, tab string) ([][]string, error) {
	resp, err := s.reader.Spreadsheets.Values.Get(s.cfg.SpreadsheetID, tab+readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s tab: %w", tab, err)
	}
	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, len(raw))
		for i, cell := range raw {
			if cell != nil {
				row[i] = fmt.Sprint(cell)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Save overwrites both tabs: each is cleared, then written from A1 with the
// header row first.
func (s *Store) Save(ctx context.Context, snap *ports.Snapshot) error {
	writer, ok := s.currentWriter()
	if !ok {
		return pkgerrors.NewAuthRequiredError(Name)
	}

	nodeRows, edgeRows := tabular.Encode(snap, s.now())
	if err := s.writeTab(ctx, writer, tabular.NodesTab, nodeRows); err != nil {
		return s.writeFailed(err)
	}
	if err := s.writeTab(ctx, writer, tabular.EdgesTab, edgeRows); err != nil {
		return s.writeFailed(err)
	}

	s.logger.Info("Saved graph to sheets",
		zap.String("spreadsheet_id", s.cfg.SpreadsheetID),
		zap.Int("nodes", len(snap.Nodes)),
		zap.Int("edges", len(snap.Edges)),
	)
	return nil
}

func (s *Store) writeTab(ctx context.Context, writer *gsheets.Service, tab string, rows [][]string) error {
	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		values[i] = make([]interface{}, len(row))
		for j, cell := range row {
			values[i][j] = cell
		}
	}

	if _, err := writer.Spreadsheets.Values.Clear(s.cfg.SpreadsheetID, tab+readRange, &gsheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to clear %s tab: %w", tab, err)
	}
	_, err := writer.Spreadsheets.Values.Update(s.cfg.SpreadsheetID, tab+"!A1", &gsheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write %s tab: %w", tab, err)
	}
	return nil
}

// writeFailed drops a token the API no longer accepts so the next save asks
// for a new one.
func (s *Store) writeFailed(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden) {
		s.mu.Lock()
		s.writer = nil
		s.mu.Unlock()
		s.logger.Warn("Sheets rejected the access token", zap.Int("status", apiErr.Code))
		return pkgerrors.NewAuthRequiredError(Name).WithCause(err)
	}
	return err
}

// Authorize checks the token against the spreadsheet and keeps it for writes
// until it expires.
func (s *Store) Authorize(ctx context.Context, creds ports.Credentials) error {
	if creds.AccessToken == "" {
		return pkgerrors.NewValidationError("access token is required").WithCode(pkgerrors.CodeInvalidCredential)
	}
	ttl := creds.ExpiresIn
	if ttl <= 0 {
		ttl = s.cfg.TokenTTL
	}
	expiresAt := s.now().Add(ttl)

	base := s.cfg.HTTPClient
	if base == nil {
		base = http.DefaultClient
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: creds.AccessToken,
		TokenType:   "Bearer",
		Expiry:      expiresAt,
	})
	client := oauth2.NewClient(context.WithValue(context.Background(), oauth2.HTTPClient, base), ts)

	writer, err := gsheets.NewService(ctx, append(endpointOptions(s.cfg), option.WithHTTPClient(client))...)
	if err != nil {
		return fmt.Errorf("failed to create sheets writer: %w", err)
	}
	if _, err := writer.Spreadsheets.Get(s.cfg.SpreadsheetID).Fields("spreadsheetId").Context(ctx).Do(); err != nil {
		return pkgerrors.NewUnauthorizedError("sheets rejected the access token").
			WithCode(pkgerrors.CodeAuthFailed).
			WithCause(err)
	}

	s.mu.Lock()
	s.writer = writer
	s.expiresAt = expiresAt
	s.mu.Unlock()

	s.logger.Info("Sheets write access granted", zap.Time("expires_at", expiresAt))
	return nil
}

// Authorized reports whether an unexpired token is held
func (s *Store) Authorized() bool {
	_, ok := s.currentWriter()
	return ok
}

func (s *Store) currentWriter() (*gsheets.Service, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.writer == nil || !s.now().Before(s.expiresAt) {
		return nil, false
	}
	return s.writer, true
}

func endpointOptions(cfg Config) []option.ClientOption {
	if cfg.Endpoint == "" {
		return nil
	}
	return []option.ClientOption{option.WithEndpoint(cfg.Endpoint)}
}
