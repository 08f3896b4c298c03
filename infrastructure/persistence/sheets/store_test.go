package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"orgmap/application/ports"
	"orgmap/domain/core/entities"
	pkgerrors "orgmap/pkg/errors"
)

const sheetID = "sheet-1"

// fakeSheets serves the handful of Sheets v4 endpoints the store calls
type fakeSheets struct {
	mu      sync.Mutex
	tabs    map[string][][]interface{}
	cleared []string
	auth    []string
	reject  bool
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prefix := "/v4/spreadsheets/" + sheetID
	path := r.URL.Path
	if !strings.HasPrefix(path, prefix) {
		http.NotFound(w, r)
		return
	}
	rest := strings.TrimPrefix(path, prefix)
	if r.Method != http.MethodGet {
		f.auth = append(f.auth, r.Header.Get("Authorization"))
	}

	switch {
	case rest == "" && r.Method == http.MethodGet:
		if f.reject || r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":401,"message":"invalid token"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"spreadsheetId":"` + sheetID + `"}`))

	case strings.HasPrefix(rest, "/values/") && strings.HasSuffix(rest, ":clear"):
		rng := strings.TrimSuffix(strings.TrimPrefix(rest, "/values/"), ":clear")
		if f.reject {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":401,"message":"expired"}}`))
			return
		}
		f.cleared = append(f.cleared, rng)
		tab := strings.Split(rng, "!")[0]
		delete(f.tabs, tab)
		_, _ = w.Write([]byte(`{"spreadsheetId":"` + sheetID + `"}`))

	case strings.HasPrefix(rest, "/values/") && r.Method == http.MethodPut:
		rng := strings.TrimPrefix(rest, "/values/")
		var body struct {
			Values [][]interface{} `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.URL.Query().Get("valueInputOption") != "RAW" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.tabs[strings.Split(rng, "!")[0]] = body.Values
		_, _ = w.Write([]byte(`{"updatedRows":1}`))

	case strings.HasPrefix(rest, "/values/") && r.Method == http.MethodGet:
		tab := strings.Split(strings.TrimPrefix(rest, "/values/"), "!")[0]
		resp := map[string]interface{}{"range": tab + "!A1:Z100", "majorDimension": "ROWS"}
		if values, ok := f.tabs[tab]; ok {
			resp["values"] = values
		}
		_ = json.NewEncoder(w).Encode(resp)

	default:
		http.NotFound(w, r)
	}
}

func newTestStore(t *testing.T, fake *fakeSheets) *Store {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	s, err := NewStore(context.Background(), Config{
		SpreadsheetID: sheetID,
		Endpoint:      srv.URL + "/",
		HTTPClient:    srv.Client(),
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return s
}

func TestLoadReadsBothTabs(t *testing.T) {
	fake := &fakeSheets{tabs: map[string][][]interface{}{
		"nodes": {
			{"id", "label", "type", "hidden"},
			{"org::Acme", "Acme", "", "true"},
			{"person::Bob", "Bob", "person"},
		},
		"edges": {
			{"source", "target", "relationship"},
			{"person::Bob", "org::Acme", "membership"},
		},
	}}
	s := newTestStore(t, fake)

	snap, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Nodes, 2)
	require.Len(t, snap.Edges, 1)
	assert.True(t, snap.Nodes[0].Hidden)
	assert.Equal(t, "membership", snap.Edges[0].Relationship)
}

func TestLoadEmptySpreadsheet(t *testing.T) {
	s := newTestStore(t, &fakeSheets{tabs: map[string][][]interface{}{}})
	snap, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Nodes)
	assert.Empty(t, snap.Edges)
}

func TestSaveNeedsAuthorization(t *testing.T) {
	fake := &fakeSheets{tabs: map[string][][]interface{}{}}
	s := newTestStore(t, fake)
	assert.False(t, s.Authorized())

	err := s.Save(context.Background(), &ports.Snapshot{})
	assert.True(t, pkgerrors.IsAuthRequired(err))

	err = s.Authorize(context.Background(), ports.Credentials{AccessToken: "bad-token"})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeAuthFailed))
	assert.False(t, s.Authorized())
}

func TestSaveOverwritesTabs(t *testing.T) {
	fake := &fakeSheets{tabs: map[string][][]interface{}{
		"nodes": {{"id"}, {"org::Old"}},
	}}
	s := newTestStore(t, fake)
	now := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Authorize(context.Background(), ports.Credentials{AccessToken: "good-token"}))
	require.True(t, s.Authorized())

	snap := &ports.Snapshot{
		Nodes: []*entities.Node{{ID: "org::Acme", Label: "Acme", Type: "organization"}},
		Edges: []*entities.Edge{},
	}
	require.NoError(t, s.Save(context.Background(), snap))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, []string{"nodes!A:Z", "edges!A:Z"}, fake.cleared)
	for _, header := range fake.auth {
		assert.Equal(t, "Bearer good-token", header)
	}
	nodes := fake.tabs["nodes"]
	require.Len(t, nodes, 2)
	assert.Equal(t, "id", nodes[0][0])
	assert.Equal(t, "org::Acme", nodes[1][0])
	assert.Equal(t, "2024-06-01T09:30:00Z", nodes[1][9])
	assert.Len(t, fake.tabs["edges"], 1, "header only")
}

func TestTokenExpiresAndRejectedTokenIsDropped(t *testing.T) {
	fake := &fakeSheets{tabs: map[string][][]interface{}{}}
	s := newTestStore(t, fake)
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Authorize(context.Background(), ports.Credentials{AccessToken: "good-token", ExpiresIn: 30 * time.Minute}))
	now = now.Add(31 * time.Minute)
	assert.False(t, s.Authorized())

	now = now.Add(-30 * time.Minute)
	require.True(t, s.Authorized())
	fake.mu.Lock()
	fake.reject = true
	fake.mu.Unlock()

	err := s.Save(context.Background(), &ports.Snapshot{})
	assert.True(t, pkgerrors.IsAuthRequired(err))
	assert.False(t, s.Authorized())
}
