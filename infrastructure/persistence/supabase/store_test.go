package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"orgmap/application/ports"
	"orgmap/domain/core/entities"
	pkgerrors "orgmap/pkg/errors"
)

const userToken = "user-token"

// fakeProject serves the REST and auth routes the store uses
type fakeProject struct {
	mu       sync.Mutex
	tables   map[string][]map[string]interface{}
	requests []string
	writers  []string
}

func (f *fakeProject) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)

	if r.URL.Path == "/auth/v1/user" {
		if r.Header.Get("Authorization") != "Bearer "+userToken {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":401,"msg":"invalid JWT"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"6f1c2a52-1f0b-4c55-9d0e-3a8f7c1b2d3e","aud":"authenticated","email":"editor@example.org"}`))
		return
	}

	table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		rows := f.tables[table]
		if rows == nil {
			rows = []map[string]interface{}{}
		}
		_ = json.NewEncoder(w).Encode(rows)
	case http.MethodDelete:
		f.writers = append(f.writers, r.Header.Get("Authorization"))
		delete(f.tables, table)
		w.WriteHeader(http.StatusNoContent)
	case http.MethodPost:
		f.writers = append(f.writers, r.Header.Get("Authorization"))
		var rows []map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.tables[table] = append(f.tables[table], rows...)
		w.WriteHeader(http.StatusCreated)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestStore(t *testing.T, fake *fakeProject) *Store {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	s, err := NewStore(Config{URL: srv.URL, AnonKey: "anon-key"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return s
}

func TestNewStoreRequiresSettings(t *testing.T) {
	_, err := NewStore(Config{URL: "http://localhost"}, nil)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestLoadConvertsRows(t *testing.T) {
	fake := &fakeProject{tables: map[string][]map[string]interface{}{
		"nodes": {
			{"id": "org::Acme", "label": "Acme", "type": nil, "hidden": true},
			{"id": "person::Bob", "label": "Bob", "type": "person", "hidden": ""},
		},
		"edges": {
			{"source": "person::Bob", "target": "org::Acme", "relationship": "membership", "role": "chair"},
		},
	}}
	s := newTestStore(t, fake)

	snap, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Nodes, 2)
	assert.True(t, snap.Nodes[0].Hidden)
	assert.Equal(t, "organization", string(snap.Nodes[0].Type))
	assert.False(t, snap.Nodes[1].Hidden)
	require.Len(t, snap.Edges, 1)
	assert.Equal(t, "chair", snap.Edges[0].Role)
}

func TestSaveRequiresValidatedToken(t *testing.T) {
	fake := &fakeProject{tables: map[string][]map[string]interface{}{}}
	s := newTestStore(t, fake)

	err := s.Save(context.Background(), &ports.Snapshot{})
	assert.True(t, pkgerrors.IsAuthRequired(err))

	err = s.Authorize(context.Background(), ports.Credentials{AccessToken: "forged"})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeAuthFailed))
	assert.False(t, s.Authorized())
}

func TestSaveReplacesTables(t *testing.T) {
	fake := &fakeProject{tables: map[string][]map[string]interface{}{
		"nodes": {{"id": "org::Stale"}},
	}}
	s := newTestStore(t, fake)
	require.NoError(t, s.Authorize(context.Background(), ports.Credentials{AccessToken: userToken}))
	require.True(t, s.Authorized())

	snap := &ports.Snapshot{
		Nodes: []*entities.Node{
			{ID: "org::Acme", Label: "Acme", Type: "organization"},
			{ID: "person::Bob", Label: "Bob", Type: "person", Hidden: true},
		},
		Edges: []*entities.Edge{{From: "person::Bob", To: "org::Acme", Relationship: "membership"}},
	}
	require.NoError(t, s.Save(context.Background(), snap))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.tables["nodes"], 2)
	assert.Equal(t, "org::Acme", fake.tables["nodes"][0]["id"])
	assert.Equal(t, "true", fake.tables["nodes"][1]["hidden"])
	assert.NotEmpty(t, fake.tables["nodes"][0]["updated_at"])
	require.Len(t, fake.tables["edges"], 1)
	for _, header := range fake.writers {
		assert.Equal(t, "Bearer "+userToken, header)
	}
}
