package dynamodb

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"orgmap/application/ports"
	"orgmap/domain/core/entities"
)

const testTable = "orgmap-test"

// fakeClient keeps items in memory, serves queries two items per page and
// leaves the first item of the first batch unprocessed once.
type fakeClient struct {
	mu          sync.Mutex
	items       map[string]map[string]types.AttributeValue
	batches     int
	throttled   bool
	queryErr    error
	lastProject *string
}

func newFakeClient() *fakeClient {
	return &fakeClient{items: make(map[string]map[string]types.AttributeValue)}
}

func skOf(item map[string]types.AttributeValue) string {
	return item["SK"].(*types.AttributeValueMemberS).Value
}

func (f *fakeClient) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	f.lastProject = in.ProjectionExpression

	keys := make([]string, 0, len(f.items))
	for sk := range f.items {
		keys = append(keys, sk)
	}
	sort.Strings(keys)

	start := 0
	if in.ExclusiveStartKey != nil {
		after := skOf(in.ExclusiveStartKey)
		start = sort.SearchStrings(keys, after) + 1
	}
	end := start + 2
	if end > len(keys) {
		end = len(keys)
	}

	out := &dynamodb.QueryOutput{}
	for _, sk := range keys[start:end] {
		out.Items = append(out.Items, f.items[sk])
	}
	if end < len(keys) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			"PK": f.items[keys[end-1]]["PK"],
			"SK": &types.AttributeValueMemberS{Value: keys[end-1]},
		}
	}
	return out, nil
}

func (f *fakeClient) BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches++

	requests := in.RequestItems[testTable]
	if len(requests) > batchSize {
		return nil, errors.New("too many items in batch")
	}

	var unprocessed []types.WriteRequest
	for i, req := range requests {
		if i == 0 && !f.throttled {
			f.throttled = true
			unprocessed = append(unprocessed, req)
			continue
		}
		switch {
		case req.PutRequest != nil:
			f.items[skOf(req.PutRequest.Item)] = req.PutRequest.Item
		case req.DeleteRequest != nil:
			delete(f.items, skOf(req.DeleteRequest.Key))
		}
	}

	out := &dynamodb.BatchWriteItemOutput{}
	if len(unprocessed) > 0 {
		out.UnprocessedItems = map[string][]types.WriteRequest{testTable: unprocessed}
	}
	return out, nil
}

func testSnapshot() *ports.Snapshot {
	return &ports.Snapshot{
		Nodes: []*entities.Node{
			{ID: "org::Acme", Label: "Acme", Type: "organization", URL: "https://acme.example"},
			{ID: "org::Beta", Label: "Beta", Type: "organization", Hidden: true},
			{ID: "person::Bob", Label: "Bob", Type: "person", CreatedAt: "2024-01-01T00:00:00Z"},
		},
		Edges: []*entities.Edge{
			{From: "org::Acme", To: "org::Beta", Relationship: "partnership"},
			{From: "person::Bob", To: "org::Acme", Relationship: "membership", Role: "chair"},
		},
	}
}

func newTestRepository(t *testing.T, client *fakeClient) *GraphRepository {
	t.Helper()
	r := NewGraphRepository(client, testTable, "", zaptest.NewLogger(t))
	r.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return r
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	client := newFakeClient()
	r := newTestRepository(t, client)
	ctx := context.Background()

	require.NoError(t, r.Save(ctx, testSnapshot()))
	assert.True(t, client.throttled, "unprocessed items should have been retried")
	assert.Len(t, client.items, 5)

	snap, err := r.Load(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Nodes, 3)
	require.Len(t, snap.Edges, 2)

	byID := make(map[string]*entities.Node)
	for _, n := range snap.Nodes {
		byID[string(n.ID)] = n
	}
	assert.True(t, byID["org::Beta"].Hidden)
	assert.Equal(t, "https://acme.example", byID["org::Acme"].URL)
	assert.Equal(t, "2024-01-01T00:00:00Z", byID["person::Bob"].CreatedAt)
	assert.Equal(t, "2024-06-01T12:00:00Z", byID["org::Acme"].UpdatedAt)

	roles := map[string]string{}
	for _, e := range snap.Edges {
		roles[e.Relationship] = e.Role
	}
	assert.Equal(t, "chair", roles["membership"])
}

func TestSaveDeletesStaleItems(t *testing.T) {
	client := newFakeClient()
	r := newTestRepository(t, client)
	ctx := context.Background()
	require.NoError(t, r.Save(ctx, testSnapshot()))

	smaller := testSnapshot()
	smaller.Nodes = smaller.Nodes[:2]
	smaller.Edges = smaller.Edges[:1]
	require.NoError(t, r.Save(ctx, smaller))

	require.NotNil(t, client.lastProject)
	snap, err := r.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Nodes, 2)
	assert.Len(t, snap.Edges, 1)
	_, stale := client.items["NODE#person::Bob"]
	assert.False(t, stale)
}

func TestSaveSplitsIntoBatches(t *testing.T) {
	client := newFakeClient()
	client.throttled = true
	r := newTestRepository(t, client)

	snap := &ports.Snapshot{}
	for i := 0; i < 60; i++ {
		n, err := entities.NewNode("person", "Person "+string(rune('A'+i%26))+string(rune('a'+i/26)))
		require.NoError(t, err)
		snap.Nodes = append(snap.Nodes, n)
	}
	require.NoError(t, r.Save(context.Background(), snap))
	assert.Equal(t, 3, client.batches)
	assert.Len(t, client.items, 60)
}

func TestLoadFailure(t *testing.T) {
	client := newFakeClient()
	client.queryErr = errors.New("throttled")
	r := newTestRepository(t, client)

	_, err := r.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
	assert.Equal(t, Name, r.Name())
}
