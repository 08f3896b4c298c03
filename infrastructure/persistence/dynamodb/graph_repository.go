// Package dynamodb stores the graph in a single DynamoDB table. Every item of
// one graph shares the partition key GRAPH#<name>; nodes sort under NODE# and
// edges under EDGE#.
package dynamodb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"orgmap/application/ports"
	"orgmap/domain/core/entities"
	"orgmap/domain/core/valueobjects"
	"orgmap/infrastructure/persistence/tabular"
)

// Name identifies this adapter
const Name = "dynamodb"

const (
	batchSize  = 25
	maxRetries = 5

	entityNode = "NODE"
	entityEdge = "EDGE"
)

// Client is the subset of the DynamoDB API the repository calls
type Client interface {
	dynamodb.QueryAPIClient
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// GraphRepository implements ports.PersistenceAdapter on DynamoDB
type GraphRepository struct {
	client    Client
	tableName string
	graphName string
	logger    *zap.Logger
	now       func() time.Time
}

// NewGraphRepository creates a repository for one named graph
func NewGraphRepository(client Client, tableName, graphName string, logger *zap.Logger) *GraphRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if graphName == "" {
		graphName = "default"
	}
	return &GraphRepository{
		client:    client,
		tableName: tableName,
		graphName: graphName,
		logger:    logger,
		now:       time.Now,
	}
}

// item is the stored shape of both nodes and edges
type item struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`

	// node attributes
	NodeID string `dynamodbav:"NodeID,omitempty"`
	Label  string `dynamodbav:"Label,omitempty"`
	Type   string `dynamodbav:"Type,omitempty"`
	Hidden bool   `dynamodbav:"Hidden,omitempty"`
	Member string `dynamodbav:"Member,omitempty"`
	Origin string `dynamodbav:"Origin,omitempty"`

	// edge attributes
	Source       string `dynamodbav:"Source,omitempty"`
	Target       string `dynamodbav:"Target,omitempty"`
	Relationship string `dynamodbav:"Relationship,omitempty"`
	Role         string `dynamodbav:"Role,omitempty"`

	URL       string `dynamodbav:"URL,omitempty"`
	Notes     string `dynamodbav:"Notes,omitempty"`
	CreatedAt string `dynamodbav:"CreatedAt,omitempty"`
	UpdatedAt string `dynamodbav:"UpdatedAt"`
}

func (r *GraphRepository) partitionKey() string {
	return "GRAPH#" + r.graphName
}

func nodeSortKey(id valueobjects.NodeID) string {
	return "NODE#" + string(id)
}

func edgeSortKey(e *entities.Edge) string {
	return "EDGE#" + e.Key().String()
}

// Name implements ports.PersistenceAdapter
func (r *GraphRepository) Name() string { return Name }

// Load queries the whole partition, following pagination
func (r *GraphRepository) Load(ctx context.Context) (*ports.Snapshot, error) {
	items, err := r.queryPartition(ctx, false)
	if err != nil {
		return nil, err
	}

	snap := &ports.Snapshot{
		Nodes: make([]*entities.Node, 0),
		Edges: make([]*entities.Edge, 0),
	}
	for _, av := range items {
		var it item
		if err := attributevalue.UnmarshalMap(av, &it); err != nil {
			r.logger.Warn("Failed to unmarshal item", zap.Error(err))
			continue
		}
		switch it.EntityType {
		case entityNode:
			snap.Nodes = append(snap.Nodes, &entities.Node{
				ID:        valueobjects.NodeID(it.NodeID),
				Label:     it.Label,
				Type:      valueobjects.Normalize(valueobjects.NodeType(it.Type)),
				URL:       it.URL,
				Hidden:    it.Hidden,
				Notes:     it.Notes,
				Member:    it.Member,
				Origin:    it.Origin,
				CreatedAt: it.CreatedAt,
				UpdatedAt: it.UpdatedAt,
			})
		case entityEdge:
			snap.Edges = append(snap.Edges, &entities.Edge{
				From:         valueobjects.NodeID(it.Source),
				To:           valueobjects.NodeID(it.Target),
				Relationship: it.Relationship,
				Role:         it.Role,
				URL:          it.URL,
				Notes:        it.Notes,
				CreatedAt:    it.CreatedAt,
				UpdatedAt:    it.UpdatedAt,
			})
		default:
			r.logger.Debug("Ignoring item of unknown type", zap.String("entity_type", it.EntityType))
		}
	}

	r.logger.Info("Loaded graph from DynamoDB",
		zap.String("graph", r.graphName),
		zap.Int("nodes", len(snap.Nodes)),
		zap.Int("edges", len(snap.Edges)),
	)
	return snap, nil
}

// Save writes every node and edge, then deletes items no longer in the snapshot
func (r *GraphRepository) Save(ctx context.Context, snap *ports.Snapshot) error {
	existing, err := r.queryPartition(ctx, true)
	if err != nil {
		return err
	}

	stamp := tabular.Timestamp(r.now())
	pk := r.partitionKey()
	keep := make(map[string]struct{}, len(snap.Nodes)+len(snap.Edges))
	requests := make([]types.WriteRequest, 0, len(snap.Nodes)+len(snap.Edges))

	for _, n := range snap.Nodes {
		it := item{
			PK:         pk,
			SK:         nodeSortKey(n.ID),
			EntityType: entityNode,
			NodeID:     string(n.ID),
			Label:      n.Label,
			Type:       string(valueobjects.Normalize(n.Type)),
			URL:        n.URL,
			Hidden:     n.Hidden,
			Notes:      n.Notes,
			Member:     n.Member,
			Origin:     n.Origin,
			CreatedAt:  n.CreatedAt,
			UpdatedAt:  stamp,
		}
		req, err := putRequest(it)
		if err != nil {
			return err
		}
		keep[it.SK] = struct{}{}
		requests = append(requests, req)
	}
	for _, e := range snap.Edges {
		it := item{
			PK:           pk,
			SK:           edgeSortKey(e),
			EntityType:   entityEdge,
			Source:       string(e.From),
			Target:       string(e.To),
			Relationship: e.Relationship,
			Role:         e.Role,
			URL:          e.URL,
			Notes:        e.Notes,
			CreatedAt:    e.CreatedAt,
			UpdatedAt:    stamp,
		}
		req, err := putRequest(it)
		if err != nil {
			return err
		}
		keep[it.SK] = struct{}{}
		requests = append(requests, req)
	}

	deleted := 0
	for _, av := range existing {
		sk, ok := av["SK"].(*types.AttributeValueMemberS)
		if !ok {
			continue
		}
		if _, ok := keep[sk.Value]; ok {
			continue
		}
		requests = append(requests, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{
				Key: map[string]types.AttributeValue{
					"PK": &types.AttributeValueMemberS{Value: pk},
					"SK": &types.AttributeValueMemberS{Value: sk.Value},
				},
			},
		})
		deleted++
	}

	if err := r.batchWrite(ctx, requests); err != nil {
		return err
	}

	r.logger.Info("Saved graph to DynamoDB",
		zap.String("graph", r.graphName),
		zap.Int("nodes", len(snap.Nodes)),
		zap.Int("edges", len(snap.Edges)),
		zap.Int("deleted", deleted),
	)
	return nil
}

func putRequest(it item) (types.WriteRequest, error) {
	av, err := attributevalue.MarshalMap(it)
	if err != nil {
		return types.WriteRequest{}, fmt.Errorf("failed to marshal %s: %w", strings.ToLower(it.EntityType), err)
	}
	return types.WriteRequest{PutRequest: &types.PutRequest{Item: av}}, nil
}

func (r *GraphRepository) queryPartition(ctx context.Context, keysOnly bool) ([]map[string]types.AttributeValue, error) {
	builder := expression.NewBuilder().
		WithKeyCondition(expression.Key("PK").Equal(expression.Value(r.partitionKey())))
	if keysOnly {
		builder = builder.WithProjection(expression.NamesList(expression.Name("PK"), expression.Name("SK")))
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}
	if keysOnly {
		input.ProjectionExpression = expr.Projection()
	}

	items := make([]map[string]types.AttributeValue, 0)
	paginator := dynamodb.NewQueryPaginator(r.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query graph %s: %w", r.graphName, err)
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

// batchWrite sends requests 25 at a time, retrying unprocessed items with backoff
func (r *GraphRepository) batchWrite(ctx context.Context, requests []types.WriteRequest) error {
	for i := 0; i < len(requests); i += batchSize {
		end := i + batchSize
		if end > len(requests) {
			end = len(requests)
		}

		pending := requests[i:end]
		for retry := 0; len(pending) > 0; retry++ {
			if retry >= maxRetries {
				return fmt.Errorf("batch write left %d unprocessed items after %d attempts", len(pending), maxRetries)
			}
			if retry > 0 {
				backoff := time.Duration(retry*retry) * 50 * time.Millisecond
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(backoff):
				}
			}

			result, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{r.tableName: pending},
			})
			if err != nil {
				return fmt.Errorf("failed to batch write: %w", err)
			}
			pending = result.UnprocessedItems[r.tableName]
			if len(pending) > 0 {
				r.logger.Debug("Retrying unprocessed items",
					zap.Int("unprocessed", len(pending)),
					zap.Int("retry", retry+1),
				)
			}
		}
	}
	return nil
}
