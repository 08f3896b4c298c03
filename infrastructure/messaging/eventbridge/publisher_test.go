package eventbridge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"orgmap/domain/events"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) PutEvents(ctx context.Context, in *eventbridge.PutEventsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*eventbridge.PutEventsOutput)
	return out, args.Error(1)
}

var stamp = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func savedEvents(n int) []events.DomainEvent {
	out := make([]events.DomainEvent, n)
	for i := range out {
		out[i] = events.NewGraphSaved("default", "memory", i+1, nil, 2, 1, stamp)
	}
	return out
}

func TestPublishBuildsEntry(t *testing.T) {
	client := new(MockClient)
	p := NewPublisher(client, "orgmap-bus", zaptest.NewLogger(t))

	client.On("PutEvents", mock.Anything, mock.MatchedBy(func(in *eventbridge.PutEventsInput) bool {
		if len(in.Entries) != 1 {
			return false
		}
		e := in.Entries[0]
		var detail map[string]interface{}
		if err := json.Unmarshal([]byte(aws.ToString(e.Detail)), &detail); err != nil {
			return false
		}
		return aws.ToString(e.EventBusName) == "orgmap-bus" &&
			aws.ToString(e.Source) == events.Source &&
			aws.ToString(e.DetailType) == events.TypeGraphSaved &&
			detail["store"] == "memory"
	})).Return(&eventbridge.PutEventsOutput{}, nil).Once()

	require.NoError(t, p.Publish(context.Background(), savedEvents(1)[0]))
	client.AssertExpectations(t)
}

func TestPublishBatchChunksByTen(t *testing.T) {
	client := new(MockClient)
	p := NewPublisher(client, "bus", zaptest.NewLogger(t))
	client.On("PutEvents", mock.Anything, mock.Anything).Return(&eventbridge.PutEventsOutput{}, nil)

	require.NoError(t, p.PublishBatch(context.Background(), savedEvents(23)))
	client.AssertNumberOfCalls(t, "PutEvents", 3)

	sizes := make([]int, 0, 3)
	for _, call := range client.Calls {
		sizes = append(sizes, len(call.Arguments.Get(1).(*eventbridge.PutEventsInput).Entries))
	}
	assert.Equal(t, []int{10, 10, 3}, sizes)
}

func TestPublishReportsFailures(t *testing.T) {
	client := new(MockClient)
	p := NewPublisher(client, "bus", zaptest.NewLogger(t))
	client.On("PutEvents", mock.Anything, mock.Anything).Return(&eventbridge.PutEventsOutput{
		FailedEntryCount: 1,
		Entries: []types.PutEventsResultEntry{
			{EventId: aws.String("1")},
			{ErrorCode: aws.String("ThrottlingException"), ErrorMessage: aws.String("slow down")},
		},
	}, nil).Once()

	err := p.PublishBatch(context.Background(), savedEvents(2))
	assert.EqualError(t, err, "1 events failed to publish")

	client.On("PutEvents", mock.Anything, mock.Anything).Return(nil, errors.New("network down")).Once()
	err = p.Publish(context.Background(), savedEvents(1)[0])
	assert.ErrorContains(t, err, "network down")
}

func TestPublishBatchEmpty(t *testing.T) {
	client := new(MockClient)
	p := NewPublisher(client, "bus", nil)
	require.NoError(t, p.PublishBatch(context.Background(), nil))
	client.AssertNotCalled(t, "PutEvents", mock.Anything, mock.Anything)
}
