// Package logging provides an event publisher that only writes events to the log.
package logging

import (
	"context"

	"go.uber.org/zap"

	"orgmap/domain/events"
)

// Publisher logs every event at info level
type Publisher struct {
	logger *zap.Logger
}

// NewPublisher creates a publisher for deployments without an event bus
func NewPublisher(logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{logger: logger}
}

// Publish implements ports.EventPublisher
func (p *Publisher) Publish(ctx context.Context, event events.DomainEvent) error {
	p.logger.Info("Event",
		zap.String("event_type", event.GetEventType()),
		zap.String("graph", event.GetAggregateID()),
		zap.Time("timestamp", event.GetTimestamp()),
		zap.Any("event", event),
	)
	return nil
}

// PublishBatch implements ports.EventPublisher
func (p *Publisher) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	for _, e := range domainEvents {
		_ = p.Publish(ctx, e)
	}
	return nil
}
