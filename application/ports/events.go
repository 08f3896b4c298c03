package ports

import (
	"context"

	"orgmap/domain/events"
)

// EventPublisher announces save and reload outcomes to other systems
type EventPublisher interface {
	Publish(ctx context.Context, event events.DomainEvent) error
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}
