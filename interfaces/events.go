package interfaces

import (
	"context"

	"github.com/customeros/webmail/dto"
)

type EventPublisher interface {
	PublishCacheInvalidated(ctx context.Context, event dto.CacheInvalidated) error
	Close() error
}

type EventListener interface {
	Handle(ctx context.Context, event any) error
	GetEventType() string
	GetQueueName() string
}

type EventSubscriber interface {
	RegisterListener(listener EventListener)
	ListenQueueExclusive(queueName string) error
	Close() error
}
