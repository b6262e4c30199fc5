package events

import (
	"context"
	"fmt"

	"github.com/customeros/webmail/dto"
	"github.com/customeros/webmail/interfaces"
	"github.com/customeros/webmail/internal/logger"
)

type EventsService struct {
	Publisher  interfaces.EventPublisher
	Subscriber *RabbitMQSubscriber
}

// NewEventsService connects to RabbitMQ. Without a URL it returns a service
// whose publisher drops events and that has no subscriber.
func NewEventsService(rabbitmqURL, instanceID string, log logger.Logger, publisherConfig *PublisherConfig, subscriberConfig *SubscriberConfig) (*EventsService, error) {
	if rabbitmqURL == "" {
		log.Warn("RABBITMQ_URL not set, cache invalidations stay local to this instance")
		return &EventsService{Publisher: NoopPublisher{}}, nil
	}

	publisher, err := NewRabbitMQPublisher(rabbitmqURL, instanceID, log, publisherConfig)
	if err != nil {
		return nil, err
	}

	subscriber, err := NewRabbitMQSubscriber(rabbitmqURL, log, subscriberConfig)
	if err != nil {
		_ = publisher.Close()
		return nil, err
	}

	return &EventsService{
		Publisher:  publisher,
		Subscriber: subscriber,
	}, nil
}

func (s *EventsService) Close() error {
	var errs []error

	if s.Subscriber != nil {
		if err := s.Subscriber.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if s.Publisher != nil {
		if err := s.Publisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing events service: %v", errs)
	}

	return nil
}

type NoopPublisher struct{}

func (NoopPublisher) PublishCacheInvalidated(context.Context, dto.CacheInvalidated) error {
	return nil
}

func (NoopPublisher) Close() error {
	return nil
}
