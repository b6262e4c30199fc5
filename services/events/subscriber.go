package events

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/rabbitmq/amqp091-go"

	"github.com/customeros/webmail/dto"
	"github.com/customeros/webmail/interfaces"
	"github.com/customeros/webmail/internal/logger"
	"github.com/customeros/webmail/internal/tracing"
	"github.com/customeros/webmail/internal/utils"
)

const consumerRetryDelay = 5 * time.Second

type SubscriberConfig struct {
	MaxRetries          int
	ReconnectBackoff    time.Duration
	MaxReconnectBackoff time.Duration
}

type RabbitMQSubscriber struct {
	connection      *amqp091.Connection
	connectionMutex sync.Mutex
	url             string
	logger          logger.Logger
	config          SubscriberConfig
	listeners       map[string]interfaces.EventListener
	listenerMutex   sync.RWMutex
	done            chan struct{}
	closeOnce       sync.Once
}

var _ interfaces.EventSubscriber = (*RabbitMQSubscriber)(nil)

func NewRabbitMQSubscriber(rabbitmqURL string, logger logger.Logger, config *SubscriberConfig) (*RabbitMQSubscriber, error) {
	if config == nil {
		config = &SubscriberConfig{
			MaxRetries:          5,
			ReconnectBackoff:    time.Second,
			MaxReconnectBackoff: time.Second * 30,
		}
	}

	subscriber := &RabbitMQSubscriber{
		url:       rabbitmqURL,
		logger:    logger,
		config:    *config,
		listeners: make(map[string]interfaces.EventListener),
		done:      make(chan struct{}),
	}

	err := subscriber.connect()
	if err != nil {
		return nil, err
	}

	return subscriber, nil
}

func (r *RabbitMQSubscriber) RegisterListener(listener interfaces.EventListener) {
	r.listenerMutex.Lock()
	defer r.listenerMutex.Unlock()

	eventType := listener.GetEventType()
	r.listeners[eventType] = listener
	r.logger.Infof("Registered listener for event type: %s on queue: %s",
		eventType, listener.GetQueueName())
}

// ListenQueueExclusive declares an auto-delete queue bound to the cache
// fanout and consumes it exclusively. The queue goes away with the instance.
func (r *RabbitMQSubscriber) ListenQueueExclusive(queueName string) error {
	go r.consumeExclusive(queueName)
	return nil
}

func (r *RabbitMQSubscriber) declareInstanceQueue(channel *amqp091.Channel, queueName string) error {
	if err := declareExchanges(channel); err != nil {
		return err
	}
	_, err := channel.QueueDeclare(
		queueName,
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return errors.Wrapf(err, "Failed to declare queue %s", queueName)
	}
	err = channel.QueueBind(queueName, "", ExchangeWebmailCache, false, nil)
	if err != nil {
		return errors.Wrapf(err, "Failed to bind queue %s to exchange %s", queueName, ExchangeWebmailCache)
	}
	return nil
}

func (r *RabbitMQSubscriber) currentConnection() *amqp091.Connection {
	r.connectionMutex.Lock()
	defer r.connectionMutex.Unlock()
	return r.connection
}

func (r *RabbitMQSubscriber) sleepOrDone(d time.Duration) bool {
	select {
	case <-r.done:
		return false
	case <-time.After(d):
		return true
	}
}

func (r *RabbitMQSubscriber) consumeExclusive(queueName string) {
	for {
		select {
		case <-r.done:
			return
		default:
		}

		connection := r.currentConnection()
		if connection == nil || connection.IsClosed() {
			if !r.sleepOrDone(consumerRetryDelay) {
				return
			}
			continue
		}

		channel, err := connection.Channel()
		if err != nil {
			r.logger.Errorf("Failed to open channel for queue %s: %v. Retrying...", queueName, err)
			if !r.sleepOrDone(consumerRetryDelay) {
				return
			}
			continue
		}

		if err = r.declareInstanceQueue(channel, queueName); err != nil {
			r.logger.Errorf("Failed to declare queue %s: %v. Retrying...", queueName, err)
			channel.Close()
			if !r.sleepOrDone(consumerRetryDelay) {
				return
			}
			continue
		}

		msgs, err := channel.Consume(
			queueName, // queue
			"",        // consumer tag
			false,     // auto-ack
			true,      // exclusive
			false,     // no-local
			false,     // no-wait
			nil,       // args
		)
		if err != nil {
			channel.Close()
			if strings.Contains(err.Error(), "ACCESS_REFUSED") && strings.Contains(err.Error(), "exclusive") {
				r.logger.Warnf("Exclusive consumer conflict for queue %s. Only one instance can consume exclusively.", queueName)
				if !r.sleepOrDone(2 * consumerRetryDelay) {
					return
				}
				continue
			}
			r.logger.Errorf("Failed to register consumer on queue %s: %v. Retrying...", queueName, err)
			if !r.sleepOrDone(consumerRetryDelay) {
				return
			}
			continue
		}

		r.logger.Infof("Listening for messages on queue %s", queueName)

		for d := range msgs {
			r.handleMessage(d, queueName)
		}
		channel.Close()

		r.logger.Warnf("Connection lost for queue %s. Reconnecting...", queueName)
		if !r.sleepOrDone(consumerRetryDelay) {
			return
		}
	}
}

func (r *RabbitMQSubscriber) handleMessage(d amqp091.Delivery, queueName string) {
	defer tracing.RecoverAndLogToJaeger(r.logger)

	err := r.processMessage(d.Body, queueName)
	if err != nil {
		r.logger.Errorf("Failed to process message on queue %s: %v", queueName, err)
		r.retryAckNack(d, false)
	} else {
		r.retryAckNack(d, true)
	}
}

func (r *RabbitMQSubscriber) processMessage(body []byte, queueName string) error {
	ctx := context.Background()

	var event dto.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return errors.Wrap(err, "failed to unmarshal message")
	}

	ctx = utils.WithCustomContext(ctx, &utils.CustomContext{
		AppSource: event.Metadata.AppSource,
		UserId:    event.Metadata.UserId,
		UserEmail: event.Metadata.UserEmail,
	})

	ctx, span := tracing.StartRabbitMQMessageTracerSpanWithHeader(ctx, "RabbitMQSubscriber.ProcessMessage", event.Metadata.UberTraceId)
	defer span.Finish()
	span.LogKV("event_type", event.Event.EventType)
	span.LogKV("queue_name", queueName)

	r.listenerMutex.RLock()
	listener, exists := r.listeners[event.Event.EventType]
	r.listenerMutex.RUnlock()

	if !exists {
		r.logger.Infof("No listener found for event type: %s on queue: %s", event.Event.EventType, queueName)
		return nil
	}

	if listener.GetQueueName() != queueName {
		r.logger.Warnf("Event type %s received on wrong queue. Expected %s, got %s",
			event.Event.EventType, listener.GetQueueName(), queueName)
		return nil
	}

	return listener.Handle(ctx, event)
}

func (r *RabbitMQSubscriber) connect() error {
	r.connectionMutex.Lock()
	defer r.connectionMutex.Unlock()

	connection, err := amqp091.Dial(r.url)
	if err != nil {
		return errors.Wrap(err, "Failed to connect to RabbitMQ")
	}
	r.connection = connection

	go r.handleReconnection(connection)

	return nil
}

func (r *RabbitMQSubscriber) handleReconnection(connection *amqp091.Connection) {
	notifyClose := connection.NotifyClose(make(chan *amqp091.Error, 1))
	err, ok := <-notifyClose
	if !ok || err == nil {
		return
	}
	r.logger.Warnf("RabbitMQ connection closed: %v, attempting to reconnect", err)

	backoff := r.config.ReconnectBackoff
	for {
		if cerr := r.connect(); cerr == nil {
			r.logger.Info("Subscriber reconnected to RabbitMQ")
			return
		}
		if !r.sleepOrDone(backoff) {
			return
		}
		backoff *= 2
		if backoff > r.config.MaxReconnectBackoff {
			backoff = r.config.MaxReconnectBackoff
		}
	}
}

func (r *RabbitMQSubscriber) retryAckNack(d amqp091.Delivery, ack bool) {
	maxRetries := r.config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}
	retryDelay := 100 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		var err error
		if ack {
			err = d.Ack(false)
		} else {
			err = d.Nack(false, false)
		}

		if err == nil {
			return
		}

		time.Sleep(retryDelay)
	}

	r.logger.Errorf("Failed to %s message after %d attempts",
		map[bool]string{true: "acknowledge", false: "negative acknowledge"}[ack],
		maxRetries)
}

func (r *RabbitMQSubscriber) Close() error {
	r.closeOnce.Do(func() { close(r.done) })

	r.connectionMutex.Lock()
	defer r.connectionMutex.Unlock()

	if r.connection != nil && !r.connection.IsClosed() {
		return r.connection.Close()
	}
	return nil
}
