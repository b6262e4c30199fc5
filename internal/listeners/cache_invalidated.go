package listeners

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/customeros/webmail/dto"
	"github.com/customeros/webmail/interfaces"
	"github.com/customeros/webmail/internal/enum"
	"github.com/customeros/webmail/internal/logger"
	"github.com/customeros/webmail/internal/tracing"
	"github.com/customeros/webmail/services/events"
)

// CacheInvalidatedListener applies invalidations published by other instances
// to the local ThreadCache. Events published by this instance are skipped.
type CacheInvalidatedListener struct {
	events.BaseEventListener
	cache      interfaces.ThreadCache
	instanceID string
}

func NewCacheInvalidatedListener(log logger.Logger, cache interfaces.ThreadCache, instanceID string) interfaces.EventListener {
	return &CacheInvalidatedListener{
		BaseEventListener: events.NewBaseEventListener(
			log,
			events.GetEventType[dto.CacheInvalidated](),
			events.InstanceQueueName(instanceID),
		),
		cache:      cache,
		instanceID: instanceID,
	}
}

func (l *CacheInvalidatedListener) Handle(ctx context.Context, baseEvent any) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "CacheInvalidatedListener.Handle")
	defer span.Finish()
	tracing.SetDefaultListenerSpanTags(ctx, span)
	tracing.LogObjectAsJson(span, "event", baseEvent)

	validatedEvent, err := l.ValidateBaseEvent(ctx, baseEvent)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	if validatedEvent.Metadata.InstanceId == l.instanceID {
		span.LogKV("result", "own event")
		return nil
	}

	invalidation, err := events.DecodeEventData[dto.CacheInvalidated](ctx, validatedEvent)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if invalidation.UserId == "" {
		err = errors.New("cache invalidation without user id")
		tracing.TraceErr(span, err)
		return err
	}

	switch invalidation.Scope {
	case enum.InvalidateMessage:
		l.cache.InvalidateMessage(ctx, invalidation.UserId, invalidation.MessageId)
		l.cache.InvalidateListings(ctx, invalidation.UserId)
	case enum.InvalidateListings:
		l.cache.InvalidateListings(ctx, invalidation.UserId)
	case enum.InvalidateAll:
		l.cache.Clear(ctx, invalidation.UserId)
	default:
		l.Logger().Warn("unknown invalidation scope", zap.String("scope", string(invalidation.Scope)))
	}
	return nil
}
