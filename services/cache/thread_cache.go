package cache

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/zap"

	"github.com/customeros/webmail/interfaces"
	"github.com/customeros/webmail/internal/logger"
	"github.com/customeros/webmail/internal/metrics"
	"github.com/customeros/webmail/internal/models"
	"github.com/customeros/webmail/internal/tracing"
	"github.com/customeros/webmail/internal/utils"
)

// ThreadCache stores normalized messages and listings per user on top of a
// flat CacheStore. Store failures are logged and read as misses; they never
// fail the caller.
type ThreadCache struct {
	store  interfaces.CacheStore
	ttl    time.Duration
	logger logger.Logger
	now    func() time.Time
}

func NewThreadCache(store interfaces.CacheStore, ttl time.Duration, log logger.Logger) *ThreadCache {
	return &ThreadCache{store: store, ttl: ttl, logger: log, now: utils.Now}
}

func (c *ThreadCache) expired(storedAt time.Time) bool {
	return c.ttl > 0 && c.now().Sub(storedAt) > c.ttl
}

func (c *ThreadCache) read(ctx context.Context, kind, key string, target any) bool {
	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		metrics.ObserveCache(kind, metrics.CacheResultError)
		return false
	}
	if !ok {
		return false
	}
	storedAt, err := decodeEnvelope(data, target)
	if err != nil {
		c.logger.Warn("cache entry could not be decoded", zap.String("key", key), zap.Error(err))
		metrics.ObserveCache(kind, metrics.CacheResultError)
		return false
	}
	return !c.expired(storedAt)
}

func (c *ThreadCache) write(ctx context.Context, key string, payload any) {
	data, err := encodeEnvelope(c.now(), payload)
	if err != nil {
		c.logger.Error("cache entry could not be encoded", zap.String("key", key), zap.Error(err))
		return
	}
	if err = c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *ThreadCache) GetMessage(ctx context.Context, userID, id string) (*models.Message, bool) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ThreadCache.GetMessage")
	defer span.Finish()
	tracing.SetDefaultCacheSpanTags(ctx, span)
	tracing.TagEntity(span, id)

	var msg models.Message
	if !c.read(ctx, metrics.CacheKindMessage, MessageKey(userID, id), &msg) || !msg.Complete() {
		metrics.ObserveCache(metrics.CacheKindMessage, metrics.CacheResultMiss)
		span.SetTag("cache.hit", false)
		return nil, false
	}
	metrics.ObserveCache(metrics.CacheKindMessage, metrics.CacheResultHit)
	span.SetTag("cache.hit", true)
	return &msg, true
}

func (c *ThreadCache) SetMessage(ctx context.Context, userID string, message *models.Message) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ThreadCache.SetMessage")
	defer span.Finish()
	tracing.SetDefaultCacheSpanTags(ctx, span)

	if message == nil || message.ID == "" {
		return
	}
	tracing.TagEntity(span, message.ID)
	c.write(ctx, MessageKey(userID, message.ID), message)
}

func (c *ThreadCache) GetListing(ctx context.Context, userID string, params models.ListParams) (*models.Listing, bool) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ThreadCache.GetListing")
	defer span.Finish()
	tracing.SetDefaultCacheSpanTags(ctx, span)

	var listing models.Listing
	if !c.read(ctx, metrics.CacheKindList, ListKey(userID, params), &listing) || listing.Messages == nil {
		metrics.ObserveCache(metrics.CacheKindList, metrics.CacheResultMiss)
		span.SetTag("cache.hit", false)
		return nil, false
	}
	metrics.ObserveCache(metrics.CacheKindList, metrics.CacheResultHit)
	span.SetTag("cache.hit", true)
	return &listing, true
}

func (c *ThreadCache) SetListing(ctx context.Context, userID string, params models.ListParams, listing *models.Listing) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ThreadCache.SetListing")
	defer span.Finish()
	tracing.SetDefaultCacheSpanTags(ctx, span)

	if listing == nil {
		return
	}
	if listing.Messages == nil {
		listing.Messages = []models.MessageSummary{}
	}
	c.write(ctx, ListKey(userID, params), listing)
}

func (c *ThreadCache) InvalidateMessage(ctx context.Context, userID, id string) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ThreadCache.InvalidateMessage")
	defer span.Finish()
	tracing.SetDefaultCacheSpanTags(ctx, span)
	tracing.TagEntity(span, id)

	if err := c.store.Delete(ctx, MessageKey(userID, id)); err != nil {
		tracing.TraceErr(span, err)
		c.logger.Warn("cache invalidation failed", zap.String("messageId", id), zap.Error(err))
	}
}

func (c *ThreadCache) InvalidateListings(ctx context.Context, userID string) {
	c.deletePrefix(ctx, "ThreadCache.InvalidateListings", ListPrefix(userID))
}

func (c *ThreadCache) Clear(ctx context.Context, userID string) {
	c.deletePrefix(ctx, "ThreadCache.Clear", UserPrefix(userID))
}

func (c *ThreadCache) deletePrefix(ctx context.Context, operation, prefix string) {
	span, ctx := opentracing.StartSpanFromContext(ctx, operation)
	defer span.Finish()
	tracing.SetDefaultCacheSpanTags(ctx, span)

	// an empty user id would widen the prefix to every user
	if prefix == "" || prefix[0] == '/' {
		return
	}
	n, err := c.store.DeletePrefix(ctx, prefix)
	if err != nil {
		tracing.TraceErr(span, err)
		c.logger.Warn("cache prefix delete failed", zap.String("prefix", prefix), zap.Error(err))
		return
	}
	span.SetTag("deleted", n)
}

// Purge drops expired entries from stores that cannot expire them natively.
func (c *ThreadCache) Purge(ctx context.Context) (int, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ThreadCache.Purge")
	defer span.Finish()
	tracing.SetDefaultCacheSpanTags(ctx, span)

	purger, ok := c.store.(interfaces.CachePurger)
	if !ok {
		return 0, nil
	}
	n, err := purger.Purge(ctx, c.now())
	if err != nil {
		tracing.TraceErr(span, err)
		return 0, err
	}
	metrics.ObservePurge(n)
	span.SetTag("deleted", n)
	return n, nil
}
