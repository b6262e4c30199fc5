package listeners

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/webmail/dto"
	"github.com/customeros/webmail/internal/enum"
	"github.com/customeros/webmail/internal/logger"
	"github.com/customeros/webmail/internal/models"
	"github.com/customeros/webmail/services/cache"
)

func setup(t *testing.T) (*cache.ThreadCache, *CacheInvalidatedListener) {
	t.Helper()
	log := logger.NewAppLogger(&logger.Config{DevMode: true})
	log.InitLogger()
	threadCache := cache.NewThreadCache(cache.NewMemoryStore(), 0, log)
	listener := NewCacheInvalidatedListener(log, threadCache, "self").(*CacheInvalidatedListener)
	return threadCache, listener
}

func seed(ctx context.Context, c *cache.ThreadCache) {
	c.SetMessage(ctx, "u1", &models.Message{ID: "m1", ProcessedHTML: "<p>x</p>"})
	c.SetListing(ctx, "u1", models.ListParams{Folder: "inbox"}, &models.Listing{Messages: []models.MessageSummary{{ID: "m1"}}})
}

func event(instanceID string, data any) dto.Event {
	return dto.Event{
		Event: dto.EventDetails{
			Id:         "event_1",
			EntityId:   "u1",
			EntityType: enum.CACHE,
			EventType:  "CacheInvalidated",
			Data:       data,
		},
		Metadata: dto.EventMetadata{InstanceId: instanceID},
	}
}

func TestCacheInvalidatedListener_MessageScope(t *testing.T) {
	c, listener := setup(t)
	ctx := context.Background()
	seed(ctx, c)

	err := listener.Handle(ctx, event("other", map[string]any{"userId": "u1", "messageId": "m1", "scope": "message"}))
	require.NoError(t, err)

	_, ok := c.GetMessage(ctx, "u1", "m1")
	assert.False(t, ok)
	_, ok = c.GetListing(ctx, "u1", models.ListParams{Folder: "inbox"})
	assert.False(t, ok)
}

func TestCacheInvalidatedListener_ListingsScope(t *testing.T) {
	c, listener := setup(t)
	ctx := context.Background()
	seed(ctx, c)

	require.NoError(t, listener.Handle(ctx, event("other", map[string]any{"userId": "u1", "scope": "listings"})))

	_, ok := c.GetMessage(ctx, "u1", "m1")
	assert.True(t, ok)
	_, ok = c.GetListing(ctx, "u1", models.ListParams{Folder: "inbox"})
	assert.False(t, ok)
}

func TestCacheInvalidatedListener_SkipsOwnEvents(t *testing.T) {
	c, listener := setup(t)
	ctx := context.Background()
	seed(ctx, c)

	require.NoError(t, listener.Handle(ctx, event("self", map[string]any{"userId": "u1", "scope": "all"})))

	_, ok := c.GetMessage(ctx, "u1", "m1")
	assert.True(t, ok)
}

func TestCacheInvalidatedListener_ClearAll(t *testing.T) {
	c, listener := setup(t)
	ctx := context.Background()
	seed(ctx, c)

	require.NoError(t, listener.Handle(ctx, event("other", map[string]any{"userId": "u1", "scope": "all"})))

	_, ok := c.GetMessage(ctx, "u1", "m1")
	assert.False(t, ok)
}

func TestCacheInvalidatedListener_RejectsMissingUser(t *testing.T) {
	_, listener := setup(t)
	assert.Error(t, listener.Handle(context.Background(), event("other", map[string]any{"scope": "all"})))
}

func TestCacheInvalidatedListener_Queue(t *testing.T) {
	_, listener := setup(t)
	assert.Equal(t, "webmail-cache-self", listener.GetQueueName())
	assert.Equal(t, "CacheInvalidated", listener.GetEventType())
}
