package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/webmail/internal/logger"
	"github.com/customeros/webmail/internal/models"
)

func newTestCache(t *testing.T, ttl time.Duration) (*ThreadCache, *MemoryStore) {
	t.Helper()
	log := logger.NewAppLogger(&logger.Config{DevMode: true})
	log.InitLogger()
	store := NewMemoryStore()
	return NewThreadCache(store, ttl, log), store
}

func fullMessage(id string) *models.Message {
	return &models.Message{
		ID:            id,
		ThreadID:      "t-" + id,
		Title:         "Hello",
		Sender:        models.Sender{Name: "Jane", Email: "jane@example.com"},
		Tags:          []string{"INBOX"},
		ReceivedOn:    "Mon, 1 Jan 2024 10:00:00 +0000",
		ProcessedHTML: "<html><body>hi</body></html>",
	}
}

func TestThreadCache_MessageRoundTrip(t *testing.T) {
	c, _ := newTestCache(t, 0)
	ctx := context.Background()

	_, ok := c.GetMessage(ctx, "u1", "m1")
	assert.False(t, ok)

	c.SetMessage(ctx, "u1", fullMessage("m1"))
	got, ok := c.GetMessage(ctx, "u1", "m1")
	require.True(t, ok)
	assert.Equal(t, fullMessage("m1"), got)

	_, ok = c.GetMessage(ctx, "u2", "m1")
	assert.False(t, ok, "entries are scoped per user")
}

func TestThreadCache_SummaryIsMiss(t *testing.T) {
	c, _ := newTestCache(t, 0)
	ctx := context.Background()

	c.SetMessage(ctx, "u1", &models.Message{ID: "m1", ThreadID: "t1"})
	_, ok := c.GetMessage(ctx, "u1", "m1")
	assert.False(t, ok)
}

func TestThreadCache_CorruptEntryIsMiss(t *testing.T) {
	c, store := newTestCache(t, 0)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, MessageKey("u1", "m1"), []byte("{not json"), 0))
	_, ok := c.GetMessage(ctx, "u1", "m1")
	assert.False(t, ok)
}

func TestThreadCache_ListingRoundTrip(t *testing.T) {
	c, _ := newTestCache(t, 0)
	ctx := context.Background()
	params := models.ListParams{Folder: "inbox", MaxResults: 10}

	listing := &models.Listing{
		Messages:           []models.MessageSummary{{ID: "m2", ThreadID: "t2"}, {ID: "m1", ThreadID: "t1"}},
		NextPageToken:      "next",
		ResultSizeEstimate: 2,
	}
	c.SetListing(ctx, "u1", params, listing)

	got, ok := c.GetListing(ctx, "u1", params)
	require.True(t, ok)
	assert.Equal(t, listing, got)

	_, ok = c.GetListing(ctx, "u1", models.ListParams{Folder: "spam", MaxResults: 10})
	assert.False(t, ok)
}

func TestThreadCache_EmptyListingIsHit(t *testing.T) {
	c, _ := newTestCache(t, 0)
	ctx := context.Background()
	params := models.ListParams{Folder: "trash", MaxResults: 10}

	c.SetListing(ctx, "u1", params, &models.Listing{})
	got, ok := c.GetListing(ctx, "u1", params)
	require.True(t, ok)
	assert.Empty(t, got.Messages)
}

func TestThreadCache_Invalidation(t *testing.T) {
	c, _ := newTestCache(t, 0)
	ctx := context.Background()
	inbox := models.ListParams{Folder: "inbox", MaxResults: 10}
	spam := models.ListParams{Folder: "spam", MaxResults: 10}

	c.SetMessage(ctx, "u1", fullMessage("m1"))
	c.SetListing(ctx, "u1", inbox, &models.Listing{Messages: []models.MessageSummary{{ID: "m1"}}})
	c.SetListing(ctx, "u1", spam, &models.Listing{Messages: []models.MessageSummary{}})
	c.SetListing(ctx, "u10", inbox, &models.Listing{Messages: []models.MessageSummary{}})

	c.InvalidateListings(ctx, "u1")
	_, ok := c.GetListing(ctx, "u1", inbox)
	assert.False(t, ok)
	_, ok = c.GetListing(ctx, "u1", spam)
	assert.False(t, ok)
	_, ok = c.GetMessage(ctx, "u1", "m1")
	assert.True(t, ok, "listing invalidation keeps messages")
	_, ok = c.GetListing(ctx, "u10", inbox)
	assert.True(t, ok, "prefix must not leak into other users")

	c.InvalidateMessage(ctx, "u1", "m1")
	_, ok = c.GetMessage(ctx, "u1", "m1")
	assert.False(t, ok)
}

func TestThreadCache_Clear(t *testing.T) {
	c, store := newTestCache(t, 0)
	ctx := context.Background()

	c.SetMessage(ctx, "u1", fullMessage("m1"))
	c.SetMessage(ctx, "u2", fullMessage("m1"))

	c.Clear(ctx, "")
	assert.Len(t, store.entries, 2, "empty user must not clear everyone")

	c.Clear(ctx, "u1")
	_, ok := c.GetMessage(ctx, "u1", "m1")
	assert.False(t, ok)
	_, ok = c.GetMessage(ctx, "u2", "m1")
	assert.True(t, ok)
}

func TestThreadCache_TTL(t *testing.T) {
	c, store := newTestCache(t, time.Minute)
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.SetMessage(ctx, "u1", fullMessage("m1"))
	_, ok := c.GetMessage(ctx, "u1", "m1")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.GetMessage(ctx, "u1", "m1")
	assert.False(t, ok)

	// the memory store clock is wall time, so purge with a far future instant
	n, err := store.Purge(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestThreadCache_PurgeWithoutPurger(t *testing.T) {
	log := logger.NewAppLogger(&logger.Config{DevMode: true})
	log.InitLogger()
	c := NewThreadCache(failingStore{}, 0, log)

	n, err := c.Purge(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestThreadCache_StoreErrorsAreMisses(t *testing.T) {
	log := logger.NewAppLogger(&logger.Config{DevMode: true})
	log.InitLogger()
	c := NewThreadCache(failingStore{}, 0, log)
	ctx := context.Background()

	c.SetMessage(ctx, "u1", fullMessage("m1"))
	_, ok := c.GetMessage(ctx, "u1", "m1")
	assert.False(t, ok)
	c.InvalidateListings(ctx, "u1")
}

type failingStore struct{}

var errStoreDown = errors.New("store down")

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errStoreDown
}

func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errStoreDown
}

func (failingStore) Delete(context.Context, string) error {
	return errStoreDown
}

func (failingStore) DeletePrefix(context.Context, string) (int, error) {
	return 0, errStoreDown
}

func (failingStore) Close() error {
	return nil
}
