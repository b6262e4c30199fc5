package mail

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/customeros/webmail/dto"
	webmail_errors "github.com/customeros/webmail/errors"
	"github.com/customeros/webmail/internal/enum"
	"github.com/customeros/webmail/internal/logger"
	"github.com/customeros/webmail/internal/models"
	"github.com/customeros/webmail/services/cache"
)

type fixture struct {
	service   *MailService
	cache     *cache.ThreadCache
	provider  *mockProvider
	publisher *mockPublisher
	account   *models.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.NewAppLogger(&logger.Config{DevMode: true})
	log.InitLogger()

	provider := new(mockProvider)
	factory := new(mockFactory)
	factory.On("New", mock.Anything, "google", mock.Anything).Return(provider, nil)
	publisher := new(mockPublisher)
	threadCache := cache.NewThreadCache(cache.NewMemoryStore(), 0, log)

	return &fixture{
		service:   NewMailService(factory, threadCache, publisher, log, time.Second),
		cache:     threadCache,
		provider:  provider,
		publisher: publisher,
		account:   &models.Account{UserID: "u1", ProviderID: "google", AccessToken: "a", RefreshToken: "r"},
	}
}

func message(id string) *models.Message {
	return &models.Message{ID: id, Title: "hi", ProcessedHTML: "<p>hi</p>", Tags: []string{"INBOX"}}
}

var inbox = models.ListParams{Folder: "inbox", MaxResults: 10}

func TestList_MissThenHit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	listing := &models.Listing{Messages: []models.MessageSummary{{ID: "m1"}}, ResultSizeEstimate: 1}
	f.provider.On("List", mock.Anything, inbox).Return(listing, nil).Once()

	got, status, err := f.service.List(ctx, f.account, inbox, models.QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, enum.CacheMiss, status)
	assert.Equal(t, listing, got)

	got, status, err = f.service.List(ctx, f.account, inbox, models.QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, enum.CacheHit, status)
	assert.Equal(t, listing, got)

	f.provider.AssertNumberOfCalls(t, "List", 1)
}

func TestList_Revalidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	old := &models.Listing{Messages: []models.MessageSummary{{ID: "m1"}}}
	fresh := &models.Listing{Messages: []models.MessageSummary{{ID: "m2"}, {ID: "m1"}}}
	f.cache.SetListing(ctx, "u1", inbox, old)
	f.provider.On("List", mock.Anything, inbox).Return(fresh, nil).Once()

	got, status, err := f.service.List(ctx, f.account, inbox, models.QueryOptions{Revalidate: true})
	require.NoError(t, err)
	assert.Equal(t, enum.CacheRevalidated, status)
	assert.Equal(t, fresh, got)

	cached, ok := f.cache.GetListing(ctx, "u1", inbox)
	require.True(t, ok)
	assert.Equal(t, fresh, cached)
}

func TestList_StaleWhileRevalidate(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	old := &models.Listing{Messages: []models.MessageSummary{{ID: "m1"}}}
	fresh := &models.Listing{Messages: []models.MessageSummary{{ID: "m2"}, {ID: "m1"}}}
	f.cache.SetListing(ctx, "u1", inbox, old)
	f.provider.On("List", mock.Anything, inbox).Return(fresh, nil).Once()

	got, status, err := f.service.List(ctx, f.account, inbox, models.QueryOptions{Background: true})
	require.NoError(t, err)
	assert.Equal(t, enum.CacheHit, status)
	assert.Equal(t, old, got)

	// the refresh outlives the request
	cancel()
	f.service.Wait()

	cached, ok := f.cache.GetListing(context.Background(), "u1", inbox)
	require.True(t, ok)
	assert.Equal(t, fresh, cached)
}

func TestList_BackgroundFailureKeepsCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	old := &models.Listing{Messages: []models.MessageSummary{{ID: "m1"}}}
	f.cache.SetListing(ctx, "u1", inbox, old)
	f.provider.On("List", mock.Anything, inbox).Return(nil, errors.New("boom")).Once()

	_, _, err := f.service.List(ctx, f.account, inbox, models.QueryOptions{Background: true})
	require.NoError(t, err)
	f.service.Wait()

	cached, ok := f.cache.GetListing(ctx, "u1", inbox)
	require.True(t, ok)
	assert.Equal(t, old, cached)
}

func TestList_ErrorsBubbleUnchanged(t *testing.T) {
	f := newFixture(t)
	upstream := webmail_errors.NewUpstreamError("google", 404, "Requested entity was not found.", nil)
	f.provider.On("List", mock.Anything, inbox).Return(nil, upstream)

	_, _, err := f.service.List(context.Background(), f.account, inbox, models.QueryOptions{})
	assert.Same(t, upstream, err)
}

func TestList_NoAccount(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.service.List(context.Background(), nil, inbox, models.QueryOptions{})

	var authErr *webmail_errors.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.True(t, authErr.Reconnect)
}

func TestList_AccountWithoutRefreshToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.cache.SetListing(ctx, "u1", inbox, &models.Listing{Messages: []models.MessageSummary{{ID: "m1"}}})
	f.cache.SetMessage(ctx, "u1", message("m1"))
	stale := &models.Account{UserID: "u1", ProviderID: "google", AccessToken: "a"}

	_, _, err := f.service.List(ctx, stale, inbox, models.QueryOptions{})
	var authErr *webmail_errors.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.True(t, authErr.Reconnect)
	assert.ErrorIs(t, err, webmail_errors.ErrMissingTokens)

	_, _, err = f.service.Get(ctx, stale, "m1", models.QueryOptions{})
	require.ErrorAs(t, err, &authErr)

	_, err = f.service.Count(ctx, stale)
	require.ErrorAs(t, err, &authErr)

	f.provider.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
	f.provider.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	f.provider.AssertNotCalled(t, "Count", mock.Anything)
}

func TestGet_PartialRecordIsRefetched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.cache.SetMessage(ctx, "u1", &models.Message{ID: "m1"})
	f.provider.On("Get", mock.Anything, "m1").Return(message("m1"), nil).Once()

	got, status, err := f.service.Get(ctx, f.account, "m1", models.QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, enum.CacheMiss, status)
	assert.Equal(t, message("m1"), got)

	_, status, err = f.service.Get(ctx, f.account, "m1", models.QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, enum.CacheHit, status)
	f.provider.AssertNumberOfCalls(t, "Get", 1)
}

func TestGet_CancelledRequestWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	f.provider.On("Get", mock.Anything, "m1").
		Run(func(mock.Arguments) { cancel() }).
		Return(message("m1"), nil).Once()

	_, _, err := f.service.Get(ctx, f.account, "m1", models.QueryOptions{})
	assert.ErrorIs(t, err, context.Canceled)

	_, ok := f.cache.GetMessage(context.Background(), "u1", "m1")
	assert.False(t, ok)
}

func TestGet_EmptyID(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.service.Get(context.Background(), f.account, "", models.QueryOptions{})
	assert.ErrorIs(t, err, webmail_errors.ErrInvalidMessageID)
}

func TestSend_InvalidatesListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.cache.SetListing(ctx, "u1", inbox, &models.Listing{Messages: []models.MessageSummary{{ID: "m1"}}})
	f.cache.SetMessage(ctx, "u1", message("m1"))

	draft := models.Draft{To: []string{"bob@example.com"}, Subject: "hi", Text: "hello"}
	f.provider.On("Create", mock.Anything, draft).Return(&models.SendResult{ID: "s1"}, nil).Once()
	f.publisher.On("PublishCacheInvalidated", mock.Anything, dto.CacheInvalidated{UserId: "u1", Scope: enum.InvalidateListings}).Return(nil).Once()

	result, err := f.service.Send(ctx, f.account, draft)
	require.NoError(t, err)
	assert.Equal(t, "s1", result.ID)

	_, ok := f.cache.GetListing(ctx, "u1", inbox)
	assert.False(t, ok)
	_, ok = f.cache.GetMessage(ctx, "u1", "m1")
	assert.True(t, ok)
	f.service.Wait()
	f.publisher.AssertExpectations(t)
}

func TestSend_SlowBrokerDoesNotHoldResponse(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	var publishCtx context.Context

	draft := models.Draft{Raw: "x"}
	f.provider.On("Create", mock.Anything, draft).Return(&models.SendResult{ID: "s1"}, nil).Once()
	f.publisher.On("PublishCacheInvalidated", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			publishCtx = args.Get(0).(context.Context)
			<-release
		}).
		Return(nil).Once()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := f.service.Send(ctx, f.account, draft)
		assert.NoError(t, err)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("send waited for the broker")
	}

	// the request is over but the publish keeps its own deadline
	cancel()
	close(release)
	f.service.Wait()

	require.NotNil(t, publishCtx)
	assert.NoError(t, publishCtx.Err())
	deadline, ok := publishCtx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), deadline, publishTimeout)
	f.publisher.AssertExpectations(t)
}

func TestSend_FailureKeepsCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.cache.SetListing(ctx, "u1", inbox, &models.Listing{Messages: []models.MessageSummary{}})
	f.provider.On("Create", mock.Anything, mock.Anything).Return(nil, webmail_errors.NewUpstreamError("google", 400, "Invalid To header", nil))

	_, err := f.service.Send(ctx, f.account, models.Draft{Raw: "x"})
	require.Error(t, err)

	_, ok := f.cache.GetListing(ctx, "u1", inbox)
	assert.True(t, ok)
	f.publisher.AssertNotCalled(t, "PublishCacheInvalidated", mock.Anything, mock.Anything)
}

func TestDelete_InvalidatesMessageAndListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.cache.SetListing(ctx, "u1", inbox, &models.Listing{Messages: []models.MessageSummary{{ID: "m1"}}})
	f.cache.SetMessage(ctx, "u1", message("m1"))
	f.provider.On("Delete", mock.Anything, "m1").Return(nil).Once()
	// a failed publish is logged, not returned
	f.publisher.On("PublishCacheInvalidated", mock.Anything, dto.CacheInvalidated{UserId: "u1", MessageId: "m1", Scope: enum.InvalidateMessage}).Return(errors.New("broker down")).Once()

	require.NoError(t, f.service.Delete(ctx, f.account, "m1"))

	_, ok := f.cache.GetMessage(ctx, "u1", "m1")
	assert.False(t, ok)
	_, ok = f.cache.GetListing(ctx, "u1", inbox)
	assert.False(t, ok)
	f.service.Wait()
	f.publisher.AssertExpectations(t)
}

func TestCount_PassThrough(t *testing.T) {
	f := newFixture(t)
	counts := []models.FolderCount{{Folder: "inbox", Count: 42}, {Folder: "spam", Count: 3}}
	f.provider.On("Count", mock.Anything).Return(counts, nil).Twice()

	for i := 0; i < 2; i++ {
		got, err := f.service.Count(context.Background(), f.account)
		require.NoError(t, err)
		assert.Equal(t, counts, got)
	}
	f.provider.AssertNumberOfCalls(t, "Count", 2)
}

func TestClearCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.cache.SetMessage(ctx, "u1", message("m1"))
	f.publisher.On("PublishCacheInvalidated", mock.Anything, dto.CacheInvalidated{UserId: "u1", Scope: enum.InvalidateAll}).Return(nil).Once()

	require.NoError(t, f.service.ClearCache(ctx, "u1"))
	_, ok := f.cache.GetMessage(ctx, "u1", "m1")
	assert.False(t, ok)
	f.service.Wait()
	f.publisher.AssertExpectations(t)

	assert.ErrorIs(t, f.service.ClearCache(ctx, ""), webmail_errors.ErrUserIDNotSet)
}
