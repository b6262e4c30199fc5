package mail

import (
	"context"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/zap"

	"github.com/customeros/webmail/dto"
	webmail_errors "github.com/customeros/webmail/errors"
	"github.com/customeros/webmail/interfaces"
	"github.com/customeros/webmail/internal/enum"
	"github.com/customeros/webmail/internal/logger"
	"github.com/customeros/webmail/internal/models"
	"github.com/customeros/webmail/internal/tracing"
	"github.com/customeros/webmail/internal/utils"
)

const (
	DefaultRefreshTimeout = 30 * time.Second
	publishTimeout        = 5 * time.Second
)

// MailService puts the ThreadCache in front of the provider adapters.
// Provider errors are returned unchanged; cache failures only cost a refetch.
type MailService struct {
	providers      interfaces.ProviderFactory
	cache          interfaces.ThreadCache
	publisher      interfaces.EventPublisher
	logger         logger.Logger
	refreshTimeout time.Duration

	background sync.WaitGroup
}

var _ interfaces.MailService = (*MailService)(nil)

func NewMailService(
	providers interfaces.ProviderFactory,
	cache interfaces.ThreadCache,
	publisher interfaces.EventPublisher,
	log logger.Logger,
	refreshTimeout time.Duration,
) *MailService {
	if refreshTimeout <= 0 {
		refreshTimeout = DefaultRefreshTimeout
	}
	return &MailService{
		providers:      providers,
		cache:          cache,
		publisher:      publisher,
		logger:         log,
		refreshTimeout: refreshTimeout,
	}
}

func (s *MailService) provider(ctx context.Context, account *models.Account) (interfaces.MailProvider, error) {
	if err := checkAccount(account); err != nil {
		return nil, err
	}
	return s.providers.New(ctx, account.ProviderID, account.Credentials(utils.GetUserEmailFromContext(ctx)))
}

func (s *MailService) List(ctx context.Context, account *models.Account, params models.ListParams, opts models.QueryOptions) (*models.Listing, enum.CacheStatus, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailService.List")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("folder", params.Folder, "q", params.Query, "max", params.MaxResults, "revalidate", opts.Revalidate, "swr", opts.Background)

	if err := checkAccount(account); err != nil {
		tracing.TraceErr(span, err)
		return nil, "", err
	}
	userID := account.UserID
	if !opts.Revalidate {
		if listing, ok := s.cache.GetListing(ctx, userID, params); ok {
			if opts.Background {
				s.refreshInBackground(ctx, "list", func(bgCtx context.Context) error {
					_, err := s.fetchListing(bgCtx, account, params)
					return err
				})
			}
			return listing, enum.CacheHit, nil
		}
	}

	listing, err := s.fetchListing(ctx, account, params)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, "", err
	}
	return listing, missStatus(opts), nil
}

func (s *MailService) fetchListing(ctx context.Context, account *models.Account, params models.ListParams) (*models.Listing, error) {
	p, err := s.provider(ctx, account)
	if err != nil {
		return nil, err
	}
	listing, err := p.List(ctx, params)
	if err != nil {
		return nil, err
	}
	if ctx.Err() == nil {
		s.cache.SetListing(ctx, account.UserID, params, listing)
	}
	return listing, nil
}

func (s *MailService) Get(ctx context.Context, account *models.Account, id string, opts models.QueryOptions) (*models.Message, enum.CacheStatus, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailService.Get")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, id)

	if id == "" {
		return nil, "", webmail_errors.ErrInvalidMessageID
	}

	if err := checkAccount(account); err != nil {
		tracing.TraceErr(span, err)
		return nil, "", err
	}
	userID := account.UserID
	if !opts.Revalidate {
		if msg, ok := s.cache.GetMessage(ctx, userID, id); ok {
			if opts.Background {
				s.refreshInBackground(ctx, "get", func(bgCtx context.Context) error {
					_, err := s.fetchMessage(bgCtx, account, id)
					return err
				})
			}
			return msg, enum.CacheHit, nil
		}
	}

	msg, err := s.fetchMessage(ctx, account, id)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, "", err
	}
	return msg, missStatus(opts), nil
}

// fetchMessage honours ctx: a cancelled request aborts the upstream call and
// leaves the cache untouched.
func (s *MailService) fetchMessage(ctx context.Context, account *models.Account, id string) (*models.Message, error) {
	p, err := s.provider(ctx, account)
	if err != nil {
		return nil, err
	}
	msg, err := p.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	s.cache.SetMessage(ctx, account.UserID, msg)
	return msg, nil
}

func (s *MailService) Send(ctx context.Context, account *models.Account, draft models.Draft) (*models.SendResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailService.Send")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	p, err := s.provider(ctx, account)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	result, err := p.Create(ctx, draft)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	s.cache.InvalidateListings(ctx, account.UserID)
	s.publish(ctx, dto.CacheInvalidated{UserId: account.UserID, Scope: enum.InvalidateListings})
	return result, nil
}

func (s *MailService) Delete(ctx context.Context, account *models.Account, id string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailService.Delete")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, id)

	if id == "" {
		return webmail_errors.ErrInvalidMessageID
	}

	p, err := s.provider(ctx, account)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if err = p.Delete(ctx, id); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	s.cache.InvalidateMessage(ctx, account.UserID, id)
	s.cache.InvalidateListings(ctx, account.UserID)
	s.publish(ctx, dto.CacheInvalidated{UserId: account.UserID, MessageId: id, Scope: enum.InvalidateMessage})
	return nil
}

// Count is never cached; the numbers are estimates already.
func (s *MailService) Count(ctx context.Context, account *models.Account) ([]models.FolderCount, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailService.Count")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	p, err := s.provider(ctx, account)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	counts, err := p.Count(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return counts, nil
}

func (s *MailService) ClearCache(ctx context.Context, userID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailService.ClearCache")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if userID == "" {
		return webmail_errors.ErrUserIDNotSet
	}
	s.cache.Clear(ctx, userID)
	s.publish(ctx, dto.CacheInvalidated{UserId: userID, Scope: enum.InvalidateAll})
	return nil
}

func (s *MailService) PurgeCache(ctx context.Context) (int, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailService.PurgeCache")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	n, err := s.cache.Purge(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return 0, err
	}
	if n > 0 {
		s.logger.Info("purged expired cache entries", zap.Int("count", n))
	}
	return n, nil
}

// Wait blocks until background refreshes and publishes have finished.
func (s *MailService) Wait() {
	s.background.Wait()
}

// publish tells the other instances to drop their copies. It does not hold up
// the response; a slow broker only delays the other instances.
func (s *MailService) publish(ctx context.Context, event dto.CacheInvalidated) {
	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		defer cancel()
		defer tracing.RecoverAndLogToJaeger(s.logger)

		if err := s.publisher.PublishCacheInvalidated(pubCtx, event); err != nil {
			s.logger.Warn("failed to publish cache invalidation",
				zap.String("userId", event.UserId), zap.String("scope", string(event.Scope)), zap.Error(err))
		}
	}()
}

// refreshInBackground runs fn detached from the request so it survives the
// response, bounded by refreshTimeout.
func (s *MailService) refreshInBackground(ctx context.Context, operation string, fn func(context.Context) error) {
	bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.refreshTimeout)

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		defer cancel()
		defer tracing.RecoverAndLogToJaeger(s.logger)

		span, bgCtx := opentracing.StartSpanFromContext(bgCtx, "MailService.Revalidate")
		defer span.Finish()
		span.SetTag("operation", operation)

		if err := fn(bgCtx); err != nil {
			tracing.TraceErr(span, err)
			s.logger.Warn("background revalidation failed", zap.String("operation", operation), zap.Error(err))
		}
	}()
}

// checkAccount runs before the cache is read, so an account that lost its
// tokens is told to reconnect even when its threads are cached.
func checkAccount(account *models.Account) error {
	if account == nil {
		return webmail_errors.NewAuthenticationError("no linked account", true, webmail_errors.ErrAccountNotFound)
	}
	if !account.HasTokens() {
		return webmail_errors.NewAuthenticationError("account is missing tokens", true, webmail_errors.ErrMissingTokens)
	}
	return nil
}

func missStatus(opts models.QueryOptions) enum.CacheStatus {
	if opts.Revalidate {
		return enum.CacheRevalidated
	}
	return enum.CacheMiss
}
