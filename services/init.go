package services

import (
	"context"

	"github.com/pkg/errors"

	"github.com/customeros/webmail/config"
	"github.com/customeros/webmail/interfaces"
	"github.com/customeros/webmail/internal/enum"
	"github.com/customeros/webmail/internal/logger"
	"github.com/customeros/webmail/internal/repository"
	"github.com/customeros/webmail/services/cache"
	"github.com/customeros/webmail/services/events"
	"github.com/customeros/webmail/services/mail"
	"github.com/customeros/webmail/services/provider"
	"github.com/customeros/webmail/services/provider/gmail"
	"github.com/customeros/webmail/services/provider/imap"
	"github.com/customeros/webmail/services/storage"
)

type Services struct {
	CacheStore    interfaces.CacheStore
	ThreadCache   *cache.ThreadCache
	Providers     *provider.Registry
	EventsService *events.EventsService
	MailService   *mail.MailService
}

func InitServices(ctx context.Context, cfg *config.Config, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	// cache
	storeDeps := cache.StoreDeps{CacheEntries: repos.CacheEntryRepository}
	if enum.CacheBackend(cfg.CacheConfig.Backend) == enum.CacheBackendS3 {
		storeDeps.Storage = storage.NewR2StorageService(cfg.R2StorageConfig, cfg.CacheConfig.Bucket)
	}
	store, err := cache.NewStore(ctx, cfg.CacheConfig, storeDeps)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open cache store")
	}
	threadCache := cache.NewThreadCache(store, cfg.CacheConfig.TTL, log)

	// providers
	registry := provider.NewRegistry()
	googleDriver := gmail.NewDriver(gmail.Config{
		ClientID:           cfg.GoogleConfig.ClientID,
		ClientSecret:       cfg.GoogleConfig.ClientSecret,
		Endpoint:           cfg.GoogleConfig.Endpoint,
		TokenURL:           cfg.GoogleConfig.TokenURL,
		LegacySenderFormat: cfg.AppConfig.LegacySenderFormat,
	}, log)
	registry.Register(enum.ProviderGoogle.String(), googleDriver.New)

	imapDriver := imap.NewDriver(imap.Config{
		Host:               cfg.ImapConfig.Host,
		Port:               cfg.ImapConfig.Port,
		TLS:                cfg.ImapConfig.TLS,
		SmtpHost:           cfg.ImapConfig.SmtpHost,
		SmtpPort:           cfg.ImapConfig.SmtpPort,
		TrashMailbox:       cfg.ImapConfig.TrashMailbox,
		SpamMailbox:        cfg.ImapConfig.SpamMailbox,
		SentMailbox:        cfg.ImapConfig.SentMailbox,
		DialTimeout:        cfg.ImapConfig.DialTimeout,
		LegacySenderFormat: cfg.AppConfig.LegacySenderFormat,
	}, log)
	registry.Register(enum.ProviderIMAP.String(), imapDriver.New)

	// events
	publisherConfig := &events.PublisherConfig{
		MaxRetries:          events.DefaultMaxRetries,
		PublishTimeout:      events.DefaultPublishTimeout,
		ReconnectBackoff:    events.DefaultReconnectBackoff,
		MaxReconnectBackoff: events.DefaultMaxReconnectBackoff,
	}

	subscriberConfig := &events.SubscriberConfig{
		MaxRetries:          events.DefaultMaxRetries,
		ReconnectBackoff:    events.DefaultReconnectBackoff,
		MaxReconnectBackoff: events.DefaultMaxReconnectBackoff,
	}

	eventsService, err := events.NewEventsService(cfg.AppConfig.RabbitMQURL, cfg.AppConfig.InstanceID, log, publisherConfig, subscriberConfig)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	mailService := mail.NewMailService(registry, threadCache, eventsService.Publisher, log, cfg.CacheConfig.BackgroundRefreshTimeout)

	return &Services{
		CacheStore:    store,
		ThreadCache:   threadCache,
		Providers:     registry,
		EventsService: eventsService,
		MailService:   mailService,
	}, nil
}

// Close releases the broker connections and the cache store.
func (s *Services) Close() error {
	var errs []error
	if s.MailService != nil {
		s.MailService.Wait()
	}
	if s.EventsService != nil {
		if err := s.EventsService.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.CacheStore != nil {
		if err := s.CacheStore.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Errorf("errors closing services: %v", errs)
	}
	return nil
}
