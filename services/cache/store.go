package cache

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/customeros/webmail/config"
	"github.com/customeros/webmail/interfaces"
	"github.com/customeros/webmail/internal/enum"
)

const objectPrefix = "cache"

// StoreDeps carries the shared clients some backends need.
type StoreDeps struct {
	CacheEntries interfaces.CacheEntryRepository
	Storage      interfaces.StorageService
}

// NewStore opens the backend selected by cfg.Backend.
func NewStore(ctx context.Context, cfg *config.CacheConfig, deps StoreDeps) (interfaces.CacheStore, error) {
	switch enum.CacheBackend(cfg.Backend) {
	case "", enum.CacheBackendMemory:
		return NewMemoryStore(), nil
	case enum.CacheBackendRedis:
		store, err := NewRedisStore(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		if err = store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, errors.Wrap(err, "redis unreachable")
		}
		return store, nil
	case enum.CacheBackendBolt:
		return NewBoltStore(cfg.BoltPath, cfg.Bucket)
	case enum.CacheBackendPostgres:
		if deps.CacheEntries == nil {
			return nil, errors.New("postgres cache backend needs a database")
		}
		return NewPostgresStore(deps.CacheEntries), nil
	case enum.CacheBackendS3:
		if deps.Storage == nil {
			return nil, errors.New("s3 cache backend needs object storage")
		}
		return NewObjectStore(deps.Storage, objectPrefix), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
