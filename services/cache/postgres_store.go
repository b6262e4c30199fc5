package cache

import (
	"context"
	"time"

	"github.com/lib/pq"

	"github.com/customeros/webmail/interfaces"
	"github.com/customeros/webmail/internal/models"
	"github.com/customeros/webmail/internal/utils"
)

// PostgresStore persists entries in the webmail_cache_entries table. Rows are
// tagged with their kind so they can be inspected by hand.
type PostgresStore struct {
	repo interfaces.CacheEntryRepository
}

func NewPostgresStore(repo interfaces.CacheEntryRepository) *PostgresStore {
	return &PostgresStore{repo: repo}
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if entry == nil || entry.Expired() {
		return nil, false, nil
	}
	return entry.Payload, true, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	userID, kind := parseKey(key)
	entry := &models.CacheEntry{
		Key:     key,
		UserID:  userID,
		Payload: value,
	}
	if kind != "" {
		entry.Tags = pq.StringArray{kind}
	}
	if ttl > 0 {
		expiresAt := utils.Now().Add(ttl)
		entry.ExpiresAt = &expiresAt
	}
	return s.repo.Upsert(ctx, entry)
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	return s.repo.Delete(ctx, key)
}

func (s *PostgresStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	n, err := s.repo.DeleteByPrefix(ctx, prefix)
	return int(n), err
}

func (s *PostgresStore) Purge(ctx context.Context, now time.Time) (int, error) {
	n, err := s.repo.DeleteExpired(ctx, now)
	return int(n), err
}

// Close is a no-op; the connection pool belongs to the caller.
func (s *PostgresStore) Close() error {
	return nil
}
