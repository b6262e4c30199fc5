package interfaces

import (
	"context"
	"time"

	"github.com/customeros/webmail/internal/models"
)

type SessionRepository interface {
	GetByToken(ctx context.Context, token string) (*models.Session, error)
}

type AccountRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.Account, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type CacheEntryRepository interface {
	Get(ctx context.Context, key string) (*models.CacheEntry, error)
	Upsert(ctx context.Context, entry *models.CacheEntry) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
