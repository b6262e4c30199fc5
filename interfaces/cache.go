package interfaces

import (
	"context"
	"time"

	"github.com/customeros/webmail/internal/models"
)

// CacheStore is a flat key-value store. A ttl of zero means the entry never expires.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	Close() error
}

// CachePurger is implemented by stores that do not expire entries on their own.
type CachePurger interface {
	Purge(ctx context.Context, now time.Time) (int, error)
}

type ThreadCache interface {
	GetMessage(ctx context.Context, userID, id string) (*models.Message, bool)
	SetMessage(ctx context.Context, userID string, message *models.Message)
	GetListing(ctx context.Context, userID string, params models.ListParams) (*models.Listing, bool)
	SetListing(ctx context.Context, userID string, params models.ListParams, listing *models.Listing)
	InvalidateMessage(ctx context.Context, userID, id string)
	InvalidateListings(ctx context.Context, userID string)
	Clear(ctx context.Context, userID string)
	Purge(ctx context.Context) (int, error)
}
