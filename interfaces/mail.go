package interfaces

import (
	"context"

	"github.com/customeros/webmail/internal/enum"
	"github.com/customeros/webmail/internal/models"
)

type MailService interface {
	List(ctx context.Context, account *models.Account, params models.ListParams, opts models.QueryOptions) (*models.Listing, enum.CacheStatus, error)
	Get(ctx context.Context, account *models.Account, id string, opts models.QueryOptions) (*models.Message, enum.CacheStatus, error)
	Send(ctx context.Context, account *models.Account, draft models.Draft) (*models.SendResult, error)
	Delete(ctx context.Context, account *models.Account, id string) error
	Count(ctx context.Context, account *models.Account) ([]models.FolderCount, error)
	ClearCache(ctx context.Context, userID string) error
	PurgeCache(ctx context.Context) (int, error)
}
