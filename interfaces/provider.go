package interfaces

import (
	"context"

	"github.com/customeros/webmail/internal/models"
)

// MailProvider is one remote mailbox reached with one user's credentials.
type MailProvider interface {
	Name() string
	List(ctx context.Context, params models.ListParams) (*models.Listing, error)
	Get(ctx context.Context, id string) (*models.Message, error)
	Create(ctx context.Context, draft models.Draft) (*models.SendResult, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) ([]models.FolderCount, error)
}

// ProviderFactory builds a MailProvider for a provider id such as "google".
type ProviderFactory interface {
	New(ctx context.Context, providerID string, creds models.Credentials) (MailProvider, error)
	Supported() []string
}
