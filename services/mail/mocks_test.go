package mail

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/customeros/webmail/dto"
	"github.com/customeros/webmail/interfaces"
	"github.com/customeros/webmail/internal/models"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Name() string {
	return "mock"
}

func (m *mockProvider) List(ctx context.Context, params models.ListParams) (*models.Listing, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *mockProvider) Get(ctx context.Context, id string) (*models.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *mockProvider) Create(ctx context.Context, draft models.Draft) (*models.SendResult, error) {
	args := m.Called(ctx, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SendResult), args.Error(1)
}

func (m *mockProvider) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockProvider) Count(ctx context.Context) ([]models.FolderCount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.FolderCount), args.Error(1)
}

type mockFactory struct {
	mock.Mock
}

func (m *mockFactory) New(ctx context.Context, providerID string, creds models.Credentials) (interfaces.MailProvider, error) {
	args := m.Called(ctx, providerID, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(interfaces.MailProvider), args.Error(1)
}

func (m *mockFactory) Supported() []string {
	return []string{"google"}
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishCacheInvalidated(ctx context.Context, event dto.CacheInvalidated) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockPublisher) Close() error {
	return nil
}
