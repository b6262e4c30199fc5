package repository

import (
	"context"
	"errors"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/customeros/webmail/interfaces"
	"github.com/customeros/webmail/internal/models"
	"github.com/customeros/webmail/internal/tracing"
)

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) interfaces.AccountRepository {
	return &accountRepository{db: db}
}

// GetByUserID returns the user's most recently updated linked account, or nil.
func (r *accountRepository) GetByUserID(ctx context.Context, userID string) (*models.Account, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accountRepository.GetByUserID")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	span.SetTag("user.id", userID)

	if userID == "" {
		return nil, ErrInvalidInput
	}

	var account models.Account
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}

	span.SetTag("provider", account.ProviderID)
	return &account, nil
}
