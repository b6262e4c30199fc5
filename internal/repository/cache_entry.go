package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/customeros/webmail/interfaces"
	"github.com/customeros/webmail/internal/models"
	"github.com/customeros/webmail/internal/tracing"
	"github.com/customeros/webmail/internal/utils"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type cacheEntryRepository struct {
	db *gorm.DB
}

func NewCacheEntryRepository(db *gorm.DB) interfaces.CacheEntryRepository {
	return &cacheEntryRepository{db: db}
}

func (r *cacheEntryRepository) Get(ctx context.Context, key string) (*models.CacheEntry, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "cacheEntryRepository.Get")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	var entry models.CacheEntry
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &entry, nil
}

// Upsert overwrites on key conflict; last write wins.
func (r *cacheEntryRepository) Upsert(ctx context.Context, entry *models.CacheEntry) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "cacheEntryRepository.Upsert")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	if entry == nil || entry.Key == "" {
		return ErrInvalidInput
	}

	now := utils.Now()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_id", "tags", "payload", "expires_at", "updated_at"}),
		}).
		Create(entry).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (r *cacheEntryRepository) Delete(ctx context.Context, key string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "cacheEntryRepository.Delete")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	if err := r.db.WithContext(ctx).Where("key = ?", key).Delete(&models.CacheEntry{}).Error; err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (r *cacheEntryRepository) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "cacheEntryRepository.DeleteByPrefix")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	if prefix == "" {
		return 0, ErrInvalidInput
	}

	result := r.db.WithContext(ctx).
		Where("key LIKE ?", likeEscaper.Replace(prefix)+"%").
		Delete(&models.CacheEntry{})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return 0, result.Error
	}
	span.SetTag("deleted", result.RowsAffected)
	return result.RowsAffected, nil
}

func (r *cacheEntryRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "cacheEntryRepository.DeleteExpired")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	result := r.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", before).
		Delete(&models.CacheEntry{})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return 0, result.Error
	}
	span.SetTag("deleted", result.RowsAffected)
	return result.RowsAffected, nil
}
