package models

import (
	"time"

	"github.com/lib/pq"

	"github.com/customeros/webmail/internal/utils"
)

type CacheEntry struct {
	Key       string         `gorm:"column:key;type:varchar(1024);primaryKey" json:"key"`
	UserID    string         `gorm:"column:user_id;type:varchar(255);index" json:"userId"`
	Tags      pq.StringArray `gorm:"column:tags;type:text[]" json:"tags"`
	Payload   []byte         `gorm:"column:payload;type:bytea" json:"payload"`
	ExpiresAt *time.Time     `gorm:"column:expires_at;type:timestamp;index" json:"expiresAt"`
	CreatedAt time.Time      `gorm:"column:created_at;type:timestamp" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"column:updated_at;type:timestamp" json:"updatedAt"`
}

func (CacheEntry) TableName() string {
	return "webmail_cache_entries"
}

func (e *CacheEntry) Expired() bool {
	return e.ExpiresAt != nil && utils.Now().After(*e.ExpiresAt)
}
