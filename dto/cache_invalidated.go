package dto

import "github.com/customeros/webmail/internal/enum"

// CacheInvalidated tells every instance to drop cached entries for a user.
type CacheInvalidated struct {
	UserId    string                 `json:"userId"`
	MessageId string                 `json:"messageId,omitempty"`
	Scope     enum.InvalidationScope `json:"scope"`
}
