package models

import (
	"time"
)

// Session and Account are owned by the external auth service; this service
// only reads them.

type Session struct {
	ID        string    `gorm:"column:id;type:text;primaryKey"`
	Token     string    `gorm:"column:token;type:text;uniqueIndex"`
	UserID    string    `gorm:"column:user_id;type:text;index"`
	ExpiresAt time.Time `gorm:"column:expires_at;type:timestamp"`
	IPAddress string    `gorm:"column:ip_address;type:text"`
	UserAgent string    `gorm:"column:user_agent;type:text"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp"`
}

func (Session) TableName() string {
	return "session"
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

type Account struct {
	ID                   string     `gorm:"column:id;type:text;primaryKey"`
	AccountID            string     `gorm:"column:account_id;type:text"`
	ProviderID           string     `gorm:"column:provider_id;type:text"`
	UserID               string     `gorm:"column:user_id;type:text;index"`
	AccessToken          string     `gorm:"column:access_token;type:text"`
	RefreshToken         string     `gorm:"column:refresh_token;type:text"`
	AccessTokenExpiresAt *time.Time `gorm:"column:access_token_expires_at;type:timestamp"`
	Scope                string     `gorm:"column:scope;type:text"`
	CreatedAt            time.Time  `gorm:"column:created_at;type:timestamp"`
	UpdatedAt            time.Time  `gorm:"column:updated_at;type:timestamp"`
}

func (Account) TableName() string {
	return "account"
}

func (a *Account) HasTokens() bool {
	return a != nil && a.AccessToken != "" && a.RefreshToken != ""
}

// Credentials returns the token pair handed to a provider for one request.
func (a *Account) Credentials(email string) Credentials {
	creds := Credentials{
		AccessToken:  a.AccessToken,
		RefreshToken: a.RefreshToken,
		Email:        email,
	}
	if a.AccessTokenExpiresAt != nil {
		creds.Expiry = *a.AccessTokenExpiresAt
	}
	return creds
}

type Credentials struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	Email        string
}

type User struct {
	ID            string    `gorm:"column:id;type:text;primaryKey"`
	Name          string    `gorm:"column:name;type:text"`
	Email         string    `gorm:"column:email;type:text;uniqueIndex"`
	EmailVerified bool      `gorm:"column:email_verified"`
	Image         string    `gorm:"column:image;type:text"`
	CreatedAt     time.Time `gorm:"column:created_at;type:timestamp"`
	UpdatedAt     time.Time `gorm:"column:updated_at;type:timestamp"`
}

func (User) TableName() string {
	return "user"
}
