package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/customeros/webmail/config"
	"github.com/customeros/webmail/interfaces"
	"github.com/customeros/webmail/internal/models"
)

type Repositories struct {
	SessionRepository    interfaces.SessionRepository
	AccountRepository    interfaces.AccountRepository
	UserRepository       interfaces.UserRepository
	CacheEntryRepository interfaces.CacheEntryRepository
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		SessionRepository:    NewSessionRepository(db),
		AccountRepository:    NewAccountRepository(db),
		UserRepository:       NewUserRepository(db),
		CacheEntryRepository: NewCacheEntryRepository(db),
	}
}

// Migrate creates the tables this service owns. The auth tables belong to the
// auth service and are never migrated here.
func Migrate(dbConfig *config.DatabaseConfig, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	sqlDB.SetMaxOpenConns(5)

	err = db.AutoMigrate(
		&models.CacheEntry{},
	)

	sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConn)
	sqlDB.SetMaxOpenConns(dbConfig.MaxConn)
	sqlDB.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Minute)

	return err
}
