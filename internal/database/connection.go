package database

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/customeros/webmail/config"
)

var logLevels = map[string]gormlogger.LogLevel{
	"SILENT": gormlogger.Silent,
	"ERROR":  gormlogger.Error,
	"WARN":   gormlogger.Warn,
	"INFO":   gormlogger.Info,
}

func NewConnection(dbConfig *config.DatabaseConfig) (*gorm.DB, error) {
	if err := validateConfig(dbConfig); err != nil {
		return nil, err
	}

	portInt, err := strconv.Atoi(dbConfig.Port)
	if err != nil {
		return nil, fmt.Errorf("invalid port number: %w", err)
	}

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dbConfig.Host, portInt, dbConfig.User, dbConfig.Password, dbConfig.DBName, dbConfig.SSLMode,
	)

	level, ok := logLevels[strings.ToUpper(dbConfig.LogLevel)]
	if !ok {
		level = gormlogger.Warn
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConn)
	sqlDB.SetMaxOpenConns(dbConfig.MaxConn)
	sqlDB.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Minute)

	return db, nil
}

func validateConfig(cfg *config.DatabaseConfig) error {
	switch {
	case cfg == nil:
		return errors.New("database config is nil")
	case cfg.Host == "":
		return errors.New("database host config is empty")
	case cfg.Port == "":
		return errors.New("database port config is empty")
	case cfg.User == "":
		return errors.New("database user config is empty")
	case cfg.Password == "":
		return errors.New("database password config is empty")
	case cfg.DBName == "":
		return errors.New("database name config is empty")
	case cfg.SSLMode == "":
		return errors.New("database SSLMode config is empty")
	}
	return nil
}
