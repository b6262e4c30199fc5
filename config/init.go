package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/customeros/webmail/internal/logger"
	"github.com/customeros/webmail/internal/tracing"
)

type Config struct {
	AppConfig       *AppConfig
	Logger          *logger.Config
	Tracing         *tracing.JaegerConfig
	DatabaseConfig  *DatabaseConfig
	GoogleConfig    *GoogleConfig
	ImapConfig      *ImapConfig
	CacheConfig     *CacheConfig
	R2StorageConfig *R2StorageConfig
}

func InitConfig() (*Config, error) {
	config := &Config{
		AppConfig:       &AppConfig{},
		Logger:          &logger.Config{},
		Tracing:         &tracing.JaegerConfig{},
		DatabaseConfig:  &DatabaseConfig{},
		GoogleConfig:    &GoogleConfig{},
		ImapConfig:      &ImapConfig{},
		CacheConfig:     &CacheConfig{},
		R2StorageConfig: &R2StorageConfig{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		return nil, errors.Wrap(err, "error loading webmail config")
	}

	if config.AppConfig.InstanceID == "" {
		config.AppConfig.InstanceID = uuid.NewString()
	}

	return config, nil
}
