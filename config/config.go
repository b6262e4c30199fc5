package config

import (
	"time"
)

type AppConfig struct {
	APIPort     string `env:"PORT,required" envDefault:"12222"`
	APIKey      string `env:"API_KEY,required"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
	InstanceID  string `env:"INSTANCE_ID"`
	// Legacy sender format keeps the leading "<" on sender emails, the shape
	// returned before the RFC 5322 parse. Only for clients not yet migrated.
	LegacySenderFormat bool `env:"WEBMAIL_LEGACY_SENDER_FORMAT" envDefault:"false"`
}

type DatabaseConfig struct {
	Host            string `env:"WEBMAIL_POSTGRES_HOST,required"`
	Port            string `env:"WEBMAIL_POSTGRES_PORT,required"`
	User            string `env:"WEBMAIL_POSTGRES_USER,required"`
	DBName          string `env:"WEBMAIL_POSTGRES_DB_NAME,required"`
	Password        string `env:"WEBMAIL_POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"WEBMAIL_POSTGRES_DB_MAX_CONN" envDefault:"25"`
	MaxIdleConn     int    `env:"WEBMAIL_POSTGRES_DB_MAX_IDLE_CONN" envDefault:"10"`
	ConnMaxLifetime int    `env:"WEBMAIL_POSTGRES_DB_CONN_MAX_LIFETIME" envDefault:"60"`
	LogLevel        string `env:"WEBMAIL_POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"WEBMAIL_POSTGRES_SSL_MODE" envDefault:"require"`
}

type GoogleConfig struct {
	ClientID     string `env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	// Overrides the Gmail API base URL, used against fakes.
	Endpoint string `env:"GOOGLE_GMAIL_ENDPOINT"`
	TokenURL string `env:"GOOGLE_TOKEN_URL"`
}

type ImapConfig struct {
	Host         string        `env:"IMAP_HOST" envDefault:"imap.gmail.com"`
	Port         int           `env:"IMAP_PORT" envDefault:"993"`
	TLS          bool          `env:"IMAP_TLS" envDefault:"true"`
	SmtpHost     string        `env:"SMTP_HOST" envDefault:"smtp.gmail.com"`
	SmtpPort     int           `env:"SMTP_PORT" envDefault:"587"`
	TrashMailbox string        `env:"IMAP_TRASH_MAILBOX" envDefault:"[Gmail]/Trash"`
	SpamMailbox  string        `env:"IMAP_SPAM_MAILBOX" envDefault:"[Gmail]/Spam"`
	SentMailbox  string        `env:"IMAP_SENT_MAILBOX" envDefault:"[Gmail]/Sent Mail"`
	DialTimeout  time.Duration `env:"IMAP_DIAL_TIMEOUT" envDefault:"30s"`
}

type CacheConfig struct {
	Backend                  string        `env:"WEBMAIL_CACHE_BACKEND" envDefault:"memory"`
	TTL                      time.Duration `env:"WEBMAIL_CACHE_TTL" envDefault:"0s"`
	BackgroundRefreshTimeout time.Duration `env:"WEBMAIL_BACKGROUND_REFRESH_TIMEOUT" envDefault:"30s"`
	RedisURL                 string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	BoltPath                 string        `env:"BOLT_PATH" envDefault:"webmail-cache.db"`
	Bucket                   string        `env:"BUCKET_NAME_CACHE" envDefault:"webmail-cache"`
}

type R2StorageConfig struct {
	AccountID       string `env:"CLOUDFLARE_R2_ACCOUNT_ID"`
	AccessKeyID     string `env:"CLOUDFLARE_R2_ACCESS_KEY_ID"`
	AccessKeySecret string `env:"CLOUDFLARE_R2_ACCESS_KEY_SECRET"`
}
