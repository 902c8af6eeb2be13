package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the backend service configuration, read from the environment.
type Config struct {
	Port      string
	DBPath    string
	BaseURL   string
	LogLevel  string
	LogFormat string

	// SecretKey derives the key that encrypts rented tool credentials at rest.
	SecretKey string

	PlatformFeePercent int64
	Currency           string

	StripeSecretKey     string
	StripeWebhookSecret string

	PostmarkToken string
	FromEmail     string

	Backup Backup
}

// Backup holds the S3 snapshot settings. Backups are disabled unless
// Bucket, AccessKey, SecretKey and Passphrase are all set.
type Backup struct {
	Endpoint      string
	Bucket        string
	Region        string
	AccessKey     string
	SecretKey     string
	Passphrase    string
	Schedule      string
	RetentionDays int
}

// Enabled reports whether enough settings are present to run backups.
func (b Backup) Enabled() bool {
	return b.Bucket != "" && b.AccessKey != "" && b.SecretKey != "" && b.Passphrase != ""
}

// Load reads the configuration from environment variables, applying defaults.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		Port:                env("TOOLSHUB_PORT", "8080"),
		DBPath:              env("TOOLSHUB_DB_PATH", "toolshub.db"),
		LogLevel:            env("TOOLSHUB_LOG_LEVEL", "info"),
		LogFormat:           env("TOOLSHUB_LOG_FORMAT", "text"),
		SecretKey:           getenv("TOOLSHUB_SECRET_KEY"),
		Currency:            strings.ToLower(env("TOOLSHUB_CURRENCY", "usd")),
		StripeSecretKey:     getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: getenv("STRIPE_WEBHOOK_SECRET"),
		PostmarkToken:       getenv("TOOLSHUB_POSTMARK_TOKEN"),
		FromEmail:           getenv("TOOLSHUB_FROM_EMAIL"),
		Backup: Backup{
			Endpoint:   getenv("TOOLSHUB_BACKUP_ENDPOINT"),
			Bucket:     getenv("TOOLSHUB_BACKUP_BUCKET"),
			Region:     env("TOOLSHUB_BACKUP_REGION", "us-east-1"),
			AccessKey:  getenv("TOOLSHUB_BACKUP_ACCESS_KEY"),
			SecretKey:  getenv("TOOLSHUB_BACKUP_SECRET_KEY"),
			Passphrase: getenv("TOOLSHUB_BACKUP_PASSPHRASE"),
			Schedule:   env("TOOLSHUB_BACKUP_SCHEDULE", "@daily"),
		},
	}
	cfg.BaseURL = strings.TrimRight(env("TOOLSHUB_BASE_URL", "http://localhost:"+cfg.Port), "/")

	fee, err := strconv.ParseInt(env("TOOLSHUB_PLATFORM_FEE_PERCENT", "15"), 10, 64)
	if err != nil {
		return Config{}, fmt.Errorf("parse TOOLSHUB_PLATFORM_FEE_PERCENT: %w", err)
	}
	if fee < 0 || fee > 100 {
		return Config{}, fmt.Errorf("TOOLSHUB_PLATFORM_FEE_PERCENT must be between 0 and 100, got %d", fee)
	}
	cfg.PlatformFeePercent = fee

	retention, err := strconv.Atoi(env("TOOLSHUB_BACKUP_RETENTION_DAYS", "30"))
	if err != nil {
		return Config{}, fmt.Errorf("parse TOOLSHUB_BACKUP_RETENTION_DAYS: %w", err)
	}
	if retention <= 0 {
		retention = 30
	}
	cfg.Backup.RetentionDays = retention

	if cfg.SecretKey == "" {
		return Config{}, fmt.Errorf("TOOLSHUB_SECRET_KEY is required")
	}

	return cfg, nil
}
