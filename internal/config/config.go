package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/kursadbilgin/index-notifier/internal/domain"
)

const (
	LedgerBackendPostgres  = "postgres"
	LedgerBackendSQLite    = "sqlite"
	LedgerBackendFirestore = "firestore"

	maxBatchSize    = 200
	maxSleepSeconds = 600
)

// ledgerCollectionPattern keeps the name usable as a SQL table and a Firestore collection.
var ledgerCollectionPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

type Config struct {
	APIKey       string `env:"API_KEY,required=true"`
	SourceID     string `env:"SOURCE_ID,required=true"`
	MailFrom     string `env:"MAIL_FROM,required=true"`
	MailPassword string `env:"MAIL_PASSWORD,required=true"`
	MailTo       string `env:"MAIL_TO,required=true"`

	BatchSize           int `env:"BATCH_SIZE,default=5"`
	SleepSeconds        int `env:"SLEEP_SECONDS,default=10"`
	NotifyRatePerMinute int `env:"NOTIFY_RATE_PER_MINUTE,default=0"`

	SMTPHost string `env:"SMTP_HOST,default=smtp.gmail.com"`
	SMTPPort int    `env:"SMTP_PORT,default=587"`

	LedgerBackend      string `env:"LEDGER_BACKEND,default=postgres"`
	DatabaseDSN        string `env:"DATABASE_DSN"`
	FirestoreProjectID string `env:"FIRESTORE_PROJECT_ID"`
	LedgerCollection   string `env:"LEDGER_COLLECTION,default=url_notifications"`

	SourceEndpoint     string `env:"SOURCE_ENDPOINT,default=https://www.googleapis.com/blogger/v3"`
	IndexingEndpoint   string `env:"INDEXING_ENDPOINT,default=https://indexing.googleapis.com/v3/urlNotifications:publish"`
	HTTPTimeoutSeconds int    `env:"HTTP_TIMEOUT_SECONDS,default=30"`

	RedisURL          string `env:"REDIS_URL"`
	RunLockTTLSeconds int    `env:"RUN_LOCK_TTL_SECONDS,default=3600"`
	PushgatewayURL    string `env:"PUSHGATEWAY_URL"`

	APIPort  int    `env:"API_PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects blank required settings and out-of-range tunables.
func (c *Config) Validate() error {
	required := []struct {
		key   string
		value string
	}{
		{key: "API_KEY", value: c.APIKey},
		{key: "SOURCE_ID", value: c.SourceID},
		{key: "MAIL_FROM", value: c.MailFrom},
		{key: "MAIL_PASSWORD", value: c.MailPassword},
		{key: "MAIL_TO", value: c.MailTo},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%w: environment variable %s is not set", domain.ErrValidation, r.key)
		}
	}

	if c.BatchSize < 1 || c.BatchSize > maxBatchSize {
		return fmt.Errorf("%w: BATCH_SIZE must be between 1 and %d (got %d)", domain.ErrValidation, maxBatchSize, c.BatchSize)
	}
	if c.SleepSeconds < 0 || c.SleepSeconds > maxSleepSeconds {
		return fmt.Errorf("%w: SLEEP_SECONDS must be between 0 and %d (got %d)", domain.ErrValidation, maxSleepSeconds, c.SleepSeconds)
	}
	if c.NotifyRatePerMinute < 0 {
		return fmt.Errorf("%w: NOTIFY_RATE_PER_MINUTE must be >= 0", domain.ErrValidation)
	}
	if c.SMTPPort < 1 || c.SMTPPort > 65535 {
		return fmt.Errorf("%w: SMTP_PORT out of range (got %d)", domain.ErrValidation, c.SMTPPort)
	}
	if c.HTTPTimeoutSeconds < 1 {
		return fmt.Errorf("%w: HTTP_TIMEOUT_SECONDS must be >= 1", domain.ErrValidation)
	}
	c.LedgerCollection = strings.TrimSpace(c.LedgerCollection)
	if c.LedgerCollection == "" {
		return fmt.Errorf("%w: LEDGER_COLLECTION must not be empty", domain.ErrValidation)
	}
	if !ledgerCollectionPattern.MatchString(c.LedgerCollection) {
		return fmt.Errorf("%w: LEDGER_COLLECTION %q must match %s", domain.ErrValidation, c.LedgerCollection, ledgerCollectionPattern)
	}

	c.LedgerBackend = strings.ToLower(strings.TrimSpace(c.LedgerBackend))
	switch c.LedgerBackend {
	case LedgerBackendPostgres, LedgerBackendSQLite:
		if strings.TrimSpace(c.DatabaseDSN) == "" {
			return fmt.Errorf("%w: DATABASE_DSN is required for ledger backend %q", domain.ErrValidation, c.LedgerBackend)
		}
	case LedgerBackendFirestore:
		if strings.TrimSpace(c.FirestoreProjectID) == "" {
			return fmt.Errorf("%w: FIRESTORE_PROJECT_ID is required for ledger backend %q", domain.ErrValidation, c.LedgerBackend)
		}
	default:
		return fmt.Errorf("%w: unsupported LEDGER_BACKEND %q", domain.ErrValidation, c.LedgerBackend)
	}

	return nil
}

func (c *Config) SleepInterval() time.Duration {
	return time.Duration(c.SleepSeconds) * time.Second
}

func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

func (c *Config) RunLockTTL() time.Duration {
	return time.Duration(c.RunLockTTLSeconds) * time.Second
}

// MailRecipients splits MAIL_TO on commas.
func (c *Config) MailRecipients() []string {
	parts := strings.Split(c.MailTo, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
