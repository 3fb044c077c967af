// Package config loads Courier's runtime settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every runtime setting. Values come from the environment,
// optionally seeded from a .env file before Load runs.
type Config struct {
	// ----------------------------
	// HTTP API
	// ----------------------------
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8080"`

	// ----------------------------
	// Storage
	// ----------------------------
	// DatabaseDSN selects the backend: a postgres:// URL uses Postgres,
	// anything else is treated as a SQLite path. Empty falls back to a
	// SQLite database under StateDir.
	DatabaseDSN string `envconfig:"DATABASE_DSN" default:""`
	StateDir    string `envconfig:"STATE_DIR" default:"/var/lib/courier"`

	// ----------------------------
	// Logging
	// ----------------------------
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// ----------------------------
	// Internal routes
	// ----------------------------
	CronSecret string `envconfig:"CRON_SECRET" required:"true"`

	// ----------------------------
	// Email transport
	// ----------------------------
	EmailProvider string `envconfig:"EMAIL_PROVIDER" default:"console"`
	FromEmail     string `envconfig:"FROM_EMAIL" default:"noreply@courier.local"`
	FromName      string `envconfig:"FROM_NAME" default:"Courier"`

	SMTPHost        string        `envconfig:"SMTP_HOST" default:"localhost"`
	SMTPPort        int           `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser        string        `envconfig:"SMTP_USER" default:""`
	SMTPPassword    string        `envconfig:"SMTP_PASSWORD" default:""`
	SMTPRetryWindow time.Duration `envconfig:"SMTP_RETRY_WINDOW" default:"0s"`

	// ----------------------------
	// Queue processing
	// ----------------------------
	QueueBatchSize   int           `envconfig:"QUEUE_BATCH_SIZE" default:"10"`
	QueueMaxAttempts int           `envconfig:"QUEUE_MAX_ATTEMPTS" default:"3"`
	QueueStaleAfter  time.Duration `envconfig:"QUEUE_STALE_AFTER" default:"10m"`
	PollInterval     time.Duration `envconfig:"POLL_INTERVAL" default:"0s"`

	// ProcessQueueCron optionally drains the queue on a cron schedule in
	// addition to the HTTP trigger. Empty disables the internal scheduler.
	ProcessQueueCron string `envconfig:"PROCESS_QUEUE_CRON" default:""`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	switch cfg.EmailProvider {
	case "console", "smtp":
	default:
		return nil, fmt.Errorf("unsupported EMAIL_PROVIDER %q (want console or smtp)", cfg.EmailProvider)
	}
	return &cfg, nil
}
