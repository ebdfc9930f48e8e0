package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the configuration for the activity service.
// Environment variables are parsed with the ACTIVITY_ prefix.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string      `envconfig:"LOG_LEVEL" default:"info"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Storage
	DBDriver    string `envconfig:"DB_DRIVER" default:"sqlite"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"./data/activity.db"`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`

	// Edit sessions; an empty URL keeps them in process memory
	RedisURL              string `envconfig:"REDIS_URL" default:""`
	EditSessionTTLSeconds int    `envconfig:"EDIT_SESSION_TTL_SECONDS" default:"3600"`

	// Reference time zone for day grouping
	FeedTimeZone string `envconfig:"FEED_TIME_ZONE" default:"UTC"`

	// Notifications; an empty URL logs them instead
	WebhookURL        string `envconfig:"WEBHOOK_URL" default:""`
	NotifyBuffer      int    `envconfig:"NOTIFY_BUFFER" default:"256"`
	NotifyMaxAttempts int    `envconfig:"NOTIFY_MAX_ATTEMPTS" default:"5"`
	NotifyShards      int    `envconfig:"NOTIFY_SHARDS" default:"4"`

	StreamPollIntervalMS int `envconfig:"STREAM_POLL_INTERVAL_MS" default:"2000"`

	// Health checker cadence and per-check timeout
	HealthIntervalSeconds     int `envconfig:"HEALTH_INTERVAL_SECONDS" default:"30"`
	HealthCheckTimeoutSeconds int `envconfig:"HEALTH_CHECK_TIMEOUT_SECONDS" default:"2"`

	DevAPIKey string `envconfig:"DEV_API_KEY" default:"sk_local_activity_dev_key"`

	location *time.Location
}

// ResolveDefaults validates the driver and time zone and fills derived values.
func (c *Config) ResolveDefaults() error {
	switch c.DBDriver {
	case "", "sqlite":
		c.DBDriver = "sqlite"
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for sqlite driver")
		}
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}

	if c.FeedTimeZone == "" {
		c.FeedTimeZone = "UTC"
	}
	loc, err := time.LoadLocation(c.FeedTimeZone)
	if err != nil {
		return fmt.Errorf("invalid FEED_TIME_ZONE %q: %w", c.FeedTimeZone, err)
	}
	c.location = loc

	if c.NotifyBuffer <= 0 {
		c.NotifyBuffer = 256
	}
	if c.NotifyMaxAttempts <= 0 {
		c.NotifyMaxAttempts = 1
	}
	if c.NotifyShards <= 0 {
		c.NotifyShards = 4
	}
	if c.StreamPollIntervalMS <= 0 {
		c.StreamPollIntervalMS = 2000
	}
	if c.HealthIntervalSeconds <= 0 {
		c.HealthIntervalSeconds = 30
	}
	if c.HealthCheckTimeoutSeconds <= 0 {
		c.HealthCheckTimeoutSeconds = 2
	}
	if c.EditSessionTTLSeconds <= 0 {
		c.EditSessionTTLSeconds = 3600
	}
	return nil
}

// New creates a new Config by parsing environment variables
// Example: ACTIVITY_HTTP_PORT, ACTIVITY_DB_DRIVER
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("ACTIVITY", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Str("db_driver", cfg.DBDriver).
		Int("port", cfg.HTTPPort).
		Bool("postgres_dsn_present", cfg.PostgresDSN != "").
		Bool("redis_present", cfg.RedisURL != "").
		Bool("webhook_present", cfg.WebhookURL != "").
		Str("feed_time_zone", cfg.FeedTimeZone).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for testing
func NewForTesting() *Config {
	cfg := &Config{
		Environment:               EnvTesting,
		LogLevel:                  "debug",
		HTTPPort:                  8080,
		DBDriver:                  "sqlite",
		SQLitePath:                ":memory:",
		EditSessionTTLSeconds:     3600,
		FeedTimeZone:              "UTC",
		NotifyBuffer:              16,
		NotifyMaxAttempts:         1,
		NotifyShards:              2,
		StreamPollIntervalMS:      50,
		HealthIntervalSeconds:     1,
		HealthCheckTimeoutSeconds: 1,
		DevAPIKey:                 "sk_test_activity_key",
	}
	_ = cfg.ResolveDefaults()
	return cfg
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// Location returns the feed's reference time zone. UTC until ResolveDefaults succeeds.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

func (c *Config) EditSessionTTL() time.Duration {
	return time.Duration(c.EditSessionTTLSeconds) * time.Second
}

func (c *Config) StreamPollInterval() time.Duration {
	return time.Duration(c.StreamPollIntervalMS) * time.Millisecond
}

func (c *Config) HealthInterval() time.Duration {
	return time.Duration(c.HealthIntervalSeconds) * time.Second
}

func (c *Config) HealthCheckTimeout() time.Duration {
	return time.Duration(c.HealthCheckTimeoutSeconds) * time.Second
}
