// Package config provides configuration management for lakesync.
//
// Configuration is loaded from:
// 1. config.yaml file (optional)
// 2. Environment variables (DATABASE_URL, SOURCE_URL, FRESHSERVICE_API_KEY, ...)
// 3. Default values
//
// Import Path: lakesync.dev/lakesync/internal/config
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration structure.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Source       SourceConfig       `mapstructure:"source"`
	FreshService FreshServiceConfig `mapstructure:"freshservice"`
	Sync         SyncConfig         `mapstructure:"sync"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Log          LogConfig          `mapstructure:"log"`
	River        RiverConfig        `mapstructure:"river"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port                  int           `mapstructure:"port"`
	ReadTimeout           time.Duration `mapstructure:"read_timeout"`
	WriteTimeout          time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout       time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins        []string      `mapstructure:"allowed_origins"`
	AllowCredentials      bool          `mapstructure:"allow_credentials"`
	UnsafeAllowAllOrigins bool          `mapstructure:"unsafe_allow_all_origins"`
}

// DatabaseConfig contains the application PostgreSQL settings.
// The pool hosts the River queue tables and the sync run history.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`

	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// DSN returns the PostgreSQL connection string.
// Priority: DATABASE_URL > constructed from individual fields.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslmode,
	)
}

// SourceConfig points at the read-only employee database (source of truth).
type SourceConfig struct {
	URL          string        `mapstructure:"url"`
	MaxConns     int32         `mapstructure:"max_conns"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
}

// FreshServiceConfig contains the requester directory API settings.
type FreshServiceConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	PageSize          int           `mapstructure:"page_size"`
	PageDelay         time.Duration `mapstructure:"page_delay"`
	WriteDelay        time.Duration `mapstructure:"write_delay"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`

	// Consecutive failures before the breaker opens; 0 disables the breaker.
	BreakerFailures uint32        `mapstructure:"breaker_failures"`
	BreakerTimeout  time.Duration `mapstructure:"breaker_timeout"`
}

// SyncConfig controls the scheduled trigger.
type SyncConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Interval   time.Duration `mapstructure:"interval"`
	RunOnStart bool          `mapstructure:"run_on_start"`
	// HistoryLimit caps GET /sync/runs page size.
	HistoryLimit int `mapstructure:"history_limit"`
}

// AuthConfig holds HS256 keys accepted on the trigger endpoints.
// Empty SigningKeys leaves the trigger open (intended for private networks only).
type AuthConfig struct {
	SigningKeys []string `mapstructure:"signing_keys"`
	Issuer      string   `mapstructure:"issuer"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// RiverConfig contains River Queue settings.
type RiverConfig struct {
	MaxWorkers                  int           `mapstructure:"max_workers"`
	CompletedJobRetentionPeriod time.Duration `mapstructure:"completed_job_retention_period"`
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/lakesync")

	// No prefix: freshservice.api_key → FRESHSERVICE_API_KEY
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks for critical configuration errors.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Source.URL) == "" {
		return fmt.Errorf("source.url must not be empty")
	}
	if strings.TrimSpace(c.FreshService.BaseURL) == "" {
		return fmt.Errorf("freshservice.base_url must not be empty")
	}
	if strings.TrimSpace(c.FreshService.APIKey) == "" {
		return fmt.Errorf("freshservice.api_key must not be empty")
	}
	if c.FreshService.PageSize <= 0 || c.FreshService.PageSize > 100 {
		return fmt.Errorf("freshservice.page_size must be between 1 and 100, got %d", c.FreshService.PageSize)
	}
	if c.Sync.Enabled && c.Sync.Interval <= 0 {
		return fmt.Errorf("sync.interval must be positive when sync.enabled is true")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	// A full sync of a few thousand requesters runs well past a minute.
	v.SetDefault("server.write_timeout", "15m")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.allow_credentials", true)
	v.SetDefault("server.unsafe_allow_all_origins", false)

	// Application database (River + run history)
	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "lakesync")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "lakesync")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "10m")
	v.SetDefault("database.auto_migrate", false)

	// Source of truth
	v.SetDefault("source.url", "")
	v.SetDefault("source.max_conns", 4)
	v.SetDefault("source.query_timeout", "2m")

	// FreshService
	v.SetDefault("freshservice.base_url", "")
	v.SetDefault("freshservice.api_key", "")
	v.SetDefault("freshservice.page_size", 100)
	v.SetDefault("freshservice.page_delay", "200ms")
	v.SetDefault("freshservice.write_delay", "100ms")
	v.SetDefault("freshservice.request_timeout", "30s")
	v.SetDefault("freshservice.requests_per_minute", 0)
	v.SetDefault("freshservice.breaker_failures", 10)
	v.SetDefault("freshservice.breaker_timeout", "1m")

	// Schedule
	v.SetDefault("sync.enabled", true)
	v.SetDefault("sync.interval", "24h")
	v.SetDefault("sync.run_on_start", false)
	v.SetDefault("sync.history_limit", 50)

	// Auth
	v.SetDefault("auth.signing_keys", []string{})
	v.SetDefault("auth.issuer", "lakesync")

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// River
	v.SetDefault("river.max_workers", 2)
	v.SetDefault("river.completed_job_retention_period", "168h")
}
