// Package config provides the immutable application configuration. It is
// decoded once from Viper at startup and passed into each component's
// constructor; nothing reads environment variables after that point.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Errors returned by Validate.
var (
	ErrAdminIDRequired   = errors.New("admin.id is required")
	ErrInvalidTimeout    = errors.New("scraper.timeout must be positive")
	ErrInvalidConcurrent = errors.New("scraper.max_concurrent_jobs must be positive")
	ErrInvalidMaxResults = errors.New("scraper.default_max_results must be positive")
)

// Config is the complete application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Scraper  ScraperConfig  `mapstructure:"scraper"`
	Cache    CacheConfig    `mapstructure:"cache"`
}

// AppConfig identifies the application.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// LoggerConfig configures the zap logger.
type LoggerConfig struct {
	Level       string   `mapstructure:"level"`
	Development bool     `mapstructure:"development"`
	Encoding    string   `mapstructure:"encoding"`
	OutputPaths []string `mapstructure:"output_paths"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// Address returns the host:port listen address.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig configures the Postgres connection.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// AdminConfig identifies the worker this server acts as.
type AdminConfig struct {
	ID string `mapstructure:"id"`
}

// WebhookConfig holds the outbound notification endpoints. Either URL may be
// empty, which disables the corresponding webhook.
type WebhookConfig struct {
	CompletionURL string `mapstructure:"completion_url"`
	TestURL       string `mapstructure:"test_url"`
}

// ScraperConfig configures extraction runs.
type ScraperConfig struct {
	DefaultMaxResults int           `mapstructure:"default_max_results"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxConcurrentJobs int           `mapstructure:"max_concurrent_jobs"`
	BaseURL           string        `mapstructure:"base_url"`
	UserAgent         string        `mapstructure:"user_agent"`
}

// CacheConfig controls result caching. A TTL of 0 disables caching, which is
// the expected mode for job processing.
type CacheConfig struct {
	TTLMinutes int `mapstructure:"ttl_minutes"`
}

// Load decodes the current Viper state into a Config and validates it.
func Load() (*Config, error) {
	var cfg Config

	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))

	if err := viper.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration for values the server cannot run without.
func (c *Config) Validate() error {
	if c.Admin.ID == "" {
		return ErrAdminIDRequired
	}
	if c.Scraper.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Scraper.MaxConcurrentJobs <= 0 {
		return ErrInvalidConcurrent
	}
	if c.Scraper.DefaultMaxResults <= 0 {
		return ErrInvalidMaxResults
	}
	return nil
}
