// Package config loads process configuration from OFFTUNE_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/tejashwikalptaru/offtune/internal/logger"
)

// Prefix is prepended to every variable name, e.g. OFFTUNE_DB_PATH.
const Prefix = "offtune"

const envName = "OFFTUNE"

// Config struct for environment variables.
type Config struct {
	AppID string `envconfig:"APP_ID" default:"io.offtune.core"`

	DBPath        string `envconfig:"DB_PATH" default:"offtune.db"`
	LockPath      string `envconfig:"LOCK_PATH"`
	DownloadsRoot string `envconfig:"DOWNLOADS_ROOT"`

	MaxConcurrent    int           `envconfig:"MAX_CONCURRENT" default:"1"`
	RetryCount       int           `envconfig:"RETRY_COUNT" default:"3"`
	PollInterval     time.Duration `envconfig:"POLL_INTERVAL" default:"2s"`
	ProgressInterval time.Duration `envconfig:"PROGRESS_INTERVAL" default:"500ms"`
	UserAgent        string        `envconfig:"USER_AGENT" default:"offtune/1.0"`

	MailboxHistory int `envconfig:"MAILBOX_HISTORY" default:"256"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"INFO"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	HTTP struct {
		Addr            string        `default:"127.0.0.1:7878"`
		ReadTimeout     time.Duration `split_words:"true" default:"30s"`
		WriteTimeout    time.Duration `split_words:"true" default:"30s"`
		ShutdownTimeout time.Duration `split_words:"true" default:"10s"`
	}
}

// Load reads environment variables and populates the Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("error processing env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("%s_MAX_CONCURRENT must be at least 1, got %d", envName, c.MaxConcurrent)
	}
	if c.RetryCount < 0 {
		return fmt.Errorf("%s_RETRY_COUNT must not be negative, got %d", envName, c.RetryCount)
	}
	if c.DBPath == "" {
		return fmt.Errorf("%s_DB_PATH must not be empty", envName)
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	return logger.ParseLevel(c.LogLevel)
}

// Logger returns the logger configuration.
func (c *Config) Logger() logger.Config {
	return logger.Config{Level: c.SlogLevel(), Format: c.LogFormat}
}

// EngineLockPath returns the lock file guarding the single engine runner,
// next to the database unless set explicitly.
func (c *Config) EngineLockPath() string {
	if c.LockPath != "" {
		return c.LockPath
	}
	return filepath.Join(filepath.Dir(c.DBPath), filepath.Base(c.DBPath)+".lock")
}
