// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// MaxBatchSize is the largest number of documents committed in one batch.
const MaxBatchSize = 500

// Config holds the migration settings loaded from environment variables.
type Config struct {
	LogLevel        string `env:"MIGRATE_LOG_LEVEL" envDefault:"info"`
	OutputDir       string `env:"MIGRATE_OUTPUT_DIR" envDefault:"./migration/output"`
	CredentialsFile string `env:"MIGRATE_CREDENTIALS_FILE"`
	ProfilePath     string `env:"MIGRATE_PROFILE"`

	// URL rewriting
	OldBaseURL string `env:"MIGRATE_OLD_BASE_URL"`
	NewBaseURL string `env:"MIGRATE_NEW_BASE_URL"`

	// Media downloads
	MediaConcurrency  int           `env:"MIGRATE_MEDIA_CONCURRENCY" envDefault:"5"`
	MediaTimeout      time.Duration `env:"MIGRATE_MEDIA_TIMEOUT" envDefault:"30s"`
	MediaRateLimit    float64       `env:"MIGRATE_MEDIA_RATE_LIMIT" envDefault:"0"` // requests per second, 0 = unlimited
	MediaMaxRedirects int           `env:"MIGRATE_MEDIA_MAX_REDIRECTS" envDefault:"5"`
	MediaSkipExisting bool          `env:"MIGRATE_MEDIA_SKIP_EXISTING" envDefault:"true"`
	UserAgent         string        `env:"MIGRATE_USER_AGENT" envDefault:"ocms-migrate/1.0"`

	// Commit stage
	BatchSize     int           `env:"MIGRATE_BATCH_SIZE" envDefault:"400"`
	WriteTimeout  time.Duration `env:"MIGRATE_WRITE_TIMEOUT" envDefault:"30s"`
	UploadTimeout time.Duration `env:"MIGRATE_UPLOAD_TIMEOUT" envDefault:"60s"`

	CheckpointRedisURL string `env:"MIGRATE_CHECKPOINT_REDIS_URL"` // Optional shared URL-map checkpoint
}

// UseRedisCheckpoint returns true if URL-map checkpoints go to Redis.
func (c Config) UseRedisCheckpoint() bool {
	return c.CheckpointRedisURL != ""
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges that env tags cannot express.
func (c Config) Validate() error {
	if c.BatchSize < 1 || c.BatchSize > MaxBatchSize {
		return fmt.Errorf("MIGRATE_BATCH_SIZE must be between 1 and %d, got %d", MaxBatchSize, c.BatchSize)
	}
	if c.MediaConcurrency < 1 {
		return fmt.Errorf("MIGRATE_MEDIA_CONCURRENCY must be at least 1, got %d", c.MediaConcurrency)
	}
	if c.MediaMaxRedirects < 0 {
		return fmt.Errorf("MIGRATE_MEDIA_MAX_REDIRECTS must not be negative, got %d", c.MediaMaxRedirects)
	}
	if c.MediaRateLimit < 0 {
		return fmt.Errorf("MIGRATE_MEDIA_RATE_LIMIT must not be negative, got %v", c.MediaRateLimit)
	}
	for name, d := range map[string]time.Duration{
		"MIGRATE_MEDIA_TIMEOUT":  c.MediaTimeout,
		"MIGRATE_WRITE_TIMEOUT":  c.WriteTimeout,
		"MIGRATE_UPLOAD_TIMEOUT": c.UploadTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if err := CheckBaseURL("MIGRATE_OLD_BASE_URL", c.OldBaseURL, false); err != nil {
		return err
	}
	if err := CheckBaseURL("MIGRATE_NEW_BASE_URL", c.NewBaseURL, true); err != nil {
		return err
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("MIGRATE_LOG_LEVEL must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	return nil
}

// CheckBaseURL accepts an empty value or an absolute http(s) URL. A
// root-relative path such as "/site" is also accepted when rootRelative is
// set.
func CheckBaseURL(name, v string, rootRelative bool) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if rootRelative && strings.HasPrefix(v, "/") && !strings.HasPrefix(v, "//") {
		return nil
	}
	u, err := url.Parse(v)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		if rootRelative {
			return fmt.Errorf("%s must be an http(s) URL or a path starting with /, got %q", name, v)
		}
		return fmt.Errorf("%s must be an http(s) URL, got %q", name, v)
	}
	return nil
}

// LoadDotEnv loads variables from a .env file without overriding ones
// already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}
