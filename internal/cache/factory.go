package cache

import (
	"log/slog"
	"time"
)

// Backend names reported by New.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds configuration for cache creation.
type Config struct {
	// RedisURL selects the Redis backend when set.
	// Example: redis://localhost:6379/0
	RedisURL string

	// Prefix is the key prefix for Redis
	Prefix string

	// DefaultTTL is the default TTL for cache entries (0 = no expiry)
	DefaultTTL time.Duration
}

// New creates a Redis cache when a URL is configured and reachable,
// otherwise a memory cache. It returns the backend actually used.
func New(cfg Config, logger *slog.Logger) (Cache, string) {
	if cfg.RedisURL != "" {
		opts := DefaultRedisCacheOptions()
		opts.URL = cfg.RedisURL
		if cfg.Prefix != "" {
			opts.Prefix = cfg.Prefix
		}
		opts.DefaultTTL = cfg.DefaultTTL

		c, err := NewRedisCache(opts)
		if err == nil {
			return c, BackendRedis
		}
		logger.Warn("redis unavailable, using memory cache", "error", err)
	}

	return NewMemoryCache(MemoryCacheOptions{DefaultTTL: cfg.DefaultTTL}), BackendMemory
}
