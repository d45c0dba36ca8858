package main

import (
	"fmt"
	"log/slog"

	"github.com/HatiCode/autompg/cmd/predictor/config"
	"github.com/HatiCode/autompg/pkg/cache"
)

// newCache builds the configured prediction cache. It returns a nil Cache
// for "none" and a close function that is always safe to call.
func newCache(cfg *config.Config, logger *slog.Logger) (cache.Cache, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Cache {
	case config.CacheNone, "":
		logger.Info("prediction cache disabled")
		return nil, noop, nil

	case config.CacheMemory:
		c, err := cache.NewMemoryCache(cfg.CacheSize, cfg.CacheTTL)
		if err != nil {
			return nil, noop, err
		}
		logger.Info("using in-memory prediction cache", "size", cfg.CacheSize, "ttl", cfg.CacheTTL)
		return c, noop, nil

	case config.CacheRedis:
		c, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
		if err != nil {
			return nil, noop, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("using redis prediction cache", "addr", cfg.RedisAddr, "db", cfg.RedisDB, "ttl", cfg.CacheTTL)
		return c, c.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown cache %q", cfg.Cache)
	}
}
