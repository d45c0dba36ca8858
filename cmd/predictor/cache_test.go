package main

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HatiCode/autompg/cmd/predictor/config"
	"github.com/HatiCode/autompg/pkg/cache"
)

func TestNewCache(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("none", func(t *testing.T) {
		cfg := config.Default()
		c, closeFn, err := newCache(&cfg, logger)
		require.NoError(t, err)
		assert.Nil(t, c)
		assert.NoError(t, closeFn())
	})

	t.Run("memory", func(t *testing.T) {
		cfg := config.Default()
		cfg.Cache = config.CacheMemory
		c, closeFn, err := newCache(&cfg, logger)
		require.NoError(t, err)
		assert.IsType(t, &cache.MemoryCache{}, c)
		assert.NoError(t, closeFn())
	})

	t.Run("redis without address", func(t *testing.T) {
		cfg := config.Default()
		cfg.Cache = config.CacheRedis
		cfg.RedisAddr = ""
		_, closeFn, err := newCache(&cfg, logger)
		assert.Error(t, err)
		assert.NoError(t, closeFn())
	})

	t.Run("unknown", func(t *testing.T) {
		cfg := config.Default()
		cfg.Cache = "memcached"
		_, _, err := newCache(&cfg, logger)
		assert.Error(t, err)
	})
}
