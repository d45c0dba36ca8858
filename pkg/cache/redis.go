package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "autompg:prediction:"

// RedisCache implements the Cache interface using Redis as a backend.
// It lets several predictor replicas share memoized predictions, with
// expiry handled by Redis itself.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.RWMutex
}

// NewRedisCache creates a new Redis-backed cache.
//
// Parameters:
//   - addr: Redis server address (e.g., "localhost:6379")
//   - password: Redis password (empty string for no auth)
//   - db: Redis database number (typically 0)
//   - ttl: Entry expiration duration (0 uses default of 10 minutes)
//
// Returns an error if the connection to Redis fails or if parameters are invalid.
func NewRedisCache(addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	if addr == "" {
		return nil, errors.New("redis address cannot be empty")
	}
	if db < 0 {
		return nil, errors.New("redis database number must be >= 0")
	}

	if ttl == 0 {
		ttl = 10 * time.Minute
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		MaxRetries:   1,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisCache{
		client: client,
		ttl:    ttl,
	}, nil
}

// Get returns the cached value for key.
// A missing key is reported as found=false with a nil error.
func (r *RedisCache) Get(ctx context.Context, key string) (float64, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.client == nil {
		return 0, false, redis.ErrClosed
	}

	raw, err := r.client.Get(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get prediction from redis: %w", err)
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt cached prediction %q: %w", raw, err)
	}
	return v, true, nil
}

// Put stores value under key with TTL-based expiration.
// The key format is "autompg:prediction:{key}".
func (r *RedisCache) Put(ctx context.Context, key string, value float64) error {
	if key == "" {
		return errors.New("cache key cannot be empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.client == nil {
		return redis.ErrClosed
	}

	raw := strconv.FormatFloat(value, 'g', -1, 64)
	if err := r.client.Set(ctx, redisKeyPrefix+key, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store prediction in redis: %w", err)
	}
	return nil
}

// Close closes the Redis client connection.
// It is safe to call multiple times (idempotent).
func (r *RedisCache) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client == nil {
		return nil
	}

	err := r.client.Close()
	r.client = nil
	if errors.Is(err, redis.ErrClosed) {
		return nil
	}
	return err
}

// Ping checks the Redis connection health.
func (r *RedisCache) Ping(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.client == nil {
		return redis.ErrClosed
	}
	return r.client.Ping(ctx).Err()
}
