// Package cache memoizes predictions of the loaded model.
//
// The model is deterministic, so a prediction depends only on the model and
// the feature vector. A cache entry is keyed by both and expires after a TTL;
// entries are evicted freely and nothing is kept as a record of past
// predictions.
//
// Available backends:
//   - MemoryCache - in-process LRU with per-entry expiry
//   - RedisCache  - shared across replicas, expiry enforced by Redis
package cache

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"math"

	"github.com/HatiCode/autompg/pkg/vehicle"
)

// Cache stores predicted values by key.
type Cache interface {
	// Get returns the cached value and whether it was found.
	Get(ctx context.Context, key string) (float64, bool, error)

	// Put stores value under key, replacing any existing entry.
	Put(ctx context.Context, key string, value float64) error
}

// Key derives a stable cache key from the model identity and a feature vector.
// Values are encoded by their IEEE-754 bits so equal vectors always collide
// and distinct ones never do.
func Key(model string, fv vehicle.FeatureVector) string {
	buf := make([]byte, 8*vehicle.FeatureCount)
	for i, v := range fv {
		binary.BigEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return model + ":" + hex.EncodeToString(buf)
}
