package models

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HatiCode/autompg/pkg/vehicle"
)

const bundledModel = "../../" + DefaultPath

func TestLoader_LoadBundledModel(t *testing.T) {
	m, err := NewLoader().Load(bundledModel)
	require.NoError(t, err)
	assert.Equal(t, FormatLinear, m.Name())

	got, err := m.Predict(context.Background(), defaultFeatures(t))
	require.NoError(t, err)
	assert.InDelta(t, 25.0217, got, 1e-4)
}

func TestLoader_CachesSuccessfulLoads(t *testing.T) {
	var reads atomic.Int32
	loader := NewLoader(WithReadFile(func(name string) ([]byte, error) {
		reads.Add(1)
		return os.ReadFile(name)
	}))

	first, err := loader.Load(bundledModel)
	require.NoError(t, err)
	second, err := loader.Load(bundledModel)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.EqualValues(t, 1, reads.Load(), "artifact should be read from disk once")
}

func TestLoader_ConcurrentLoadsReadOnce(t *testing.T) {
	var reads atomic.Int32
	loader := NewLoader(WithReadFile(func(name string) ([]byte, error) {
		reads.Add(1)
		return os.ReadFile(name)
	}))

	var wg sync.WaitGroup
	results := make([]Model, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := loader.Load(bundledModel)
			assert.NoError(t, err)
			results[i] = m
		}(i)
	}
	wg.Wait()

	for _, m := range results {
		assert.Same(t, results[0], m)
	}
	assert.EqualValues(t, 1, reads.Load())
}

func TestLoader_ModelNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")

	m, err := NewLoader().Load(path)
	require.ErrorIs(t, err, ErrModelNotFound)
	assert.Nil(t, m)
	assert.Contains(t, err.Error(), path)
}

func TestLoader_FailuresAreNotCached(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	loader := NewLoader()

	_, err := loader.Load(path)
	require.ErrorIs(t, err, ErrModelNotFound)

	data, err := os.ReadFile(bundledModel)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	m, err := loader.Load(path)
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestLoader_ReadError(t *testing.T) {
	boom := errors.New("disk on fire")
	loader := NewLoader(WithReadFile(func(string) ([]byte, error) {
		return nil, boom
	}))

	_, err := loader.Load("model.json")
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrModelNotFound)
}

func TestLoader_InvalidArtifact(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not JSON", "\x80\x04\x95joblib pickle"},
		{"missing format", `{"features": ["cylinders"]}`},
		{"unknown format", string(artifactJSON(t, map[string]any{"format": "onnx"}))},
		{"missing features", `{"format": "linear", "intercept": 1, "coefficients": [1,1,1,1,1,1,1,1,1,1]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := NewLoader(WithReadFile(func(string) ([]byte, error) {
				return []byte(tt.data), nil
			}))
			_, err := loader.Load("model.json")
			require.ErrorIs(t, err, ErrInvalidArtifact)
		})
	}
}

func TestDecode_RejectsReorderedFeatures(t *testing.T) {
	names := vehicle.FeatureNames()
	names[vehicle.IdxOriginUSA], names[vehicle.IdxOriginAsia] = names[vehicle.IdxOriginAsia], names[vehicle.IdxOriginUSA]

	data := artifactJSON(t, map[string]any{
		"format":       "linear",
		"features":     names,
		"intercept":    1,
		"coefficients": []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
	})

	_, err := Decode(data)
	require.ErrorIs(t, err, ErrInvalidArtifact)
}

func TestLoad_Deterministic(t *testing.T) {
	m, err := Load(bundledModel)
	require.NoError(t, err)

	fv := defaultFeatures(t)
	a, err := m.Predict(context.Background(), fv)
	require.NoError(t, err)
	b, err := m.Predict(context.Background(), fv)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestLoader_DigestTracksArtifactContents(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, intercept float64) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, artifactJSON(t, map[string]any{
			"format":       "linear",
			"intercept":    intercept,
			"coefficients": make([]float64, vehicle.FeatureCount),
		}), 0o600))
		return path
	}
	a := write("a.json", 10)
	b := write("b.json", 40)

	loader := NewLoader()
	assert.Empty(t, loader.Digest(a), "no digest before a successful load")

	ma, err := loader.Load(a)
	require.NoError(t, err)
	mb, err := loader.Load(b)
	require.NoError(t, err)
	require.Equal(t, ma.Name(), mb.Name())

	assert.Len(t, loader.Digest(a), 64)
	assert.NotEqual(t, loader.Digest(a), loader.Digest(b))

	again := NewLoader()
	_, err = again.Load(a)
	require.NoError(t, err)
	assert.Equal(t, loader.Digest(a), again.Digest(a))

	_, err = loader.Load(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.Empty(t, loader.Digest(filepath.Join(dir, "missing.json")))
}
