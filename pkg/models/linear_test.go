package models

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearModel_Predict(t *testing.T) {
	coefficients := []float64{-0.35, 0.012, -0.01, -0.0062, 0.08, 0.78, -1.2, 0.6, 0.6, -20.0}
	m, err := NewLinearModel(-14.5, coefficients)
	require.NoError(t, err)

	got, err := m.Predict(context.Background(), defaultFeatures(t))
	require.NoError(t, err)

	want := -14.5 - 0.35*4 + 0.012*150 - 0.01*93.5 - 0.0062*3000 + 0.08*15 + 0.78*76 - 1.2 - 20.0*(93.5/3000)
	assert.InDelta(t, want, got, 1e-9)
	assert.Equal(t, FormatLinear, m.Name())
}

func TestLinearModel_WrongCoefficientCount(t *testing.T) {
	_, err := NewLinearModel(0, []float64{1, 2, 3})
	require.ErrorIs(t, err, ErrInvalidArtifact)
}

func TestDecode_LinearWithScaler(t *testing.T) {
	ones := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	fv := defaultFeatures(t)
	mean := fv.Slice()
	scale := []float64{2, 2, 2, 2, 2, 2, 2, 2, 2, 2}

	data := artifactJSON(t, map[string]any{
		"format":       "linear",
		"intercept":    7.5,
		"coefficients": ones,
		"scaler":       map[string]any{"mean": mean, "scale": scale},
	})

	m, err := Decode(data)
	require.NoError(t, err)

	// Standardizing the vector against itself zeroes every term.
	got, err := m.Predict(context.Background(), fv)
	require.NoError(t, err)
	assert.InDelta(t, 7.5, got, 1e-12)

	fv[0] += 2
	got, err = m.Predict(context.Background(), fv)
	require.NoError(t, err)
	assert.InDelta(t, 8.5, got, 1e-12)
}

func TestDecode_LinearErrors(t *testing.T) {
	ten := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}

	tests := []struct {
		name   string
		fields map[string]any
	}{
		{"missing intercept", map[string]any{"format": "linear", "coefficients": ten}},
		{"short coefficients", map[string]any{"format": "linear", "intercept": 1, "coefficients": []float64{1, 2}}},
		{"string coefficient", map[string]any{"format": "linear", "intercept": 1, "coefficients": []any{1, 1, 1, 1, 1, 1, 1, 1, 1, "x"}}},
		{"zero scale", map[string]any{
			"format":       "linear",
			"intercept":    1,
			"coefficients": ten,
			"scaler":       map[string]any{"mean": ten, "scale": []float64{1, 1, 1, 0, 1, 1, 1, 1, 1, 1}},
		}},
		{"scaler without scale", map[string]any{
			"format":       "linear",
			"intercept":    1,
			"coefficients": ten,
			"scaler":       map[string]any{"mean": ten},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(artifactJSON(t, tt.fields))
			require.ErrorIs(t, err, ErrInvalidArtifact)
		})
	}
}
