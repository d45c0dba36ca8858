package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HatiCode/autompg/pkg/vehicle"
)

// artifactJSON marshals fields into an artifact document carrying the
// training feature names.
func artifactJSON(t *testing.T, fields map[string]any) []byte {
	t.Helper()

	doc := map[string]any{"features": vehicle.FeatureNames()}
	for k, v := range fields {
		doc[k] = v
	}

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return data
}

func defaultFeatures(t *testing.T) vehicle.FeatureVector {
	t.Helper()

	fv, err := vehicle.Transform(vehicle.DefaultRequest())
	require.NoError(t, err)
	return fv
}
