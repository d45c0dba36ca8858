// Package models loads the pre-trained fuel efficiency regression model and
// exposes it behind a single Model interface.
//
// A model artifact is a JSON document. Three formats are understood:
//   - linear         - intercept plus one coefficient per feature, with an
//     optional standardization step applied first
//   - tree_ensemble  - gradient boosted or random forest regression trees
//   - byom           - "bring your own model": inference is delegated to an
//     external HTTP model server, for example one serving the original
//     scikit-learn pipeline
//
// Every artifact lists the feature columns it was trained on. Loading fails
// unless they match vehicle.FeatureNames() exactly, in order.
//
// Models are immutable once loaded and safe for concurrent use.
package models

import (
	"context"
	"errors"

	"github.com/HatiCode/autompg/pkg/vehicle"
)

var (
	// ErrModelNotFound is returned when the artifact path does not exist.
	ErrModelNotFound = errors.New("model file not found")

	// ErrInvalidArtifact is returned when an artifact exists but cannot be
	// decoded into a usable model.
	ErrInvalidArtifact = errors.New("invalid model artifact")
)

// Model predicts a single scalar from an ordered feature vector.
type Model interface {
	// Name returns a short identifier of the model format, e.g. "linear".
	Name() string

	// Predict returns the predicted miles per gallon for features.
	// Local models never block; remote models honour ctx.
	Predict(ctx context.Context, features vehicle.FeatureVector) (float64, error)
}
