package models

import (
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/tidwall/gjson"

	"github.com/HatiCode/autompg/pkg/vehicle"
)

// Artifact formats.
const (
	FormatLinear       = "linear"
	FormatTreeEnsemble = "tree_ensemble"
	FormatBYOM         = "byom"
)

// decodeOptions carries what a decoder may need beyond the artifact bytes.
type decodeOptions struct {
	httpClient  *http.Client
	byomTimeout time.Duration
}

// Decode parses a JSON model artifact into a Model.
// All failures wrap ErrInvalidArtifact.
func Decode(data []byte) (Model, error) {
	return decode(data, decodeOptions{})
}

func decode(data []byte, opts decodeOptions) (Model, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrInvalidArtifact)
	}

	doc := gjson.ParseBytes(data)
	if err := checkFeatureNames(doc.Get("features")); err != nil {
		return nil, err
	}

	format := doc.Get("format").String()
	switch format {
	case FormatLinear:
		return decodeLinear(doc)
	case FormatTreeEnsemble:
		return decodeTreeEnsemble(doc)
	case FormatBYOM:
		return decodeBYOM(doc, opts)
	case "":
		return nil, fmt.Errorf("%w: missing format", ErrInvalidArtifact)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q (must be linear, tree_ensemble, or byom)", ErrInvalidArtifact, format)
	}
}

// checkFeatureNames rejects artifacts trained on a different column order.
func checkFeatureNames(features gjson.Result) error {
	if !features.IsArray() {
		return fmt.Errorf("%w: missing features array", ErrInvalidArtifact)
	}

	got := make([]string, 0, vehicle.FeatureCount)
	for _, f := range features.Array() {
		got = append(got, f.String())
	}

	want := vehicle.FeatureNames()
	if !slices.Equal(got, want) {
		return fmt.Errorf("%w: feature order %q does not match %q", ErrInvalidArtifact, got, want)
	}
	return nil
}

// floatVector reads a numeric array of exactly vehicle.FeatureCount values.
func floatVector(r gjson.Result, field string) ([]float64, error) {
	if !r.IsArray() {
		return nil, fmt.Errorf("%w: %s must be an array", ErrInvalidArtifact, field)
	}

	items := r.Array()
	if len(items) != vehicle.FeatureCount {
		return nil, fmt.Errorf("%w: %s has %d values, want %d", ErrInvalidArtifact, field, len(items), vehicle.FeatureCount)
	}

	out := make([]float64, len(items))
	for i, item := range items {
		if item.Type != gjson.Number {
			return nil, fmt.Errorf("%w: %s[%d] is not a number", ErrInvalidArtifact, field, i)
		}
		out[i] = item.Float()
	}
	return out, nil
}

// number reads a required numeric field.
func number(doc gjson.Result, path string) (float64, error) {
	v := doc.Get(path)
	if v.Type != gjson.Number {
		return 0, fmt.Errorf("%w: %s must be a number", ErrInvalidArtifact, path)
	}
	return v.Float(), nil
}
