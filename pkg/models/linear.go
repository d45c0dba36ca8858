package models

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"
	"gonum.org/v1/gonum/floats"

	"github.com/HatiCode/autompg/pkg/vehicle"
)

// LinearModel is an ordinary least squares regression, optionally preceded by
// per-feature standardization (x - mean) / scale.
//
// Artifact layout:
//
//	{
//	  "format": "linear",
//	  "features": ["cylinders", ..., "power_to_weight"],
//	  "intercept": -14.5,
//	  "coefficients": [-0.35, ...],
//	  "scaler": {"mean": [...], "scale": [...]}
//	}
type LinearModel struct {
	intercept    float64
	coefficients []float64
	mean         []float64
	scale        []float64
}

// NewLinearModel creates a linear model without standardization.
func NewLinearModel(intercept float64, coefficients []float64) (*LinearModel, error) {
	if len(coefficients) != vehicle.FeatureCount {
		return nil, fmt.Errorf("%w: coefficients has %d values, want %d", ErrInvalidArtifact, len(coefficients), vehicle.FeatureCount)
	}
	return &LinearModel{
		intercept:    intercept,
		coefficients: append([]float64(nil), coefficients...),
	}, nil
}

// Name returns the model identifier.
func (m *LinearModel) Name() string {
	return FormatLinear
}

// Predict returns intercept + coefficients · standardize(features).
func (m *LinearModel) Predict(ctx context.Context, features vehicle.FeatureVector) (float64, error) {
	x := features.Slice()
	if m.mean != nil {
		for i := range x {
			x[i] = (x[i] - m.mean[i]) / m.scale[i]
		}
	}
	return m.intercept + floats.Dot(m.coefficients, x), nil
}

func decodeLinear(doc gjson.Result) (Model, error) {
	intercept, err := number(doc, "intercept")
	if err != nil {
		return nil, err
	}

	coefficients, err := floatVector(doc.Get("coefficients"), "coefficients")
	if err != nil {
		return nil, err
	}

	m, err := NewLinearModel(intercept, coefficients)
	if err != nil {
		return nil, err
	}

	scaler := doc.Get("scaler")
	if !scaler.Exists() {
		return m, nil
	}

	m.mean, err = floatVector(scaler.Get("mean"), "scaler.mean")
	if err != nil {
		return nil, err
	}
	m.scale, err = floatVector(scaler.Get("scale"), "scaler.scale")
	if err != nil {
		return nil, err
	}
	for i, s := range m.scale {
		if s == 0 {
			return nil, fmt.Errorf("%w: scaler.scale[%d] is zero", ErrInvalidArtifact, i)
		}
	}

	return m, nil
}
