// Package vehicle defines the vehicle specification a user submits for a fuel
// efficiency prediction and the fixed feature transform applied to it before
// inference.
//
// A PredictionRequest is built fresh for every prediction and never stored.
// Validate enforces the input bounds of the entry form; Transform turns a
// request into the ordered FeatureVector the regression model was trained on.
//
// Example usage:
//
//	req := vehicle.DefaultRequest()
//	req.Origin = vehicle.OriginEurope
//	if err := req.Validate(); err != nil {
//	    return err
//	}
//	fv, err := vehicle.Transform(req)
package vehicle

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidInput is returned when a request falls outside the accepted
// domain. It should be unreachable for input coming from the entry form.
var ErrInvalidInput = errors.New("invalid input")

// MedianHorsepower is the horsepower median of the training data. It is the
// form default and stands in for an unknown horsepower.
const MedianHorsepower = 93.5

// Origin is the region a vehicle was manufactured in.
type Origin string

const (
	OriginUSA    Origin = "USA"
	OriginEurope Origin = "Europe"
	OriginAsia   Origin = "Asia"
)

// Origins lists the accepted origins in form display order.
func Origins() []Origin {
	return []Origin{OriginUSA, OriginEurope, OriginAsia}
}

// ParseOrigin matches s exactly against the known origins.
func ParseOrigin(s string) (Origin, error) {
	o := Origin(s)
	if !slices.Contains(Origins(), o) {
		return "", fmt.Errorf("%w: unknown origin %q (must be USA, Europe, or Asia)", ErrInvalidInput, s)
	}
	return o, nil
}

// Bounds of each numeric field, inclusive.
const (
	MinDisplacement = 60.0
	MaxDisplacement = 500.0
	MinHorsepower   = 40.0
	MaxHorsepower   = 300.0
	MinWeight       = 1500
	MaxWeight       = 6000
	MinAcceleration = 8.0
	MaxAcceleration = 25.0
	MinModelYear    = 70
	MaxModelYear    = 82
)

// CylinderChoices lists the accepted cylinder counts.
func CylinderChoices() []int {
	return []int{3, 4, 5, 6, 8}
}

// PredictionRequest holds the raw vehicle specification entered by the user.
type PredictionRequest struct {
	Cylinders    int     `json:"cylinders" yaml:"cylinders"`
	Displacement float64 `json:"displacement" yaml:"displacement"`
	Horsepower   float64 `json:"horsepower" yaml:"horsepower"`
	Weight       int     `json:"weight" yaml:"weight"`
	Acceleration float64 `json:"acceleration" yaml:"acceleration"`
	ModelYear    int     `json:"model_year" yaml:"model_year"`
	Origin       Origin  `json:"origin" yaml:"origin"`
}

// DefaultRequest returns the values the entry form starts with.
func DefaultRequest() PredictionRequest {
	return PredictionRequest{
		Cylinders:    4,
		Displacement: 150.0,
		Horsepower:   MedianHorsepower,
		Weight:       3000,
		Acceleration: 15.0,
		ModelYear:    76,
		Origin:       OriginUSA,
	}
}

// Validate checks every field against its accepted domain and reports the
// first violation as ErrInvalidInput.
func (r PredictionRequest) Validate() error {
	if !slices.Contains(CylinderChoices(), r.Cylinders) {
		return fmt.Errorf("%w: cylinders must be one of %v, got %d", ErrInvalidInput, CylinderChoices(), r.Cylinders)
	}
	if err := checkRange("displacement", r.Displacement, MinDisplacement, MaxDisplacement); err != nil {
		return err
	}
	if err := checkRange("horsepower", r.Horsepower, MinHorsepower, MaxHorsepower); err != nil {
		return err
	}
	if r.Weight < MinWeight || r.Weight > MaxWeight {
		return fmt.Errorf("%w: weight must be in [%d, %d], got %d", ErrInvalidInput, MinWeight, MaxWeight, r.Weight)
	}
	if err := checkRange("acceleration", r.Acceleration, MinAcceleration, MaxAcceleration); err != nil {
		return err
	}
	if r.ModelYear < MinModelYear || r.ModelYear > MaxModelYear {
		return fmt.Errorf("%w: model_year must be in [%d, %d], got %d", ErrInvalidInput, MinModelYear, MaxModelYear, r.ModelYear)
	}
	if _, err := ParseOrigin(string(r.Origin)); err != nil {
		return err
	}
	return nil
}

func checkRange(field string, v, lo, hi float64) error {
	// NaN fails both comparisons, so test for the in-range case.
	if v >= lo && v <= hi {
		return nil
	}
	return fmt.Errorf("%w: %s must be in [%g, %g], got %g", ErrInvalidInput, field, lo, hi, v)
}
