package vehicle

import "fmt"

// FeatureCount is the width of the model input.
const FeatureCount = 10

// Positions of each feature in a FeatureVector. The order is the column
// order the model was trained on and must not change.
const (
	IdxCylinders = iota
	IdxDisplacement
	IdxHorsepower
	IdxWeight
	IdxAcceleration
	IdxModelYear
	IdxOriginUSA
	IdxOriginEurope
	IdxOriginAsia
	IdxPowerToWeight
)

// FeatureVector is the ordered model input derived from a PredictionRequest.
type FeatureVector [FeatureCount]float64

// FeatureNames returns the training column names in FeatureVector order.
func FeatureNames() []string {
	return []string{
		"cylinders",
		"displacement",
		"horsepower",
		"weight",
		"acceleration",
		"model year",
		"origin_USA",
		"origin_Europe",
		"origin_Asia",
		"power_to_weight",
	}
}

// Slice returns the vector as a freshly allocated slice.
func (fv FeatureVector) Slice() []float64 {
	out := make([]float64, FeatureCount)
	copy(out, fv[:])
	return out
}

// Named returns the vector keyed by training column name.
func (fv FeatureVector) Named() map[string]float64 {
	names := FeatureNames()
	out := make(map[string]float64, FeatureCount)
	for i, name := range names {
		out[name] = fv[i]
	}
	return out
}

// Transform computes the derived features of req and assembles them in
// training order. It does not range-check req; call Validate first.
//
// A zero weight or an unknown origin returns ErrInvalidInput instead of
// propagating an infinite ratio or an all-zero one-hot encoding.
func Transform(req PredictionRequest) (FeatureVector, error) {
	if req.Weight == 0 {
		return FeatureVector{}, fmt.Errorf("%w: weight cannot be zero", ErrInvalidInput)
	}

	usa, europe, asia, err := oneHotOrigin(req.Origin)
	if err != nil {
		return FeatureVector{}, err
	}

	var fv FeatureVector
	fv[IdxCylinders] = float64(req.Cylinders)
	fv[IdxDisplacement] = req.Displacement
	fv[IdxHorsepower] = req.Horsepower
	fv[IdxWeight] = float64(req.Weight)
	fv[IdxAcceleration] = req.Acceleration
	fv[IdxModelYear] = float64(req.ModelYear)
	fv[IdxOriginUSA] = usa
	fv[IdxOriginEurope] = europe
	fv[IdxOriginAsia] = asia
	fv[IdxPowerToWeight] = req.Horsepower / float64(req.Weight)

	return fv, nil
}

func oneHotOrigin(o Origin) (usa, europe, asia float64, err error) {
	switch o {
	case OriginUSA:
		return 1, 0, 0, nil
	case OriginEurope:
		return 0, 1, 0, nil
	case OriginAsia:
		return 0, 0, 1, nil
	default:
		return 0, 0, 0, fmt.Errorf("%w: unknown origin %q", ErrInvalidInput, o)
	}
}
