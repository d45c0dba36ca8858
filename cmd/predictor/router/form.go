package router

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/HatiCode/autompg/pkg/models"
	"github.com/HatiCode/autompg/pkg/vehicle"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// noModelWarning is shown when a prediction is requested without a model.
const noModelWarning = "Please ensure the model is loaded correctly."

// bounds feeds the input limits to the form.
type bounds struct {
	MinDisplacement, MaxDisplacement float64
	MinHorsepower, MaxHorsepower     float64
	MinWeight, MaxWeight             int
	MinAcceleration, MaxAcceleration float64
	MinModelYear, MaxModelYear       int
}

var formBounds = bounds{
	MinDisplacement: vehicle.MinDisplacement,
	MaxDisplacement: vehicle.MaxDisplacement,
	MinHorsepower:   vehicle.MinHorsepower,
	MaxHorsepower:   vehicle.MaxHorsepower,
	MinWeight:       vehicle.MinWeight,
	MaxWeight:       vehicle.MaxWeight,
	MinAcceleration: vehicle.MinAcceleration,
	MaxAcceleration: vehicle.MaxAcceleration,
	MinModelYear:    vehicle.MinModelYear,
	MaxModelYear:    vehicle.MaxModelYear,
}

type page struct {
	Request          vehicle.PredictionRequest
	Cylinders        []int
	Origins          []vehicle.Origin
	Bounds           bounds
	MedianHorsepower float64
	ModelName        string
	ModelError       string
	Warning          string
	InputError       string
	Result           string
}

func newPage(pred Predictor, req vehicle.PredictionRequest) page {
	p := page{
		Request:          req,
		Cylinders:        vehicle.CylinderChoices(),
		Origins:          vehicle.Origins(),
		Bounds:           formBounds,
		MedianHorsepower: vehicle.MedianHorsepower,
		ModelName:        pred.ModelName(),
	}
	if err := pred.Ready(); err != nil {
		p.ModelError = modelErrorMessage(pred.ModelPath(), err)
	}
	return p
}

func modelErrorMessage(path string, err error) string {
	if errors.Is(err, models.ErrModelNotFound) {
		return fmt.Sprintf("Model file not found at %s", path)
	}
	return fmt.Sprintf("Model at %s could not be loaded: %v", path, err)
}

// parseForm reads a PredictionRequest from a submitted form. An empty
// horsepower stands for unknown and takes the training median.
func parseForm(r *http.Request) (vehicle.PredictionRequest, error) {
	if err := r.ParseForm(); err != nil {
		return vehicle.DefaultRequest(), fmt.Errorf("%w: %v", vehicle.ErrInvalidInput, err)
	}

	// Fields that fail to parse keep their default so the form re-renders sensibly.
	req := vehicle.DefaultRequest()
	req.Origin = vehicle.Origin(r.PostForm.Get("origin"))

	var errs []error
	intField := func(name string, dst *int) {
		v, err := strconv.Atoi(strings.TrimSpace(r.PostForm.Get(name)))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s must be a whole number", name))
			return
		}
		*dst = v
	}
	floatField := func(name string, dst *float64, optional bool) {
		raw := strings.TrimSpace(r.PostForm.Get(name))
		if raw == "" && optional {
			return
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s must be a number", name))
			return
		}
		*dst = v
	}

	intField("cylinders", &req.Cylinders)
	floatField("displacement", &req.Displacement, false)
	floatField("horsepower", &req.Horsepower, true)
	intField("weight", &req.Weight)
	floatField("acceleration", &req.Acceleration, false)
	intField("model_year", &req.ModelYear)

	if len(errs) > 0 {
		return req, fmt.Errorf("%w: %w", vehicle.ErrInvalidInput, errors.Join(errs...))
	}
	return req, nil
}
