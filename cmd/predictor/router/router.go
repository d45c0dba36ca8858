// Package router configures HTTP routes for the predictor.
//
// Routes configured:
//   - GET  /               - Vehicle specification form
//   - POST /predict        - Form submission, re-renders the page with the result
//   - POST /api/v1/predict - JSON prediction API
//   - GET  /api/v1/model   - Loaded model description
//   - GET  /healthz        - Liveness (always 200 OK)
//   - GET  /readyz         - Readiness (503 until a model is loaded)
//   - GET  /metrics        - Prometheus metrics endpoint
//
// Prediction errors map to status codes: invalid input is 422, a missing
// model is 503 and a failing model is 500.
package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/HatiCode/autompg/pkg/httpx"
	"github.com/HatiCode/autompg/pkg/predict"
	"github.com/HatiCode/autompg/pkg/vehicle"
)

const (
	maxBodyBytes   = 1 << 16
	predictTimeout = 10 * time.Second
)

// Predictor is the prediction service the routes delegate to.
type Predictor interface {
	Predict(ctx context.Context, req vehicle.PredictionRequest) (predict.Prediction, error)
	Ready() error
	ModelName() string
	ModelPath() string
}

// SetupRoutes configures HTTP endpoints for the predictor. Metrics are served
// from gatherer.
func SetupRoutes(pred Predictor, gatherer prometheus.Gatherer, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", handleIndex(pred, logger))
	mux.HandleFunc("POST /predict", handleFormPredict(pred, logger))
	mux.HandleFunc("POST /api/v1/predict", handleAPIPredict(pred, logger))
	mux.HandleFunc("GET /api/v1/model", handleModel(pred))

	mux.Handle("/healthz", httpx.HealthHandler())
	mux.Handle("/readyz", httpx.HealthHandlerWithCheck(pred.Ready))

	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return mux
}

func handleIndex(pred Predictor, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, http.StatusOK, newPage(pred, vehicle.DefaultRequest()), logger)
	}
}

func handleFormPredict(pred Predictor, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

		req, err := parseForm(r)
		p := newPage(pred, req)
		if err != nil {
			p.InputError = err.Error()
			render(w, http.StatusUnprocessableEntity, p, logger)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), predictTimeout)
		defer cancel()

		result, err := pred.Predict(ctx, req)
		status := statusFor(err)
		switch {
		case err == nil:
			p.Result = result.Format()
		case status == http.StatusServiceUnavailable:
			p.Warning = noModelWarning
		case status == http.StatusUnprocessableEntity:
			p.InputError = err.Error()
		default:
			logger.Error("prediction failed", "error", err, "request_id", httpx.RequestID(r.Context()))
			p.InputError = "prediction failed"
		}

		render(w, status, p, logger)
	}
}

// apiRequest mirrors vehicle.PredictionRequest with an optional horsepower.
type apiRequest struct {
	Cylinders    int      `json:"cylinders"`
	Displacement float64  `json:"displacement"`
	Horsepower   *float64 `json:"horsepower"`
	Weight       int      `json:"weight"`
	Acceleration float64  `json:"acceleration"`
	ModelYear    int      `json:"model_year"`
	Origin       string   `json:"origin"`
}

func (a apiRequest) toRequest() vehicle.PredictionRequest {
	hp := vehicle.MedianHorsepower
	if a.Horsepower != nil {
		hp = *a.Horsepower
	}
	return vehicle.PredictionRequest{
		Cylinders:    a.Cylinders,
		Displacement: a.Displacement,
		Horsepower:   hp,
		Weight:       a.Weight,
		Acceleration: a.Acceleration,
		ModelYear:    a.ModelYear,
		Origin:       vehicle.Origin(a.Origin),
	}
}

type apiResponse struct {
	MPG      float64            `json:"mpg"`
	Display  string             `json:"display"`
	Features map[string]float64 `json:"features"`
	Model    string             `json:"model"`
	Cached   bool               `json:"cached"`
}

func handleAPIPredict(pred Predictor, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			httpx.WriteErrorMessage(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}

		var in apiRequest
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&in); err != nil {
			httpx.WriteErrorMessage(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), predictTimeout)
		defer cancel()

		result, err := pred.Predict(ctx, in.toRequest())
		if err != nil {
			status := statusFor(err)
			if status == http.StatusInternalServerError {
				logger.Error("prediction failed", "error", err, "request_id", httpx.RequestID(r.Context()))
			}
			httpx.WriteError(w, status, err)
			return
		}

		resp := apiResponse{
			MPG:      result.MPG,
			Display:  result.Format(),
			Features: result.Features.Named(),
			Model:    result.Model,
			Cached:   result.Cached,
		}
		if err := httpx.WriteJSON(w, http.StatusOK, resp); err != nil {
			logger.Error("failed to write JSON response", "error", err)
		}
	}
}

func handleModel(pred Predictor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"name":     pred.ModelName(),
			"path":     pred.ModelPath(),
			"features": vehicle.FeatureNames(),
			"loaded":   pred.Ready() == nil,
		}
		if err := pred.Ready(); err != nil {
			resp["error"] = err.Error()
		}
		_ = httpx.WriteJSON(w, http.StatusOK, resp)
	}
}

func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, predict.ErrNoModel):
		return http.StatusServiceUnavailable
	case errors.Is(err, vehicle.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func render(w http.ResponseWriter, status int, p page, logger *slog.Logger) {
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, p); err != nil {
		logger.Error("failed to render page", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		logger.Error("failed to write page", "error", err)
	}
}
