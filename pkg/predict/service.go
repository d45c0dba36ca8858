// Package predict runs one fuel efficiency prediction end to end:
//
//	validate → transform → cache lookup → model.Predict → cache store
//
// A Service is built once at startup from the outcome of loading the model.
// When loading failed the Service stays usable but refuses every prediction
// with the load error, so the presentation layer can show the problem and
// disable the predict action instead of crashing.
package predict

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/HatiCode/autompg/pkg/cache"
	"github.com/HatiCode/autompg/pkg/models"
	"github.com/HatiCode/autompg/pkg/vehicle"
)

// ErrNoModel is returned by Predict when no model was loaded. It wraps the
// original load error, so errors.Is(err, models.ErrModelNotFound) also holds
// for a missing artifact.
var ErrNoModel = errors.New("model not loaded")

// Recorder receives instrumentation events. All methods must be safe for
// concurrent use.
type Recorder interface {
	RecordPredict(seconds float64, origin string, mpg float64)
	RecordCacheLookup(hit bool)
	RecordError(component, reason string)
}

// Prediction is the result of one prediction.
type Prediction struct {
	MPG      float64
	Features vehicle.FeatureVector
	Model    string
	Cached   bool
}

// Format renders the prediction for display with two decimals.
func (p Prediction) Format() string {
	return fmt.Sprintf("%.2f MPG", p.MPG)
}

// Service predicts fuel efficiency with a single loaded model.
// It is safe for concurrent use.
type Service struct {
	model     models.Model
	loadErr   error
	modelPath string
	modelID   string
	cache     cache.Cache
	recorder  Recorder
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables result memoization.
func WithCache(c cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithRecorder sets the instrumentation sink.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithModelPath records where the model was loaded from, for display.
func WithModelPath(path string) Option {
	return func(s *Service) {
		s.modelPath = path
	}
}

// WithModelID sets the artifact identity mixed into cache keys, so a shared
// cache never returns a result computed by a different artifact of the same
// format.
func WithModelID(id string) Option {
	return func(s *Service) {
		s.modelID = id
	}
}

// New creates a Service from the result of loading a model. Exactly one of
// model and loadErr is expected to be non-nil; a nil model with a nil error
// is treated as a missing model.
func New(model models.Model, loadErr error, opts ...Option) *Service {
	if model == nil && loadErr == nil {
		loadErr = models.ErrModelNotFound
	}

	s := &Service{
		model:   model,
		loadErr: loadErr,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.model != nil {
		s.loadErr = nil
	}
	return s
}

// Load loads the model at path with loader and builds a Service around the
// outcome. A load failure is logged, not returned.
func Load(loader *models.Loader, path string, opts ...Option) *Service {
	model, err := loader.Load(path)
	base := []Option{WithModelPath(path), WithModelID(loader.Digest(path))}
	s := New(model, err, append(base, opts...)...)
	if err != nil {
		s.logger.Error("model unavailable, predictions disabled", "path", path, "error", err)
	}
	return s
}

// Ready returns nil when a model is loaded, or the load error otherwise.
func (s *Service) Ready() error {
	return s.loadErr
}

// ModelName returns the loaded model's name, or "" when none is loaded.
func (s *Service) ModelName() string {
	if s.model == nil {
		return ""
	}
	return s.model.Name()
}

// ModelPath returns the artifact path the model was loaded from.
func (s *Service) ModelPath() string {
	return s.modelPath
}

// Predict validates req, transforms it and returns the model's prediction.
//
// Errors wrap vehicle.ErrInvalidInput for bad input and ErrNoModel when no
// model is loaded. Model failures are returned as they are; nothing is retried.
func (s *Service) Predict(ctx context.Context, req vehicle.PredictionRequest) (Prediction, error) {
	if s.model == nil {
		s.recordError("model", "not_loaded")
		return Prediction{}, fmt.Errorf("%w: %w", ErrNoModel, s.loadErr)
	}

	if err := req.Validate(); err != nil {
		s.recordError("input", "validation_failed")
		return Prediction{}, err
	}

	features, err := vehicle.Transform(req)
	if err != nil {
		s.recordError("input", "transform_failed")
		return Prediction{}, err
	}

	start := time.Now()
	key := cache.Key(s.cacheScope(), features)

	if mpg, ok := s.lookup(ctx, key); ok {
		s.record(start, req, mpg)
		return Prediction{MPG: mpg, Features: features, Model: s.model.Name(), Cached: true}, nil
	}

	mpg, err := s.model.Predict(ctx, features)
	if err != nil {
		s.recordError("model", "predict_failed")
		return Prediction{}, fmt.Errorf("predict: %w", err)
	}

	s.store(ctx, key, mpg)
	s.record(start, req, mpg)

	s.logger.Debug("predicted fuel efficiency",
		"model", s.model.Name(),
		"origin", req.Origin,
		"mpg", mpg,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return Prediction{MPG: mpg, Features: features, Model: s.model.Name()}, nil
}

// cacheScope names the model in cache keys: the format, plus the artifact
// identity when one is known.
func (s *Service) cacheScope() string {
	if s.modelID == "" {
		return s.model.Name()
	}
	return s.model.Name() + "@" + s.modelID
}

// lookup consults the cache. Cache failures count as misses.
func (s *Service) lookup(ctx context.Context, key string) (float64, bool) {
	if s.cache == nil {
		return 0, false
	}

	mpg, found, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("cache lookup failed", "error", err)
		s.recordError("cache", "get_failed")
		return 0, false
	}

	if s.recorder != nil {
		s.recorder.RecordCacheLookup(found)
	}
	return mpg, found
}

func (s *Service) store(ctx context.Context, key string, mpg float64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Put(ctx, key, mpg); err != nil {
		s.logger.Warn("cache store failed", "error", err)
		s.recordError("cache", "put_failed")
	}
}

func (s *Service) record(start time.Time, req vehicle.PredictionRequest, mpg float64) {
	if s.recorder != nil {
		s.recorder.RecordPredict(time.Since(start).Seconds(), string(req.Origin), mpg)
	}
}

func (s *Service) recordError(component, reason string) {
	if s.recorder != nil {
		s.recorder.RecordError(component, reason)
	}
}
