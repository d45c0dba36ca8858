package models

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"
)

// DefaultPath is where the model artifact lives relative to the working directory.
const DefaultPath = "model/auto_mpg_prediction_model.json"

// Loader reads model artifacts from disk and keeps every successfully loaded
// model for the lifetime of the process. A second Load of the same path
// returns the cached instance without touching the filesystem.
//
// Failed loads are not cached. Loader is safe for concurrent use.
type Loader struct {
	mu       sync.Mutex
	models   map[string]Model
	digests  map[string]string
	readFile func(name string) ([]byte, error)
	decode   decodeOptions
	logger   *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithReadFile replaces os.ReadFile, mainly for tests.
func WithReadFile(fn func(name string) ([]byte, error)) LoaderOption {
	return func(l *Loader) {
		l.readFile = fn
	}
}

// WithHTTPClient sets the client used by byom artifacts.
func WithHTTPClient(client *http.Client) LoaderOption {
	return func(l *Loader) {
		l.decode.httpClient = client
	}
}

// WithBYOMTimeout sets the per-prediction timeout for byom artifacts that
// do not declare their own.
func WithBYOMTimeout(d time.Duration) LoaderOption {
	return func(l *Loader) {
		l.decode.byomTimeout = d
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates an empty Loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		models:   make(map[string]Model),
		digests:  make(map[string]string),
		readFile: os.ReadFile,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the model stored at path.
//
// Returns an error wrapping ErrModelNotFound if path does not exist and
// ErrInvalidArtifact if it cannot be decoded.
func (l *Loader) Load(path string) (Model, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if m, ok := l.models[path]; ok {
		return m, nil
	}

	start := time.Now()
	data, err := l.readFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrModelNotFound, path)
		}
		return nil, fmt.Errorf("read model artifact %s: %w", path, err)
	}

	m, err := decode(data, l.decode)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	sum := sha256.Sum256(data)
	l.models[path] = m
	l.digests[path] = hex.EncodeToString(sum[:])
	l.logger.Info("loaded model",
		"path", path,
		"format", m.Name(),
		"sha256", l.digests[path],
		"bytes", len(data),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return m, nil
}

// Digest returns the hex SHA-256 of the artifact bytes loaded from path, or ""
// if path has not been loaded successfully. Two artifacts of the same format
// differ in digest whenever their contents differ.
func (l *Loader) Digest(path string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.digests[path]
}

// Load reads the model at path with a fresh Loader.
func Load(path string) (Model, error) {
	return NewLoader().Load(path)
}
