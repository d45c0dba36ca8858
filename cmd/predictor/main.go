// Command predictor serves fuel efficiency (MPG) predictions for vehicle
// specifications.
//
// At startup the predictor loads the regression model artifact once. The
// model is then used for every request:
//  1. The vehicle specification is validated against the form bounds
//  2. It is transformed into the fixed 10-feature vector the model was trained on
//  3. The model predicts miles per gallon, optionally memoized in a cache
//
// If the artifact is missing or invalid the server still starts: the form
// shows the load error and every prediction is refused with 503.
//
// HTTP endpoints (port 8080, configurable):
//   - GET  /               - Vehicle specification form
//   - POST /predict        - Form submission
//   - POST /api/v1/predict - JSON prediction API
//   - GET  /api/v1/model   - Loaded model description
//   - GET  /healthz        - Liveness
//   - GET  /readyz         - Readiness (model loaded)
//   - GET  /metrics        - Prometheus metrics
//
// With -grpc-listen set, the standard grpc.health.v1 service is served too.
//
// Usage:
//
//	predictor \
//	  -model-path=model/auto_mpg_prediction_model.json \
//	  -cache=memory -cache-ttl=10m \
//	  -log-format=json
//
// Environment variables:
//
//	LISTEN       - HTTP listen address (default: :8080)
//	GRPC_LISTEN  - gRPC health listen address (default: disabled)
//	MODEL_PATH   - Model artifact path
//	CACHE        - Prediction cache: none, memory, redis (default: none)
//	REDIS_ADDR   - Redis address when CACHE=redis
//	LOG_LEVEL    - Logging level: debug, info, warn, error (default: info)
//	LOG_FORMAT   - Logging format: text, json (default: text)
//	LOG_FILE     - Rotated log file (default: stdout)
//	CONFIG_FILE  - YAML file supplying defaults for all of the above
package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/HatiCode/autompg/cmd/predictor/config"
	"github.com/HatiCode/autompg/cmd/predictor/logger"
	"github.com/HatiCode/autompg/cmd/predictor/metrics"
	"github.com/HatiCode/autompg/cmd/predictor/router"
	"github.com/HatiCode/autompg/pkg/httpx"
	"github.com/HatiCode/autompg/pkg/models"
	"github.com/HatiCode/autompg/pkg/predict"
	autompgtls "github.com/HatiCode/autompg/pkg/tls"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	cfg := config.ParseFlags()

	log, logCloser := logger.New(cfg)
	defer logCloser.Close()
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("predictor failed", "error", err)
		logCloser.Close()
		os.Exit(1)
	}
}

// app is the wired predictor, ready to be served.
type app struct {
	service    *predict.Service
	registry   *prometheus.Registry
	handler    http.Handler
	closeCache func() error
}

// newApp loads the model and wires the prediction service, metrics and routes.
// A model that fails to load does not fail newApp.
func newApp(cfg *config.Config, log *slog.Logger) (*app, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	byomClient, err := httpx.NewClient(cfg.BYOMTLS)
	if err != nil {
		return nil, err
	}

	loader := models.NewLoader(
		models.WithHTTPClient(byomClient),
		models.WithBYOMTimeout(cfg.BYOMTimeout),
		models.WithLogger(log),
	)

	resultCache, closeCache, err := newCache(cfg, log)
	if err != nil {
		return nil, err
	}

	opts := []predict.Option{predict.WithRecorder(m), predict.WithLogger(log)}
	if resultCache != nil {
		opts = append(opts, predict.WithCache(resultCache))
	}
	svc := predict.Load(loader, cfg.ModelPath, opts...)
	m.SetModelLoaded(svc.Ready() == nil)

	mux := router.SetupRoutes(svc, reg, log)
	handler := httpx.Chain(mux,
		httpx.RequestIDMiddleware(),
		httpx.LoggingMiddleware(log),
		httpx.RecoveryMiddleware(log),
	)

	return &app{
		service:    svc,
		registry:   reg,
		handler:    handler,
		closeCache: closeCache,
	}, nil
}

func run(cfg *config.Config, log *slog.Logger) error {
	log.Info("starting autompg predictor",
		"version", version,
		"model_path", cfg.ModelPath,
		"cache", cfg.Cache,
	)

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.closeCache(); err != nil {
			log.Error("failed to close cache", "error", err)
		}
	}()

	httpServer := httpx.NewServer(cfg.Listen, a.handler, log)

	var serverTLS *tls.Config
	if cfg.TLS.Enabled {
		serverTLS, err = autompgtls.NewServerTLSConfig(cfg.TLS)
		if err != nil {
			return err
		}
		httpServer.SetTLSConfig(serverTLS)
	}

	httpLn, grpcLn, err := openListeners(cfg.Listen, cfg.GRPCListen)
	if err != nil {
		return err
	}

	serverErr := make(chan error, 2)
	go func() {
		serverErr <- httpServer.Serve(httpLn)
	}()

	var grpcHealth *HealthServer
	if grpcLn != nil {
		grpcHealth = NewHealthServer(a.service.Ready, serverTLS, log)
		go func() {
			serverErr <- grpcHealth.Serve(grpcLn)
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("received shutdown signal")
	case runErr = <-serverErr:
		if runErr != nil {
			log.Error("server failed", "error", runErr)
		}
	}

	log.Info("shutting down")

	if grpcHealth != nil {
		grpcHealth.Stop()
	}
	if err := httpServer.Stop(cfg.ShutdownTimeout); err != nil {
		return err
	}

	log.Info("shutdown complete")
	return runErr
}

// openListeners binds the HTTP address and, when grpcAddr is set, the gRPC
// address. Nothing stays bound on error, so no server starts half wired.
func openListeners(httpAddr, grpcAddr string) (httpLn, grpcLn net.Listener, err error) {
	httpLn, err = net.Listen("tcp", httpAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("listen %s: %w", httpAddr, err)
	}
	if grpcAddr == "" {
		return httpLn, nil, nil
	}

	grpcLn, err = net.Listen("tcp", grpcAddr)
	if err != nil {
		httpLn.Close()
		return nil, nil, fmt.Errorf("listen %s: %w", grpcAddr, err)
	}
	return httpLn, grpcLn, nil
}
