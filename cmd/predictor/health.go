package main

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// healthService is the service name reported alongside the overall ("") status.
const healthService = "autompg.Predictor"

// HealthServer serves the standard grpc.health.v1 protocol for orchestrators
// that check health over gRPC.
type HealthServer struct {
	server *grpc.Server
	health *health.Server
	logger *slog.Logger
}

// NewHealthServer creates a gRPC health server. It reports SERVING when ready
// returns nil and NOT_SERVING otherwise. A non-nil tlsCfg enables TLS.
func NewHealthServer(ready func() error, tlsCfg *tls.Config, logger *slog.Logger) *HealthServer {
	var opts []grpc.ServerOption
	if tlsCfg != nil {
		opts = append(opts, grpc.Creds(credentials.NewTLS(tlsCfg)))
	}

	hs := &HealthServer{
		server: grpc.NewServer(opts...),
		health: health.NewServer(),
		logger: logger,
	}
	healthpb.RegisterHealthServer(hs.server, hs.health)
	hs.Update(ready)

	return hs
}

// Update re-evaluates ready and publishes the resulting status.
func (h *HealthServer) Update(ready func() error) {
	status := healthpb.HealthCheckResponse_SERVING
	if err := ready(); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(healthService, status)
}

// Serve accepts connections on ln until Stop is called.
func (h *HealthServer) Serve(ln net.Listener) error {
	h.logger.Info("starting gRPC health server", "addr", ln.Addr().String())
	if err := h.server.Serve(ln); err != nil {
		return fmt.Errorf("grpc server failed: %w", err)
	}
	return nil
}

// Stop marks every service NOT_SERVING and stops the server, letting
// in-flight checks finish.
func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.server.GracefulStop()
	h.logger.Info("gRPC health server stopped")
}
