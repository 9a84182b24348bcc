package observability

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

// GRPCHealthServer exposes the grpc.health.v1 protocol. The overall status
// follows the readiness checks, polled every interval.
type GRPCHealthServer struct {
	server   *grpc.Server
	health   *health.Server
	checks   []HealthCheck
	interval time.Duration
	logger   zerolog.Logger
}

// NewGRPCHealthServer creates a health server for checks
func NewGRPCHealthServer(checks []HealthCheck, interval time.Duration, logger zerolog.Logger) *GRPCHealthServer {
	if interval <= 0 {
		interval = 10 * time.Second
	}

	server := grpc.NewServer(grpc.KeepaliveParams(keepalive.ServerParameters{
		Time:    30 * time.Second,
		Timeout: 5 * time.Second,
	}))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(server, hs)

	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &GRPCHealthServer{
		server:   server,
		health:   hs,
		checks:   checks,
		interval: interval,
		logger:   logger,
	}
}

// Serve listens on addr and polls the checks until ctx is cancelled
func (s *GRPCHealthServer) Serve(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.ServeListener(ctx, lis)
}

// ServeListener serves on lis and polls the checks until ctx is cancelled
func (s *GRPCHealthServer) ServeListener(ctx context.Context, lis net.Listener) error {
	go s.poll(ctx)
	go func() {
		<-ctx.Done()
		s.health.Shutdown()
		s.server.GracefulStop()
	}()

	s.logger.Info().Str("addr", lis.Addr().String()).Msg("gRPC health server listening")
	if err := s.server.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return err
	}
	return nil
}

// Refresh runs the checks once and updates the serving status
func (s *GRPCHealthServer) Refresh(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	dependencies, ok := CheckDependencies(ctx, s.checks)
	status := healthpb.HealthCheckResponse_SERVING
	if !ok {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		for name, dep := range dependencies {
			if dep.Status != "healthy" {
				s.logger.Warn().Str("dependency", name).Str("message", dep.Message).Msg("Dependency unhealthy")
			}
		}
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(serviceName, status)
	return ok
}

func (s *GRPCHealthServer) poll(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}
