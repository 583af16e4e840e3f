// Package grpcapi serves the standard gRPC health service so device fleets
// and orchestrators can probe the server over gRPC.
package grpcapi

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported alongside the overall
// ("") status.
const ServiceName = "portaria.v1.AccessLog"

// Checker reports whether a dependency (the database) is usable.
type Checker func(ctx context.Context) error

type Server struct {
	grpc   *grpc.Server
	health *health.Server
	check  Checker
	logger zerolog.Logger
}

func NewServer(logger zerolog.Logger, check Checker) *Server {
	s := &Server{
		grpc:   grpc.NewServer(),
		health: health.NewServer(),
		check:  check,
		logger: logger,
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Serve accepts connections on lis until Shutdown. It reports SERVING once
// the dependency check passes.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.Refresh(ctx)
	err := s.grpc.Serve(lis)
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

// Refresh re-runs the dependency check and updates the reported status.
func (s *Server) Refresh(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if s.check != nil {
		cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.check(cctx); err != nil {
			s.logger.Warn().Err(err).Msg("health check failed")
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.setStatus(status)
}

// Shutdown marks the server NOT_SERVING and stops it, waiting for in-flight
// RPCs until ctx expires.
func (s *Server) Shutdown(ctx context.Context) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.grpc.Stop()
	}
}

func (s *Server) setStatus(st healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}
