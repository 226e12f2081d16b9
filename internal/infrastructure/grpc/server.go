package grpc

import (
	"context"
	"fmt"
	"net"

	"github.com/wekeepgrowing/stripe-cpq-connector/internal/config"
	"github.com/wekeepgrowing/stripe-cpq-connector/pkg/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Server exposes the standard gRPC health service of the connector
type Server struct {
	config   *config.Config
	logger   *zap.Logger
	server   *grpc.Server
	health   *health.Server
	listener net.Listener
}

func NewServer(cfg *config.Config, log *zap.Logger) *Server {
	s := &Server{
		config: cfg,
		logger: log.Named("grpc"),
		health: health.NewServer(),
	}

	s.server = grpc.NewServer(
		grpc.UnaryInterceptor(logger.NewGrpcUnaryServerInterceptor(s.logger)),
		grpc.StreamInterceptor(logger.NewGrpcStreamServerInterceptor(s.logger)),
	)
	healthpb.RegisterHealthServer(s.server, s.health)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(cfg.Service.Name, healthpb.HealthCheckResponse_SERVING)

	if cfg.Service.Environment != "production" {
		reflection.Register(s.server)
	}

	return s
}

func (s *Server) Start() error {
	addr := s.config.Server.GRPC.Address()

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(listener)
}

// Serve accepts connections on an existing listener
func (s *Server) Serve(listener net.Listener) error {
	s.listener = listener
	s.logger.Info("Starting gRPC server", zap.String("address", listener.Addr().String()))
	return s.server.Serve(listener)
}

// Shutdown reports NOT_SERVING, then stops gracefully unless ctx expires first
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-ctx.Done():
		s.logger.Warn("Forcing gRPC server stop")
		s.server.Stop()
		return ctx.Err()
	case <-stopped:
		return nil
	}
}
