// Package health exposes grpc.health.v1.Health so orchestrators can probe
// whether the coordinator is accepting sessions.
package health

import (
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/cory-johannsen/gamehub/internal/config"
)

// ServiceName is the health service name reported alongside the server-wide
// empty name.
const ServiceName = "gamehub.Coordinator"

// Server is the gRPC health endpoint. It starts NOT_SERVING.
type Server struct {
	cfg    config.HealthConfig
	logger *zap.Logger
	grpc   *grpc.Server
	health *grpchealth.Server

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a health Server.
//
// Precondition: logger must be non-nil.
func NewServer(cfg config.HealthConfig, logger *zap.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		logger: logger,
		grpc:   grpc.NewServer(),
		health: grpchealth.NewServer(),
	}
	grpc_health_v1.RegisterHealthServer(s.grpc, s.health)
	s.SetServing(false)
	return s
}

// SetServing flips both the server-wide and the coordinator status.
func (s *Server) SetServing(serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	s.logger.Info("health status changed", zap.String("status", status.String()))
}

// Listen binds the configured address. Start calls it when needed.
//
// Postcondition: Addr returns the bound address.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr(), err)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start serves health checks until Stop. It blocks.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	s.logger.Info("health endpoint listening", zap.String("addr", ln.Addr().String()))
	if err := s.grpc.Serve(ln); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("serving health: %w", err)
	}
	return nil
}

// Stop reports NOT_SERVING to watchers and stops the server.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		// Already closed when Start ran; closes a bound but unserved listener.
		_ = s.listener.Close()
	}
}
