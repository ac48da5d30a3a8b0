package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/iris-glasses/iris-core/internal/device"
	"github.com/iris-glasses/iris-core/internal/infrastructure/config"
	"github.com/iris-glasses/iris-core/internal/infrastructure/logging"
	"github.com/iris-glasses/iris-core/internal/interrupt"
	"github.com/iris-glasses/iris-core/internal/session"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// SessionReader exposes the live session state to HTTP handlers.
// Satisfied by the session loop.
type SessionReader interface {
	State() session.State
}

// HealthChecker is one dependency the health endpoint probes.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	Logger     *logging.Logger
	Registry   *device.Registry
	Interrupts *interrupt.Channel
	Session    SessionReader

	// Health maps a component name ("database", "mqtt", "influxdb") to
	// its checker. Nil entries are skipped.
	Health map[string]HealthChecker

	Version string
}

// Server is the HTTP API and WebSocket server for Iris Core.
//
// It serves the sensor push endpoint, read-only views of the registry
// and session, health checks, and the WebSocket event stream. The
// server is created with New() and started with Start().
type Server struct {
	cfg        config.APIConfig
	logger     *logging.Logger
	registry   *device.Registry
	interrupts *interrupt.Channel
	session    SessionReader
	health     map[string]HealthChecker
	version    string

	server *http.Server
	hub    *Hub
	cancel context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.Interrupts == nil {
		return nil, fmt.Errorf("interrupt channel is required")
	}

	return &Server{
		cfg:        deps.Config,
		logger:     deps.Logger,
		registry:   deps.Registry,
		interrupts: deps.Interrupts,
		session:    deps.Session,
		health:     deps.Health,
		version:    deps.Version,
		hub:        NewHub(deps.Logger),
	}, nil
}

// Hub returns the WebSocket hub so the session loop can broadcast
// transitions through it.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins listening for HTTP connections.
//
// The listener runs in a background goroutine; startup errors past the
// initial bind are logged, not returned. Stop the server with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to gracefulShutdownTimeout for in-flight requests, then
// forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
