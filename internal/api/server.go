package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/tsmigrate/internal/infrastructure/config"
	"github.com/nerrad567/tsmigrate/internal/infrastructure/logging"
	"github.com/nerrad567/tsmigrate/internal/pipeline"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 5 * time.Second

// httpTimeout bounds reads and writes on the status listener.
const httpTimeout = 10 * time.Second

// healthCheckTimeout bounds the source and sink checks behind /healthz.
const healthCheckTimeout = 3 * time.Second

// StatusProvider reports the progress of a run. *pipeline.Pipeline
// implements it.
type StatusProvider interface {
	Stats() pipeline.Stats
}

// HealthChecker checks the stores a run is connected to. *pipeline.Pipeline
// implements it.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the status server.
type Deps struct {
	Config  config.StatusConfig
	Logger  *logging.Logger
	Status  StatusProvider
	Health  HealthChecker       // Optional: /healthz reports run state only when nil
	Metrics prometheus.Gatherer // Optional: /metrics is not routed when nil
	Version string
}

// Server is the HTTP status server.
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
type Server struct {
	cfg       config.StatusConfig
	logger    *logging.Logger
	status    StatusProvider
	health    HealthChecker
	metrics   prometheus.Gatherer
	version   string
	startTime time.Time

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New creates a status server. It does not listen until Start.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Status == nil {
		return nil, fmt.Errorf("status provider is required")
	}

	return &Server{
		cfg:       deps.Config,
		logger:    deps.Logger.With("component", "status"),
		status:    deps.Status,
		health:    deps.Health,
		metrics:   deps.Metrics,
		version:   deps.Version,
		startTime: time.Now(),
	}, nil
}

// Start binds the listener and serves in a background goroutine.
//
// Binding happens synchronously so a port conflict is returned here rather
// than logged later. A port of 0 picks a free port; see Addr.
//
// Returns:
//   - error: If the address cannot be bound or the server is already started
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return fmt.Errorf("status server already started")
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("binding status server on %s: %w", addr, err)
	}

	s.listener = ln
	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       httpTimeout,
		ReadHeaderTimeout: httpTimeout,
		WriteTimeout:      httpTimeout,
		IdleTimeout:       httpTimeout,
	}

	srv := s.server
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server error", "error", err)
		}
	}()

	s.logger.Info("status server listening", "address", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the server. Calling Close on a server that
// was never started is a no-op.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down status server: %w", err)
	}
	return nil
}

// HealthCheck verifies the server has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("status health check: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return fmt.Errorf("status server not started")
	}
	return nil
}
