package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/tsmigrate/internal/pipeline"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{
			ErrorLog: promErrorLog{s.logger},
		}))
	}

	return r
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	pipeline.Stats
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Timestamp     string `json:"timestamp"`
}

// handleHealth returns 200 unless the run has failed or the open source or
// sink fails its health check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	state := s.status.Stats().State
	if state == pipeline.StateFailed {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "failed",
			"state":  state,
		})
		return
	}

	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := s.health.HealthCheck(ctx); err != nil {
			s.logger.Warn("health check failed", "state", state, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "unhealthy",
				"state":  state,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"state":  state,
	})
}

// handleStatus returns the run's counters.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Stats:         s.status.Stats(),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	})
}
