package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/marine-weather-service/internal/domain"
	"github.com/couchcryptid/marine-weather-service/internal/sensor"
	"github.com/couchcryptid/marine-weather-service/internal/service"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// ReadyAll combines readiness checkers; the first failure wins.
func ReadyAll(checkers ...ReadinessChecker) ReadinessChecker {
	return readyAll(checkers)
}

type readyAll []ReadinessChecker

func (r readyAll) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

// HealthSource is the monitor surface the health endpoint reads.
type HealthSource interface {
	Snapshot() domain.HealthSnapshot
}

// DiagnosticsSource assembles the diagnostics export.
type DiagnosticsSource interface {
	Collect(ctx context.Context) service.Diagnostics
}

// Server exposes liveness, readiness, metrics, and the read-only REST API.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer wires the operational routes and the /api/v1 surface.
func NewServer(addr string, ready ReadinessChecker, health HealthSource, thresholds domain.Thresholds, registry *sensor.Registry, diagnostics DiagnosticsSource, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/v1/sensors", handleSensors(registry))
	mux.HandleFunc("GET /api/v1/sensors/{id}", handleSensor(registry))
	mux.HandleFunc("GET /api/v1/health", handleAPIHealth(health, thresholds))
	mux.HandleFunc("GET /api/v1/diagnostics", handleDiagnostics(diagnostics))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

type sensorsResponse struct {
	Count   int             `json:"count"`
	Sensors []sensor.Entity `json:"sensors"`
}

func handleSensors(registry *sensor.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		entities := registry.List()
		writeJSON(w, http.StatusOK, sensorsResponse{Count: len(entities), Sensors: entities})
	}
}

func handleSensor(registry *sensor.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ent, ok := registry.Get(r.PathValue("id"))
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "sensor not found"})
			return
		}
		writeJSON(w, http.StatusOK, ent)
	}
}

type thresholdsPayload struct {
	FailureThreshold  int    `json:"failure_threshold"`
	RecoveryThreshold int    `json:"recovery_threshold"`
	SlowProbeCutoff   string `json:"slow_probe_cutoff"`
}

type apiHealthResponse struct {
	Status     domain.Status        `json:"status"`
	Metrics    domain.HealthMetrics `json:"metrics"`
	Thresholds thresholdsPayload    `json:"thresholds"`
}

func handleAPIHealth(health HealthSource, t domain.Thresholds) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		snap := health.Snapshot()
		writeJSON(w, http.StatusOK, apiHealthResponse{
			Status:  snap.Status,
			Metrics: snap.Metrics,
			Thresholds: thresholdsPayload{
				FailureThreshold:  t.FailureThreshold,
				RecoveryThreshold: t.RecoveryThreshold,
				SlowProbeCutoff:   t.SlowProbeCutoff.String(),
			},
		})
	}
}

func handleDiagnostics(diagnostics DiagnosticsSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, diagnostics.Collect(r.Context()))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort health response
}
