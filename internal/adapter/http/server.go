package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/avalanche-forecast-etl/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RunStatus exposes the scheduler state served by the probe endpoints.
type RunStatus interface {
	sharedobs.ReadinessChecker
	LastReport() (pipeline.Report, bool)
}

// Server serves probes, metrics, and the last run report while the
// scheduler runs in the background.
type Server struct {
	httpServer *http.Server
	status     RunStatus
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// /runs/last routes.
func NewServer(addr string, status RunStatus, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		status: status,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(status))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /runs/last", s.handleLastRun)

	return s
}

func (s *Server) handleLastRun(w http.ResponseWriter, _ *http.Request) {
	report, ok := s.status.LastReport()
	if !ok {
		sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "no run has completed yet"})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, report)
}

// Start listens until Shutdown. Returns http.ErrServerClosed after a graceful stop.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP dispatches to the route mux.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
