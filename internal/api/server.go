// internal/api/server.go
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	handler "github.com/newthinker/edgeval/internal/api/handler/api"
	"github.com/newthinker/edgeval/internal/api/job"
	"github.com/newthinker/edgeval/internal/api/middleware"
	"github.com/newthinker/edgeval/internal/app"
	"github.com/newthinker/edgeval/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const healthPath = "/api/health"

// Server represents the HTTP server for the validation API
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	handler    http.Handler
}

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	APIKey      string
	MetricsPath string // empty disables the scrape endpoint
}

// Dependencies holds the services the handlers call into
type Dependencies struct {
	App  *app.App
	Jobs *job.Store
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.App == nil {
		return nil, errors.New("app dependency is required")
	}
	if deps.Jobs == nil {
		deps.Jobs = job.NewStore(100, time.Hour)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	s := &Server{
		logger: logger,
		mux:    mux,
	}
	s.setupRoutes(cfg, deps)

	reg := deps.App.Metrics()
	s.handler = metrics.LoggingMiddleware(logger)(
		metrics.HTTPMiddleware(reg)(
			middleware.APIKeyAuth(cfg.APIKey, healthPath, cfg.MetricsPath)(mux),
		),
	)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) {
	validations := handler.NewValidationHandler(deps.Jobs, deps.App, deps.App.Metrics(), s.logger)
	strategies := handler.NewStrategiesHandler(deps.App.Strategies())
	reports := handler.NewReportsHandler(deps.App)

	s.mux.HandleFunc("GET "+healthPath, s.handleHealth)
	s.mux.HandleFunc("GET /api/strategies", strategies.List)
	s.mux.HandleFunc("POST /api/validations", validations.Create)
	s.mux.HandleFunc("GET /api/validations/{id}", validations.GetStatus)
	s.mux.HandleFunc("GET /api/reports", reports.List)
	s.mux.HandleFunc("GET /api/reports/{key...}", reports.Get)

	if cfg.MetricsPath != "" {
		s.mux.Handle("GET "+cfg.MetricsPath, promhttp.HandlerFor(deps.App.Metrics(), promhttp.HandlerOpts{}))
	}
}

// Handler returns the fully wrapped handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
