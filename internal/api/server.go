package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/diogoX451/mentor/internal/api/dto"
	"github.com/diogoX451/mentor/internal/core/service"
)

const version = "0.1.0"

// Server encapsula todas dependências da API
type Server struct {
	router *chi.Mux
	core   *service.Orchestrator
}

// NewServer cria server com dependências injetadas
func NewServer(core *service.Orchestrator) *Server {
	s := &Server{
		router: chi.NewRouter(),
		core:   core,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(120 * time.Second))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics",
		promhttp.HandlerFor(s.core.Gatherer(), promhttp.HandlerOpts{}))

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/workflows", s.handleCreateWorkflow)
		r.Post("/workflows/{id}/execute", s.handleExecuteWorkflow)
		r.Get("/workflows/{id}/status", s.handleWorkflowStatus)

		r.Post("/work", s.handleSubmitWork)

		r.Get("/dashboard", s.handleDashboard)
		r.Get("/scheduler/status", s.handleSchedulerStatus)
		r.Get("/cache/stats", s.handleCacheStats)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler: Health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dash := s.core.Dashboard(r.Context())
	respondJSON(w, http.StatusOK, dto.HealthResponse{
		Status:    dash.SystemHealth,
		Timestamp: time.Now(),
		Version:   version,
		Uptime:    dash.Uptime.String(),
	})
}

// Helper: Responder JSON
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Helper: Responder erro
func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
