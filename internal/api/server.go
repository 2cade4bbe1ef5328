package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/analyzer"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/config"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/llm"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/pipeline"
)

// Server is the HTTP API for submitting reports and fetching highlights.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	deps         *analyzer.Deps
	stats        *llm.LLMStats
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. deps supplies the
// backend identity and the caches cleared by DELETE /api/cache.
func NewServer(orch *pipeline.Orchestrator, deps *analyzer.Deps, stats *llm.LLMStats, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		deps:         deps,
		stats:        stats,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey))

		r.Post("/api/analyze", s.handleAnalyze)
		r.Route("/api/analyze/{jobID}", func(r chi.Router) {
			r.Get("/status", s.handleStatus)
			r.Get("/result", s.handleResult)
			r.Get("/export", s.handleExport)
			r.Delete("/", s.handleCancel)
		})
		r.Delete("/api/cache", s.handleClearCache)
		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
