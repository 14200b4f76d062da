// Package api implements the HTTP layer for the Scenario Outcome Analyzer.
// Handlers are methods on *Server. Each handler file is responsible for one
// resource group and only imports the dependencies it actually uses.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nyashahama/scenario-outcome-analyzer/internal/analysis"
	"github.com/nyashahama/scenario-outcome-analyzer/internal/db"
	"github.com/nyashahama/scenario-outcome-analyzer/internal/worker"
)

// Config holds values read from environment variables at startup.
type Config struct {
	// BaseURL is used to construct result links in webhook payloads and
	// response bodies. e.g. "https://analyzer.example.com"
	BaseURL string

	// Env is "production", "staging", or "development".
	Env string

	// Models lists the generator backends available in this deployment, in
	// fallback order. Served verbatim by GET /api/models.
	Models []string
}

// Server holds all shared dependencies. Each handler file attaches methods to
// this type and uses only the fields it needs.
type Server struct {
	// q handles all single-query reads. Injected directly — no repo wrapper.
	q db.Querier

	// analyzer runs the full scenario pipeline for the synchronous endpoint.
	analyzer *analysis.Analyzer

	// worker enqueues background analyses after the row is created.
	worker worker.Enqueuer

	cfg    Config
	logger *slog.Logger
}

// NewServer constructs the Server and wires the chi router. The returned
// http.Handler is ready to pass to http.ListenAndServe.
func NewServer(
	q db.Querier,
	analyzer *analysis.Analyzer,
	enqueuer worker.Enqueuer,
	cfg Config,
	logger *slog.Logger,
) http.Handler {
	s := &Server{
		q:        q,
		analyzer: analyzer,
		worker:   enqueuer,
		cfg:      cfg,
		logger:   logger,
	}

	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// ── Global middleware ─────────────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)
	// The synchronous endpoint waits on the AI provider, so the global
	// timeout has to cover a full generation round-trip.
	r.Use(middleware.Timeout(2 * time.Minute))

	// ── Health ────────────────────────────────────────────────────────────────
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// ── API v1 ────────────────────────────────────────────────────────────────
	r.Route("/api", func(r chi.Router) {

		r.Route("/analyses", func(r chi.Router) {
			r.Post("/", s.handleCreateAnalysis)
			r.Post("/sync", s.handleAnalyzeSync)
			r.Get("/", s.handleListAnalyses)

			r.Route("/{analysisID}", func(r chi.Router) {
				r.Get("/", s.handleGetAnalysis)
				r.Get("/status", s.handleGetAnalysisStatus)
				r.Get("/report", s.handleGetAnalysisReport)
				r.Delete("/", s.handleDeleteAnalysis)
			})
		})

		r.Get("/models", s.handleListModels)
		r.Get("/examples", s.handleListExamples)
	})

	return r
}
