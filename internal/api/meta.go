package api

import (
	"net/http"

	"github.com/nyashahama/scenario-outcome-analyzer/internal/examples"
)

// ─── GET /api/models ─────────────────────────────────────────────────────────

type listModelsResponse struct {
	// Models lists backends in fallback order — the first entry handles
	// requests unless it fails.
	Models []string `json:"models"`
}

// handleListModels reports which generator backends this deployment runs.
// The list is fixed at startup from configuration.
func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, listModelsResponse{Models: s.cfg.Models})
}

// ─── GET /api/examples ───────────────────────────────────────────────────────

type listExamplesResponse struct {
	Examples []examples.Example `json:"examples"`
}

// handleListExamples serves the built-in example scenarios, ready to paste
// into POST /api/analyses.
func (s *Server) handleListExamples(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, listExamplesResponse{Examples: examples.List()})
}
