package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/nyashahama/scenario-outcome-analyzer/internal/analysis"
	"github.com/nyashahama/scenario-outcome-analyzer/internal/db"
	"github.com/nyashahama/scenario-outcome-analyzer/internal/format"
	"github.com/nyashahama/scenario-outcome-analyzer/internal/store"
)

// ─── POST /api/analyses ───────────────────────────────────────────────────────

type createAnalysisRequest struct {
	Situation string `json:"situation"`

	// Context is an optional map of key/value pairs describing the
	// situation's surroundings, e.g. {"industry": "logistics"}.
	Context map[string]string `json:"context"`

	// CallbackURL, if set, receives a webhook when the analysis completes.
	CallbackURL string `json:"callback_url"`
}

type createAnalysisResponse struct {
	AnalysisID string `json:"analysis_id"`
	Status     string `json:"status"`
	StatusURL  string `json:"status_url"`
}

// handleCreateAnalysis accepts a scenario, persists it in pending status, and
// hands it to the background worker. Returns 202 immediately — clients poll
// the status URL or supply a callback_url.
func (s *Server) handleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	var req createAnalysisRequest
	if !decode(w, r, &req) {
		return
	}

	scenario := analysis.Scenario{Situation: req.Situation, Context: req.Context}
	if err := scenario.Validate(); err != nil {
		respondErr(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.CallbackURL != "" {
		u, err := url.Parse(req.CallbackURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			respondErr(w, http.StatusBadRequest, "callback_url must be an http or https URL")
			return
		}
	}

	contextJSON, err := encodeContext(req.Context)
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("encode context: %w", err))
		return
	}

	row, err := s.q.CreateAnalysis(r.Context(), db.CreateAnalysisParams{
		Situation:   strings.TrimSpace(req.Situation),
		Context:     contextJSON,
		CallbackUrl: nullString(req.CallbackURL),
	})
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("create analysis: %w", err))
		return
	}

	// Enqueue failure is not fatal — the recovery poller picks up any
	// pending row within one poll interval.
	if err := s.worker.Enqueue(r.Context(), row.ID); err != nil {
		s.logger.Warn("create analysis: enqueue failed, deferring to poller",
			"analysis_id", row.ID,
			"error", err,
			logField(r),
		)
	}

	respond(w, http.StatusAccepted, createAnalysisResponse{
		AnalysisID: row.ID.String(),
		Status:     string(row.Status),
		StatusURL:  fmt.Sprintf("%s/api/analyses/%s/status", s.cfg.BaseURL, row.ID),
	})
}

// ─── POST /api/analyses/sync ──────────────────────────────────────────────────

type syncAnalysisRequest struct {
	Situation string            `json:"situation"`
	Context   map[string]string `json:"context"`
}

// handleAnalyzeSync runs the full pipeline inline and returns the result in
// the response body. Nothing is persisted — callers who want a stored,
// retrievable analysis should use the asynchronous endpoint.
func (s *Server) handleAnalyzeSync(w http.ResponseWriter, r *http.Request) {
	var req syncAnalysisRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := s.analyzer.Analyze(r.Context(), analysis.Scenario{
		Situation: req.Situation,
		Context:   req.Context,
	})
	if err != nil {
		s.respondAnalysisErr(w, r, err)
		return
	}

	respond(w, http.StatusOK, result)
}

// respondAnalysisErr maps the analysis error taxonomy onto HTTP status codes.
func (s *Server) respondAnalysisErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, analysis.ErrInvalidInput):
		respondErr(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, analysis.ErrMalformedResponse):
		respondErr(w, http.StatusBadGateway, "generator returned an unusable response")
	case errors.Is(err, analysis.ErrCollaboratorTimeout):
		respondErr(w, http.StatusGatewayTimeout, "generation timed out")
	case errors.Is(err, analysis.ErrCollaboratorUnavailable):
		respondErr(w, http.StatusServiceUnavailable, "generator is unavailable, try again later")
	default:
		s.respondInternalErr(w, r, err)
	}
}

// ─── GET /api/analyses ────────────────────────────────────────────────────────

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type listAnalysesResponse struct {
	Analyses []analysisSummary `json:"analyses"`
	Count    int               `json:"count"`
}

type analysisSummary struct {
	AnalysisID string `json:"analysis_id"`
	Situation  string `json:"situation"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
}

// handleListAnalyses returns recent analyses, newest first. Supports
// ?limit=N (default 20, max 100) and ?status=pending|processing|ready|error.
func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	limit := int32(defaultListLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondErr(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n > maxListLimit {
			n = maxListLimit
		}
		limit = int32(n)
	}

	var status db.NullAnalysisStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		st := db.AnalysisStatus(raw)
		if !st.Valid() {
			respondErr(w, http.StatusBadRequest, "unknown status: "+raw)
			return
		}
		status = db.NullAnalysisStatus{AnalysisStatus: st, Valid: true}
	}

	rows, err := s.q.ListAnalyses(r.Context(), db.ListAnalysesParams{
		Status: status,
		Limit:  limit,
	})
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("list analyses: %w", err))
		return
	}

	summaries := make([]analysisSummary, len(rows))
	for i, row := range rows {
		summaries[i] = analysisSummary{
			AnalysisID: row.ID.String(),
			Situation:  row.Situation,
			Status:     string(row.Status),
			CreatedAt:  row.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
	}

	respond(w, http.StatusOK, listAnalysesResponse{Analyses: summaries, Count: len(summaries)})
}

// ─── GET /api/analyses/:analysisID ───────────────────────────────────────────

type analysisResponse struct {
	AnalysisID  string           `json:"analysis_id"`
	Situation   string           `json:"situation"`
	Status      string           `json:"status"`
	Error       string           `json:"error,omitempty"`
	Result      *analysis.Result `json:"result,omitempty"`
	CreatedAt   string           `json:"created_at"`
	CompletedAt string           `json:"completed_at,omitempty"`
}

// handleGetAnalysis serves a stored analysis. Returns 404 for an unknown id
// and 202 Accepted while the analysis is still being generated so the client
// can poll.
func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	row, ok := s.loadAnalysis(w, r)
	if !ok {
		return
	}

	switch row.Status {
	case db.AnalysisStatusPending, db.AnalysisStatusProcessing:
		respond(w, http.StatusAccepted, map[string]string{
			"analysis_id": row.ID.String(),
			"status":      string(row.Status),
			"message":     "analysis is being generated, please check back shortly",
		})
		return
	case db.AnalysisStatusError:
		respond(w, http.StatusOK, analysisResponse{
			AnalysisID: row.ID.String(),
			Situation:  row.Situation,
			Status:     string(row.Status),
			Error:      row.ErrorMessage.String,
			CreatedAt:  row.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
		return
	}

	result, err := store.DecodeResult(row)
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("decode result: %w", err))
		return
	}

	completedAt := ""
	if row.CompletedAt.Valid {
		completedAt = row.CompletedAt.Time.UTC().Format("2006-01-02T15:04:05Z")
	}

	respond(w, http.StatusOK, analysisResponse{
		AnalysisID:  row.ID.String(),
		Situation:   row.Situation,
		Status:      string(row.Status),
		Result:      result,
		CreatedAt:   row.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		CompletedAt: completedAt,
	})
}

// ─── GET /api/analyses/:analysisID/status ────────────────────────────────────

type analysisStatusResponse struct {
	AnalysisID string `json:"analysis_id"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

// handleGetAnalysisStatus is the lightweight polling endpoint — status only,
// no result payload.
func (s *Server) handleGetAnalysisStatus(w http.ResponseWriter, r *http.Request) {
	row, ok := s.loadAnalysis(w, r)
	if !ok {
		return
	}

	respond(w, http.StatusOK, analysisStatusResponse{
		AnalysisID: row.ID.String(),
		Status:     string(row.Status),
		Error:      row.ErrorMessage.String,
	})
}

// ─── GET /api/analyses/:analysisID/report ────────────────────────────────────

// handleGetAnalysisReport serves the plain-text rendering of a completed
// analysis, suitable for terminals and email bodies.
func (s *Server) handleGetAnalysisReport(w http.ResponseWriter, r *http.Request) {
	row, ok := s.loadAnalysis(w, r)
	if !ok {
		return
	}

	switch row.Status {
	case db.AnalysisStatusPending, db.AnalysisStatusProcessing:
		respond(w, http.StatusAccepted, map[string]string{
			"status":  string(row.Status),
			"message": "analysis is being generated, please check back shortly",
		})
		return
	case db.AnalysisStatusError:
		respondErr(w, http.StatusConflict, "analysis failed: "+row.ErrorMessage.String)
		return
	}

	result, err := store.DecodeResult(row)
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("decode result: %w", err))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(format.Render(result)))
}

// ─── DELETE /api/analyses/:analysisID ────────────────────────────────────────

// handleDeleteAnalysis removes a stored analysis. 404 for unknown ids, 204 on
// success.
func (s *Server) handleDeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	analysisID, err := uuid.Parse(chi.URLParam(r, "analysisID"))
	if err != nil {
		respondErr(w, http.StatusBadRequest, "invalid analysis id")
		return
	}

	if _, err := s.q.DeleteAnalysis(r.Context(), analysisID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondErr(w, http.StatusNotFound, "analysis not found")
			return
		}
		s.respondInternalErr(w, r, fmt.Errorf("delete analysis: %w", err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ─── HELPERS ─────────────────────────────────────────────────────────────────

// loadAnalysis parses the analysisID URL param and loads the row, writing the
// appropriate error response itself. Returns ok=false when a response has
// already been written.
func (s *Server) loadAnalysis(w http.ResponseWriter, r *http.Request) (db.Analysis, bool) {
	analysisID, err := uuid.Parse(chi.URLParam(r, "analysisID"))
	if err != nil {
		respondErr(w, http.StatusBadRequest, "invalid analysis id")
		return db.Analysis{}, false
	}

	row, err := s.q.GetAnalysisByID(r.Context(), analysisID)
	if errors.Is(err, sql.ErrNoRows) {
		respondErr(w, http.StatusNotFound, "analysis not found")
		return db.Analysis{}, false
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("get analysis: %w", err))
		return db.Analysis{}, false
	}

	return row, true
}

// nullString converts a Go string to sql.NullString. Empty string → NULL.
func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

// encodeContext marshals the caller-supplied context map for the jsonb
// column. An empty map stores as NULL.
func encodeContext(contextFactors map[string]string) (pqtype.NullRawMessage, error) {
	if len(contextFactors) == 0 {
		return pqtype.NullRawMessage{}, nil
	}
	raw, err := json.Marshal(contextFactors)
	if err != nil {
		return pqtype.NullRawMessage{}, err
	}
	return pqtype.NullRawMessage{RawMessage: raw, Valid: true}, nil
}
