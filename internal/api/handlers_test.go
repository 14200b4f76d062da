package api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/nyashahama/scenario-outcome-analyzer/internal/analysis"
	"github.com/nyashahama/scenario-outcome-analyzer/internal/api"
	"github.com/nyashahama/scenario-outcome-analyzer/internal/db"
)

// ─── STUBS ────────────────────────────────────────────────────────────────────

// stubQuerier satisfies db.Querier with in-memory state.
// Fields may be set per-test to control behaviour.
type stubQuerier struct {
	db.Querier // embedded to panic on unimplemented methods

	analyses  map[uuid.UUID]db.Analysis
	createErr error
}

func newStubQuerier() *stubQuerier {
	return &stubQuerier{analyses: make(map[uuid.UUID]db.Analysis)}
}

func (q *stubQuerier) CreateAnalysis(_ context.Context, p db.CreateAnalysisParams) (db.Analysis, error) {
	if q.createErr != nil {
		return db.Analysis{}, q.createErr
	}
	a := db.Analysis{
		ID:          uuid.New(),
		Situation:   p.Situation,
		Context:     p.Context,
		Status:      db.AnalysisStatusPending,
		CallbackUrl: p.CallbackUrl,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	q.analyses[a.ID] = a
	return a, nil
}

func (q *stubQuerier) GetAnalysisByID(_ context.Context, id uuid.UUID) (db.Analysis, error) {
	a, ok := q.analyses[id]
	if !ok {
		return db.Analysis{}, sql.ErrNoRows
	}
	return a, nil
}

func (q *stubQuerier) ListAnalyses(_ context.Context, p db.ListAnalysesParams) ([]db.Analysis, error) {
	var out []db.Analysis
	for _, a := range q.analyses {
		if p.Status.Valid && a.Status != p.Status.AnalysisStatus {
			continue
		}
		out = append(out, a)
		if int32(len(out)) >= p.Limit {
			break
		}
	}
	return out, nil
}

func (q *stubQuerier) DeleteAnalysis(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	if _, ok := q.analyses[id]; !ok {
		return uuid.Nil, sql.ErrNoRows
	}
	delete(q.analyses, id)
	return id, nil
}

// stubWorker records enqueued jobs.
type stubWorker struct {
	enqueued []uuid.UUID
	err      error
}

func (w *stubWorker) Enqueue(_ context.Context, id uuid.UUID) error {
	w.enqueued = append(w.enqueued, id)
	return w.err
}

// stubGenerator returns canned outcomes for the synchronous endpoint.
type stubGenerator struct {
	outcomes []analysis.Outcome
	err      error
}

func (g *stubGenerator) GenerateOutcomes(_ context.Context, _ string, _ []string) ([]analysis.Outcome, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.outcomes, nil
}

func threeOutcomes() []analysis.Outcome {
	return []analysis.Outcome{
		{Description: "Steady adoption in the first year", Probability: 0.5, Category: analysis.CategoryOpportunity, Impact: analysis.ImpactMedium, Confidence: 0.7},
		{Description: "Funding runs out before launch", Probability: 0.3, Category: analysis.CategoryRisk, Impact: analysis.ImpactHigh, Confidence: 0.6},
		{Description: "No significant change", Probability: 0.2, Category: analysis.CategoryNeutral, Impact: analysis.ImpactLow, Confidence: 0.8},
	}
}

// ─── HELPERS ─────────────────────────────────────────────────────────────────

type testDeps struct {
	q       *stubQuerier
	worker  *stubWorker
	gen     *stubGenerator
	handler http.Handler
}

func newTestServer(t *testing.T) *testDeps {
	t.Helper()

	q := newStubQuerier()
	wk := &stubWorker{}
	gen := &stubGenerator{outcomes: threeOutcomes()}

	cfg := api.Config{
		Env:     "development",
		BaseURL: "http://localhost:8080",
		Models:  []string{"openai", "rule-based"},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	analyzer := analysis.NewAnalyzer(gen, analysis.Options{})

	return &testDeps{
		q:       q,
		worker:  wk,
		gen:     gen,
		handler: api.NewServer(q, analyzer, wk, cfg, logger),
	}
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		bodyReader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, bodyReader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func validSituation() string {
	return "We are deciding whether to migrate our order pipeline to a new payments vendor before the holiday peak."
}

// seedReady inserts a completed analysis with a stored result snapshot.
func seedReady(t *testing.T, q *stubQuerier) db.Analysis {
	t.Helper()

	result := analysis.Result{
		Situation:       validSituation(),
		ContextFactors:  []string{"Business and commercial dynamics"},
		Outcomes:        threeOutcomes(),
		KeyVariables:    []string{"Vendor reliability"},
		Recommendations: []string{"Prepare primarily for: Steady adoption in the first year"},
		GeneratedAt:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	raw, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}

	a := db.Analysis{
		ID:          uuid.New(),
		Situation:   result.Situation,
		Status:      db.AnalysisStatusReady,
		Result:      pqtype.NullRawMessage{RawMessage: raw, Valid: true},
		CreatedAt:   time.Now().UTC().Add(-time.Minute),
		UpdatedAt:   time.Now().UTC(),
		CompletedAt: sql.NullTime{Time: time.Now().UTC(), Valid: true},
	}
	q.analyses[a.ID] = a
	return a
}

// ─── POST /api/analyses ───────────────────────────────────────────────────────

func TestCreateAnalysisAcceptsAndEnqueues(t *testing.T) {
	deps := newTestServer(t)

	rec := doRequest(t, deps.handler, http.MethodPost, "/api/analyses", map[string]any{
		"situation": validSituation(),
		"context":   map[string]string{"industry": "payments"},
	})

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202; body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		AnalysisID string `json:"analysis_id"`
		Status     string `json:"status"`
		StatusURL  string `json:"status_url"`
	}
	decodeBody(t, rec, &resp)

	if resp.Status != "pending" {
		t.Errorf("status = %q, want pending", resp.Status)
	}
	if !strings.Contains(resp.StatusURL, resp.AnalysisID) {
		t.Errorf("status_url %q does not contain analysis id", resp.StatusURL)
	}
	if len(deps.worker.enqueued) != 1 {
		t.Fatalf("enqueued %d jobs, want 1", len(deps.worker.enqueued))
	}
	if deps.worker.enqueued[0].String() != resp.AnalysisID {
		t.Errorf("enqueued %s, want %s", deps.worker.enqueued[0], resp.AnalysisID)
	}
}

func TestCreateAnalysisRejectsEmptySituation(t *testing.T) {
	deps := newTestServer(t)

	rec := doRequest(t, deps.handler, http.MethodPost, "/api/analyses", map[string]any{
		"situation": "   ",
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(deps.worker.enqueued) != 0 {
		t.Errorf("enqueued %d jobs, want 0", len(deps.worker.enqueued))
	}
}

func TestCreateAnalysisRejectsBadCallbackURL(t *testing.T) {
	deps := newTestServer(t)

	rec := doRequest(t, deps.handler, http.MethodPost, "/api/analyses", map[string]any{
		"situation":    validSituation(),
		"callback_url": "ftp://example.com/hook",
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateAnalysisSucceedsWhenQueueFull(t *testing.T) {
	deps := newTestServer(t)
	deps.worker.err = context.DeadlineExceeded // any enqueue error

	rec := doRequest(t, deps.handler, http.MethodPost, "/api/analyses", map[string]any{
		"situation": validSituation(),
	})

	// The row exists; the poller will pick it up. Still a 202.
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
}

// ─── POST /api/analyses/sync ──────────────────────────────────────────────────

func TestAnalyzeSyncReturnsResult(t *testing.T) {
	deps := newTestServer(t)

	rec := doRequest(t, deps.handler, http.MethodPost, "/api/analyses/sync", map[string]any{
		"situation": validSituation(),
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var result analysis.Result
	decodeBody(t, rec, &result)

	if len(result.Outcomes) != 3 {
		t.Errorf("outcomes = %d, want 3", len(result.Outcomes))
	}
	if len(result.Recommendations) == 0 {
		t.Error("expected recommendations, got none")
	}
}

func TestAnalyzeSyncMapsErrorTaxonomy(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"malformed response", analysis.ErrMalformedResponse, http.StatusBadGateway},
		{"timeout", analysis.ErrCollaboratorTimeout, http.StatusGatewayTimeout},
		{"unavailable", analysis.ErrCollaboratorUnavailable, http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			deps := newTestServer(t)
			deps.gen.err = tc.err

			rec := doRequest(t, deps.handler, http.MethodPost, "/api/analyses/sync", map[string]any{
				"situation": validSituation(),
			})

			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestAnalyzeSyncRejectsInvalidInput(t *testing.T) {
	deps := newTestServer(t)

	rec := doRequest(t, deps.handler, http.MethodPost, "/api/analyses/sync", map[string]any{
		"situation": "",
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

// ─── GET /api/analyses/:id ───────────────────────────────────────────────────

func TestGetAnalysisReturnsResultWhenReady(t *testing.T) {
	deps := newTestServer(t)
	row := seedReady(t, deps.q)

	rec := doRequest(t, deps.handler, http.MethodGet, "/api/analyses/"+row.ID.String(), nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		AnalysisID string           `json:"analysis_id"`
		Status     string           `json:"status"`
		Result     *analysis.Result `json:"result"`
	}
	decodeBody(t, rec, &resp)

	if resp.Status != "ready" {
		t.Errorf("status = %q, want ready", resp.Status)
	}
	if resp.Result == nil || len(resp.Result.Outcomes) != 3 {
		t.Errorf("expected 3 outcomes in stored result")
	}
}

func TestGetAnalysisReturns202WhileGenerating(t *testing.T) {
	deps := newTestServer(t)
	a := db.Analysis{
		ID:        uuid.New(),
		Situation: validSituation(),
		Status:    db.AnalysisStatusProcessing,
		CreatedAt: time.Now().UTC(),
	}
	deps.q.analyses[a.ID] = a

	rec := doRequest(t, deps.handler, http.MethodGet, "/api/analyses/"+a.ID.String(), nil)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
}

func TestGetAnalysisExposesFailureMessage(t *testing.T) {
	deps := newTestServer(t)
	a := db.Analysis{
		ID:           uuid.New(),
		Situation:    validSituation(),
		Status:       db.AnalysisStatusError,
		ErrorMessage: sql.NullString{String: "generation timed out", Valid: true},
		CreatedAt:    time.Now().UTC(),
	}
	deps.q.analyses[a.ID] = a

	rec := doRequest(t, deps.handler, http.MethodGet, "/api/analyses/"+a.ID.String(), nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	decodeBody(t, rec, &resp)

	if resp.Status != "error" || resp.Error != "generation timed out" {
		t.Errorf("got status=%q error=%q", resp.Status, resp.Error)
	}
}

func TestGetAnalysisUnknownID(t *testing.T) {
	deps := newTestServer(t)

	rec := doRequest(t, deps.handler, http.MethodGet, "/api/analyses/"+uuid.New().String(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	rec = doRequest(t, deps.handler, http.MethodGet, "/api/analyses/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for malformed id", rec.Code)
	}
}

// ─── GET /api/analyses/:id/status ────────────────────────────────────────────

func TestGetAnalysisStatus(t *testing.T) {
	deps := newTestServer(t)
	row := seedReady(t, deps.q)

	rec := doRequest(t, deps.handler, http.MethodGet, "/api/analyses/"+row.ID.String()+"/status", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		AnalysisID string `json:"analysis_id"`
		Status     string `json:"status"`
	}
	decodeBody(t, rec, &resp)

	if resp.AnalysisID != row.ID.String() || resp.Status != "ready" {
		t.Errorf("got id=%q status=%q", resp.AnalysisID, resp.Status)
	}
}

// ─── GET /api/analyses/:id/report ────────────────────────────────────────────

func TestGetAnalysisReportRendersPlainText(t *testing.T) {
	deps := newTestServer(t)
	row := seedReady(t, deps.q)

	rec := doRequest(t, deps.handler, http.MethodGet, "/api/analyses/"+row.ID.String()+"/report", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}

	body := rec.Body.String()
	for _, want := range []string{"SCENARIO ANALYSIS", "POSSIBLE OUTCOMES", "RECOMMENDATIONS"} {
		if !strings.Contains(body, want) {
			t.Errorf("report missing section %q", want)
		}
	}
}

func TestGetAnalysisReportConflictsOnFailure(t *testing.T) {
	deps := newTestServer(t)
	a := db.Analysis{
		ID:           uuid.New(),
		Situation:    validSituation(),
		Status:       db.AnalysisStatusError,
		ErrorMessage: sql.NullString{String: "provider outage", Valid: true},
		CreatedAt:    time.Now().UTC(),
	}
	deps.q.analyses[a.ID] = a

	rec := doRequest(t, deps.handler, http.MethodGet, "/api/analyses/"+a.ID.String()+"/report", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

// ─── DELETE /api/analyses/:id ────────────────────────────────────────────────

func TestDeleteAnalysis(t *testing.T) {
	deps := newTestServer(t)
	row := seedReady(t, deps.q)

	rec := doRequest(t, deps.handler, http.MethodDelete, "/api/analyses/"+row.ID.String(), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	rec = doRequest(t, deps.handler, http.MethodDelete, "/api/analyses/"+row.ID.String(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}
}

// ─── LIST / META ─────────────────────────────────────────────────────────────

func TestListAnalysesFiltersByStatus(t *testing.T) {
	deps := newTestServer(t)
	seedReady(t, deps.q)
	pending := db.Analysis{
		ID:        uuid.New(),
		Situation: validSituation(),
		Status:    db.AnalysisStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	deps.q.analyses[pending.ID] = pending

	rec := doRequest(t, deps.handler, http.MethodGet, "/api/analyses?status=ready", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Count int `json:"count"`
	}
	decodeBody(t, rec, &resp)
	if resp.Count != 1 {
		t.Errorf("count = %d, want 1", resp.Count)
	}

	rec = doRequest(t, deps.handler, http.MethodGet, "/api/analyses?status=bogus", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bogus status filter: got %d, want 400", rec.Code)
	}
}

func TestListModels(t *testing.T) {
	deps := newTestServer(t)

	rec := doRequest(t, deps.handler, http.MethodGet, "/api/models", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Models []string `json:"models"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Models) != 2 || resp.Models[0] != "openai" {
		t.Errorf("models = %v", resp.Models)
	}
}

func TestListExamples(t *testing.T) {
	deps := newTestServer(t)

	rec := doRequest(t, deps.handler, http.MethodGet, "/api/examples", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Examples []struct {
			Title    string `json:"title"`
			Scenario struct {
				Situation string `json:"situation"`
			} `json:"scenario"`
		} `json:"examples"`
	}
	decodeBody(t, rec, &resp)

	if len(resp.Examples) == 0 {
		t.Fatal("expected at least one example")
	}
	for _, ex := range resp.Examples {
		if ex.Title == "" || ex.Scenario.Situation == "" {
			t.Errorf("example with empty fields: %+v", ex)
		}
	}
}

func TestHealthz(t *testing.T) {
	deps := newTestServer(t)

	rec := doRequest(t, deps.handler, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
