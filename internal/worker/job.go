package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/nyashahama/scenario-outcome-analyzer/internal/analysis"
	"github.com/nyashahama/scenario-outcome-analyzer/internal/db"
	"github.com/nyashahama/scenario-outcome-analyzer/internal/notify"
	"github.com/nyashahama/scenario-outcome-analyzer/internal/store"
)

// Job holds the dependencies for the analyze-and-persist pipeline. Each step
// is a separate method so they can be tested independently and so the Run
// method reads like a checklist.
type Job struct {
	q        db.Querier
	store    *store.Store
	analyzer *analysis.Analyzer
	notifier notify.Sender
	logger   *slog.Logger
}

// NewJob constructs a Job with all required dependencies.
func NewJob(
	q db.Querier,
	st *store.Store,
	analyzer *analysis.Analyzer,
	notifier notify.Sender,
	logger *slog.Logger,
) *Job {
	return &Job{
		q:        q,
		store:    st,
		analyzer: analyzer,
		notifier: notifier,
		logger:   logger,
	}
}

// Run executes the full pipeline for a single analysis:
//
//  1. Load the analysis row; skip if it already completed.
//  2. Claim it (status=processing).
//  3. Run the Analyzer against the stored scenario.
//  4. Persist the validated result atomically via the store.
//  5. Fire the completion webhook if a callback URL was supplied.
//
// A retryable error is returned to the Runner, which will retry up to
// MaxRetries before calling fail. Invalid input is not retryable — the row
// is marked failed immediately and Run returns nil.
func (j *Job) Run(ctx context.Context, analysisID uuid.UUID) error {
	log := j.logger.With("analysis_id", analysisID)
	log.Info("job: starting")

	// ── 1. Load ───────────────────────────────────────────────────────────────
	row, err := j.q.GetAnalysisByID(ctx, analysisID)
	if err != nil {
		return fmt.Errorf("job: get analysis: %w", err)
	}
	if row.Status == db.AnalysisStatusReady {
		// Channel and recovery poller can race; a completed row is a no-op.
		log.Debug("job: analysis already completed, skipping")
		return nil
	}

	// ── 2. Claim ──────────────────────────────────────────────────────────────
	if _, err := j.q.SetAnalysisProcessing(ctx, analysisID); err != nil {
		return fmt.Errorf("job: set processing: %w", err)
	}

	scenario, err := scenarioFromRow(row)
	if err != nil {
		// The row is unreadable — our own write is corrupt. Permanent.
		j.fail(ctx, row, err.Error())
		return nil
	}

	// ── 3. Analyze ────────────────────────────────────────────────────────────
	result, err := j.analyzer.Analyze(ctx, scenario)
	if err != nil {
		if errors.Is(err, analysis.ErrInvalidInput) {
			// Retrying identical input cannot succeed.
			j.fail(ctx, row, err.Error())
			return nil
		}
		// Malformed responses, timeouts, and outages are worth another
		// attempt — surface to the Runner's retry loop.
		return fmt.Errorf("job: analyze: %w", err)
	}

	log.Debug("job: analysis complete",
		"outcomes", len(result.Outcomes),
		"recommendations", len(result.Recommendations),
	)

	// ── 4. Persist ────────────────────────────────────────────────────────────
	final, err := j.store.PersistAnalysisResult(ctx, store.PersistAnalysisResultParams{
		AnalysisID: analysisID,
		Result:     result,
	})
	if errors.Is(err, store.ErrAnalysisAlreadyCompleted) {
		log.Debug("job: another worker completed this analysis first")
		return nil
	}
	if err != nil {
		return fmt.Errorf("job: persist result: %w", err)
	}

	log.Info("job: analysis persisted", "status", final.Status)

	// ── 5. Notify ─────────────────────────────────────────────────────────────
	// Webhook failure must not fail the job — the result is ready and
	// fetchable regardless. Log and return nil.
	j.sendNotification(ctx, final, "")

	return nil
}

// fail marks the analysis permanently failed and fires the failure webhook.
// Called for non-retryable errors and by the Runner after exhausting retries.
func (j *Job) fail(ctx context.Context, row db.Analysis, reason string) {
	log := j.logger.With("analysis_id", row.ID)

	failed, err := j.store.MarkAnalysisFailed(ctx, row.ID, reason)
	if err != nil {
		log.Error("job: failed to mark analysis as failed", "error", err)
		failed = row // still attempt the webhook with what we have
	}

	j.sendNotification(ctx, failed, reason)
}

// sendNotification fires the completion webhook when a callback URL exists.
func (j *Job) sendNotification(ctx context.Context, row db.Analysis, reason string) {
	if !row.CallbackUrl.Valid || row.CallbackUrl.String == "" {
		return
	}

	status := string(row.Status)
	if err := j.notifier.SendCompletion(ctx, notify.CompletionParams{
		CallbackURL: row.CallbackUrl.String,
		AnalysisID:  row.ID.String(),
		Status:      status,
		Error:       reason,
	}); err != nil {
		j.logger.Error("job: completion webhook failed",
			"analysis_id", row.ID,
			"callback_url", row.CallbackUrl.String,
			"error", err,
		)
	}
}

// scenarioFromRow rebuilds the analysis.Scenario from the persisted row.
func scenarioFromRow(row db.Analysis) (analysis.Scenario, error) {
	sc := analysis.Scenario{Situation: row.Situation}
	if row.Context.Valid && len(row.Context.RawMessage) > 0 {
		if err := json.Unmarshal(row.Context.RawMessage, &sc.Context); err != nil {
			return analysis.Scenario{}, fmt.Errorf("job: decode context jsonb: %w", err)
		}
	}
	return sc, nil
}
