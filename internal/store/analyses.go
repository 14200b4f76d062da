package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/nyashahama/scenario-outcome-analyzer/internal/analysis"
	"github.com/nyashahama/scenario-outcome-analyzer/internal/db"
)

// ─── INPUT TYPES ─────────────────────────────────────────────────────────────

// PersistAnalysisResultParams is everything the worker hands to the store
// once the analyzer has produced a validated result.
type PersistAnalysisResultParams struct {
	AnalysisID uuid.UUID
	Result     *analysis.Result // validated — from Analyzer.Analyze
}

// ─── ERRORS ──────────────────────────────────────────────────────────────────

// ErrAnalysisAlreadyCompleted is returned by PersistAnalysisResult when the
// analysis row is already in ready status. The worker should treat this as
// idempotent success — a duplicate enqueue (channel + recovery poller racing)
// must not overwrite a completed result.
var ErrAnalysisAlreadyCompleted = errors.New("store: analysis already completed")

// ─── METHODS ─────────────────────────────────────────────────────────────────

// PersistAnalysisResult is called by the background worker once an analysis
// succeeds. It atomically:
//
//  1. Re-reads the row and checks it has not already been completed
//     (idempotency guard against the channel/poller double-delivery race).
//  2. Serialises the Result snapshot.
//  3. Finalises the row (status=ready, result jsonb, completed_at).
//
// If any step fails the transaction rolls back, leaving the analysis in its
// previous state for the worker's retry loop to pick up again.
func (s *Store) PersistAnalysisResult(ctx context.Context, p PersistAnalysisResultParams) (db.Analysis, error) {
	var final db.Analysis

	err := s.withTx(ctx, func(ctx context.Context, q db.Querier) error {
		// 1. Guard: under serializable isolation only one writer can move the
		// row to ready; a second concurrent worker sees the first commit here.
		existing, err := q.GetAnalysisByID(ctx, p.AnalysisID)
		if err != nil {
			return fmt.Errorf("PersistAnalysisResult: get analysis: %w", err)
		}
		if existing.Status == db.AnalysisStatusReady {
			final = existing
			return ErrAnalysisAlreadyCompleted
		}

		// 2. Snapshot the validated result.
		resultJSON, err := json.Marshal(p.Result)
		if err != nil {
			return fmt.Errorf("PersistAnalysisResult: marshal result JSON: %w", err)
		}

		// 3. Finalise.
		finalised, err := q.FinalizeAnalysis(ctx, db.FinalizeAnalysisParams{
			ID: p.AnalysisID,
			Result: pqtype.NullRawMessage{
				RawMessage: resultJSON,
				Valid:      true,
			},
		})
		if err != nil {
			return fmt.Errorf("PersistAnalysisResult: finalize analysis: %w", err)
		}

		final = finalised
		return nil
	})

	// Unwrap the sentinel so callers can check with errors.Is without needing
	// to look inside a wrapped error chain.
	if errors.Is(err, ErrAnalysisAlreadyCompleted) {
		return final, ErrAnalysisAlreadyCompleted
	}
	if err != nil {
		return db.Analysis{}, err
	}

	return final, nil
}

// MarkAnalysisFailed sets the analysis status to error with a descriptive
// message and clears any result. Called by the worker when an analysis fails
// permanently (i.e. after exhausting retries, or on a non-retryable input
// error). This is a single-query write — no transaction needed — but it
// lives here because it is logically part of the analysis lifecycle and the
// worker should not call db.Querier directly for this.
func (s *Store) MarkAnalysisFailed(ctx context.Context, analysisID uuid.UUID, reason string) (db.Analysis, error) {
	a, err := s.q.SetAnalysisError(ctx, db.SetAnalysisErrorParams{
		ID:           analysisID,
		ErrorMessage: nullString(reason),
	})
	if err != nil {
		return db.Analysis{}, fmt.Errorf("MarkAnalysisFailed: %w", err)
	}
	return a, nil
}

// nullString converts a Go string to sql.NullString. Empty string → NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// DecodeResult unmarshals the jsonb result snapshot of a ready analysis.
// Returns nil (no error) when the row carries no result.
func DecodeResult(a db.Analysis) (*analysis.Result, error) {
	if !a.Result.Valid {
		return nil, nil
	}
	var res analysis.Result
	if err := json.Unmarshal(a.Result.RawMessage, &res); err != nil {
		return nil, fmt.Errorf("store: decode result snapshot for %s: %w", a.ID, err)
	}
	return &res, nil
}
