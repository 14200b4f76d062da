package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

const analysisColumns = `id, situation, context, status, result, error_message, callback_url, created_at, updated_at, completed_at`

// scanAnalysis reads one analyses row in column order.
func scanAnalysis(row *sql.Row) (Analysis, error) {
	var a Analysis
	err := row.Scan(
		&a.ID,
		&a.Situation,
		&a.Context,
		&a.Status,
		&a.Result,
		&a.ErrorMessage,
		&a.CallbackUrl,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.CompletedAt,
	)
	return a, err
}

func scanAnalyses(rows *sql.Rows) ([]Analysis, error) {
	defer rows.Close()
	var items []Analysis
	for rows.Next() {
		var a Analysis
		if err := rows.Scan(
			&a.ID,
			&a.Situation,
			&a.Context,
			&a.Status,
			&a.Result,
			&a.ErrorMessage,
			&a.CallbackUrl,
			&a.CreatedAt,
			&a.UpdatedAt,
			&a.CompletedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

// ─── CREATE ───────────────────────────────────────────────────────────────────

const createAnalysis = `
INSERT INTO analyses (situation, context, callback_url)
VALUES ($1, $2, $3)
RETURNING ` + analysisColumns

type CreateAnalysisParams struct {
	Situation   string
	Context     pqtype.NullRawMessage
	CallbackUrl sql.NullString
}

// CreateAnalysis inserts a new analysis in pending status.
func (q *Queries) CreateAnalysis(ctx context.Context, arg CreateAnalysisParams) (Analysis, error) {
	return scanAnalysis(q.db.QueryRowContext(ctx, createAnalysis, arg.Situation, arg.Context, arg.CallbackUrl))
}

// ─── READ ────────────────────────────────────────────────────────────────────

const getAnalysisByID = `
SELECT ` + analysisColumns + `
FROM analyses
WHERE id = $1`

func (q *Queries) GetAnalysisByID(ctx context.Context, id uuid.UUID) (Analysis, error) {
	return scanAnalysis(q.db.QueryRowContext(ctx, getAnalysisByID, id))
}

const listAnalyses = `
SELECT ` + analysisColumns + `
FROM analyses
WHERE $1::analysis_status IS NULL OR status = $1
ORDER BY created_at DESC
LIMIT $2`

type ListAnalysesParams struct {
	Status NullAnalysisStatus
	Limit  int32
}

// ListAnalyses returns the most recent analyses, optionally filtered by
// status.
func (q *Queries) ListAnalyses(ctx context.Context, arg ListAnalysesParams) ([]Analysis, error) {
	rows, err := q.db.QueryContext(ctx, listAnalyses, arg.Status, arg.Limit)
	if err != nil {
		return nil, err
	}
	return scanAnalyses(rows)
}

const listPendingAnalyses = `
SELECT ` + analysisColumns + `
FROM analyses
WHERE status = 'pending'
   OR (status = 'processing' AND updated_at < now() - interval '10 minutes')
ORDER BY created_at
LIMIT 50`

// ListPendingAnalyses returns analyses awaiting a worker: everything still
// pending, plus processing rows stale enough to have been orphaned by a
// crashed process.
func (q *Queries) ListPendingAnalyses(ctx context.Context) ([]Analysis, error) {
	rows, err := q.db.QueryContext(ctx, listPendingAnalyses)
	if err != nil {
		return nil, err
	}
	return scanAnalyses(rows)
}

// ─── LIFECYCLE UPDATES ───────────────────────────────────────────────────────

const setAnalysisProcessing = `
UPDATE analyses
SET status = 'processing', updated_at = now()
WHERE id = $1
RETURNING ` + analysisColumns

func (q *Queries) SetAnalysisProcessing(ctx context.Context, id uuid.UUID) (Analysis, error) {
	return scanAnalysis(q.db.QueryRowContext(ctx, setAnalysisProcessing, id))
}

const finalizeAnalysis = `
UPDATE analyses
SET status = 'ready',
    result = $2,
    error_message = NULL,
    updated_at = now(),
    completed_at = now()
WHERE id = $1
RETURNING ` + analysisColumns

type FinalizeAnalysisParams struct {
	ID     uuid.UUID
	Result pqtype.NullRawMessage
}

func (q *Queries) FinalizeAnalysis(ctx context.Context, arg FinalizeAnalysisParams) (Analysis, error) {
	return scanAnalysis(q.db.QueryRowContext(ctx, finalizeAnalysis, arg.ID, arg.Result))
}

const setAnalysisError = `
UPDATE analyses
SET status = 'error',
    result = NULL,
    error_message = $2,
    updated_at = now(),
    completed_at = now()
WHERE id = $1
RETURNING ` + analysisColumns

type SetAnalysisErrorParams struct {
	ID           uuid.UUID
	ErrorMessage sql.NullString
}

// SetAnalysisError records a permanent failure. result is cleared — a failed
// analysis never carries a partial snapshot.
func (q *Queries) SetAnalysisError(ctx context.Context, arg SetAnalysisErrorParams) (Analysis, error) {
	return scanAnalysis(q.db.QueryRowContext(ctx, setAnalysisError, arg.ID, arg.ErrorMessage))
}

// ─── DELETE ──────────────────────────────────────────────────────────────────

const deleteAnalysis = `
DELETE FROM analyses
WHERE id = $1
RETURNING id`

// DeleteAnalysis removes an analysis. sql.ErrNoRows signals an unknown id.
func (q *Queries) DeleteAnalysis(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var deleted uuid.UUID
	err := q.db.QueryRowContext(ctx, deleteAnalysis, id).Scan(&deleted)
	return deleted, err
}
