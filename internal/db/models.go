package db

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// ─── ENUMS ───────────────────────────────────────────────────────────────────

// AnalysisStatus mirrors the analysis_status Postgres enum.
type AnalysisStatus string

const (
	AnalysisStatusPending    AnalysisStatus = "pending"
	AnalysisStatusProcessing AnalysisStatus = "processing"
	AnalysisStatusReady      AnalysisStatus = "ready"
	AnalysisStatusError      AnalysisStatus = "error"
)

// Valid reports whether s is one of the enum values.
func (s AnalysisStatus) Valid() bool {
	switch s {
	case AnalysisStatusPending, AnalysisStatusProcessing, AnalysisStatusReady, AnalysisStatusError:
		return true
	}
	return false
}

func (s *AnalysisStatus) Scan(src any) error {
	switch v := src.(type) {
	case string:
		*s = AnalysisStatus(v)
	case []byte:
		*s = AnalysisStatus(v)
	default:
		return fmt.Errorf("db: unsupported scan type for AnalysisStatus: %T", src)
	}
	return nil
}

func (s AnalysisStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// NullAnalysisStatus is the nullable form used by optional status filters.
type NullAnalysisStatus struct {
	AnalysisStatus AnalysisStatus
	Valid          bool
}

func (ns *NullAnalysisStatus) Scan(src any) error {
	if src == nil {
		ns.AnalysisStatus, ns.Valid = "", false
		return nil
	}
	ns.Valid = true
	return ns.AnalysisStatus.Scan(src)
}

func (ns NullAnalysisStatus) Value() (driver.Value, error) {
	if !ns.Valid {
		return nil, nil
	}
	return string(ns.AnalysisStatus), nil
}

// ─── MODELS ──────────────────────────────────────────────────────────────────

// Analysis is one row of the analyses table: the lifecycle record of a single
// scenario analysis, with the result serialised as a jsonb snapshot once
// generation completes.
type Analysis struct {
	ID           uuid.UUID
	Situation    string
	Context      pqtype.NullRawMessage // caller-supplied context pairs, jsonb
	Status       AnalysisStatus
	Result       pqtype.NullRawMessage // analysis.Result snapshot, jsonb; NULL until ready
	ErrorMessage sql.NullString
	CallbackUrl  sql.NullString
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  sql.NullTime
}
