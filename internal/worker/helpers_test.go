package worker

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/nyashahama/scenario-outcome-analyzer/internal/db"
)

// analysisRowWithContext builds a pending analysis row with the given context
// map encoded as jsonb, matching what CreateAnalysis would produce.
func analysisRowWithContext(t *testing.T, contextFactors map[string]string) db.Analysis {
	t.Helper()

	row := db.Analysis{
		ID:        uuid.New(),
		Situation: "A regional carrier is weighing a fleet electrification program",
		Status:    db.AnalysisStatusPending,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if contextFactors != nil {
		raw, err := json.Marshal(contextFactors)
		if err != nil {
			t.Fatalf("marshal context: %v", err)
		}
		row.Context = pqtype.NullRawMessage{RawMessage: raw, Valid: true}
	}

	return row
}
