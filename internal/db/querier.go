package db

import (
	"context"

	"github.com/google/uuid"
)

// Querier is the narrow query interface the api, store, and worker packages
// depend on. *Queries is the production implementation; tests substitute
// in-memory stubs.
type Querier interface {
	CreateAnalysis(ctx context.Context, arg CreateAnalysisParams) (Analysis, error)
	GetAnalysisByID(ctx context.Context, id uuid.UUID) (Analysis, error)
	ListAnalyses(ctx context.Context, arg ListAnalysesParams) ([]Analysis, error)
	ListPendingAnalyses(ctx context.Context) ([]Analysis, error)
	SetAnalysisProcessing(ctx context.Context, id uuid.UUID) (Analysis, error)
	FinalizeAnalysis(ctx context.Context, arg FinalizeAnalysisParams) (Analysis, error)
	SetAnalysisError(ctx context.Context, arg SetAnalysisErrorParams) (Analysis, error)
	DeleteAnalysis(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

var _ Querier = (*Queries)(nil)
