package ai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nyashahama/scenario-outcome-analyzer/internal/analysis"
)

// fallbackGenerator wraps two Generator implementations. It calls the primary
// first; if that returns an error it logs the failure and tries the
// secondary. This gives you OpenAI as the default with Anthropic as the
// safety net (or either with the rule-based generator as the last resort —
// the chain is assembled in main.go).
type fallbackGenerator struct {
	primary   analysis.Generator
	secondary analysis.Generator
	logger    *slog.Logger
}

// NewFallbackGenerator returns a Generator that calls primary and, on
// failure, falls back to secondary. Either argument may be nil — if primary
// is nil it goes straight to secondary; if secondary is nil and primary
// fails, the primary error is returned directly.
func NewFallbackGenerator(primary, secondary analysis.Generator, logger *slog.Logger) analysis.Generator {
	return &fallbackGenerator{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

// GenerateOutcomes tries the primary Generator. If it fails and a secondary
// is configured, it logs the primary error and tries the secondary.
func (f *fallbackGenerator) GenerateOutcomes(ctx context.Context, situation string, contextFactors []string) ([]analysis.Outcome, error) {
	if f.primary != nil {
		outcomes, err := f.primary.GenerateOutcomes(ctx, situation, contextFactors)
		if err == nil {
			return outcomes, nil
		}
		f.logger.Warn("ai: primary generator failed, trying secondary",
			"error", err,
		)
		if f.secondary == nil {
			return nil, fmt.Errorf("ai: primary failed and no secondary configured: %w", err)
		}
	}

	return f.secondary.GenerateOutcomes(ctx, situation, contextFactors)
}
