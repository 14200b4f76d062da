package ai

import (
	"context"

	"github.com/nyashahama/scenario-outcome-analyzer/internal/analysis"
)

// ruleBasedGenerator produces a fixed best/likely/challenging/worst outcome
// set without any network call. It serves two roles: the collaborator of
// last resort when no API key is configured, and a deterministic generator
// for demos and tests.
type ruleBasedGenerator struct{}

// NewRuleBasedGenerator returns the offline Generator.
func NewRuleBasedGenerator() analysis.Generator {
	return ruleBasedGenerator{}
}

// GenerateOutcomes returns the canonical four-outcome spread. The input is
// ignored by design — this generator models the shape of an analysis, not
// the situation itself.
func (ruleBasedGenerator) GenerateOutcomes(_ context.Context, _ string, _ []string) ([]analysis.Outcome, error) {
	return []analysis.Outcome{
		{
			Description:   "Optimal outcome - all factors align favorably",
			Probability:   0.25,
			Category:      analysis.CategoryOpportunity,
			Impact:        analysis.ImpactHigh,
			RiskFactors:   []string{"Overconfidence", "External disruptions"},
			Opportunities: []string{"Maximum benefit realization", "Positive momentum"},
			Timeline:      "Short to medium term",
			Confidence:    0.7,
		},
		{
			Description:   "Expected outcome - moderate success with some challenges",
			Probability:   0.45,
			Category:      analysis.CategoryNeutral,
			Impact:        analysis.ImpactMedium,
			RiskFactors:   []string{"Resource constraints", "Execution challenges"},
			Opportunities: []string{"Learning opportunities", "Incremental progress"},
			Timeline:      "Medium term",
			Confidence:    0.85,
		},
		{
			Description:   "Difficult outcome - significant obstacles encountered",
			Probability:   0.25,
			Category:      analysis.CategoryRisk,
			Impact:        analysis.ImpactMedium,
			RiskFactors:   []string{"Major setbacks", "Resource depletion"},
			Opportunities: []string{"Resilience building", "Alternative paths"},
			Timeline:      "Extended timeline",
			Confidence:    0.75,
		},
		{
			Description:   "Adverse outcome - multiple failures compound",
			Probability:   0.05,
			Category:      analysis.CategoryRisk,
			Impact:        analysis.ImpactHigh,
			RiskFactors:   []string{"Complete failure", "Reputation damage"},
			Opportunities: []string{"Lessons learned", "Fresh start potential"},
			Timeline:      "Long term recovery",
			Confidence:    0.6,
		},
	}, nil
}
