package format_test

import (
	"slices"
	"testing"
	"time"

	"github.com/nyashahama/scenario-outcome-analyzer/internal/analysis"
	"github.com/nyashahama/scenario-outcome-analyzer/internal/format"
)

// fixture is a fixed, fully populated Result for snapshot comparison.
func fixture() *analysis.Result {
	return &analysis.Result{
		Situation:      "Launching a SaaS platform for restaurants.",
		ContextFactors: []string{"Business/Commercial context", "budget: Medium"},
		Outcomes: []analysis.Outcome{
			{
				Description:   "Launch succeeds and gains early traction",
				Probability:   0.4,
				Category:      analysis.CategoryOpportunity,
				Impact:        analysis.ImpactHigh,
				RiskFactors:   []string{"Burn rate"},
				Opportunities: []string{"Market share", "Brand recognition"},
				Timeline:      "6-12 months",
				Confidence:    0.8,
			},
			{
				Description: "Launch delayed by integration work",
				Probability: 0.35,
				Category:    analysis.CategoryNeutral,
				Impact:      analysis.ImpactMedium,
				Timeline:    "12 months",
				Confidence:  0.7,
			},
			{
				Description: "Launch fails to find customers",
				Probability: 0.1,
				Category:    analysis.CategoryRisk,
				Impact:      analysis.ImpactHigh,
				RiskFactors: []string{"Competitive pressure", "Churn"},
				Confidence:  0.6,
			},
		},
		KeyVariables:    []string{"Market conditions", "Execution capability"},
		Recommendations: []string{"Prepare primarily for: Launch succeeds and gains early traction", "Monitor key variables closely"},
		GeneratedAt:     time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

const snapshot = `SCENARIO ANALYSIS
==================================================

SITUATION: Launching a SaaS platform for restaurants.

KEY CONTEXT FACTORS:
  - Business/Commercial context
  - budget: Medium

POSSIBLE OUTCOMES:

  1. Launch succeeds and gains early traction
     Probability:   40.0%
     Impact:        High
     Category:      opportunity
     Risks:         Burn rate
     Opportunities: Market share, Brand recognition
     Timeline:      6-12 months
     Confidence:    80.0%

  2. Launch delayed by integration work
     Probability:   35.0%
     Impact:        Medium
     Category:      neutral
     Timeline:      12 months
     Confidence:    70.0%

  3. Launch fails to find customers
     Probability:   10.0%
     Impact:        High
     Category:      risk
     Risks:         Competitive pressure, Churn
     Confidence:    60.0%

KEY VARIABLES:
  - Market conditions
  - Execution capability

RECOMMENDATIONS:
  - Prepare primarily for: Launch succeeds and gains early traction
  - Monitor key variables closely

Generated: 2025-03-14T09:30:00Z
`

func TestRender_Snapshot(t *testing.T) {
	got := format.Render(fixture())
	if got != snapshot {
		t.Errorf("rendered report does not match snapshot:\n--- got ---\n%s\n--- want ---\n%s", got, snapshot)
	}
}

func TestRender_Idempotent(t *testing.T) {
	res := fixture()
	first := format.Render(res)
	second := format.Render(res)
	if first != second {
		t.Error("two renders of the same Result differ")
	}
}

func TestLines_Restartable(t *testing.T) {
	res := fixture()
	seq := format.Lines(res)

	var first, second []string
	for l := range seq {
		first = append(first, l)
	}
	for l := range seq {
		second = append(second, l)
	}

	if !slices.Equal(first, second) {
		t.Error("second iteration over Lines differs from the first")
	}
}

func TestLines_EarlyBreak(t *testing.T) {
	// Consumers may stop early; the sequence must tolerate it and restart
	// cleanly afterwards.
	seq := format.Lines(fixture())

	count := 0
	for range seq {
		count++
		if count == 3 {
			break
		}
	}

	var full []string
	for l := range seq {
		full = append(full, l)
	}
	if len(full) <= count {
		t.Errorf("restarted iteration should yield the full report, got %d lines", len(full))
	}
	if full[0] != "SCENARIO ANALYSIS" {
		t.Errorf("restarted iteration should begin at the header, got %q", full[0])
	}
}

func TestRender_DoesNotMutateResult(t *testing.T) {
	res := fixture()
	before := len(res.Outcomes)
	situation := res.Situation

	_ = format.Render(res)

	if len(res.Outcomes) != before || res.Situation != situation {
		t.Error("Render must not mutate its input")
	}
}
