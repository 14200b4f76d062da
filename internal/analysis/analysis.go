// Package analysis implements the core scenario-analysis domain: input
// validation, the collaborator contract, response validation, and result
// assembly. It is intentionally dependency-free: it imports nothing from
// internal/ and can be tested without a database or a live AI provider.
package analysis

import (
	"strings"
	"time"
)

// ─── CONSTANTS ────────────────────────────────────────────────────────────────

// Outcome-count window enforced on every collaborator response. A response
// outside [MinOutcomes, MaxOutcomes] is out of contract and rejected with
// ErrMalformedResponse.
const (
	MinOutcomes = 3
	MaxOutcomes = 7
)

// Category is an open tag set — these are the values the collaborator is
// prompted to use, but any non-empty string is accepted.
const (
	CategoryRisk        = "risk"
	CategoryOpportunity = "opportunity"
	CategoryNeutral     = "neutral"
)

// Impact levels used in outcome annotations.
const (
	ImpactLow    = "Low"
	ImpactMedium = "Medium"
	ImpactHigh   = "High"
)

// ─── TYPES ────────────────────────────────────────────────────────────────────

// Scenario is the immutable analysis input: a non-empty situation description
// plus optional free-form context pairs ("industry": "SaaS", "budget": "High")
// that are folded into the context factors.
type Scenario struct {
	Situation string            `json:"situation"`
	Context   map[string]string `json:"context,omitempty"`
}

// Outcome is one hypothesized consequence of a Scenario.
type Outcome struct {
	Description string `json:"description"`

	// Probability is a speculative likelihood in (0, 1]. The set of outcome
	// probabilities is NOT required to sum to 1 — see Options.NormalizeProbabilities.
	Probability float64 `json:"probability"`

	// Category tags the outcome: "risk", "opportunity", "neutral", or any
	// other label the collaborator chooses.
	Category string `json:"category"`

	Impact        string   `json:"impact"` // Low | Medium | High
	RiskFactors   []string `json:"risk_factors,omitempty"`
	Opportunities []string `json:"opportunities,omitempty"`
	Timeline      string   `json:"timeline,omitempty"`

	// Confidence is the collaborator's self-reported confidence in [0, 1].
	// Unlike Probability it is advisory and clamped rather than rejected.
	Confidence float64 `json:"confidence"`
}

// Result is the complete analysis of one Scenario. It is created once per
// Analyze call and never mutated afterwards — the formatter and every other
// consumer treat it as read-only.
type Result struct {
	Situation      string    `json:"situation"`
	ContextFactors []string  `json:"context_factors"`
	Outcomes       []Outcome `json:"outcomes"` // ordered, len in [MinOutcomes, MaxOutcomes]
	KeyVariables   []string  `json:"key_variables"`
	Recommendations []string `json:"recommendations"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// ─── VALIDATION ──────────────────────────────────────────────────────────────

// Validate checks the Scenario input constraint: the situation text must be
// non-blank. Context pairs carry no structural constraints.
func (s Scenario) Validate() error {
	if strings.TrimSpace(s.Situation) == "" {
		return ErrInvalidInput
	}
	return nil
}

// validateOutcomes enforces the collaborator contract on a parsed response:
// outcome count in [MinOutcomes, MaxOutcomes] and every probability in (0, 1].
// It returns a wrapped ErrMalformedResponse describing the first violation,
// so callers can both errors.Is-check and log a useful message.
func validateOutcomes(outcomes []Outcome) error {
	if n := len(outcomes); n < MinOutcomes || n > MaxOutcomes {
		return malformedf("outcome count %d outside [%d, %d]", n, MinOutcomes, MaxOutcomes)
	}
	for i, o := range outcomes {
		if strings.TrimSpace(o.Description) == "" {
			return malformedf("outcome %d has an empty description", i)
		}
		if o.Probability <= 0 || o.Probability > 1 {
			return malformedf("outcome %d probability %g outside (0, 1]", i, o.Probability)
		}
	}
	return nil
}

// normalizeOutcome fills defaults for the advisory fields the collaborator
// may omit. Probability is deliberately NOT touched here — it is validated,
// not repaired.
func normalizeOutcome(o Outcome) Outcome {
	if strings.TrimSpace(o.Category) == "" {
		o.Category = CategoryNeutral
	}
	switch o.Impact {
	case ImpactLow, ImpactMedium, ImpactHigh:
	default:
		o.Impact = ImpactMedium
	}
	if o.Confidence < 0 {
		o.Confidence = 0
	}
	if o.Confidence > 1 {
		o.Confidence = 1
	}
	return o
}
