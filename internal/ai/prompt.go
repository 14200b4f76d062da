// Package ai provides the concrete inference collaborators behind
// analysis.Generator: OpenAI- and Anthropic-backed clients, a fallback chain,
// and an offline rule-based generator.
package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nyashahama/scenario-outcome-analyzer/internal/analysis"
)

// ─── PROMPTS ─────────────────────────────────────────────────────────────────

// The model is prompted to respond in this exact JSON shape so we can parse
// it without regex heuristics.

const systemPrompt = `You are a scenario analyst. You will receive a situation description and a list of context factors.
Generate between 3 and 7 plausible outcomes for the situation.

For each outcome provide:
- description: one clear sentence describing the outcome.
- probability: a number strictly greater than 0 and at most 1. Probabilities are independent speculative likelihoods and need NOT sum to 1.
- category: "risk", "opportunity", or "neutral".
- impact: "Low", "Medium", or "High".
- risk_factors: a short list of concrete risks tied to this outcome.
- opportunities: a short list of concrete upsides tied to this outcome.
- timeline: a rough time horizon, e.g. "Short term", "6-12 months".
- confidence: your confidence in this estimate, 0 to 1.

Respond ONLY with valid JSON matching this exact schema, no markdown fences, no preamble:
{
  "outcomes": [
    {
      "description": "...",
      "probability": 0.4,
      "category": "risk",
      "impact": "Medium",
      "risk_factors": ["..."],
      "opportunities": ["..."],
      "timeline": "...",
      "confidence": 0.8
    }
  ]
}`

// buildPrompt serialises the situation and its context factors into a compact
// user prompt.
func buildPrompt(situation string, contextFactors []string) string {
	var sb strings.Builder
	sb.WriteString("SITUATION:\n")
	sb.WriteString(strings.TrimSpace(situation))
	sb.WriteString("\n\nCONTEXT FACTORS:\n")
	for _, f := range contextFactors {
		fmt.Fprintf(&sb, "- %s\n", f)
	}
	return sb.String()
}

// ─── RESPONSE PARSING ────────────────────────────────────────────────────────

// outcomesJSON is the exact shape the model is prompted to return.
type outcomesJSON struct {
	Outcomes []outcomeJSON `json:"outcomes"`
}

type outcomeJSON struct {
	Description   string   `json:"description"`
	Probability   float64  `json:"probability"`
	Category      string   `json:"category"`
	Impact        string   `json:"impact"`
	RiskFactors   []string `json:"risk_factors"`
	Opportunities []string `json:"opportunities"`
	Timeline      string   `json:"timeline"`
	Confidence    float64  `json:"confidence"`
}

// parseOutcomes is the strict boundary between the collaborator's
// loosely-structured text and the typed domain. Anything unparsable is
// tagged analysis.ErrMalformedResponse so the Analyzer surfaces it without
// re-classifying it as a transport failure.
func parseOutcomes(raw string) ([]analysis.Outcome, error) {
	// Strip any accidental markdown fences the model may have added.
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var parsed outcomesJSON
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("%w: parse response JSON: %v (raw: %.200s)", analysis.ErrMalformedResponse, err, raw)
	}

	outcomes := make([]analysis.Outcome, len(parsed.Outcomes))
	for i, o := range parsed.Outcomes {
		outcomes[i] = analysis.Outcome{
			Description:   o.Description,
			Probability:   o.Probability,
			Category:      o.Category,
			Impact:        o.Impact,
			RiskFactors:   o.RiskFactors,
			Opportunities: o.Opportunities,
			Timeline:      o.Timeline,
			Confidence:    o.Confidence,
		}
	}
	return outcomes, nil
}
