// Package format renders an analysis.Result as a plain-text report. It is
// pure: no side effects, no clock reads, and it never mutates the Result —
// the same Result always renders the same text.
package format

import (
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/nyashahama/scenario-outcome-analyzer/internal/analysis"
)

const headerRule = "=================================================="

// Lines yields the report one line at a time: header, situation, context
// factors, a block per outcome, key variables, recommendations, and the
// generation timestamp. The sequence is lazy, finite, and restartable —
// ranging over it twice produces identical output.
func Lines(res *analysis.Result) iter.Seq[string] {
	return func(yield func(string) bool) {
		emit := func(lines ...string) bool {
			for _, l := range lines {
				if !yield(l) {
					return false
				}
			}
			return true
		}

		if !emit(
			"SCENARIO ANALYSIS",
			headerRule,
			"",
			"SITUATION: "+strings.TrimSpace(res.Situation),
			"",
			"KEY CONTEXT FACTORS:",
		) {
			return
		}
		for _, f := range res.ContextFactors {
			if !yield("  - " + f) {
				return
			}
		}

		if !emit("", "POSSIBLE OUTCOMES:") {
			return
		}
		for i, o := range res.Outcomes {
			if !emit(outcomeBlock(i+1, o)...) {
				return
			}
		}

		if !emit("", "KEY VARIABLES:") {
			return
		}
		for _, v := range res.KeyVariables {
			if !yield("  - " + v) {
				return
			}
		}

		if !emit("", "RECOMMENDATIONS:") {
			return
		}
		for _, r := range res.Recommendations {
			if !yield("  - " + r) {
				return
			}
		}

		emit("", "Generated: "+res.GeneratedAt.UTC().Format(time.RFC3339))
	}
}

// outcomeBlock formats one numbered outcome. Optional annotations are
// omitted rather than rendered empty.
func outcomeBlock(n int, o analysis.Outcome) []string {
	block := []string{
		"",
		fmt.Sprintf("  %d. %s", n, o.Description),
		fmt.Sprintf("     Probability:   %.1f%%", o.Probability*100),
		"     Impact:        " + o.Impact,
		"     Category:      " + o.Category,
	}
	if len(o.RiskFactors) > 0 {
		block = append(block, "     Risks:         "+strings.Join(o.RiskFactors, ", "))
	}
	if len(o.Opportunities) > 0 {
		block = append(block, "     Opportunities: "+strings.Join(o.Opportunities, ", "))
	}
	if o.Timeline != "" {
		block = append(block, "     Timeline:      "+o.Timeline)
	}
	block = append(block, fmt.Sprintf("     Confidence:    %.1f%%", o.Confidence*100))
	return block
}

// Render joins Lines into a single newline-terminated report. Deterministic
// and idempotent for a given Result.
func Render(res *analysis.Result) string {
	var sb strings.Builder
	for line := range Lines(res) {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}
