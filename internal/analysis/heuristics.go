package analysis

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Lexical heuristics that enrich the collaborator's outcomes with locally
// derived context factors, key variables, and recommendations. All pure
// functions: same inputs, same outputs, no side effects.

// ─── CONTEXT FACTORS ─────────────────────────────────────────────────────────

// factorPattern maps a word-boundary pattern in the situation text to a
// labelled context factor.
type factorPattern struct {
	re    *regexp.Regexp
	label string
}

var factorPatterns = []factorPattern{
	{regexp.MustCompile(`\b(business|company|startup)\b`), "Business/Commercial context"},
	{regexp.MustCompile(`\b(market|economy|financial)\b`), "Economic factors"},
	{regexp.MustCompile(`\b(team|people|employee)\b`), "Human resources"},
	{regexp.MustCompile(`\b(technology|tech|digital)\b`), "Technology factors"},
	{regexp.MustCompile(`\b(time|deadline|urgent)\b`), "Time constraints"},
}

// ExtractContextFactors scans the situation text for recurring situational
// themes and appends any caller-supplied context pairs (sorted by key, so the
// result is deterministic). An empty scan yields a single generic factor
// rather than an empty list — the formatter and the prompt builder both
// assume at least one factor.
func ExtractContextFactors(situation string, context map[string]string) []string {
	lower := strings.ToLower(situation)

	var factors []string
	for _, p := range factorPatterns {
		if p.re.MatchString(lower) {
			factors = append(factors, p.label)
		}
	}

	keys := make([]string, 0, len(context))
	for k := range context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		factors = append(factors, fmt.Sprintf("%s: %s", k, context[k]))
	}

	if len(factors) == 0 {
		factors = []string{"General situational context"}
	}
	return factors
}

// ─── KEY VARIABLES ───────────────────────────────────────────────────────────

var situationVariables = []factorPattern{
	{regexp.MustCompile(`\bdecision\b`), "Decision quality and timing"},
	{regexp.MustCompile(`\bresource`), "Resource availability"},
	{regexp.MustCompile(`\bmarket\b`), "Market conditions"},
	{regexp.MustCompile(`\bteam\b`), "Team performance and dynamics"},
}

// riskVariables maps a substring found in outcome risk factors to a derived
// key variable.
var riskVariables = []struct {
	needle   string
	variable string
}{
	{"resource", "Resource management"},
	{"execution", "Execution capability"},
	{"external", "External environment"},
}

// IdentifyKeyVariables derives the variables that most influence which
// outcome materialises, from both the situation text and the risk factors
// across all outcomes.
func IdentifyKeyVariables(situation string, outcomes []Outcome) []string {
	lower := strings.ToLower(situation)

	var variables []string
	for _, p := range situationVariables {
		if p.re.MatchString(lower) {
			variables = append(variables, p.label)
		}
	}

	for _, rv := range riskVariables {
		for _, o := range outcomes {
			if riskMentions(o.RiskFactors, rv.needle) {
				variables = append(variables, rv.variable)
				break
			}
		}
	}

	if len(variables) == 0 {
		variables = []string{"Situational dynamics", "External factors"}
	}
	return variables
}

func riskMentions(risks []string, needle string) bool {
	for _, r := range risks {
		if strings.Contains(strings.ToLower(r), needle) {
			return true
		}
	}
	return false
}

// ─── RECOMMENDATIONS ─────────────────────────────────────────────────────────

// Caps on how many distinct risks and opportunities feed recommendations,
// keeping the list readable regardless of how chatty the collaborator was.
const (
	maxRiskRecommendations        = 3
	maxOpportunityRecommendations = 2
)

// likelyThreshold marks an outcome as worth preparing for primarily.
const likelyThreshold = 0.3

// BuildRecommendations synthesises an action list from the outcome set: the
// most probable outcome to prepare for, the leading risks to mitigate, the
// leading opportunities to capture, and two standing advisories. Order is
// deterministic — first occurrence across the ordered outcome list wins.
func BuildRecommendations(outcomes []Outcome) []string {
	var recs []string

	for _, o := range outcomes {
		if o.Probability > likelyThreshold {
			recs = append(recs, "Prepare primarily for: "+o.Description)
			break
		}
	}

	for _, risk := range firstDistinct(outcomes, func(o Outcome) []string { return o.RiskFactors }, maxRiskRecommendations) {
		recs = append(recs, "Mitigate risk: "+risk)
	}
	for _, opp := range firstDistinct(outcomes, func(o Outcome) []string { return o.Opportunities }, maxOpportunityRecommendations) {
		recs = append(recs, "Leverage opportunity: "+opp)
	}

	recs = append(recs,
		"Monitor key variables closely",
		"Maintain flexibility for scenario pivots",
	)
	return recs
}

// firstDistinct collects up to max distinct strings across outcomes in
// encounter order.
func firstDistinct(outcomes []Outcome, field func(Outcome) []string, max int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, o := range outcomes {
		for _, s := range field(o) {
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
			if len(out) == max {
				return out
			}
		}
	}
	return out
}
