package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ─── COLLABORATOR CONTRACT ───────────────────────────────────────────────────

// Generator is the narrow interface to the external inference collaborator.
// Given a situation and its extracted context factors, it returns a finite,
// ordered list of candidate outcomes — or fails. Its internal reasoning is
// opaque to this package; everything it returns passes through
// validateOutcomes before reaching a caller.
//
// Concrete implementations live in internal/ai (OpenAI, Anthropic, fallback
// chain, rule-based). Tests inject stubs that return canned outcomes.
//
// Implementations must be safe to call concurrently and must respect ctx
// cancellation.
type Generator interface {
	GenerateOutcomes(ctx context.Context, situation string, contextFactors []string) ([]Outcome, error)
}

// ─── ANALYZER ────────────────────────────────────────────────────────────────

// Options tunes a single Analyzer instance.
type Options struct {
	// Timeout bounds the collaborator call. An unbounded blocking call is the
	// one externally visible hazard here, so the zero value gets a default
	// of 60 seconds rather than "no limit".
	Timeout time.Duration

	// NormalizeProbabilities, when set, rescales outcome probabilities to sum
	// to 1 after validation. Off by default: outcome likelihoods are
	// independent speculative estimates, not a true distribution.
	NormalizeProbabilities bool
}

// DefaultTimeout is applied when Options.Timeout is zero.
const DefaultTimeout = 60 * time.Second

// Analyzer turns a Scenario into a validated Result. It holds no hidden
// state and is safe for concurrent use; construct one per provider
// configuration and share it.
//
// There is deliberately no package-level default instance — callers inject
// the Generator explicitly, which keeps tests honest and configuration
// visible.
type Analyzer struct {
	gen  Generator
	opts Options
}

// NewAnalyzer constructs an Analyzer around the given collaborator.
func NewAnalyzer(gen Generator, opts Options) *Analyzer {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Analyzer{gen: gen, opts: opts}
}

// Analyze runs the full pipeline for one scenario:
//
//  1. Validate the input (blank situation → ErrInvalidInput).
//  2. Extract context factors from the situation text and context pairs.
//  3. Call the collaborator under the configured timeout.
//  4. Validate the response (count in [3,7], probabilities in (0,1]).
//  5. Derive key variables and recommendations.
//
// It is all-or-nothing: on any failure the error wraps exactly one sentinel
// from errors.go and no partial Result is returned. Analyze never retries —
// retry policy is a caller decision.
func (a *Analyzer) Analyze(ctx context.Context, sc Scenario) (*Result, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	factors := ExtractContextFactors(sc.Situation, sc.Context)

	callCtx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	raw, err := a.gen.GenerateOutcomes(callCtx, sc.Situation, factors)
	if err != nil {
		return nil, classifyGeneratorErr(callCtx, err)
	}

	outcomes := make([]Outcome, len(raw))
	for i, o := range raw {
		outcomes[i] = normalizeOutcome(o)
	}
	if err := validateOutcomes(outcomes); err != nil {
		return nil, err
	}

	if a.opts.NormalizeProbabilities {
		rescaleProbabilities(outcomes)
	}

	return &Result{
		Situation:       sc.Situation,
		ContextFactors:  factors,
		Outcomes:        outcomes,
		KeyVariables:    IdentifyKeyVariables(sc.Situation, outcomes),
		Recommendations: BuildRecommendations(outcomes),
		GeneratedAt:     time.Now().UTC(),
	}, nil
}

// classifyGeneratorErr maps a raw collaborator failure onto the error
// taxonomy. Errors already tagged with a sentinel (e.g. a parse failure from
// internal/ai wrapping ErrMalformedResponse) pass through unchanged; a
// deadline hit becomes ErrCollaboratorTimeout; everything else — DNS, TLS,
// auth, 5xx — is ErrCollaboratorUnavailable.
func classifyGeneratorErr(callCtx context.Context, err error) error {
	switch {
	case errors.Is(err, ErrMalformedResponse),
		errors.Is(err, ErrCollaboratorTimeout),
		errors.Is(err, ErrCollaboratorUnavailable):
		return err
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(callCtx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrCollaboratorTimeout, err)
	default:
		return fmt.Errorf("%w: %v", ErrCollaboratorUnavailable, err)
	}
}

// rescaleProbabilities scales the set so probabilities sum to 1. Inputs have
// already been validated as positive, so the sum is always > 0 and every
// rescaled value stays in (0, 1].
func rescaleProbabilities(outcomes []Outcome) {
	var sum float64
	for _, o := range outcomes {
		sum += o.Probability
	}
	for i := range outcomes {
		outcomes[i].Probability /= sum
	}
}
