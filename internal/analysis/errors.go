package analysis

import (
	"errors"
	"fmt"
)

// ─── ERROR TAXONOMY ──────────────────────────────────────────────────────────

// Every failure out of Analyze wraps exactly one of these sentinels, so
// callers can classify with errors.Is without parsing messages. No failure
// mode is returned untagged.
var (
	// ErrInvalidInput: the scenario text is empty or blank. Reported to the
	// caller immediately; never retried.
	ErrInvalidInput = errors.New("analysis: scenario text must not be empty")

	// ErrMalformedResponse: the collaborator returned an out-of-contract
	// result (wrong outcome count, probability out of range, unparsable
	// payload). Recoverable — the caller may retry with a fresh call, but
	// retry policy belongs to the caller, not to this package.
	ErrMalformedResponse = errors.New("analysis: collaborator returned a malformed response")

	// ErrCollaboratorTimeout: the outbound call exceeded the configured bound.
	ErrCollaboratorTimeout = errors.New("analysis: collaborator call timed out")

	// ErrCollaboratorUnavailable: transport or auth failure reaching the
	// collaborator. Surfaced as-is; no internal backoff.
	ErrCollaboratorUnavailable = errors.New("analysis: collaborator unavailable")
)

// malformedf wraps ErrMalformedResponse with a violation description.
func malformedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}
