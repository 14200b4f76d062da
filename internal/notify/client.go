// Package notify defines the interface for outbound completion notifications
// and provides a webhook-backed implementation.
package notify

import "context"

// CompletionParams holds the data POSTed to a caller's callback URL when an
// analysis finishes (successfully or not).
type CompletionParams struct {
	CallbackURL string // where to POST; must be http(s)
	AnalysisID  string
	Status      string // "ready" or "error"
	Error       string // failure reason; empty on success
}

// Sender is the interface the worker uses to announce completion. Tests
// inject a stub that records calls without hitting the network.
type Sender interface {
	// SendCompletion POSTs a JSON notification to the callback URL. Called by
	// the worker after the analysis reaches a terminal state. Failures are
	// the caller's to log — a lost notification must never fail the job.
	SendCompletion(ctx context.Context, p CompletionParams) error
}
