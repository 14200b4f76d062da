package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// webhookClient is the concrete Sender that delivers notifications as JSON
// POSTs to the caller-supplied callback URL.
type webhookClient struct {
	// baseURL of this service, included in the payload so receivers can
	// construct the fetch link without hardcoding the deployment address.
	baseURL    string
	httpClient *http.Client
}

// NewWebhookClient returns a Sender that POSTs completion notifications.
func NewWebhookClient(baseURL string) Sender {
	return &webhookClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ─── PAYLOAD SHAPE ───────────────────────────────────────────────────────────

type completionPayload struct {
	AnalysisID string `json:"analysis_id"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	ResultURL  string `json:"result_url,omitempty"`
}

// ─── SENDER IMPLEMENTATION ───────────────────────────────────────────────────

// SendCompletion POSTs the notification and treats any non-2xx response as a
// delivery failure.
func (c *webhookClient) SendCompletion(ctx context.Context, p CompletionParams) error {
	u, err := url.Parse(p.CallbackURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("notify: invalid callback URL %q", p.CallbackURL)
	}

	payload := completionPayload{
		AnalysisID: p.AnalysisID,
		Status:     p.Status,
		Error:      p.Error,
	}
	if p.Status == "ready" {
		payload.ResultURL = fmt.Sprintf("%s/api/analyses/%s", c.baseURL, p.AnalysisID)
	}

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.CallbackURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: http request: %w", err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused; receivers' bodies are irrelevant.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notify: callback returned status %d", resp.StatusCode)
	}
	return nil
}
