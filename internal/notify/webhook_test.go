package notify_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nyashahama/scenario-outcome-analyzer/internal/notify"
)

func TestSendCompletion_PostsJSONPayload(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type: got %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sender := notify.NewWebhookClient("https://analyzer.example.com")
	err := sender.SendCompletion(context.Background(), notify.CompletionParams{
		CallbackURL: srv.URL,
		AnalysisID:  "5d6f0a1e-0000-0000-0000-000000000001",
		Status:      "ready",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got["analysis_id"] != "5d6f0a1e-0000-0000-0000-000000000001" {
		t.Errorf("analysis_id: got %q", got["analysis_id"])
	}
	if got["status"] != "ready" {
		t.Errorf("status: got %q", got["status"])
	}
	if !strings.HasPrefix(got["result_url"], "https://analyzer.example.com/api/analyses/") {
		t.Errorf("result_url: got %q", got["result_url"])
	}
}

func TestSendCompletion_FailureOmitsResultURL(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	sender := notify.NewWebhookClient("https://analyzer.example.com")
	err := sender.SendCompletion(context.Background(), notify.CompletionParams{
		CallbackURL: srv.URL,
		AnalysisID:  "abc",
		Status:      "error",
		Error:       "collaborator unavailable",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["error"] != "collaborator unavailable" {
		t.Errorf("error field: got %q", got["error"])
	}
	if _, ok := got["result_url"]; ok {
		t.Error("failed analyses must not advertise a result URL")
	}
}

func TestSendCompletion_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sender := notify.NewWebhookClient("https://analyzer.example.com")
	err := sender.SendCompletion(context.Background(), notify.CompletionParams{
		CallbackURL: srv.URL,
		AnalysisID:  "abc",
		Status:      "ready",
	})
	if err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestSendCompletion_RejectsNonHTTPSchemes(t *testing.T) {
	sender := notify.NewWebhookClient("https://analyzer.example.com")
	for _, u := range []string{"", "ftp://example.com/hook", "not a url at all \x7f"} {
		err := sender.SendCompletion(context.Background(), notify.CompletionParams{
			CallbackURL: u,
			AnalysisID:  "abc",
			Status:      "ready",
		})
		if err == nil {
			t.Errorf("callback %q: expected error", u)
		}
	}
}
