package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nyashahama/scenario-outcome-analyzer/internal/analysis"
)

const openAIEndpoint = "https://api.openai.com/v1/chat/completions"

// openAIClient is the concrete Generator backed by the OpenAI chat
// completions API.
type openAIClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewOpenAIClient returns a Generator that calls the OpenAI API.
//   - apiKey: your OPENAI_API_KEY
//   - model:  e.g. "gpt-4o" or "gpt-4o-mini"
func NewOpenAIClient(apiKey, model string) analysis.Generator {
	return &openAIClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: openAIEndpoint,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

// ─── OPENAI API SHAPES ───────────────────────────────────────────────────────

type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	MaxTokens      int             `json:"max_tokens"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// responseFormat instructs the model to return valid JSON.
type responseFormat struct {
	Type string `json:"type"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// ─── IMPLEMENTATION ──────────────────────────────────────────────────────────

// GenerateOutcomes calls the OpenAI API and returns the parsed candidate
// outcomes for the situation.
func (c *openAIClient) GenerateOutcomes(ctx context.Context, situation string, contextFactors []string) ([]analysis.Outcome, error) {
	reqBody := openAIRequest{
		Model:       c.model,
		MaxTokens:   2048,
		Temperature: 0.7,
		// json_object mode guarantees the response is valid JSON — no fence stripping needed.
		ResponseFormat: &responseFormat{Type: "json_object"},
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(situation, contextFactors)},
		},
	}

	raw, err := c.call(ctx, reqBody)
	if err != nil {
		return nil, err
	}

	return parseOutcomes(raw)
}

// call sends one request to the chat completions endpoint and returns the
// text content of the first choice.
func (c *openAIClient) call(ctx context.Context, reqBody openAIRequest) (string, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("openai: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("openai: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai: http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB cap
	if err != nil {
		return "", fmt.Errorf("openai: read response: %w", err)
	}

	var parsed openAIResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return "", fmt.Errorf("openai: unmarshal response: %w", err)
	}

	if parsed.Error != nil {
		return "", fmt.Errorf("openai: API error %s: %s", parsed.Error.Type, parsed.Error.Message)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai: unexpected status %d: %.200s", resp.StatusCode, string(respBytes))
	}

	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices in response")
	}

	return parsed.Choices[0].Message.Content, nil
}
