// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/citereview/internal/httputil"
	"github.com/pdiddy/citereview/pkg/types"
)

// ChatBackend sends one system instruction and one user message and returns
// the model's text reply.
type ChatBackend interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// Default endpoints. Package-level vars for test substitution.
var (
	anthropicBaseURL = "https://api.anthropic.com/v1"
	openAIBaseURL    = "https://api.openai.com/v1"
)

const defaultMaxTokens = 4096

// NewBackend builds the backend selected by cfg.Provider.
func NewBackend(cfg types.LLMConfig, client *http.Client) (ChatBackend, error) {
	switch cfg.Provider {
	case types.ProviderAnthropic:
		return &ClaudeBackend{BaseURL: cfg.BaseURL, APIKey: cfg.APIKey, Model: cfg.Model, Temperature: cfg.Temperature, Client: client}, nil
	case types.ProviderOpenAI, "":
		return &OpenAIBackend{BaseURL: cfg.BaseURL, APIKey: cfg.APIKey, Model: cfg.Model, Temperature: cfg.Temperature, Client: client}, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// OpenAIBackend talks to any OpenAI-compatible /chat/completions endpoint,
// including local vLLM servers.
type OpenAIBackend struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Client      *http.Client
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

// Chat implements ChatBackend.
func (o *OpenAIBackend) Chat(ctx context.Context, system, user string) (string, error) {
	body := openAIRequest{
		Model: o.Model,
		Messages: []openAIMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: o.Temperature,
	}
	headers := map[string]string{}
	if o.APIKey != "" {
		headers["Authorization"] = "Bearer " + o.APIKey
	}

	var resp openAIResponse
	if err := postJSON(ctx, o.Client, endpoint(o.BaseURL, openAIBaseURL, "/chat/completions"), headers, body, &resp); err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// ClaudeBackend calls the Anthropic Messages API.
type ClaudeBackend struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Client      *http.Client
}

// claudeRequest is the request body for the Claude Messages API.
type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	System      string          `json:"system,omitempty"`
	Temperature float64         `json:"temperature"`
	Messages    []claudeMessage `json:"messages"`
}

// claudeMessage is a single message in the Claude API conversation.
type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// claudeResponse is the response body from the Claude Messages API.
type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Chat implements ChatBackend.
func (c *ClaudeBackend) Chat(ctx context.Context, system, user string) (string, error) {
	body := claudeRequest{
		Model:       c.Model,
		MaxTokens:   defaultMaxTokens,
		System:      system,
		Temperature: c.Temperature,
		Messages:    []claudeMessage{{Role: "user", Content: user}},
	}
	headers := map[string]string{
		"x-api-key":         c.APIKey,
		"anthropic-version": "2023-06-01",
	}

	var resp claudeResponse
	if err := postJSON(ctx, c.Client, endpoint(c.BaseURL, anthropicBaseURL, "/messages"), headers, body, &resp); err != nil {
		return "", fmt.Errorf("calling Claude API: %w", err)
	}
	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no text content in Claude API response")
	}
	return b.String(), nil
}

func endpoint(base, fallback, path string) string {
	if base == "" {
		base = fallback
	}
	return strings.TrimRight(base, "/") + path
}

// postJSON sends body as JSON and decodes a 200 response into out. 429 and
// 503 answers are retried by httputil.DoWithRetry.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
