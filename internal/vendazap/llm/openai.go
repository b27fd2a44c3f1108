// Package llm provides the completion gateway: one call to an
// OpenAI-compatible chat-completions endpoint per inbound message, with a
// fixed sampling configuration and a bounded timeout.
//
// The gateway performs no retries and substitutes no fallback text; callers
// decide what an error means for the user.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vendazap/vendazap/internal/vendazap/prompt"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 30 * time.Second
)

// ErrNoAPIKey reports that a completion was attempted before any credential
// was resolvable. Local to the single message; never a process failure.
var ErrNoAPIKey = errors.New("llm: no API key configured")

// ErrEmptyCompletion reports that the API answered but produced no usable
// text. Callers treat it exactly like an API error.
var ErrEmptyCompletion = errors.New("llm: empty completion")

// Config configures the OpenAI-compatible completion client.
type Config struct {
	// APIKey is the bearer token. May be empty; Complete then returns
	// ErrNoAPIKey per call instead of failing construction.
	APIKey string

	// BaseURL overrides the API endpoint. Useful for local models (Ollama)
	// or any other OpenAI-compatible endpoint.
	// Defaults to https://api.openai.com/v1 when empty.
	BaseURL string

	// Model is the chat model to use. Defaults to gpt-4o-mini when empty.
	Model string

	// Sampling parameters, fixed per deployment, not per message.
	Temperature     float64
	TopP            float64
	PresencePenalty float64

	// Timeout is the HTTP request timeout. Defaults to 30 s.
	Timeout time.Duration
}

// Completer is the capability the engine depends on: given role-tagged
// messages, produce one completion text or fail.
type Completer interface {
	Complete(ctx context.Context, messages []prompt.Message) (string, error)
}

// Client implements Completer against an OpenAI-compatible endpoint.
// Safe for concurrent use.
type Client struct {
	cfg  Config
	http *http.Client
}

// New returns a Client with defaults applied.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// --- minimal chat-completions wire types ---

type oaiRequest struct {
	Model           string           `json:"model"`
	Messages        []prompt.Message `json:"messages"`
	Temperature     float64          `json:"temperature,omitempty"`
	TopP            float64          `json:"top_p,omitempty"`
	PresencePenalty float64          `json:"presence_penalty,omitempty"`
}

type oaiResponse struct {
	Choices []oaiChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

type oaiChoice struct {
	Message      prompt.Message `json:"message"`
	FinishReason string         `json:"finish_reason"`
}

// Complete sends the assembled messages and returns the first candidate's
// text, trimmed. Exactly one attempt per call.
func (c *Client) Complete(ctx context.Context, messages []prompt.Message) (string, error) {
	if c.cfg.APIKey == "" {
		return "", ErrNoAPIKey
	}

	body := oaiRequest{
		Model:           c.cfg.Model,
		Messages:        messages,
		Temperature:     c.cfg.Temperature,
		TopP:            c.cfg.TopP,
		PresencePenalty: c.cfg.PresencePenalty,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/chat/completions",
		bytes.NewReader(data),
	)
	if err != nil {
		return "", fmt.Errorf("llm: create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("llm: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llm: read response body: %w", err)
	}

	var oaiResp oaiResponse
	if err := json.Unmarshal(respBody, &oaiResp); err != nil {
		return "", fmt.Errorf("llm: decode API response: %w", err)
	}

	if oaiResp.Error != nil {
		return "", fmt.Errorf("llm: API error (%s): %s", oaiResp.Error.Type, oaiResp.Error.Message)
	}

	if len(oaiResp.Choices) == 0 {
		return "", fmt.Errorf("llm: no choices returned (HTTP %d): %w", resp.StatusCode, ErrEmptyCompletion)
	}

	content := strings.TrimSpace(oaiResp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyCompletion
	}

	return content, nil
}
