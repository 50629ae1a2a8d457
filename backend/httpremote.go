package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPRemoteConfig configures a single HTTP chat-completion endpoint.
// spec.md's Purpose & Scope puts "specific wire formats of third-party
// LLM providers" out of scope, so instead of one Go file per vendor
// (gemini_backend.py, cerebras_backend.py, blaxel_backend.go, ...) this
// generalizes their shared shape — bearer-token POST of a system+user
// message pair, JSON response — into one configurable backend.
type HTTPRemoteConfig struct {
	Key        string
	Endpoint   string
	APIKey     string
	Model      string
	SystemText string
	Timeout    time.Duration
}

// HTTPRemoteBackend completes prompts against a remote chat-completion
// HTTP endpoint. Grounded on cerebras_backend.py/gemini_backend.py's
// message-array-with-system-prompt request shape, using stdlib
// net/http since spec.md explicitly scopes the wire format itself out.
type HTTPRemoteBackend struct {
	cfg    HTTPRemoteConfig
	client *http.Client
}

func NewHTTPRemoteBackend(cfg HTTPRemoteConfig) *HTTPRemoteBackend {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &HTTPRemoteBackend{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (b *HTTPRemoteBackend) Kind() Kind { return KindHTTPRemote }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

func (b *HTTPRemoteBackend) buildRequest(ctx context.Context, req CompletionRequest) (*http.Request, error) {
	systemContent := b.cfg.SystemText
	if systemContent == "" {
		systemContent = "You are an intelligent network orchestrator assistant. Respond with structured JSON when asked to identify tools."
	}
	if len(req.Context) > 0 {
		contextJSON, err := json.Marshal(req.Context)
		if err != nil {
			return nil, err
		}
		systemContent = fmt.Sprintf("%s\n\nContext: %s", systemContent, contextJSON)
	}

	body := chatRequest{
		Model: b.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemContent},
			{Role: "user", Content: req.Prompt},
		},
		Temperature: 0.3,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if b.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+b.cfg.APIKey)
	}
	return httpReq, nil
}

func (b *HTTPRemoteBackend) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	httpReq, err := b.buildRequest(ctx, req)
	if err != nil {
		return CompletionResponse{}, NewBackendError(b.cfg.Key, ErrMalformed, err)
	}

	resp, err := b.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return CompletionResponse{}, NewBackendError(b.cfg.Key, ErrTimeout, err)
		}
		return CompletionResponse{}, NewBackendError(b.cfg.Key, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return CompletionResponse{}, NewBackendError(b.cfg.Key, ErrMalformed, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return CompletionResponse{}, NewBackendError(b.cfg.Key, ErrRateLimited, fmt.Errorf("status %d: %s", resp.StatusCode, raw))
	}
	if resp.StatusCode >= 500 {
		return CompletionResponse{}, NewBackendError(b.cfg.Key, ErrUnavailable, fmt.Errorf("status %d: %s", resp.StatusCode, raw))
	}
	if resp.StatusCode != http.StatusOK {
		return CompletionResponse{}, NewBackendError(b.cfg.Key, ErrMalformed, fmt.Errorf("status %d: %s", resp.StatusCode, raw))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return CompletionResponse{}, NewBackendError(b.cfg.Key, ErrMalformed, err)
	}
	if len(parsed.Choices) == 0 {
		return CompletionResponse{}, NewBackendError(b.cfg.Key, ErrMalformed, fmt.Errorf("empty choices array"))
	}

	return CompletionResponse{Text: parsed.Choices[0].Message.Content}, nil
}

func (b *HTTPRemoteBackend) Probe(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := b.Complete(probeCtx, CompletionRequest{Prompt: "ping"})
	return err
}
