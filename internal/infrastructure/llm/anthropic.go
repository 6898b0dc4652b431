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

	"ArticlesEvaluator/internal/config"
	"ArticlesEvaluator/internal/ports"
)

const maxErrorBody = 4096

// ErrMalformedResponse marks a 2xx response whose body could not be decoded into text.
var ErrMalformedResponse = errors.New("malformed backend response")

// ErrorKind classifies dispatch failures.
type ErrorKind string

const (
	KindTransport ErrorKind = "transport"
	KindBackend   ErrorKind = "backend"
)

// DispatchError is returned for transport failures and non-success statuses.
type DispatchError struct {
	StatusCode int
	Body       string
	Transport  error
}

func (e *DispatchError) Error() string {
	if e.Transport != nil {
		return fmt.Sprintf("transport error: %v", e.Transport)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Body)
}

func (e *DispatchError) Unwrap() error {
	return e.Transport
}

// Kind reports whether the failure happened before or after reaching the backend.
func (e *DispatchError) Kind() ErrorKind {
	if e.Transport != nil {
		return KindTransport
	}
	return KindBackend
}

// Retryable reports whether repeating the request could succeed.
func (e *DispatchError) Retryable() bool {
	if e.Transport != nil {
		return !errors.Is(e.Transport, context.Canceled) && !errors.Is(e.Transport, context.DeadlineExceeded)
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// AnthropicClient implements ports.Dispatcher against the Messages API.
type AnthropicClient struct {
	endpoint    string
	version     string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

var _ ports.Dispatcher = (*AnthropicClient)(nil)

// NewAnthropicClient builds a client from configuration.
// A nil httpClient gets one with the configured timeout (zero means none).
func NewAnthropicClient(cfg config.AnthropicConfig, httpClient *http.Client) *AnthropicClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout()}
	}
	return &AnthropicClient{
		endpoint:    cfg.Endpoint,
		version:     cfg.Version,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		httpClient:  httpClient,
	}
}

type messageRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Messages    []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Dispatch posts prompt as a single user message and returns the first text block.
func (c *AnthropicClient) Dispatch(ctx context.Context, prompt, credential string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("anthropic client is nil")
	}
	if c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("anthropic client misconfigured")
	}

	body, err := json.Marshal(messageRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages:    []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal anthropic payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("x-api-key", credential)
	req.Header.Set("anthropic-version", c.version)
	req.Header.Set("content-type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &DispatchError{Transport: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &DispatchError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}

	var decoded messageResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	for _, block := range decoded.Content {
		if block.Type == "" || block.Type == "text" {
			return block.Text, nil
		}
	}

	return "", fmt.Errorf("%w: no text content", ErrMalformedResponse)
}
