// Package llm implements the chat-completion client for any
// OpenAI-compatible endpoint (OpenAI, OpenRouter, Ollama, local
// proxies, etc.).
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jholhewres/chatclaw/pkg/chatclaw/memory"
	"github.com/jholhewres/chatclaw/pkg/chatclaw/text"
)

// Request parameters pinned by the bot. Replies are short chat
// messages, not documents.
const (
	temperature = 0.7
	maxTokens   = 512

	// DefaultTimeout bounds a single completion round-trip. The
	// in-flight request is cancelled when it expires.
	DefaultTimeout = 90 * time.Second
)

// UpstreamError reports a non-2xx response from the completion
// endpoint.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("completion endpoint returned %d: %s", e.StatusCode, e.Message)
}

// TimeoutError reports a completion request that exceeded its
// deadline and was cancelled.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("completion request timed out after %s", e.After)
}

// Options configures a Client.
type Options struct {
	// BaseURL is an OpenAI-compatible API base, e.g.
	// "https://api.openai.com/v1" or "http://localhost:11434".
	BaseURL string

	// URLOverride, when set, is used verbatim as the completions
	// endpoint and wins over BaseURL.
	URLOverride string

	APIKey string
	Model  string

	// AuthHeader is the header carrying the API key. Defaults to
	// "Authorization".
	AuthHeader string

	// AuthPrefix is prepended verbatim to the API key, trailing space
	// included ("Bearer "). An empty prefix sends the key alone.
	AuthPrefix string

	// ExtraHeaders are merged into every request. Validated at config
	// load, not here.
	ExtraHeaders map[string]string

	// Timeout for one completion round-trip. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Client talks to the completion endpoint.
type Client struct {
	opts       Options
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a completion client. The http.Client carries no timeout
// of its own; the per-request context enforces the deadline so the
// request is actively cancelled.
func New(opts Options, logger *slog.Logger) *Client {
	if opts.AuthHeader == "" {
		opts.AuthHeader = "Authorization"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		opts:       opts,
		httpClient: &http.Client{},
		logger:     logger.With("component", "llm"),
	}
}

// Endpoint resolves the completions URL. An explicit override wins
// verbatim; otherwise the base URL is right-trimmed of slashes and
// suffixed with "/chat/completions" when it already ends in "/v1",
// else with "/v1/chat/completions".
func (c *Client) Endpoint() string {
	if c.opts.URLOverride != "" {
		return c.opts.URLOverride
	}
	base := strings.TrimRight(c.opts.BaseURL, "/")
	if strings.HasSuffix(base, "/v1") {
		return base + "/chat/completions"
	}
	return base + "/v1/chat/completions"
}

// ---------- Wire types (OpenAI-compatible) ----------

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
		} `json:"message"`
		// Legacy completions shape.
		Text string `json:"text"`
	} `json:"choices"`
}

// Complete sends the system prompt plus every stored turn, in order,
// and returns the sanitized assistant text. The result is trimmed and
// never nil, though it may be empty.
//
// Non-2xx statuses surface as *UpstreamError; an expired deadline as
// *TimeoutError. channelID is used for logging only; message content
// is never logged.
func (c *Client) Complete(ctx context.Context, channelID, systemPrompt string, turns []memory.Turn) (string, error) {
	messages := make([]chatMessage, 0, len(turns)+1)
	messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	for _, t := range turns {
		messages = append(messages, chatMessage{Role: string(t.Role), Content: t.Content})
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.opts.Model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling completion request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating completion request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.opts.APIKey != "" {
		req.Header.Set(c.opts.AuthHeader, c.opts.AuthPrefix+c.opts.APIKey)
	}
	for k, v := range c.opts.ExtraHeaders {
		req.Header.Set(k, v)
	}

	requestID := uuid.New().String()[:8]
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", &TimeoutError{After: c.opts.Timeout}
		}
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", &TimeoutError{After: c.opts.Timeout}
		}
		return "", fmt.Errorf("reading completion response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    extractErrorMessage(respBody),
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("parsing completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("completion response has no choices")
	}

	choice := parsed.Choices[0]
	content := choice.Message.Content
	if content == "" {
		content = choice.Text
	}

	out := strings.TrimSpace(text.Sanitize(content))
	// Some providers put the entire reply in reasoning_content and
	// leave content blank. Fall back only when the primary content is
	// empty after sanitize+trim.
	if out == "" && choice.Message.ReasoningContent != "" {
		out = strings.TrimSpace(text.Sanitize(choice.Message.ReasoningContent))
	}

	c.logger.Info("chat completion done",
		"request_id", requestID,
		"channel_id", channelID,
		"model", c.opts.Model,
		"turns", len(turns),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return out, nil
}

// extractErrorMessage pulls a human-readable message out of an error
// response body, trying {error:{message}}, then {message}, then the
// raw body.
func extractErrorMessage(body []byte) string {
	var wrapped struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil {
		if wrapped.Error.Message != "" {
			return wrapped.Error.Message
		}
		if wrapped.Message != "" {
			return wrapped.Message
		}
	}
	return strings.TrimSpace(string(body))
}
