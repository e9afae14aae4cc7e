// Package provider abstracts the AI generation backends. Each provider
// speaks its native HTTP API; callers only see messages in and content
// plus usage out, with failures mapped onto the shared error taxonomy.
package provider

import (
	"context"
	"net/http"
	"time"

	"github.com/vibe-cli/vibe/internal/errors"
)

// Role tags a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Usage reports token consumption for one call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Request is a single generation call.
type Request struct {
	Messages  []Message
	Model     string // empty means the provider default
	MaxTokens int    // 0 means the provider default
}

// Response is the result of a successful generation.
type Response struct {
	Content string
	Model   string
	Usage   Usage
}

// Chunk is one piece of a streamed response.
type Chunk struct {
	Text string
	Err  error // terminal; no chunks follow a non-nil Err
}

// Provider is a generation backend.
type Provider interface {
	Name() string
	DefaultModel() string
	Generate(ctx context.Context, req Request) (*Response, error)
	// Stream delivers the response incrementally. The channel is closed
	// when the stream ends; it is finite and not restartable.
	Stream(ctx context.Context, req Request) (<-chan Chunk, error)
}

const defaultMaxTokens = 8192

// httpTimeout bounds a single API call end to end. The workflow layer
// treats expiry as a transient failure.
const httpTimeout = 60 * time.Second

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = httpTimeout
	}
	return &http.Client{Timeout: timeout}
}

// New returns the provider registered under name.
func New(name string, timeout time.Duration) (Provider, error) {
	switch name {
	case "anthropic":
		return NewAnthropic(timeout)
	case "openai":
		return NewOpenAI(timeout)
	case "google":
		return NewGoogle(timeout)
	default:
		return nil, errors.ErrProviderUnavailable(name)
	}
}

// classifyStatus maps an HTTP status to the error taxonomy.
func classifyStatus(providerName, envVar string, status int, body string) error {
	switch {
	case status == http.StatusTooManyRequests:
		return errors.ErrProviderRateLimit(providerName)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errors.ErrProviderAuth(providerName, envVar)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return errors.ErrProviderTimeout(providerName, httpTimeout.String())
	case status >= 500:
		// Upstream overload behaves like a rate limit for retry purposes.
		return errors.ErrProviderRateLimit(providerName)
	default:
		return errors.ErrProviderInvalidRequest(providerName, body)
	}
}
