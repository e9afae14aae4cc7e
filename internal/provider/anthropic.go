package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/vibe-cli/vibe/internal/errors"
)

const (
	anthropicEnvVar   = "ANTHROPIC_API_KEY"
	anthropicBaseURL  = "https://api.anthropic.com/v1/messages"
	anthropicVersion  = "2023-06-01"
	anthropicDefModel = "claude-sonnet-4-20250514"
)

// Anthropic talks to the Claude Messages API.
type Anthropic struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewAnthropic builds the client from ANTHROPIC_API_KEY. A missing key
// is reported on the first call, not here, so commands that never
// generate work without credentials.
func NewAnthropic(timeout time.Duration) (*Anthropic, error) {
	return &Anthropic{
		apiKey:  os.Getenv(anthropicEnvVar),
		baseURL: anthropicBaseURL,
		client:  newHTTPClient(timeout),
	}, nil
}

func (a *Anthropic) Name() string         { return "anthropic" }
func (a *Anthropic) DefaultModel() string { return anthropicDefModel }

// buildBody converts the request to the Messages API shape. System
// messages travel in the top-level system field.
func (a *Anthropic) buildBody(req Request, stream bool) ([]byte, error) {
	model := req.Model
	if model == "" {
		model = anthropicDefModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	var system string
	msgs := make([]map[string]string, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		msgs = append(msgs, map[string]string{
			"role":    string(m.Role),
			"content": m.Content,
		})
	}

	body := map[string]any{
		"model":      model,
		"max_tokens": maxTokens,
		"messages":   msgs,
	}
	if system != "" {
		body["system"] = system
	}
	if stream {
		body["stream"] = true
	}
	return json.Marshal(body)
}

func (a *Anthropic) do(ctx context.Context, body []byte) (*http.Response, error) {
	if a.apiKey == "" {
		return nil, errors.ErrProviderAuth("anthropic", anthropicEnvVar)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build anthropic request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.ErrProviderTimeout("anthropic", a.client.Timeout.String()).WithCause(err)
	}
	return resp, nil
}

// Generate performs one blocking Messages API call.
func (a *Anthropic) Generate(ctx context.Context, req Request) (*Response, error) {
	body, err := a.buildBody(req, false)
	if err != nil {
		return nil, errors.Wrap(err, "encode anthropic request")
	}

	resp, err := a.do(ctx, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read anthropic response")
	}
	if resp.StatusCode != http.StatusOK {
		detail := gjson.GetBytes(raw, "error.message").String()
		if detail == "" {
			detail = string(raw)
		}
		return nil, classifyStatus("anthropic", anthropicEnvVar, resp.StatusCode, detail)
	}

	var content strings.Builder
	for _, block := range gjson.GetBytes(raw, "content").Array() {
		if block.Get("type").String() == "text" {
			content.WriteString(block.Get("text").String())
		}
	}

	return &Response{
		Content: content.String(),
		Model:   gjson.GetBytes(raw, "model").String(),
		Usage: Usage{
			InputTokens:  int(gjson.GetBytes(raw, "usage.input_tokens").Int()),
			OutputTokens: int(gjson.GetBytes(raw, "usage.output_tokens").Int()),
		},
	}, nil
}

// Stream performs a streaming call, emitting text deltas from the SSE feed.
func (a *Anthropic) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	body, err := a.buildBody(req, true)
	if err != nil {
		return nil, errors.Wrap(err, "encode anthropic request")
	}

	resp, err := a.do(ctx, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		detail := gjson.GetBytes(raw, "error.message").String()
		if detail == "" {
			detail = string(raw)
		}
		return nil, classifyStatus("anthropic", anthropicEnvVar, resp.StatusCode, detail)
	}

	ch := make(chan Chunk)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			payload := strings.TrimPrefix(line, "data: ")
			if gjson.Get(payload, "type").String() != "content_block_delta" {
				continue
			}
			text := gjson.Get(payload, "delta.text").String()
			if text == "" {
				continue
			}
			select {
			case ch <- Chunk{Text: text}:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			ch <- Chunk{Err: errors.Wrap(err, "read anthropic stream")}
		}
	}()
	return ch, nil
}
