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
	openaiEnvVar   = "OPENAI_API_KEY"
	openaiBaseURL  = "https://api.openai.com/v1/chat/completions"
	openaiDefModel = "gpt-4o"
)

// OpenAI talks to the Chat Completions API.
type OpenAI struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewOpenAI builds the client from OPENAI_API_KEY. A missing key is
// reported on the first call, not here.
func NewOpenAI(timeout time.Duration) (*OpenAI, error) {
	return &OpenAI{
		apiKey:  os.Getenv(openaiEnvVar),
		baseURL: openaiBaseURL,
		client:  newHTTPClient(timeout),
	}, nil
}

func (o *OpenAI) Name() string         { return "openai" }
func (o *OpenAI) DefaultModel() string { return openaiDefModel }

func (o *OpenAI) buildBody(req Request, stream bool) ([]byte, error) {
	model := req.Model
	if model == "" {
		model = openaiDefModel
	}

	msgs := make([]map[string]string, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, map[string]string{
			"role":    string(m.Role),
			"content": m.Content,
		})
	}

	body := map[string]any{
		"model":    model,
		"messages": msgs,
	}
	if req.MaxTokens > 0 {
		body["max_completion_tokens"] = req.MaxTokens
	}
	if stream {
		body["stream"] = true
	}
	return json.Marshal(body)
}

func (o *OpenAI) do(ctx context.Context, body []byte) (*http.Response, error) {
	if o.apiKey == "" {
		return nil, errors.ErrProviderAuth("openai", openaiEnvVar)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build openai request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.ErrProviderTimeout("openai", o.client.Timeout.String()).WithCause(err)
	}
	return resp, nil
}

// Generate performs one blocking Chat Completions call.
func (o *OpenAI) Generate(ctx context.Context, req Request) (*Response, error) {
	body, err := o.buildBody(req, false)
	if err != nil {
		return nil, errors.Wrap(err, "encode openai request")
	}

	resp, err := o.do(ctx, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read openai response")
	}
	if resp.StatusCode != http.StatusOK {
		detail := gjson.GetBytes(raw, "error.message").String()
		if detail == "" {
			detail = string(raw)
		}
		return nil, classifyStatus("openai", openaiEnvVar, resp.StatusCode, detail)
	}

	return &Response{
		Content: gjson.GetBytes(raw, "choices.0.message.content").String(),
		Model:   gjson.GetBytes(raw, "model").String(),
		Usage: Usage{
			InputTokens:  int(gjson.GetBytes(raw, "usage.prompt_tokens").Int()),
			OutputTokens: int(gjson.GetBytes(raw, "usage.completion_tokens").Int()),
		},
	}, nil
}

// Stream emits text deltas from the Chat Completions SSE feed.
func (o *OpenAI) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	body, err := o.buildBody(req, true)
	if err != nil {
		return nil, errors.Wrap(err, "encode openai request")
	}

	resp, err := o.do(ctx, body)
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
		return nil, classifyStatus("openai", openaiEnvVar, resp.StatusCode, detail)
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
			if payload == "[DONE]" {
				return
			}
			text := gjson.Get(payload, "choices.0.delta.content").String()
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
			ch <- Chunk{Err: errors.Wrap(err, "read openai stream")}
		}
	}()
	return ch, nil
}
