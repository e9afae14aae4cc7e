package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/vibe-cli/vibe/internal/errors"
)

const (
	googleEnvVar   = "GOOGLE_API_KEY"
	googleBaseURL  = "https://generativelanguage.googleapis.com/v1beta/models"
	googleDefModel = "gemini-2.0-flash"
)

// Google talks to the Gemini generateContent API. It is the long-context
// knowledge backend in dual mode.
type Google struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewGoogle builds the client from GOOGLE_API_KEY. A missing key is
// reported on the first call, not here.
func NewGoogle(timeout time.Duration) (*Google, error) {
	return &Google{
		apiKey:  os.Getenv(googleEnvVar),
		baseURL: googleBaseURL,
		client:  newHTTPClient(timeout),
	}, nil
}

func (g *Google) Name() string         { return "google" }
func (g *Google) DefaultModel() string { return googleDefModel }

// buildBody converts messages to Gemini contents. System messages go in
// systemInstruction; assistant turns use the "model" role.
func (g *Google) buildBody(req Request) ([]byte, string, error) {
	model := req.Model
	if model == "" {
		model = googleDefModel
	}

	var system string
	contents := make([]map[string]any, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		contents = append(contents, map[string]any{
			"role":  role,
			"parts": []map[string]string{{"text": m.Content}},
		})
	}

	body := map[string]any{"contents": contents}
	if system != "" {
		body["systemInstruction"] = map[string]any{
			"parts": []map[string]string{{"text": system}},
		}
	}
	if req.MaxTokens > 0 {
		body["generationConfig"] = map[string]any{"maxOutputTokens": req.MaxTokens}
	}
	data, err := json.Marshal(body)
	return data, model, err
}

func (g *Google) do(ctx context.Context, url string, body []byte) (*http.Response, error) {
	if g.apiKey == "" {
		return nil, errors.ErrProviderAuth("google", googleEnvVar)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build google request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.ErrProviderTimeout("google", g.client.Timeout.String()).WithCause(err)
	}
	return resp, nil
}

// Generate performs one blocking generateContent call.
func (g *Google) Generate(ctx context.Context, req Request) (*Response, error) {
	body, model, err := g.buildBody(req)
	if err != nil {
		return nil, errors.Wrap(err, "encode google request")
	}

	url := fmt.Sprintf("%s/%s:generateContent", g.baseURL, model)
	resp, err := g.do(ctx, url, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read google response")
	}
	if resp.StatusCode != http.StatusOK {
		detail := gjson.GetBytes(raw, "error.message").String()
		if detail == "" {
			detail = string(raw)
		}
		return nil, classifyStatus("google", googleEnvVar, resp.StatusCode, detail)
	}

	var content strings.Builder
	for _, part := range gjson.GetBytes(raw, "candidates.0.content.parts").Array() {
		content.WriteString(part.Get("text").String())
	}

	return &Response{
		Content: content.String(),
		Model:   model,
		Usage: Usage{
			InputTokens:  int(gjson.GetBytes(raw, "usageMetadata.promptTokenCount").Int()),
			OutputTokens: int(gjson.GetBytes(raw, "usageMetadata.candidatesTokenCount").Int()),
		},
	}, nil
}

// Stream emits text pieces from the streamGenerateContent SSE feed.
func (g *Google) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	body, model, err := g.buildBody(req)
	if err != nil {
		return nil, errors.Wrap(err, "encode google request")
	}

	url := fmt.Sprintf("%s/%s:streamGenerateContent?alt=sse", g.baseURL, model)
	resp, err := g.do(ctx, url, body)
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
		return nil, classifyStatus("google", googleEnvVar, resp.StatusCode, detail)
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
			for _, part := range gjson.Get(payload, "candidates.0.content.parts").Array() {
				text := part.Get("text").String()
				if text == "" {
					continue
				}
				select {
				case ch <- Chunk{Text: text}:
				case <-ctx.Done():
					return
				}
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			ch <- Chunk{Err: errors.Wrap(err, "read google stream")}
		}
	}()
	return ch, nil
}
