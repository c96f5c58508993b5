// Package gemini provides an implementation of model.Model using the Gemini
// generateContent REST API. Conversation history is sent as a whole on every
// call; images travel as inline base64 data.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hupe1980/critique/core"
	"github.com/hupe1980/critique/model"
)

const (
	// DefaultBaseURL is the public Gemini API endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	// DefaultModel is used when no model is configured.
	DefaultModel = "gemini-2.0-flash"
)

// ErrMissingAPIKey is returned by Generate when no API key is configured.
var ErrMissingAPIKey = errors.New("gemini api key is required")

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini api error: %s", e.Message)
}

// Options configure the Gemini model adapter.
type Options struct {
	Model           string
	APIKey          string
	BaseURL         string
	Temperature     *float64
	MaxOutputTokens int64
	HTTPClient      *http.Client
}

// Model wraps the Gemini REST API behind the generic model.Model interface.
type Model struct {
	opts Options
}

// NewModel creates a Gemini model. The HTTP client has no timeout of its own;
// callers bound calls through the context.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:   DefaultModel,
		BaseURL: DefaultBaseURL,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Model{opts: opts}
}

// Generate implements model.Model.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 1)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		resp, err := m.generate(ctx, req)
		if err != nil {
			errCh <- err
			return
		}
		out <- resp
	}()
	return out, errCh
}

func (m *Model) generate(ctx context.Context, req model.Request) (model.Response, error) {
	if m.opts.APIKey == "" {
		return model.Response{}, ErrMissingAPIKey
	}

	body, err := json.Marshal(m.buildRequest(req))
	if err != nil {
		return model.Response{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", m.opts.BaseURL, url.PathEscape(m.opts.Model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return model.Response{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", m.opts.APIKey)

	httpResp, err := m.opts.HTTPClient.Do(httpReq)
	if err != nil {
		return model.Response{}, fmt.Errorf("gemini request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return model.Response{}, decodeError(httpResp)
	}

	var gr generateResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&gr); err != nil {
		return model.Response{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return toResponse(gr), nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var er errorResponse
	if json.Unmarshal(raw, &er) == nil && er.Error.Message != "" {
		apiErr.Message = er.Error.Message
	} else {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

func (m *Model) buildRequest(req model.Request) generateRequest {
	gr := generateRequest{Contents: make([]content, 0, len(req.Contents))}
	var system []part
	if req.Instructions != "" {
		system = append(system, part{Text: req.Instructions})
	}
	for _, c := range req.Contents {
		parts := convertParts(c.Parts)
		if c.Role == core.RoleSystem {
			system = append(system, parts...)
			continue
		}
		if len(parts) == 0 {
			continue
		}
		role := core.RoleUser
		if c.Role == core.RoleModel || c.Role == "assistant" {
			role = core.RoleModel
		}
		gr.Contents = append(gr.Contents, content{Role: role, Parts: parts})
	}
	if len(system) > 0 {
		gr.SystemInstruction = &content{Parts: system}
	}
	if m.opts.Temperature != nil || m.opts.MaxOutputTokens > 0 {
		gr.GenerationConfig = &generationConfig{Temperature: m.opts.Temperature, MaxOutputTokens: m.opts.MaxOutputTokens}
	}
	return gr
}

func convertParts(parts []core.Part) []part {
	out := make([]part, 0, len(parts))
	for _, p := range parts {
		switch v := p.(type) {
		case core.TextPart:
			if v.Text != "" {
				out = append(out, part{Text: v.Text})
			}
		case core.ImagePart:
			out = append(out, part{InlineData: &inlineData{MimeType: v.MimeType, Data: v.Data}})
		}
	}
	return out
}

func toResponse(gr generateResponse) model.Response {
	resp := model.Response{ID: gr.ResponseID, FinishReason: "stop"}
	var b strings.Builder
	if len(gr.Candidates) > 0 {
		c := gr.Candidates[0]
		for _, p := range c.Content.Parts {
			b.WriteString(p.Text)
		}
		if c.FinishReason != "" {
			resp.FinishReason = strings.ToLower(c.FinishReason)
		}
	}
	text := b.String()
	if text == "" {
		text = model.NoResponseText
	}
	resp.Content = core.NewTextContent(core.RoleModel, text)
	if u := gr.UsageMetadata; u != nil {
		resp.Usage = &model.TokenUsage{
			PromptTokens:     u.PromptTokenCount,
			CompletionTokens: u.CandidatesTokenCount,
			TotalTokens:      u.TotalTokenCount,
		}
	}
	return resp
}

// Info returns metadata describing this Gemini model implementation.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: "gemini"}
}

// WithTimeout is a convenience option bounding every HTTP call.
func WithTimeout(d time.Duration) func(o *Options) {
	return func(o *Options) {
		o.HTTPClient = &http.Client{Timeout: d}
	}
}
