package model

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/hupe1980/critique/core"
)

// MockModelName selects MockModel in provider configuration.
const MockModelName = "mock-model"

// NoResponseText is returned when a provider answers without any text.
const NoResponseText = "No response generated."

// Request captures the normalized model input.
type Request struct {
	Instructions string         `json:"instructions"` // System instructions
	Contents     []core.Content `json:"contents"`     // Conversation history, oldest first
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the final answer of a model.
type Response struct {
	ID           string       `json:"id"`
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", ...
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "gemini", "openai", "anthropic", "mock"
}

// Model is the minimal interface required to drive a critique turn.
// Implementations emit exactly one Response or one error, then close both channels.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// Collect drains a Generate call and returns its response text. An answer
// without text yields NoResponseText.
func Collect(ctx context.Context, m Model, req Request) (string, error) {
	respCh, errCh := m.Generate(ctx, req)
	var (
		text string
		got  bool
	)
	for respCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case r, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			text += r.Content.Text()
			got = true
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return "", err
			}
		}
	}
	if !got {
		return "", errors.New("model closed without a response")
	}
	if text == "" {
		return NoResponseText, nil
	}
	return text, nil
}

// Canned critiques returned by MockModel; the long one exercises scrolling and
// markdown rendering in the panel.
const (
	MockLongCritique = `### **Mock Analysis (Long Version)**
This response is designed to test **scrolling behavior**, *markdown parsing*, and layout stability.

*   **Integration:** The subject is well integrated but the shadows are wrong.
*   **Lighting:** Global illumination is cool, but local light is warm.
*   **Color:** The palette is split-complementary.

Here is a long paragraph to ensure that text wrapping is functioning correctly. If the layout is broken, this text might spill out of the message, overlap with other messages, or cause the chat window to grow instead of scrolling.

#### Action Plan
1.  **Darken** the background by 20%.
2.  **Add** a rim light to the left.
3.  **Desaturate** the reds in the foreground.`

	MockShortCritique = `### **Mock Analysis (Short)**
*   **Verdict:** Great photo!
*   **Fix:** Just lower the exposure slightly.`
)

// MockOptions configure a MockModel.
type MockOptions struct {
	// MinDelay and MaxDelay bound the simulated network latency.
	MinDelay time.Duration
	MaxDelay time.Duration
	// Seed makes the short/long choice deterministic.
	Seed int64
}

// MockModel is a lightweight in‑memory Model for offline use and tests. It
// answers with a canned short or long critique after a simulated delay.
// Registered prompt responses take precedence.
type MockModel struct {
	opts      MockOptions
	mu        sync.Mutex
	rng       *rand.Rand
	responses map[string]string
	requests  []Request
}

// NewMockModel constructs a MockModel with a 0.5s-1.5s simulated delay.
func NewMockModel(optFns ...func(o *MockOptions)) *MockModel {
	opts := MockOptions{
		MinDelay: 500 * time.Millisecond,
		MaxDelay: 1500 * time.Millisecond,
		Seed:     time.Now().UnixNano(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxDelay < opts.MinDelay {
		opts.MaxDelay = opts.MinDelay
	}
	return &MockModel{
		opts:      opts,
		rng:       rand.New(rand.NewSource(opts.Seed)),
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for a prompt
// (matched against the text of the last content).
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// Requests returns the requests received so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 1)
	errCh := make(chan error, 1)

	m.mu.Lock()
	m.requests = append(m.requests, req)
	delay := m.opts.MinDelay
	if span := m.opts.MaxDelay - m.opts.MinDelay; span > 0 {
		delay += time.Duration(m.rng.Int63n(int64(span)))
	}
	long := m.rng.Intn(2) == 1
	var canned string
	if len(req.Contents) > 0 {
		canned = m.responses[req.Contents[len(req.Contents)-1].Text()]
	}
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)
		if len(req.Contents) == 0 {
			errCh <- errors.New("no contents provided")
			return
		}
		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case <-timer.C:
			}
		}
		text := canned
		if text == "" {
			text = MockShortCritique
			if long {
				text = MockLongCritique
			}
		}
		respCh <- Response{
			Content:      core.NewTextContent(core.RoleModel, text),
			FinishReason: "stop",
		}
	}()
	return respCh, errCh
}

// Info implements Model.
func (m *MockModel) Info() Info { return Info{Name: MockModelName, Provider: "mock"} }
