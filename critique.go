// Package critique provides a high-level façade for image critiques: it
// captures the active document of an editing host, sends it with a prompt to a
// vision model and keeps the resulting multi-turn conversation. Most
// applications interact with this package by:
//  1. Creating a Critic via New() with a capturer (usually *capture.Service) and a model
//  2. Starting a conversation with Scan
//  3. Following up with Reply, which re-captures the image for every turn
//
// Messages are delivered to an optional OnMessage callback as they are
// appended, which lets a UI render the log incrementally. The default
// conversation store is in-memory; conversations never outlive the process.
package critique

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/critique/core"
	"github.com/hupe1980/critique/internal/util"
	"github.com/hupe1980/critique/logging"
	"github.com/hupe1980/critique/model"
	"github.com/hupe1980/critique/session"
)

// ReplyNote is appended to the displayed text of every reply.
const ReplyNote = "(Sent with updated image)"

// DefaultPrompt is used by Scan when the prompt is blank.
const DefaultPrompt = "Give me a detailed critique of this image. Cover composition, lighting, color, " +
	"focus and editing, then list concrete improvements."

var (
	// ErrNoConversation is returned by Reply before the first Scan or after NewScan.
	ErrNoConversation = errors.New("no active conversation, start a new scan first")
	// ErrEmptyMessage is returned by Reply for blank text.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrTurnLimitExceeded is returned when MaxTurns model calls were made in a conversation.
	ErrTurnLimitExceeded = errors.New("turn limit exceeded")
)

// ModelError wraps a failure of the model call.
type ModelError struct {
	Model string
	Err   error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("%s: %v", e.Model, e.Err)
}

// Unwrap returns the underlying error.
func (e *ModelError) Unwrap() error { return e.Err }

// Capturer produces a data URI of the current image.
type Capturer interface {
	Capture(ctx context.Context) (string, error)
}

// modelCallLogger is implemented by loggers with a dedicated model call record
// (logging.CritiqueLogger).
type modelCallLogger interface {
	LogModelCall(model string, dur time.Duration, err error)
}

// Options configures the Critic.
type Options struct {
	// Store keeps conversations (defaults to session.InMemoryStore).
	Store core.ConversationStore

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger

	// Instruction is the system prompt. It is rendered as a text/template with
	// {{.model}} (model name) and {{.turn}} (1-based turn number).
	Instruction string

	// Prompt replaces a blank Scan prompt (defaults to DefaultPrompt).
	Prompt string

	// MaxTurns caps model calls per conversation. Zero means unlimited.
	MaxTurns int

	// OnMessage is invoked synchronously for every appended message. It may
	// call Messages but must not start another Scan or Reply.
	OnMessage func(core.Message)
}

// Critic drives critique conversations. Scan and Reply are serialized; other
// methods are safe to call concurrently.
type Critic struct {
	capturer Capturer
	model    model.Model
	opts     Options

	opMu sync.Mutex // serializes Scan and Reply

	mu      sync.RWMutex
	convID  string
	limiter *core.TurnLimiter
}

// New creates a Critic. Unset options fall back to in-memory defaults.
func New(capturer Capturer, m model.Model, optFns ...func(o *Options)) *Critic {
	opts := Options{
		Store:  session.NewInMemoryStore(),
		Logger: logging.NoOpLogger{},
		Prompt: DefaultPrompt,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Store == nil {
		opts.Store = session.NewInMemoryStore()
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	if strings.TrimSpace(opts.Prompt) == "" {
		opts.Prompt = DefaultPrompt
	}

	return &Critic{capturer: capturer, model: m, opts: opts}
}

// Scan starts a new conversation: any previous history is discarded, the
// current image is captured and sent with prompt. It returns the model's reply.
// Failures are also appended to the log as error messages.
func (c *Critic) Scan(ctx context.Context, prompt string) (core.Message, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if strings.TrimSpace(prompt) == "" {
		prompt = c.opts.Prompt
	}

	id, err := c.startConversation()
	if err != nil {
		return core.Message{}, err
	}

	c.opts.Logger.Info("scan started", "conversation_id", id, "model", c.model.Info().Name)

	return c.turn(ctx, id, prompt, prompt)
}

// Reply sends a follow-up with a freshly captured image. The displayed text
// carries ReplyNote.
func (c *Critic) Reply(ctx context.Context, text string) (core.Message, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	text = strings.TrimSpace(text)
	if text == "" {
		return core.Message{}, ErrEmptyMessage
	}

	id := c.ConversationID()
	if id == "" {
		return core.Message{}, ErrNoConversation
	}

	return c.turn(ctx, id, text, text+" "+ReplyNote)
}

// NewScan clears the active conversation.
func (c *Critic) NewScan() {
	c.mu.Lock()
	id := c.convID
	c.convID = ""
	c.limiter = nil
	c.mu.Unlock()

	if id == "" {
		return
	}

	if err := c.opts.Store.Delete(id); err != nil && !errors.Is(err, core.ErrConversationNotFound) {
		c.opts.Logger.Warn("failed to delete conversation", "conversation_id", id, "error", err)
	}
}

// Messages returns a copy of the active conversation's log.
func (c *Critic) Messages() []core.Message {
	id := c.ConversationID()
	if id == "" {
		return nil
	}

	conv, err := c.opts.Store.Get(id)
	if err != nil {
		return nil
	}

	return conv.Messages()
}

// ConversationID returns the active conversation id or "".
func (c *Critic) ConversationID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.convID
}

// Model returns the model used for critiques.
func (c *Critic) Model() model.Info { return c.model.Info() }

func (c *Critic) startConversation() (string, error) {
	c.NewScan()

	id := core.NewID()
	if _, err := c.opts.Store.Create(id); err != nil {
		return "", fmt.Errorf("create conversation: %w", err)
	}

	c.mu.Lock()
	c.convID = id
	c.limiter = core.NewTurnLimiter(c.opts.MaxTurns)
	c.mu.Unlock()

	return id, nil
}

// turn captures the image, appends the user message and asks the model.
func (c *Critic) turn(ctx context.Context, id, text, display string) (core.Message, error) {
	limiter := c.turnLimiter()
	if err := limiter.Increment(); err != nil {
		return core.Message{}, c.fail(id, fmt.Errorf("%w: %v", ErrTurnLimitExceeded, err))
	}

	uri, err := c.capturer.Capture(ctx)
	if err != nil {
		return core.Message{}, c.fail(id, err)
	}

	image, err := core.NewImagePart(uri)
	if err != nil {
		return core.Message{}, c.fail(id, fmt.Errorf("decode capture: %w", err))
	}

	user := core.NewMessage(core.NewUserImageContent(text, image))
	user.Display = display
	c.append(id, user)

	conv, err := c.opts.Store.Get(id)
	if err != nil {
		return core.Message{}, fmt.Errorf("load conversation: %w", err)
	}

	instructions, err := util.RenderTemplate(c.opts.Instruction, map[string]any{
		"model": c.model.Info().Name,
		"turn":  limiter.Count(),
	})
	if err != nil {
		return core.Message{}, c.fail(id, fmt.Errorf("render instruction: %w", err))
	}

	start := time.Now()
	answer, err := model.Collect(ctx, c.model, model.Request{
		Instructions: instructions,
		Contents:     conv.Contents(),
	})
	c.logModelCall(time.Since(start), err)
	if err != nil {
		return core.Message{}, c.fail(id, &ModelError{Model: c.model.Info().Name, Err: err})
	}

	reply := core.NewMessage(core.NewTextContent(core.RoleModel, answer))
	c.append(id, reply)

	return reply, nil
}

func (c *Critic) turnLimiter() *core.TurnLimiter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.limiter == nil {
		return core.NewTurnLimiter(c.opts.MaxTurns)
	}
	return c.limiter
}

// fail records err as an error message and returns it.
func (c *Critic) fail(id string, err error) error {
	c.opts.Logger.Error("critique turn failed", "conversation_id", id, "error", err)
	c.append(id, core.NewErrorMessage(err))
	return err
}

func (c *Critic) append(id string, msg core.Message) {
	if err := c.opts.Store.Append(id, msg); err != nil {
		// The conversation was discarded by NewScan while the turn was running.
		c.opts.Logger.Debug("message dropped", "conversation_id", id, "error", err)
		return
	}
	if c.opts.OnMessage != nil {
		c.opts.OnMessage(msg)
	}
}

func (c *Critic) logModelCall(dur time.Duration, err error) {
	name := c.model.Info().Name
	if l, ok := c.opts.Logger.(modelCallLogger); ok {
		l.LogModelCall(name, dur, err)
		return
	}
	if err != nil {
		c.opts.Logger.Warn("model call failed", "model", name, "duration", dur, "error", err)
	}
}
