package critique

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/hupe1980/critique/capture"
	"github.com/hupe1980/critique/core"
	"github.com/hupe1980/critique/internal/testutil"
	"github.com/hupe1980/critique/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockLLM is a testify-backed model returning one scripted response or error.
type mockLLM struct{ mock.Mock }

func (m *mockLLM) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	args := m.Called(ctx, req)
	respCh := make(chan model.Response, 1)
	errCh := make(chan error, 1)
	if err := args.Error(1); err != nil {
		errCh <- err
	} else {
		respCh <- args.Get(0).(model.Response)
	}
	close(respCh)
	close(errCh)
	return respCh, errCh
}

func (m *mockLLM) Info() model.Info { return model.Info{Name: "mock-llm", Provider: "test"} }

type harness struct {
	rec    *testutil.Recorder
	host   *testutil.FakeHost
	model  *model.MockModel
	critic *Critic

	mu   sync.Mutex
	seen []core.Message
}

func newHarness(t *testing.T, optFns ...func(o *Options)) *harness {
	t.Helper()
	h := &harness{rec: &testutil.Recorder{}}
	doc := testutil.NewDocumentBuilder("photo").Size(800, 600).Build(h.rec)
	h.host = testutil.NewFakeHost(doc, h.rec)
	h.model = model.NewMockModel(func(o *model.MockOptions) {
		o.MinDelay = 0
		o.MaxDelay = 0
		o.Seed = 1
	})
	svc := capture.New(h.host, testutil.NewFakeStorage(h.rec))
	fns := append([]func(o *Options){func(o *Options) {
		o.OnMessage = func(m core.Message) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.seen = append(h.seen, m)
		}
	}}, optFns...)
	h.critic = New(svc, h.model, fns...)
	return h
}

func (h *harness) notified() []core.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]core.Message(nil), h.seen...)
}

func TestScan(t *testing.T) {
	h := newHarness(t)
	h.model.AddResponse("How is the lighting?", "The lighting is flat.")

	reply, err := h.critic.Scan(context.Background(), "How is the lighting?")
	require.NoError(t, err)

	assert.Equal(t, core.RoleModel, reply.Role)
	assert.Equal(t, "The lighting is flat.", reply.Display)
	assert.NotEmpty(t, h.critic.ConversationID())

	msgs := h.critic.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, core.RoleUser, msgs[0].Role)
	assert.Equal(t, "How is the lighting?", msgs[0].Display)
	images := msgs[0].Content.Images()
	require.Len(t, images, 1)
	assert.Equal(t, "image/jpeg", images[0].MimeType)
	assert.NotEmpty(t, images[0].Data)
	assert.Equal(t, reply.ID, msgs[1].ID)

	assert.Len(t, h.notified(), 2)
	assert.Equal(t, 1, h.rec.Count("active"))

	reqs := h.model.Requests()
	require.Len(t, reqs, 1)
	require.Len(t, reqs[0].Contents, 1)
	assert.Equal(t, "How is the lighting?", reqs[0].Contents[0].Text())
}

func TestScan_BlankPromptUsesDefault(t *testing.T) {
	h := newHarness(t)

	_, err := h.critic.Scan(context.Background(), "   ")
	require.NoError(t, err)

	assert.Equal(t, DefaultPrompt, h.critic.Messages()[0].Display)
}

func TestScan_DiscardsPreviousConversation(t *testing.T) {
	h := newHarness(t)

	_, err := h.critic.Scan(context.Background(), "first")
	require.NoError(t, err)
	first := h.critic.ConversationID()

	_, err = h.critic.Scan(context.Background(), "second")
	require.NoError(t, err)

	assert.NotEqual(t, first, h.critic.ConversationID())
	msgs := h.critic.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "second", msgs[0].Display)
	assert.Len(t, h.model.Requests()[1].Contents, 1)
}

func TestScan_NoActiveDocument(t *testing.T) {
	h := newHarness(t)
	h.host.Doc = nil

	_, err := h.critic.Scan(context.Background(), "critique")
	require.ErrorIs(t, err, capture.ErrNoActiveDocument)

	msgs := h.critic.Messages()
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Error)
	assert.Equal(t, "Error: "+capture.ErrNoActiveDocument.Error(), msgs[0].Display)
	assert.Empty(t, h.model.Requests())
}

func TestScan_ModelError(t *testing.T) {
	rec := &testutil.Recorder{}
	doc := testutil.NewDocumentBuilder("photo").Build(rec)
	llm := &mockLLM{}
	apiErr := errors.New("invalid key")
	llm.On("Generate", mock.Anything, mock.Anything).Return(model.Response{}, apiErr).Once()
	llm.On("Generate", mock.Anything, mock.Anything).
		Return(model.Response{Content: core.NewTextContent(core.RoleModel, "Better now.")}, nil)

	c := New(capture.New(testutil.NewFakeHost(doc, rec), testutil.NewFakeStorage(rec)), llm)

	_, err := c.Scan(context.Background(), "critique")
	require.Error(t, err)

	var modelErr *ModelError
	require.ErrorAs(t, err, &modelErr)
	assert.Equal(t, "mock-llm", modelErr.Model)
	assert.ErrorIs(t, err, apiErr)

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.True(t, msgs[1].Error)
	assert.True(t, strings.HasPrefix(msgs[1].Display, "Error: "))

	// The failed turn can be retried with a reply; the error is not sent back.
	reply, err := c.Reply(context.Background(), "try again")
	require.NoError(t, err)
	assert.Equal(t, "Better now.", reply.Display)

	llm.AssertNumberOfCalls(t, "Generate", 2)
	last := llm.Calls[1].Arguments.Get(1).(model.Request)
	require.Len(t, last.Contents, 2)
	for _, content := range last.Contents {
		assert.Equal(t, core.RoleUser, content.Role)
	}
}

func TestScan_EmptyModelReply(t *testing.T) {
	rec := &testutil.Recorder{}
	doc := testutil.NewDocumentBuilder("photo").Build(rec)
	llm := &mockLLM{}
	llm.On("Generate", mock.Anything, mock.Anything).
		Return(model.Response{Content: core.Content{Role: core.RoleModel}}, nil)

	c := New(capture.New(testutil.NewFakeHost(doc, rec), testutil.NewFakeStorage(rec)), llm)

	reply, err := c.Scan(context.Background(), "critique")
	require.NoError(t, err)
	assert.Equal(t, model.NoResponseText, reply.Display)
}

func TestReply(t *testing.T) {
	h := newHarness(t)

	_, err := h.critic.Reply(context.Background(), "hello")
	require.ErrorIs(t, err, ErrNoConversation)

	_, err = h.critic.Scan(context.Background(), "critique")
	require.NoError(t, err)

	_, err = h.critic.Reply(context.Background(), "  \n ")
	require.ErrorIs(t, err, ErrEmptyMessage)

	_, err = h.critic.Reply(context.Background(), "  I fixed the horizon  ")
	require.NoError(t, err)

	msgs := h.critic.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, "I fixed the horizon "+ReplyNote, msgs[2].Display)
	assert.Equal(t, "I fixed the horizon", msgs[2].Content.Text())
	assert.Len(t, msgs[2].Content.Images(), 1)

	assert.Equal(t, 2, h.rec.Count("active"), "every reply recaptures")

	reqs := h.model.Requests()
	require.Len(t, reqs, 2)
	contents := reqs[1].Contents
	require.Len(t, contents, 3)
	assert.Equal(t, []string{core.RoleUser, core.RoleModel, core.RoleUser},
		[]string{contents[0].Role, contents[1].Role, contents[2].Role})
	assert.Len(t, contents[2].Images(), 1)
}

func TestMaxTurns(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.MaxTurns = 1 })

	_, err := h.critic.Scan(context.Background(), "critique")
	require.NoError(t, err)

	_, err = h.critic.Reply(context.Background(), "more")
	require.ErrorIs(t, err, ErrTurnLimitExceeded)
	assert.Equal(t, 1, h.rec.Count("active"), "no capture once the limit is hit")

	// A new scan resets the budget.
	_, err = h.critic.Scan(context.Background(), "again")
	require.NoError(t, err)
}

func TestInstructionTemplate(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.Instruction = "You critique for {{.model}} (turn {{.turn}})."
	})

	_, err := h.critic.Scan(context.Background(), "critique")
	require.NoError(t, err)
	_, err = h.critic.Reply(context.Background(), "and now?")
	require.NoError(t, err)

	reqs := h.model.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "You critique for mock-model (turn 1).", reqs[0].Instructions)
	assert.Equal(t, "You critique for mock-model (turn 2).", reqs[1].Instructions)
}

func TestNewScan(t *testing.T) {
	h := newHarness(t)

	h.critic.NewScan() // no-op without a conversation

	_, err := h.critic.Scan(context.Background(), "critique")
	require.NoError(t, err)

	h.critic.NewScan()
	assert.Empty(t, h.critic.ConversationID())
	assert.Nil(t, h.critic.Messages())

	_, err = h.critic.Reply(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNoConversation)
}

func TestCancelledContext(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.critic.Scan(ctx, "critique")
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.model.Requests())
}
