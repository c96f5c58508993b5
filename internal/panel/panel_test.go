package panel

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/critique/core"
	"github.com/hupe1980/critique/model"
)

type fakeCritic struct {
	mu       sync.Mutex
	messages []core.Message
	scans    []string
	replies  []string
	newScans int
	scanErr  error
}

func (f *fakeCritic) Scan(_ context.Context, prompt string) (core.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans = append(f.scans, prompt)
	f.messages = []core.Message{core.NewMessage(core.NewTextContent(core.RoleUser, prompt))}
	if f.scanErr != nil {
		f.messages = append(f.messages, core.NewErrorMessage(f.scanErr))
		return core.Message{}, f.scanErr
	}
	reply := core.NewMessage(core.NewTextContent(core.RoleModel, "### Verdict\nNice **contrast**."))
	f.messages = append(f.messages, reply)
	return reply, nil
}

func (f *fakeCritic) Reply(_ context.Context, text string) (core.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, text)
	user := core.NewMessage(core.NewTextContent(core.RoleUser, text))
	user.Display = text + " (Sent with updated image)"
	reply := core.NewMessage(core.NewTextContent(core.RoleModel, "Better."))
	f.messages = append(f.messages, user, reply)
	return reply, nil
}

func (f *fakeCritic) NewScan() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.newScans++
	f.messages = nil
}

func (f *fakeCritic) Messages() []core.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.Message(nil), f.messages...)
}

func (f *fakeCritic) Model() model.Info { return model.Info{Name: "mock-model", Provider: "mock"} }

func newTestModel(c Critic) Model {
	m := New(c, func(o *Options) {
		o.Prompt = "Critique this"
		o.Style = "notty"
	})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(Model)
}

// runTurn executes the batch returned by an enter key press and feeds the
// resulting turnDoneMsg back into the model.
func runTurn(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok)
	for _, c := range batch {
		if c == nil {
			continue
		}
		if done, ok := c().(turnDoneMsg); ok {
			next, _ := m.Update(done)
			return next.(Model)
		}
	}
	t.Fatal("no turnDoneMsg in batch")
	return m
}

func press(m Model, key tea.KeyType) (Model, tea.Cmd) {
	next, cmd := m.Update(tea.KeyMsg{Type: key})
	return next.(Model), cmd
}

func TestScanThenReply(t *testing.T) {
	c := &fakeCritic{}
	m := newTestModel(c)
	assert.Equal(t, stagePrompt, m.stage)
	assert.Equal(t, "Critique this", m.input.Value())

	m, cmd := press(m, tea.KeyEnter)
	assert.True(t, m.loading)
	assert.Contains(t, m.View(), "analyzing")

	// Enter while loading is ignored.
	_, ignored := press(m, tea.KeyEnter)
	assert.Nil(t, ignored)

	m = runTurn(t, m, cmd)
	assert.False(t, m.loading)
	assert.Equal(t, stageChat, m.stage)
	assert.Equal(t, []string{"Critique this"}, c.scans)
	assert.Contains(t, m.vp.View(), "Verdict")

	m.input.SetValue("What about the sky?")
	m, cmd = press(m, tea.KeyEnter)
	m = runTurn(t, m, cmd)
	assert.Equal(t, []string{"What about the sky?"}, c.replies)
	assert.Contains(t, m.render(c.Messages()), "(Sent with updated image)")
}

func TestEmptyReplyIsIgnored(t *testing.T) {
	c := &fakeCritic{}
	m := newTestModel(c)
	m, cmd := press(m, tea.KeyEnter)
	m = runTurn(t, m, cmd)

	m.input.SetValue("   ")
	m, cmd = press(m, tea.KeyEnter)
	assert.Nil(t, cmd)
	assert.False(t, m.loading)
	assert.Empty(t, c.replies)
}

func TestScanErrorStaysOnPrompt(t *testing.T) {
	c := &fakeCritic{scanErr: errors.New("no active document found, please open an image")}
	m := newTestModel(c)

	m, cmd := press(m, tea.KeyEnter)
	m = runTurn(t, m, cmd)

	assert.Equal(t, stagePrompt, m.stage)
	assert.False(t, m.loading)
	assert.Equal(t, "Critique this", m.input.Value())
	assert.Contains(t, m.vp.View(), "Error: no active document found")
}

func TestNewScan(t *testing.T) {
	c := &fakeCritic{}
	m := newTestModel(c)
	m, cmd := press(m, tea.KeyEnter)
	m = runTurn(t, m, cmd)
	require.Equal(t, stageChat, m.stage)

	m, cmd = press(m, tea.KeyCtrlN)
	assert.Nil(t, cmd)
	assert.Equal(t, 1, c.newScans)
	assert.Equal(t, stagePrompt, m.stage)
	assert.Equal(t, "Critique this", m.input.Value())
	assert.NotContains(t, m.View(), "Verdict")
}

func TestQuit(t *testing.T) {
	m := newTestModel(&fakeCritic{})
	_, cmd := press(m, tea.KeyCtrlC)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
