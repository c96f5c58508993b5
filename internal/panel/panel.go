// Package panel is the interactive chat panel: enter a prompt, scan the active
// image, then keep replying. Every reply re-captures the image.
package panel

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hupe1980/critique/core"
	"github.com/hupe1980/critique/markdown"
	"github.com/hupe1980/critique/model"
)

const appTitle = "critique"

// Critic is the conversation driver behind the panel (*critique.Critic).
type Critic interface {
	Scan(ctx context.Context, prompt string) (core.Message, error)
	Reply(ctx context.Context, text string) (core.Message, error)
	NewScan()
	Messages() []core.Message
	Model() model.Info
}

// Options configure the panel.
type Options struct {
	// Prompt prefills the scan prompt.
	Prompt string
	// Style is a glamour style name; empty detects the terminal background.
	Style string
}

type stage int

const (
	stagePrompt stage = iota
	stageChat
)

// turnDoneMsg reports the end of a Scan or Reply.
type turnDoneMsg struct {
	scan bool
	text string
	err  error
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	faintStyle = lipgloss.NewStyle().Faint(true)
	userStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	modelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Model is the bubbletea model of the panel.
type Model struct {
	critic Critic
	opts   Options

	ctx    context.Context
	cancel context.CancelFunc

	input textarea.Model
	vp    viewport.Model
	spin  spinner.Model
	md    *markdown.TerminalRenderer

	stage   stage
	loading bool
	width   int
	height  int
}

// New creates the panel model.
func New(critic Critic, optFns ...func(o *Options)) Model {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	ctx, cancel := context.WithCancel(context.Background())

	ta := textarea.New()
	ta.Placeholder = "What should the critique focus on?"
	ta.Prompt = "› "
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.SetWidth(80)
	ta.SetHeight(4)
	ta.SetValue(opts.Prompt)
	ta.Focus()

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		critic: critic,
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
		input:  ta,
		vp:     vp,
		spin:   sp,
		stage:  stagePrompt,
	}
}

// Run starts the panel in the alternate screen and blocks until it quits.
func Run(critic Critic, optFns ...func(o *Options)) error {
	_, err := tea.NewProgram(New(critic, optFns...), tea.WithAltScreen()).Run()
	return err
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.resize(msg.Width, msg.Height), nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.cancel()
			return m, tea.Quit

		case "ctrl+n":
			if m.loading {
				return m, nil
			}
			m.critic.NewScan()
			m.stage = stagePrompt
			m.input.Reset()
			m.input.SetValue(m.opts.Prompt)
			m.input.Focus()
			return m.refresh(), nil

		case "pgup":
			m.vp.HalfPageUp()
			return m, nil
		case "pgdown":
			m.vp.HalfPageDown()
			return m, nil

		case "enter":
			if m.loading {
				return m, nil
			}
			text := strings.TrimSpace(m.input.Value())
			if m.stage == stageChat && text == "" {
				return m, nil
			}
			m.loading = true
			m.input.Reset()
			m.input.Blur()
			return m, tea.Batch(m.spin.Tick, m.turn(m.stage == stagePrompt, text))
		}

	case turnDoneMsg:
		m.loading = false
		m.input.Focus()
		if msg.scan && msg.err == nil {
			m.stage = stageChat
		}
		if msg.scan && msg.err != nil {
			m.input.SetValue(msg.text)
		}
		return m.refresh(), nil

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if m.loading {
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	title := titleStyle.Render(appTitle)
	status := faintStyle.Render(" · " + m.critic.Model().Name)
	if m.loading {
		status += " " + m.spin.View() + " analyzing…"
	}

	var help string
	switch m.stage {
	case stagePrompt:
		help = "Enter = scan image • Esc/Ctrl+C = quit"
	default:
		help = "Enter = reply with updated image • Ctrl+N = new scan • PgUp/PgDn = scroll • Esc = quit"
	}

	parts := []string{title + status, ""}
	if m.stage == stageChat || len(m.critic.Messages()) > 0 {
		parts = append(parts, boxStyle.Render(m.vp.View()))
	}
	parts = append(parts, boxStyle.Render(m.input.View()), faintStyle.Render(help))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) turn(scan bool, text string) tea.Cmd {
	critic, ctx := m.critic, m.ctx
	return func() tea.Msg {
		var err error
		if scan {
			_, err = critic.Scan(ctx, text)
		} else {
			_, err = critic.Reply(ctx, text)
		}
		return turnDoneMsg{scan: scan, text: text, err: err}
	}
}

func (m Model) resize(w, h int) Model {
	if w <= 0 || h <= 0 {
		return m
	}
	m.width, m.height = w, h

	// title, blank line, help, two boxes with borders
	reserved := 3 + m.input.Height() + 4
	m.vp.Width = max(20, w-4)
	m.vp.Height = max(5, h-reserved)
	m.input.SetWidth(max(20, w-4))

	if r, err := markdown.NewTerminalRenderer(m.vp.Width, m.opts.Style); err == nil {
		m.md = r
	}
	return m.refresh()
}

// refresh re-renders the conversation into the viewport.
func (m Model) refresh() Model {
	m.vp.SetContent(m.render(m.critic.Messages()))
	m.vp.GotoBottom()
	return m
}

func (m Model) render(msgs []core.Message) string {
	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch {
		case msg.Error:
			b.WriteString(errorStyle.Render(msg.Display))
		case msg.Role == core.RoleUser:
			b.WriteString(userStyle.Render("You"))
			b.WriteString("\n")
			b.WriteString(msg.Display)
		default:
			b.WriteString(modelStyle.Render("Critique"))
			b.WriteString("\n")
			b.WriteString(m.renderMarkdown(msg.Display))
		}
	}
	return b.String()
}

func (m Model) renderMarkdown(text string) string {
	if m.md == nil {
		return text
	}
	out, err := m.md.Render(text)
	if err != nil {
		return fmt.Sprintf("%s\n%s", text, errorStyle.Render(err.Error()))
	}
	return out
}
