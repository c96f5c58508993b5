// Package markdown renders model replies. ToHTML targets web panels and
// ToTerminal the chat panel; both treat the input as untrusted, so raw HTML in
// a reply is escaped rather than passed through.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var htmlRenderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// ToHTML converts markdown to an HTML fragment. Empty input yields "".
func ToHTML(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	var buf bytes.Buffer
	if err := htmlRenderer.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// TerminalRenderer renders markdown with ANSI styling for a fixed width.
type TerminalRenderer struct {
	r     *glamour.TermRenderer
	width int
}

// NewTerminalRenderer creates a renderer wrapping at width columns. style is a
// glamour standard style (dark, light, notty, ...); empty picks one from the
// terminal background.
func NewTerminalRenderer(width int, style string) (*TerminalRenderer, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("create terminal renderer: %w", err)
	}
	return &TerminalRenderer{r: r, width: width}, nil
}

// Width returns the wrap width.
func (t *TerminalRenderer) Width() int { return t.width }

// Render converts markdown to styled terminal text.
func (t *TerminalRenderer) Render(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	out, err := t.r.Render(text)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return strings.TrimRight(out, "\n"), nil
}

// ToTerminal renders text once with the given width and style.
func ToTerminal(text string, width int, style string) (string, error) {
	r, err := NewTerminalRenderer(width, style)
	if err != nil {
		return "", err
	}
	return r.Render(text)
}
