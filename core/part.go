package core

import (
	"strings"

	"github.com/hupe1980/critique/datauri"
)

// Conversation roles. Providers translate RoleModel to their own assistant role.
const (
	RoleUser   = "user"
	RoleModel  = "model"
	RoleSystem = "system"
)

// Part represents a polymorphic segment of role-based content. Concrete part
// types implement the unexported isPart marker enabling a closed set.
type Part interface{ isPart() }

// TextPart is a plain text content segment.
type TextPart struct {
	Text string // Plain UTF-8 text
}

// isPart implements the Part interface for TextPart.
func (TextPart) isPart() {}

// ImagePart is an inline image segment.
type ImagePart struct {
	MimeType string // e.g. image/jpeg
	Data     string // Base64 encoded bytes (no data URI prefix)
}

// isPart implements the Part interface for ImagePart.
func (ImagePart) isPart() {}

// DataURI returns the image as a data:<mime>;base64,<payload> string.
func (p ImagePart) DataURI() string {
	return "data:" + p.MimeType + ";base64," + p.Data
}

// NewImagePart builds an ImagePart from a base64 image data URI such as the
// result of a capture.
func NewImagePart(uri string) (ImagePart, error) {
	mimeType, payload, err := datauri.Parse(uri)
	if err != nil {
		return ImagePart{}, err
	}
	return ImagePart{MimeType: mimeType, Data: payload}, nil
}

// Content holds role + ordered parts.
type Content struct {
	Role  string `json:"role,omitempty"` // Conversation role (user, model, system)
	Parts []Part `json:"parts"`          // Ordered heterogeneous parts
}

// Text concatenates all text parts.
func (c Content) Text() string {
	var b strings.Builder
	for _, p := range c.Parts {
		if tp, ok := p.(TextPart); ok {
			b.WriteString(tp.Text)
		}
	}
	return b.String()
}

// Images returns the image parts in order.
func (c Content) Images() []ImagePart {
	var out []ImagePart
	for _, p := range c.Parts {
		if ip, ok := p.(ImagePart); ok {
			out = append(out, ip)
		}
	}
	return out
}

// NewTextContent creates single text part content.
func NewTextContent(role, text string) Content {
	return Content{Role: role, Parts: []Part{TextPart{Text: text}}}
}

// NewUserImageContent creates user content with the prompt followed by the image.
func NewUserImageContent(text string, image ImagePart) Content {
	return Content{Role: RoleUser, Parts: []Part{TextPart{Text: text}, image}}
}
