package core

import (
	"time"

	"github.com/google/uuid"
)

// NewID returns a random identifier for conversations and messages.
func NewID() string { return uuid.NewString() }

// Message is one entry of a conversation log.
type Message struct {
	ID      string    `json:"id"`
	Role    string    `json:"role"`
	Content Content   `json:"content"`
	Display string    `json:"display"` // Text shown in the panel; may differ from Content (notes, errors)
	Created time.Time `json:"created"`
	// Error marks messages reporting a failure. They are shown but never sent
	// back to the model.
	Error bool `json:"error,omitempty"`
}

// NewMessage creates a message whose display text is the content text.
func NewMessage(content Content) Message {
	return Message{
		ID:      NewID(),
		Role:    content.Role,
		Content: content,
		Display: content.Text(),
		Created: time.Now().UTC(),
	}
}

// NewErrorMessage creates a model-authored message describing err.
func NewErrorMessage(err error) Message {
	text := "Error: " + err.Error()
	return Message{
		ID:      NewID(),
		Role:    RoleModel,
		Content: NewTextContent(RoleModel, text),
		Display: text,
		Created: time.Now().UTC(),
		Error:   true,
	}
}
