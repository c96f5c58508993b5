package testutil

import (
	"github.com/hupe1980/critique/core"
)

// ConversationBuilder helps construct conversations with fluent chaining for tests.
// Example:
//
//	conv := NewConversationBuilder("c-1").User("Critique this").Model("Nice light.").Build()
type ConversationBuilder struct {
	id       string
	messages []core.Message
}

// NewConversationBuilder creates a new builder for a conversation with the given id.
func NewConversationBuilder(id string) *ConversationBuilder {
	return &ConversationBuilder{id: id}
}

// User appends a user text message (chainable).
func (b *ConversationBuilder) User(text string) *ConversationBuilder {
	b.messages = append(b.messages, core.NewMessage(core.NewTextContent(core.RoleUser, text)))
	return b
}

// UserImage appends a user message carrying text and an image (chainable).
func (b *ConversationBuilder) UserImage(text string, image core.ImagePart) *ConversationBuilder {
	b.messages = append(b.messages, core.NewMessage(core.NewUserImageContent(text, image)))
	return b
}

// Model appends a model reply (chainable).
func (b *ConversationBuilder) Model(text string) *ConversationBuilder {
	b.messages = append(b.messages, core.NewMessage(core.NewTextContent(core.RoleModel, text)))
	return b
}

// Error appends an error message (chainable).
func (b *ConversationBuilder) Error(err error) *ConversationBuilder {
	b.messages = append(b.messages, core.NewErrorMessage(err))
	return b
}

// Build returns a *core.Conversation with the pre-populated log.
func (b *ConversationBuilder) Build() *core.Conversation {
	c := core.NewConversation(b.id)
	for _, m := range b.messages {
		c.Append(m)
	}
	return c
}

// BuildInto creates the conversation in store and appends the log.
func (b *ConversationBuilder) BuildInto(store core.ConversationStore) error {
	if _, err := store.Create(b.id); err != nil {
		return err
	}
	for _, m := range b.messages {
		if err := store.Append(b.id, m); err != nil {
			return err
		}
	}
	return nil
}
