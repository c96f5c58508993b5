package core

import (
	"errors"
	"sync"
	"time"
)

// ErrConversationNotFound is returned by stores for unknown conversation ids.
var ErrConversationNotFound = errors.New("conversation not found")

// Conversation is an append-only ordered message log. It is safe for
// concurrent access.
//
// Contract:
//   - Append updates Updated
//   - Messages returns a defensive copy
//   - Contents excludes error messages so failures are never sent to a model
//   - Clone performs a deep copy of the message slice for safe divergence.
type Conversation struct {
	ID       string
	Created  time.Time
	Updated  time.Time
	messages []Message
	mu       sync.RWMutex
}

// NewConversation creates an empty conversation with the given ID.
func NewConversation(id string) *Conversation {
	now := time.Now()
	return &Conversation{ID: id, Created: now, Updated: now}
}

// Append adds a message to the end of the log.
func (c *Conversation) Append(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
	c.Updated = time.Now()
}

// Messages returns a copy of the full log.
func (c *Conversation) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Contents returns the model history: every non-error message's content in order.
func (c *Conversation) Contents() []Content {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Content, 0, len(c.messages))
	for _, m := range c.messages {
		if m.Error {
			continue
		}
		out = append(out, m.Content)
	}
	return out
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Clone returns a deep copy safe for independent mutation.
func (c *Conversation) Clone() *Conversation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	clone := &Conversation{ID: c.ID, Created: c.Created, Updated: c.Updated, messages: make([]Message, len(c.messages))}
	copy(clone.messages, c.messages)
	return clone
}

// ConversationStore persists conversations and their message logs.
type ConversationStore interface {
	Create(id string) (*Conversation, error)
	Get(id string) (*Conversation, error)
	Append(id string, msg Message) error
	Delete(id string) error
}
