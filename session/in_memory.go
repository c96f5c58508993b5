package session

import (
	"sync"

	"github.com/hupe1980/critique/core"
)

// InMemoryStore is a volatile ConversationStore implementation storing
// conversations in a process local map. It is safe for concurrent access and
// matches the panel's lifetime: conversations vanish with the process. Each
// returned conversation is cloned to prevent external mutation of internal
// state.
type InMemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*core.Conversation
}

// NewInMemoryStore constructs an empty in‑memory conversation store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{conversations: make(map[string]*core.Conversation)}
}

// Create forces the creation (or overwriting) of a conversation with the given id.
func (s *InMemoryStore) Create(id string) (*core.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := core.NewConversation(id)
	s.conversations[id] = c
	return c.Clone(), nil
}

// Get returns a clone of an existing conversation or core.ErrConversationNotFound.
func (s *InMemoryStore) Get(id string) (*core.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, core.ErrConversationNotFound
	}
	return c.Clone(), nil
}

// Append adds a message to an existing conversation.
func (s *InMemoryStore) Append(id string, msg core.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return core.ErrConversationNotFound
	}
	c.Append(msg)
	return nil
}

// Delete drops a conversation; unknown ids are ignored.
func (s *InMemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, id)
	return nil
}
