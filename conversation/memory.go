package conversation

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is the in-process Store, used when Redis is unavailable and
// in tests. Values are copied on the way in and out so callers cannot
// mutate stored history.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
	personas      map[string]*Persona
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*Conversation),
		personas:      make(map[string]*Persona),
	}
}

func copyConversation(c *Conversation) *Conversation {
	out := *c
	out.Messages = make([]*Message, len(c.Messages))
	for i, m := range c.Messages {
		msg := *m
		out.Messages[i] = &msg
	}
	return &out
}

// SaveConversation stores a snapshot of conv.
func (s *MemoryStore) SaveConversation(ctx context.Context, conv *Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[conv.ID] = copyConversation(conv)
	return nil
}

// GetConversation returns a copy of the stored conversation.
func (s *MemoryStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyConversation(c), nil
}

// ListConversations returns all conversations, newest first.
func (s *MemoryStore) ListConversations(ctx context.Context) ([]*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		out = append(out, copyConversation(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// SavePersona stores a snapshot of p.
func (s *MemoryStore) SavePersona(ctx context.Context, p *Persona) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.personas[p.ID] = &cp
	return nil
}

// GetPersona returns a copy of the stored persona.
func (s *MemoryStore) GetPersona(ctx context.Context, id string) (*Persona, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.personas[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// ListPersonas returns all personas sorted by ID.
func (s *MemoryStore) ListPersonas(ctx context.Context) ([]*Persona, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Persona, 0, len(s.personas))
	for _, p := range s.personas {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
