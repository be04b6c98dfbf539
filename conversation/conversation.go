// Package conversation holds the persisted chat model: personas,
// conversations and their append-only message history, plus the Store
// abstraction the orchestrator writes through on every mutation.
package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a conversation or persona does not exist.
var ErrNotFound = errors.New("conversation: not found")

// Role identifies which side of the conversation produced a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// ChatMode selects how a persona converses.
type ChatMode string

const (
	ModeStandard ChatMode = "standard"
	ModeLive     ChatMode = "live"
)

// GroundingURL is a citation link attached to a grounded completion.
type GroundingURL struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// Message is one immutable entry in a conversation. IsLive marks messages
// transcribed from a live audio session rather than typed.
type Message struct {
	ID            string         `json:"id"`
	Role          Role           `json:"role"`
	Text          string         `json:"text"`
	IsLive        bool           `json:"isLive,omitempty"`
	GroundingURLs []GroundingURL `json:"groundingUrls,omitempty"`
}

// Persona describes an assistant identity, including the prebuilt voice
// used for live sessions and TTS.
type Persona struct {
	ID                  string   `json:"id"`
	FirstName           string   `json:"firstName"`
	LastName            string   `json:"lastName"`
	Interests           []string `json:"interests"`
	PsychologicalTraits string   `json:"psychologicalTraits"`
	VoiceName           string   `json:"voiceName"`
	ToneDescription     string   `json:"toneDescription"`
	ChatMode            ChatMode `json:"chatMode"`
}

// Conversation is an ordered, append-only message sequence bound to one
// persona. Insertion order is chronological order and must be preserved.
type Conversation struct {
	ID        string     `json:"id"`
	PersonaID string     `json:"personaId"`
	Messages  []*Message `json:"messages"`
	CreatedAt time.Time  `json:"createdAt"`
}

// NewConversation creates an empty conversation for a persona.
func NewConversation(personaID string) *Conversation {
	return &Conversation{
		ID:        uuid.New().String(),
		PersonaID: personaID,
		CreatedAt: time.Now(),
	}
}

// NewMessage creates a message with a fresh ID.
func NewMessage(role Role, text string) *Message {
	return &Message{
		ID:   uuid.New().String(),
		Role: role,
		Text: text,
	}
}

// Append adds a message to the end of the history.
func (c *Conversation) Append(msg *Message) {
	c.Messages = append(c.Messages, msg)
}

// Store persists personas and conversations. Implementations must keep
// message order exactly as written.
type Store interface {
	SaveConversation(ctx context.Context, conv *Conversation) error
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	ListConversations(ctx context.Context) ([]*Conversation, error)

	SavePersona(ctx context.Context, p *Persona) error
	GetPersona(ctx context.Context, id string) (*Persona, error)
	ListPersonas(ctx context.Context) ([]*Persona, error)
}
