// Package messages defines the JSON envelopes exchanged with the frontend
// over the websocket, encoded with sonic on both sides.
package messages

import (
	"github.com/bytedance/sonic"

	"github.com/knowlegather/dominivoice/conversation"
	"github.com/knowlegather/dominivoice/live"
)

// Error codes surfaced to the client.
const (
	ErrCodeInvalidMessage = "INVALID_MESSAGE"
	ErrCodePermission     = "PERMISSION_DENIED"
	ErrCodeConnection     = "CONNECTION_FAILED"
	ErrCodeRequest        = "REQUEST_FAILED"
	ErrCodeSessionFailed  = "SESSION_FAILED"
	ErrCodeSessionActive  = "SESSION_ACTIVE"
)

// Server message types.
const (
	TypeAudioOut = "audio"
	TypeMessage  = "message"
	TypeState    = "state"
	TypeStatus   = "status"
	TypeError    = "error"
)

// ServerMessage is the envelope for everything sent to the frontend.
type ServerMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Payload   any    `json:"payload"`
}

// AudioOutPayload carries base64 PCM playback audio with its scheduled
// start time on the output clock.
type AudioOutPayload struct {
	Data     string  `json:"data"`
	MimeType string  `json:"mimeType"` // "audio/pcm;rate=24000"
	StartAt  float64 `json:"startAt"`
}

// MessagePayload mirrors one persisted conversation message.
type MessagePayload struct {
	Message *conversation.Message `json:"message"`
}

// StatusPayload carries lifecycle notices ("connected", "pong",
// "interrupted", "disconnected").
type StatusPayload struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ErrorPayload carries error information.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Encode marshals any server message for the wire.
func Encode(msg *ServerMessage) ([]byte, error) {
	return sonic.Marshal(msg)
}

// NewAudioMessage creates a playback audio message.
func NewAudioMessage(sessionID, data string, startAt float64) *ServerMessage {
	return &ServerMessage{
		Type:      TypeAudioOut,
		SessionID: sessionID,
		Payload: AudioOutPayload{
			Data:     data,
			MimeType: "audio/pcm;rate=24000",
			StartAt:  startAt,
		},
	}
}

// NewConversationMessage mirrors a freshly appended history entry.
func NewConversationMessage(sessionID string, msg *conversation.Message) *ServerMessage {
	return &ServerMessage{
		Type:      TypeMessage,
		SessionID: sessionID,
		Payload:   MessagePayload{Message: msg},
	}
}

// NewStateMessage publishes the reactive session flags.
func NewStateMessage(sessionID string, snap live.Snapshot) *ServerMessage {
	return &ServerMessage{
		Type:      TypeState,
		SessionID: sessionID,
		Payload:   snap,
	}
}

// NewStatusMessage creates a status message.
func NewStatusMessage(sessionID, status, message string) *ServerMessage {
	return &ServerMessage{
		Type:      TypeStatus,
		SessionID: sessionID,
		Payload: StatusPayload{
			Status:  status,
			Message: message,
		},
	}
}

// NewErrorMessage creates an error message.
func NewErrorMessage(sessionID, code, message string) *ServerMessage {
	return &ServerMessage{
		Type:      TypeError,
		SessionID: sessionID,
		Payload: ErrorPayload{
			Code:    code,
			Message: message,
		},
	}
}
