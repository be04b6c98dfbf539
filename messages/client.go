package messages

import (
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
)

// Client message types.
const (
	TypeStart   = "start"
	TypeStop    = "stop"
	TypeListen  = "listen"
	TypePTT     = "ptt"
	TypeSend    = "send"
	TypeAudioIn = "audio"
	TypeControl = "control"
)

// ClientMessage is the envelope for everything the frontend sends.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// StartPayload opens a live session for a persona.
type StartPayload struct {
	PersonaID  string `json:"personaId"`
	AutoListen bool   `json:"autoListen"`
}

// ListenPayload sets the continuous listening gate.
type ListenPayload struct {
	Enabled bool `json:"enabled"`
}

// PTTPayload sets the push-to-talk gate (true on press, false on release).
type PTTPayload struct {
	Active bool `json:"active"`
}

// SendPayload carries typed text, routed live or one-shot by the server.
// PersonaID binds the conversation on first use when no live session has
// been started yet.
type SendPayload struct {
	Text      string `json:"text"`
	PersonaID string `json:"personaId,omitempty"`
}

// AudioPayload carries one base64-encoded 16kHz PCM microphone frame.
type AudioPayload struct {
	Data string `json:"data"`
}

// ControlPayload carries control commands.
type ControlPayload struct {
	Action string `json:"action"` // "ping"
}

// DecodeClient parses a raw websocket text message.
func DecodeClient(data []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := sonic.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("invalid client message: %w", err)
	}
	return &msg, nil
}

// DecodePayload parses the envelope payload into dst.
func (m *ClientMessage) DecodePayload(dst any) error {
	if err := sonic.Unmarshal(m.Payload, dst); err != nil {
		return fmt.Errorf("invalid %s payload: %w", m.Type, err)
	}
	return nil
}
