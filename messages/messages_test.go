package messages

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowlegather/dominivoice/conversation"
)

func TestDecodeClientEnvelope(t *testing.T) {
	msg, err := DecodeClient([]byte(`{"type":"start","payload":{"personaId":"default-2","autoListen":true}}`))
	require.NoError(t, err)
	assert.Equal(t, TypeStart, msg.Type)

	var start StartPayload
	require.NoError(t, msg.DecodePayload(&start))
	assert.Equal(t, "default-2", start.PersonaID)
	assert.True(t, start.AutoListen)
}

func TestDecodeClientInvalid(t *testing.T) {
	_, err := DecodeClient([]byte(`{not json`))
	assert.Error(t, err)

	msg, err := DecodeClient([]byte(`{"type":"audio","payload":"nope"}`))
	require.NoError(t, err)
	var audio AudioPayload
	assert.Error(t, msg.DecodePayload(&audio))
}

func TestServerMessageRoundTrip(t *testing.T) {
	msg := NewConversationMessage("sess-1", &conversation.Message{
		ID:     "m1",
		Role:   conversation.RoleUser,
		Text:   "hello",
		IsLive: true,
	})

	data, err := Encode(msg)
	require.NoError(t, err)

	var decoded struct {
		Type      string `json:"type"`
		SessionID string `json:"sessionId"`
		Payload   struct {
			Message conversation.Message `json:"message"`
		} `json:"payload"`
	}
	require.NoError(t, sonic.Unmarshal(data, &decoded))
	assert.Equal(t, TypeMessage, decoded.Type)
	assert.Equal(t, "sess-1", decoded.SessionID)
	assert.Equal(t, "hello", decoded.Payload.Message.Text)
	assert.True(t, decoded.Payload.Message.IsLive)
}

func TestAudioMessageMimeType(t *testing.T) {
	data, err := Encode(NewAudioMessage("s", "AAAA", 1.5))
	require.NoError(t, err)

	var decoded struct {
		Payload AudioOutPayload `json:"payload"`
	}
	require.NoError(t, sonic.Unmarshal(data, &decoded))
	assert.Equal(t, "audio/pcm;rate=24000", decoded.Payload.MimeType)
	assert.InDelta(t, 1.5, decoded.Payload.StartAt, 1e-9)
}
