package gemini

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/knowlegather/dominivoice/conversation"
	"github.com/knowlegather/dominivoice/persona"
)

// Speech turns completion text into spoken audio with the persona's
// prebuilt voice. It is a best-effort enhancement: callers treat a failure
// as "no audio", never as a chat failure.
type Speech struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewSpeech creates a TTS client. An empty model selects DefaultTTSModel.
func NewSpeech(client *genai.Client, model string, logger *zap.Logger) *Speech {
	if model == "" {
		model = DefaultTTSModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Speech{client: client, model: model, logger: logger}
}

// Synthesize returns 24kHz mono PCM for text, or nil when the model
// produced no audio. Failures wrap ErrRequest.
func (s *Speech) Synthesize(ctx context.Context, p *conversation.Persona, text string) ([]byte, error) {
	contents := []*genai.Content{
		{Parts: []*genai.Part{{Text: persona.SpeechPrompt(p, text)}}},
	}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{
					VoiceName: p.VoiceName,
				},
			},
		},
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("%w: tts: %v", ErrRequest, err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, nil
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData.Data, nil
		}
	}
	return nil, nil
}
