// Package gemini wraps the generative endpoints the application talks to:
// the bidirectional Live session used for voice conversations, one-shot
// grounded chat completions, and text-to-speech.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// Default model identifiers, overridable through configuration.
const (
	DefaultLiveModel = "models/gemini-2.5-flash-native-audio-preview-12-2025"
	DefaultChatModel = "gemini-3-flash-preview"
	DefaultTTSModel  = "gemini-2.5-flash-preview-tts"
)

var (
	// ErrConnection marks a live session handshake or mid-session
	// transport failure.
	ErrConnection = errors.New("gemini: connection failed")
	// ErrRequest marks a failed one-shot completion or TTS request.
	ErrRequest = errors.New("gemini: request failed")
)

// NewClient creates a GenAI API client.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return client, nil
}
