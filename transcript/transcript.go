// Package transcript accumulates partial transcription fragments for the
// current turn, one buffer per side of the conversation.
package transcript

import (
	"strings"
	"sync"
)

// Accumulator buffers partial user and model transcripts until the server
// signals turn completion. Append is strictly concatenating; Flush clears
// both sides atomically so no fragment can be attributed to two turns.
type Accumulator struct {
	mu    sync.Mutex
	user  strings.Builder
	model strings.Builder
}

// AppendUser appends a fragment of the user-side transcript.
func (a *Accumulator) AppendUser(fragment string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.user.WriteString(fragment)
}

// AppendModel appends a fragment of the model-side transcript.
func (a *Accumulator) AppendModel(fragment string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.model.WriteString(fragment)
}

// Flush returns both accumulated transcripts, trimmed, and resets the
// accumulator for the next turn.
func (a *Accumulator) Flush() (userText, modelText string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	userText = strings.TrimSpace(a.user.String())
	modelText = strings.TrimSpace(a.model.String())
	a.user.Reset()
	a.model.Reset()
	return userText, modelText
}
