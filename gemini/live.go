package gemini

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// EventSink receives live session events in server arrival order. All
// methods are called from the transport's single receive goroutine, so
// implementations see events serially and must not reorder them.
type EventSink interface {
	OnOpen()
	OnInputTranscript(text string)
	OnOutputTranscript(text string)
	OnTurnComplete()
	OnAudioChunk(data []byte)
	OnInterrupted()
	// OnClosed fires once when the session ends; err is nil for a clean
	// close and non-nil for a transport failure.
	OnClosed(err error)
}

// LiveConfig describes one live session.
type LiveConfig struct {
	Model             string
	Voice             string
	SystemInstruction string
}

// LiveTransport owns the lifecycle of one bidirectional streaming session.
// At most one session is active per transport; Connect after Close starts a
// fresh one.
type LiveTransport struct {
	client *genai.Client
	sink   EventSink
	logger *zap.Logger

	mu      sync.Mutex
	state   State
	session *genai.Session
}

// NewLiveTransport creates an idle transport. sink must be non-nil.
func NewLiveTransport(client *genai.Client, sink EventSink, logger *zap.Logger) *LiveTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LiveTransport{
		client: client,
		sink:   sink,
		logger: logger,
		state:  StateIdle,
	}
}

// State returns the current lifecycle state.
func (t *LiveTransport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Connect performs the live handshake: audio response modality, the
// persona's prebuilt voice, the system instruction, and transcription of
// both directions. On success the transport is Open, the receive loop is
// running and the sink has seen OnOpen. On failure the transport is Closed
// and the returned error wraps ErrConnection.
func (t *LiveTransport) Connect(ctx context.Context, cfg LiveConfig) error {
	t.mu.Lock()
	if t.state != StateIdle && t.state != StateClosed {
		state := t.state
		t.mu.Unlock()
		return fmt.Errorf("%w: connect while %s", ErrConnection, state)
	}
	t.state = StateConnecting
	t.mu.Unlock()

	model := cfg.Model
	if model == "" {
		model = DefaultLiveModel
	}

	connectConfig := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{"AUDIO"},
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: cfg.SystemInstruction}},
		},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{
					VoiceName: cfg.Voice,
				},
			},
		},
		InputAudioTranscription:  &genai.AudioTranscriptionConfig{},
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
	}

	session, err := t.client.Live.Connect(ctx, model, connectConfig)
	if err != nil {
		t.mu.Lock()
		t.state = StateClosed
		t.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}

	t.mu.Lock()
	if t.state != StateConnecting {
		// Closed while the handshake was in flight.
		t.mu.Unlock()
		session.Close()
		return fmt.Errorf("%w: closed during handshake", ErrConnection)
	}
	t.session = session
	t.state = StateOpen
	t.mu.Unlock()

	t.logger.Info("live session open", zap.String("model", model), zap.String("voice", cfg.Voice))
	go t.receive(session)
	t.sink.OnOpen()
	return nil
}

// receive is the single inbound event loop. Events are dispatched to the
// sink strictly in arrival order.
func (t *LiveTransport) receive(session *genai.Session) {
	for {
		msg, err := session.Receive()
		if err != nil {
			t.finish(err)
			return
		}
		t.dispatch(msg)
	}
}

func (t *LiveTransport) dispatch(msg *genai.LiveServerMessage) {
	content := msg.ServerContent
	if content == nil {
		return
	}

	if content.InputTranscription != nil && content.InputTranscription.Text != "" {
		t.sink.OnInputTranscript(content.InputTranscription.Text)
	}
	if content.OutputTranscription != nil && content.OutputTranscription.Text != "" {
		t.sink.OnOutputTranscript(content.OutputTranscription.Text)
	}
	if content.TurnComplete {
		t.sink.OnTurnComplete()
	}
	if content.ModelTurn != nil {
		for _, part := range content.ModelTurn.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				t.sink.OnAudioChunk(part.InlineData.Data)
			}
		}
	}
	if content.Interrupted {
		t.sink.OnInterrupted()
	}
}

// finish ends the session after the receive loop stops. A failure while
// Open passes through Error before settling in Closed.
func (t *LiveTransport) finish(err error) {
	t.mu.Lock()
	wasOpen := t.state == StateOpen
	if wasOpen {
		t.state = StateError
	}
	t.state = StateClosed
	t.session = nil
	t.mu.Unlock()

	if wasOpen {
		t.logger.Warn("live session failed", zap.Error(err))
		t.sink.OnClosed(fmt.Errorf("%w: %v", ErrConnection, err))
		return
	}
	t.sink.OnClosed(nil)
}

// SendAudioFrame transmits one PCM frame as realtime media input. Frames
// sent while the transport is not Open are silently dropped, never queued.
func (t *LiveTransport) SendAudioFrame(pcm []byte) {
	t.mu.Lock()
	session := t.session
	open := t.state == StateOpen
	t.mu.Unlock()

	if !open || session == nil {
		return
	}

	err := session.SendRealtimeInput(genai.LiveRealtimeInput{
		Media: &genai.Blob{
			MIMEType: "audio/pcm;rate=16000",
			Data:     pcm,
		},
	})
	if err != nil {
		// The receive loop observes the failing connection and drives the
		// teardown; a dropped frame is not an event worth more than a log.
		t.logger.Debug("audio frame send failed", zap.Error(err))
	}
}

// SendText transmits typed text on the realtime input channel during an
// open session.
func (t *LiveTransport) SendText(text string) error {
	t.mu.Lock()
	session := t.session
	open := t.state == StateOpen
	t.mu.Unlock()

	if !open || session == nil {
		return fmt.Errorf("%w: transport not open", ErrConnection)
	}

	if err := session.SendRealtimeInput(genai.LiveRealtimeInput{Text: text}); err != nil {
		return fmt.Errorf("%w: send text: %v", ErrConnection, err)
	}
	return nil
}

// Close tears the session down. Idempotent; safe in every state.
func (t *LiveTransport) Close() error {
	t.mu.Lock()
	switch t.state {
	case StateClosing, StateClosed, StateIdle:
		t.state = StateClosed
		t.mu.Unlock()
		return nil
	case StateConnecting:
		// The in-flight handshake notices and discards its session.
		t.state = StateClosed
		t.mu.Unlock()
		return nil
	}
	t.state = StateClosing
	session := t.session
	t.mu.Unlock()

	if session != nil {
		// Receive unblocks with an error; finish() reports a clean close.
		return session.Close()
	}
	return nil
}
