// Package live wires the capture pipeline, the session transport, the
// playback scheduler and the transcript accumulator into one conversation
// orchestrator, and exposes the operations the client layer calls.
package live

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/knowlegather/dominivoice/audio"
	"github.com/knowlegather/dominivoice/capture"
	"github.com/knowlegather/dominivoice/conversation"
	"github.com/knowlegather/dominivoice/gemini"
	"github.com/knowlegather/dominivoice/persona"
	"github.com/knowlegather/dominivoice/playback"
	"github.com/knowlegather/dominivoice/transcript"
)

// ErrSessionActive is returned when a live session is started while one is
// already running. Callers must stop the current session first.
var ErrSessionActive = errors.New("live: session already active")

// Transport is the slice of the live transport the orchestrator drives.
// *gemini.LiveTransport satisfies it.
type Transport interface {
	Connect(ctx context.Context, cfg gemini.LiveConfig) error
	SendAudioFrame(pcm []byte)
	SendText(text string) error
	Close() error
	State() gemini.State
}

// Completer performs one-shot grounded completions for typed messages when
// no live session is open.
type Completer interface {
	Complete(ctx context.Context, p *conversation.Persona, prompt string,
		history []*conversation.Message, initialContext string) (*gemini.ChatResult, error)
}

// Synthesizer voices a completion. Optional; failures degrade to silence.
type Synthesizer interface {
	Synthesize(ctx context.Context, p *conversation.Persona, text string) ([]byte, error)
}

// Snapshot is the reactive state exposed to the client layer.
type Snapshot struct {
	IsLiveActive bool `json:"isLiveActive"`
	IsListening  bool `json:"isListening"`
	IsPTTActive  bool `json:"isPttActive"`
	IsSpeaking   bool `json:"isSpeaking"`
}

// Options configures an Orchestrator.
type Options struct {
	Persona        *conversation.Persona
	Conversation   *conversation.Conversation
	Store          conversation.Store
	InitialContext string

	Device       capture.Device
	Clock        playback.Clock
	NewTransport func(sink gemini.EventSink) Transport
	LiveModel    string

	Completer Completer
	Speech    Synthesizer

	// OnMessage fires after each message is appended and persisted, so the
	// client layer can mirror history without polling.
	OnMessage func(msg *conversation.Message)

	Logger *zap.Logger
}

// Orchestrator owns at most one live session for one conversation. It
// implements gemini.EventSink; all inbound events reach it on the
// transport's receive goroutine, in arrival order.
type Orchestrator struct {
	opts      Options
	logger    *zap.Logger
	scheduler *playback.Scheduler
	acc       transcript.Accumulator

	listening atomic.Bool
	ptt       atomic.Bool

	mu        sync.Mutex
	active    bool
	transport Transport
	pipeline  *capture.Pipeline
}

// NewOrchestrator wires an orchestrator. Persona, Conversation, Store,
// Device, Clock and NewTransport are required.
func NewOrchestrator(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		opts:      opts,
		logger:    logger,
		scheduler: playback.NewScheduler(opts.Clock, logger),
	}
}

// gateOpen is the per-frame transmit decision: listening or push-to-talk.
func (o *Orchestrator) gateOpen() bool {
	return o.listening.Load() || o.ptt.Load()
}

// StartLiveSession acquires the microphone, connects the transport and
// begins streaming gated frames. A microphone denial surfaces as
// capture.ErrPermission before any connection attempt; a handshake failure
// surfaces as gemini.ErrConnection with the microphone released.
func (o *Orchestrator) StartLiveSession(ctx context.Context, autoListen bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.active {
		return ErrSessionActive
	}

	transport := o.opts.NewTransport(o)
	pipeline := capture.New(o.opts.Device, o.gateOpen, transport.SendAudioFrame, o.logger)

	if err := pipeline.Start(ctx); err != nil {
		return err
	}

	cfg := gemini.LiveConfig{
		Model:             o.opts.LiveModel,
		Voice:             o.opts.Persona.VoiceName,
		SystemInstruction: persona.LiveInstruction(o.opts.Persona, o.opts.InitialContext),
	}
	if err := transport.Connect(ctx, cfg); err != nil {
		pipeline.Stop()
		return err
	}

	// autoListen only ever opens the gate; a listening preference stored
	// before the session began survives a start without auto-listen.
	if autoListen {
		o.listening.Store(true)
	}
	o.transport = transport
	o.pipeline = pipeline
	o.active = true
	return nil
}

// StopLiveSession tears the session down: capture stops before the
// transport closes, so no frame can race a closing connection. Always safe
// to call, including with no session active.
func (o *Orchestrator) StopLiveSession() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.teardownLocked()
}

func (o *Orchestrator) teardownLocked() {
	if o.pipeline != nil {
		o.pipeline.Stop()
		o.pipeline = nil
	}
	if o.transport != nil {
		if err := o.transport.Close(); err != nil {
			o.logger.Debug("transport close", zap.Error(err))
		}
		o.transport = nil
	}
	o.listening.Store(false)
	o.ptt.Store(false)
	o.active = false
}

// SetListening sets the continuous transmit gate. With no session open the
// value is stored but inert until the next start.
func (o *Orchestrator) SetListening(enabled bool) {
	o.listening.Store(enabled)
}

// SetPushToTalk sets the press-and-hold transmit gate, independent of
// listening. Effective within one capture frame.
func (o *Orchestrator) SetPushToTalk(active bool) {
	o.ptt.Store(active)
}

// ToggleListening starts a session in auto-listen mode when none is open,
// otherwise flips the listening gate.
func (o *Orchestrator) ToggleListening(ctx context.Context) error {
	o.mu.Lock()
	active := o.active
	o.mu.Unlock()

	if !active {
		return o.StartLiveSession(ctx, true)
	}
	o.listening.Store(!o.listening.Load())
	return nil
}

// SendInlineText routes typed text into the open live session, or falls
// back to a one-shot grounded completion (with best-effort TTS) when no
// session is active.
func (o *Orchestrator) SendInlineText(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	o.mu.Lock()
	transport := o.transport
	active := o.active
	o.mu.Unlock()

	if active && transport != nil {
		return transport.SendText(text)
	}

	history := o.historySnapshot()
	userMsg := conversation.NewMessage(conversation.RoleUser, text)
	o.appendMessage(userMsg)

	result, err := o.opts.Completer.Complete(ctx, o.opts.Persona, text, history, o.opts.InitialContext)
	if err != nil {
		return fmt.Errorf("completion: %w", err)
	}

	modelMsg := conversation.NewMessage(conversation.RoleModel, result.Text)
	modelMsg.GroundingURLs = result.GroundingURLs
	o.appendMessage(modelMsg)

	if o.opts.Speech != nil {
		go o.speak(result.Text)
	}
	return nil
}

// speak voices a completion through the playback scheduler. Fire and
// forget: any failure leaves the message text-only.
func (o *Orchestrator) speak(text string) {
	pcm, err := o.opts.Speech.Synthesize(context.Background(), o.opts.Persona, text)
	if err != nil || len(pcm) == 0 {
		if err != nil {
			o.logger.Debug("tts failed", zap.Error(err))
		}
		return
	}
	buf, err := audio.DecodePCM(pcm, playback.OutputSampleRate, 1)
	if err != nil {
		o.logger.Debug("tts audio decode failed", zap.Error(err))
		return
	}
	o.scheduler.Enqueue(buf)
}

// Snapshot returns the current reactive flags.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	active := o.active
	o.mu.Unlock()
	return Snapshot{
		IsLiveActive: active,
		IsListening:  o.listening.Load(),
		IsPTTActive:  o.ptt.Load(),
		IsSpeaking:   o.scheduler.Playing(),
	}
}

// Conversation returns the orchestrated conversation. History is
// append-only; callers must not mutate it.
func (o *Orchestrator) Conversation() *conversation.Conversation {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opts.Conversation
}

func (o *Orchestrator) historySnapshot() []*conversation.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*conversation.Message, len(o.opts.Conversation.Messages))
	copy(out, o.opts.Conversation.Messages)
	return out
}

// appendMessage appends to history, writes through to the store and fires
// the on-change hook. Store failures are logged; history is the source of
// truth for the running session.
func (o *Orchestrator) appendMessage(msg *conversation.Message) {
	o.mu.Lock()
	o.opts.Conversation.Append(msg)
	conv := o.opts.Conversation
	o.mu.Unlock()

	if err := o.opts.Store.SaveConversation(context.Background(), conv); err != nil {
		o.logger.Warn("conversation write-through failed", zap.Error(err))
	}
	if o.opts.OnMessage != nil {
		o.opts.OnMessage(msg)
	}
}

// --- gemini.EventSink ---

// OnOpen is informational; the session flags flip in StartLiveSession once
// the handshake outcome is known.
func (o *Orchestrator) OnOpen() {
	o.logger.Info("live session established",
		zap.String("persona", o.opts.Persona.ID),
		zap.String("conversation", o.opts.Conversation.ID))
}

// OnInputTranscript buffers a user-side fragment of the current turn.
func (o *Orchestrator) OnInputTranscript(text string) {
	o.acc.AppendUser(text)
}

// OnOutputTranscript buffers a model-side fragment of the current turn.
func (o *Orchestrator) OnOutputTranscript(text string) {
	o.acc.AppendModel(text)
}

// OnTurnComplete flushes the turn into history: user message first, then
// model, both tagged live, empty sides skipped.
func (o *Orchestrator) OnTurnComplete() {
	userText, modelText := o.acc.Flush()
	if userText != "" {
		msg := conversation.NewMessage(conversation.RoleUser, userText)
		msg.IsLive = true
		o.appendMessage(msg)
	}
	if modelText != "" {
		msg := conversation.NewMessage(conversation.RoleModel, modelText)
		msg.IsLive = true
		o.appendMessage(msg)
	}
}

// OnAudioChunk decodes an inbound 24kHz mono chunk and schedules it. A
// malformed chunk is dropped; one bad chunk must not end the conversation.
func (o *Orchestrator) OnAudioChunk(data []byte) {
	buf, err := audio.DecodePCM(data, playback.OutputSampleRate, 1)
	if err != nil {
		o.logger.Warn("dropping undecodable audio chunk",
			zap.Int("bytes", len(data)), zap.Error(err))
		return
	}
	o.scheduler.Enqueue(buf)
}

// OnInterrupted hard-stops playback on server-detected barge-in. The
// session itself stays up.
func (o *Orchestrator) OnInterrupted() {
	o.scheduler.Interrupt()
}

// OnClosed runs the full teardown when the transport ends, cleanly or not,
// so no caller is left believing a session is still active.
func (o *Orchestrator) OnClosed(err error) {
	if err != nil {
		o.logger.Warn("live session lost", zap.Error(err))
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.active {
		return
	}
	o.teardownLocked()
}
