package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/knowlegather/dominivoice/audio"
	"github.com/knowlegather/dominivoice/capture"
	"github.com/knowlegather/dominivoice/config"
	"github.com/knowlegather/dominivoice/conversation"
	"github.com/knowlegather/dominivoice/gemini"
	"github.com/knowlegather/dominivoice/live"
	"github.com/knowlegather/dominivoice/messages"
)

const (
	writeBufferSize = 256
	writeTimeout    = 10 * time.Second
)

// ClientSession is one connected frontend: a websocket, a remote
// microphone/speaker bridge, and a live orchestrator bound once the client
// picks a persona.
type ClientSession struct {
	ID           string
	conn         *websocket.Conn
	cfg          *config.Config
	genaiClient  *genai.Client
	store        conversation.Store
	logger       *zap.Logger
	CreatedAt    time.Time
	LastActivity time.Time

	mic *remoteMic

	// Writes go through a buffered channel so callback paths never block
	// on the socket.
	writeChan chan *messages.ServerMessage

	mu        sync.RWMutex
	orch      *live.Orchestrator
	closed    bool
	CloseChan chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClientSession creates a session for an upgraded connection.
func NewClientSession(id string, conn *websocket.Conn, cfg *config.Config,
	genaiClient *genai.Client, store conversation.Store, logger *zap.Logger) *ClientSession {

	ctx, cancel := context.WithCancel(context.Background())

	conn.SetReadLimit(512 * 1024)
	conn.EnableWriteCompression(true)

	return &ClientSession{
		ID:           id,
		conn:         conn,
		cfg:          cfg,
		genaiClient:  genaiClient,
		store:        store,
		logger:       logger.With(zap.String("session", shortID(id))),
		CreatedAt:    time.Now(),
		LastActivity: time.Now(),
		mic:          newRemoteMic(),
		writeChan:    make(chan *messages.ServerMessage, writeBufferSize),
		CloseChan:    make(chan struct{}),
		ctx:          ctx,
		cancel:       cancel,
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Start begins message handling.
func (cs *ClientSession) Start() {
	go cs.writePump()
	cs.queueMessage(messages.NewStatusMessage(cs.ID, "connected", "Session established"))
	go cs.readLoop()
}

// writePump handles all outgoing messages in a single goroutine, draining
// bursts before blocking again.
func (cs *ClientSession) writePump() {
	defer func() {
		cs.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		cs.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
	}()

	write := func(msg *messages.ServerMessage) bool {
		data, err := messages.Encode(msg)
		if err != nil {
			cs.logger.Warn("encode server message", zap.Error(err))
			return true
		}
		cs.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		return cs.conn.WriteMessage(websocket.TextMessage, data) == nil
	}

	for {
		select {
		case <-cs.CloseChan:
			return
		case msg, ok := <-cs.writeChan:
			if !ok {
				return
			}
			if !write(msg) {
				return
			}

			n := len(cs.writeChan)
			for i := 0; i < n; i++ {
				select {
				case msg, ok := <-cs.writeChan:
					if !ok || !write(msg) {
						return
					}
				default:
				}
			}
		}
	}
}

// queueMessage adds a message to the write queue without blocking.
func (cs *ClientSession) queueMessage(msg *messages.ServerMessage) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	if cs.closed {
		return
	}
	select {
	case cs.writeChan <- msg:
	default:
		// Queue full; drop rather than stall a callback path.
	}
}

func (cs *ClientSession) touch() {
	cs.mu.Lock()
	cs.LastActivity = time.Now()
	cs.mu.Unlock()
}

func (cs *ClientSession) lastActivity() time.Time {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.LastActivity
}

func (cs *ClientSession) readLoop() {
	defer cs.Close()

	for {
		select {
		case <-cs.CloseChan:
			return
		default:
			_, data, err := cs.conn.ReadMessage()
			if err != nil {
				if !cs.IsClosed() {
					cs.logger.Debug("websocket read ended", zap.Error(err))
				}
				return
			}
			cs.touch()

			msg, err := messages.DecodeClient(data)
			if err != nil {
				cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeInvalidMessage, "Invalid message format"))
				continue
			}
			cs.handleMessage(msg)
		}
	}
}

func (cs *ClientSession) handleMessage(msg *messages.ClientMessage) {
	switch msg.Type {
	case messages.TypeStart:
		var payload messages.StartPayload
		if err := msg.DecodePayload(&payload); err != nil {
			cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeInvalidMessage, "Invalid start payload"))
			return
		}
		cs.handleStart(&payload)

	case messages.TypeStop:
		if orch := cs.orchestrator(); orch != nil {
			orch.StopLiveSession()
			cs.pushState()
		}

	case messages.TypeListen:
		var payload messages.ListenPayload
		if err := msg.DecodePayload(&payload); err != nil {
			cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeInvalidMessage, "Invalid listen payload"))
			return
		}
		if orch := cs.orchestrator(); orch != nil {
			orch.SetListening(payload.Enabled)
			cs.pushState()
		}

	case messages.TypePTT:
		var payload messages.PTTPayload
		if err := msg.DecodePayload(&payload); err != nil {
			cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeInvalidMessage, "Invalid ptt payload"))
			return
		}
		if orch := cs.orchestrator(); orch != nil {
			orch.SetPushToTalk(payload.Active)
			cs.pushState()
		}

	case messages.TypeSend:
		var payload messages.SendPayload
		if err := msg.DecodePayload(&payload); err != nil {
			cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeInvalidMessage, "Invalid send payload"))
			return
		}
		cs.handleSend(&payload)

	case messages.TypeAudioIn:
		var payload messages.AudioPayload
		if err := msg.DecodePayload(&payload); err != nil {
			return
		}
		cs.handleAudio(payload.Data)

	case messages.TypeControl:
		var payload messages.ControlPayload
		if err := msg.DecodePayload(&payload); err != nil {
			cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeInvalidMessage, "Invalid control payload"))
			return
		}
		if payload.Action == "ping" {
			cs.queueMessage(messages.NewStatusMessage(cs.ID, "pong", ""))
		}

	default:
		cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeInvalidMessage, "Unknown message type: "+msg.Type))
	}
}

func (cs *ClientSession) handleStart(payload *messages.StartPayload) {
	orch, err := cs.bindPersona(payload.PersonaID)
	if err != nil {
		cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeSessionFailed, err.Error()))
		return
	}

	if err := orch.StartLiveSession(cs.ctx, payload.AutoListen); err != nil {
		cs.queueMessage(messages.NewErrorMessage(cs.ID, errorCode(err), err.Error()))
		cs.pushState()
		return
	}
	cs.queueMessage(messages.NewStatusMessage(cs.ID, "live_started", ""))
	cs.pushState()
}

func (cs *ClientSession) handleSend(payload *messages.SendPayload) {
	orch, err := cs.bindPersona(payload.PersonaID)
	if err != nil {
		cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeSessionFailed, err.Error()))
		return
	}
	if err := orch.SendInlineText(cs.ctx, payload.Text); err != nil {
		cs.queueMessage(messages.NewErrorMessage(cs.ID, errorCode(err), err.Error()))
	}
	cs.pushState()
}

// handleAudio decodes one microphone chunk and feeds the remote mic. A
// malformed chunk is dropped; the capture path must survive bad input.
func (cs *ClientSession) handleAudio(data string) {
	raw, err := audio.DecodeBase64(data)
	if err != nil {
		cs.logger.Debug("dropping undecodable mic chunk", zap.Error(err))
		return
	}
	buf, err := audio.DecodePCM(raw, capture.InputSampleRate, 1)
	if err != nil {
		cs.logger.Debug("dropping malformed mic chunk", zap.Error(err))
		return
	}
	cs.mic.Push(buf.Data[0])
}

// bindPersona returns the session's orchestrator, creating it on first use
// for the given persona. An empty personaID is only valid once bound.
func (cs *ClientSession) bindPersona(personaID string) (*live.Orchestrator, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.orch != nil {
		return cs.orch, nil
	}
	if personaID == "" {
		return nil, fmt.Errorf("no persona selected")
	}

	p, err := cs.store.GetPersona(cs.ctx, personaID)
	if err != nil {
		return nil, fmt.Errorf("unknown persona %q", personaID)
	}

	conv := conversation.NewConversation(p.ID)
	if err := cs.store.SaveConversation(cs.ctx, conv); err != nil {
		cs.logger.Warn("conversation create write failed", zap.Error(err))
	}

	speaker := newRemoteSpeaker(
		func(data string, startAt float64) {
			cs.queueMessage(messages.NewAudioMessage(cs.ID, data, startAt))
		},
		func() {
			cs.queueMessage(messages.NewStatusMessage(cs.ID, "interrupted", ""))
		},
	)

	cs.orch = live.NewOrchestrator(live.Options{
		Persona:        p,
		Conversation:   conv,
		Store:          cs.store,
		InitialContext: cs.cfg.InitialContext,
		Device:         cs.mic,
		Clock:          speaker,
		NewTransport: func(sink gemini.EventSink) live.Transport {
			return gemini.NewLiveTransport(cs.genaiClient, sink, cs.logger)
		},
		LiveModel: cs.cfg.LiveModel,
		Completer: gemini.NewChatClient(cs.genaiClient, cs.cfg.ChatModel, cs.logger),
		Speech:    gemini.NewSpeech(cs.genaiClient, cs.cfg.TTSModel, cs.logger),
		OnMessage: func(msg *conversation.Message) {
			cs.queueMessage(messages.NewConversationMessage(cs.ID, msg))
		},
		Logger: cs.logger,
	})
	return cs.orch, nil
}

func (cs *ClientSession) orchestrator() *live.Orchestrator {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.orch
}

func (cs *ClientSession) pushState() {
	if orch := cs.orchestrator(); orch != nil {
		cs.queueMessage(messages.NewStateMessage(cs.ID, orch.Snapshot()))
	}
}

// errorCode maps core errors onto wire error codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, capture.ErrPermission):
		return messages.ErrCodePermission
	case errors.Is(err, gemini.ErrConnection):
		return messages.ErrCodeConnection
	case errors.Is(err, gemini.ErrRequest):
		return messages.ErrCodeRequest
	case errors.Is(err, live.ErrSessionActive):
		return messages.ErrCodeSessionActive
	default:
		return messages.ErrCodeSessionFailed
	}
}

// IsClosed reports whether the session is closed.
func (cs *ClientSession) IsClosed() bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.closed
}

// Close terminates the session and cleans up resources. Idempotent.
func (cs *ClientSession) Close() error {
	cs.mu.Lock()
	if cs.closed {
		cs.mu.Unlock()
		return nil
	}
	cs.closed = true
	orch := cs.orch
	cs.mu.Unlock()

	cs.cancel()

	if orch != nil {
		orch.StopLiveSession()
	}
	cs.mic.Shutdown()

	// queueMessage holds the read lock through its channel send, so once
	// closed is set no writer can race this close.
	close(cs.writeChan)
	close(cs.CloseChan)

	return cs.conn.Close()
}
