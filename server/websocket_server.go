package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/knowlegather/dominivoice/config"
	"github.com/knowlegather/dominivoice/messages"
	"github.com/knowlegather/dominivoice/persona"
)

type Server struct {
	httpServer     *http.Server
	upgrader       websocket.Upgrader
	sessionManager *Manager
	config         *config.Config
	logger         *zap.Logger
}

func NewServer(cfg *config.Config, sessionManager *Manager, logger *zap.Logger) *Server {
	s := &Server{
		sessionManager: sessionManager,
		config:         cfg,
		logger:         logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:    64 * 1024, // 64KB for audio chunks
			WriteBufferSize:   64 * 1024,
			EnableCompression: true,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				for _, allowed := range cfg.AllowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/personas", s.handlePersonas)
	mux.HandleFunc("/voices", s.handleVoices)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

// Start begins listening for connections.
func (s *Server) Start() error {
	s.logger.Info("websocket server starting",
		zap.Int("port", s.config.Port),
		zap.String("endpoint", fmt.Sprintf("ws://localhost:%d/ws", s.config.Port)),
	)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	s.sessionManager.Shutdown()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	clientSession, err := s.sessionManager.CreateSession(r.Context(), conn)
	if err != nil {
		s.logger.Warn("failed to create session", zap.Error(err))
		errMsg := messages.NewErrorMessage("", messages.ErrCodeSessionFailed, err.Error())
		if data, encErr := messages.Encode(errMsg); encErr == nil {
			_ = conn.WriteMessage(websocket.TextMessage, data)
		}
		conn.Close()
		return
	}

	s.logger.Info("new session created", zap.String("session", shortID(clientSession.ID)))

	clientSession.Start()

	<-clientSession.CloseChan

	_ = s.sessionManager.RemoveSession(context.Background(), clientSession.ID)
	s.logger.Info("session closed", zap.String("session", shortID(clientSession.ID)))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","sessions":%d}`, s.sessionManager.GetActiveSessionCount())
}

// handleVoices serves the prebuilt voice catalog so clients can render a
// voice picker without hardcoding the names.
func (s *Server) handleVoices(w http.ResponseWriter, r *http.Request) {
	data, err := sonic.Marshal(persona.Voices())
	if err != nil {
		http.Error(w, `{"error":"voice listing failed"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// handlePersonas lists the personas a client may start a session with.
func (s *Server) handlePersonas(w http.ResponseWriter, r *http.Request) {
	personas, err := s.sessionManager.Store().ListPersonas(r.Context())
	if err != nil {
		http.Error(w, `{"error":"persona listing failed"}`, http.StatusInternalServerError)
		return
	}
	data, err := sonic.Marshal(personas)
	if err != nil {
		http.Error(w, `{"error":"persona listing failed"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}
