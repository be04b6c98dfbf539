package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/knowlegather/dominivoice/config"
	"github.com/knowlegather/dominivoice/conversation"
	"github.com/knowlegather/dominivoice/persona"
)

// Manager owns all client sessions and the shared conversation store.
type Manager struct {
	sessions    map[string]*ClientSession
	mu          sync.RWMutex
	redis       *redis.Client
	store       conversation.Store
	cfg         *config.Config
	genaiClient *genai.Client
	logger      *zap.Logger
}

// NewManager creates a session manager. Redis backs the conversation store
// when reachable; otherwise conversations live in memory for the lifetime of
// the process.
func NewManager(cfg *config.Config, genaiClient *genai.Client, logger *zap.Logger) (*Manager, error) {
	var redisClient *redis.Client
	var store conversation.Store

	redisClient = redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, using in-memory store", zap.Error(err))
		redisClient = nil
		store = conversation.NewMemoryStore()
	} else {
		store = conversation.NewRedisStore(redisClient, cfg.SessionTimeout)
	}

	m := &Manager{
		sessions:    make(map[string]*ClientSession),
		redis:       redisClient,
		store:       store,
		cfg:         cfg,
		genaiClient: genaiClient,
		logger:      logger,
	}

	if err := m.seedPersonas(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// seedPersonas writes the built-in persona catalog so clients can start
// talking without any provisioning step.
func (sm *Manager) seedPersonas(ctx context.Context) error {
	for _, p := range persona.Defaults() {
		if err := sm.store.SavePersona(ctx, p); err != nil {
			return fmt.Errorf("seed persona %s: %w", p.ID, err)
		}
	}
	return nil
}

// Store exposes the conversation store for HTTP handlers.
func (sm *Manager) Store() conversation.Store {
	return sm.store
}

// CreateSession creates a new client session for an upgraded connection.
func (sm *Manager) CreateSession(ctx context.Context, clientConn *websocket.Conn) (*ClientSession, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if len(sm.sessions) >= sm.cfg.MaxSessions {
		return nil, fmt.Errorf("maximum sessions reached")
	}

	sessionID := uuid.New().String()
	session := NewClientSession(sessionID, clientConn, sm.cfg, sm.genaiClient, sm.store, sm.logger)

	sm.sessions[sessionID] = session
	if sm.redis != nil {
		sm.redis.HSet(ctx, "session:"+sessionID, map[string]interface{}{
			"created_at":    session.CreatedAt.Format(time.RFC3339),
			"last_activity": session.LastActivity.Format(time.RFC3339),
			"status":        "active",
		})
		sm.redis.SAdd(ctx, "active_sessions", sessionID)
		sm.redis.Expire(ctx, "session:"+sessionID, sm.cfg.SessionTimeout)
	}
	return session, nil
}

// GetSession retrieves a session by ID.
func (sm *Manager) GetSession(sessionID string) (*ClientSession, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, exists := sm.sessions[sessionID]
	return session, exists
}

// RemoveSession cleans up and removes a session.
func (sm *Manager) RemoveSession(ctx context.Context, sessionID string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[sessionID]
	if !exists {
		return nil
	}

	session.Close()
	delete(sm.sessions, sessionID)

	if sm.redis != nil {
		sm.redis.Del(ctx, "session:"+sessionID)
		sm.redis.SRem(ctx, "active_sessions", sessionID)
	}
	return nil
}

// GetActiveSessionCount returns current session count.
func (sm *Manager) GetActiveSessionCount() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// CleanupInactiveSessions removes sessions that have been idle past the
// configured timeout.
func (sm *Manager) CleanupInactiveSessions(ctx context.Context) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now()
	for id, session := range sm.sessions {
		if now.Sub(session.lastActivity()) > sm.cfg.SessionTimeout {
			sm.logger.Info("closing inactive session", zap.String("session", shortID(id)))
			session.Close()
			delete(sm.sessions, id)

			if sm.redis != nil {
				sm.redis.Del(ctx, "session:"+id)
				sm.redis.SRem(ctx, "active_sessions", id)
			}
		}
	}
}

// StartCleanupRoutine runs periodic cleanup of inactive sessions until the
// context is cancelled.
func (sm *Manager) StartCleanupRoutine(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sm.CleanupInactiveSessions(ctx)
		}
	}
}

// Shutdown closes all sessions.
func (sm *Manager) Shutdown() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for id, session := range sm.sessions {
		session.Close()
		delete(sm.sessions, id)
	}

	if sm.redis != nil {
		sm.redis.Close()
	}
}
