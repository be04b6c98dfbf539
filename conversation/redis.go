package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

const (
	conversationKeyPrefix = "conversation:"
	conversationSetKey    = "conversations"
	personaKeyPrefix      = "persona:"
	personaSetKey         = "personas"
)

// RedisStore keeps conversations and personas in Redis as JSON blobs, one
// key per record plus an index set per type. Writes happen on every
// mutation (write-through, no batching).
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps an existing Redis client. ttl of zero means records
// never expire.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) save(ctx context.Context, key, setKey, id string, v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return s.client.SAdd(ctx, setKey, id).Err()
}

func (s *RedisStore) load(ctx context.Context, key string, v any) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	return sonic.Unmarshal(data, v)
}

// SaveConversation writes the full conversation record.
func (s *RedisStore) SaveConversation(ctx context.Context, conv *Conversation) error {
	return s.save(ctx, conversationKeyPrefix+conv.ID, conversationSetKey, conv.ID, conv)
}

// GetConversation loads one conversation.
func (s *RedisStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	var conv Conversation
	if err := s.load(ctx, conversationKeyPrefix+id, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListConversations loads every indexed conversation. Records that expired
// out from under the index are skipped.
func (s *RedisStore) ListConversations(ctx context.Context) ([]*Conversation, error) {
	ids, err := s.client.SMembers(ctx, conversationSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	out := make([]*Conversation, 0, len(ids))
	for _, id := range ids {
		conv, err := s.GetConversation(ctx, id)
		if err == ErrNotFound {
			s.client.SRem(ctx, conversationSetKey, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, conv)
	}
	return out, nil
}

// SavePersona writes the full persona record.
func (s *RedisStore) SavePersona(ctx context.Context, p *Persona) error {
	return s.save(ctx, personaKeyPrefix+p.ID, personaSetKey, p.ID, p)
}

// GetPersona loads one persona.
func (s *RedisStore) GetPersona(ctx context.Context, id string) (*Persona, error) {
	var p Persona
	if err := s.load(ctx, personaKeyPrefix+id, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPersonas loads every indexed persona.
func (s *RedisStore) ListPersonas(ctx context.Context) ([]*Persona, error) {
	ids, err := s.client.SMembers(ctx, personaSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list personas: %w", err)
	}
	out := make([]*Persona, 0, len(ids))
	for _, id := range ids {
		p, err := s.GetPersona(ctx, id)
		if err == ErrNotFound {
			s.client.SRem(ctx, personaSetKey, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
