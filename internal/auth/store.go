package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eventreg/eventreg/internal/shared"
)

// Store persists the resolved principal of a session. Load returns
// shared.ErrNotFound when nothing is stored.
type Store interface {
	Load(ctx context.Context, sessionID string) (*Principal, error)
	Save(ctx context.Context, sessionID string, p *Principal) error
	Clear(ctx context.Context, sessionID string) error
}

// RedisStore keeps principals as JSON next to the session they belong to.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore constructs a RedisStore whose entries live as long as a session.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context, sessionID string) (*Principal, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("auth: load principal: %w", err)
	}
	var p Principal
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("auth: decode principal: %w", err)
	}
	return &p, nil
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, sessionID string, p *Principal) error {
	if p == nil {
		return s.Clear(ctx, sessionID)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("auth: save principal: %w", err)
	}
	return nil
}

// Clear implements Store.
func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("auth: clear principal: %w", err)
	}
	return nil
}

func (s *RedisStore) key(sessionID string) string {
	return "principal:" + sessionID
}

var _ Store = (*RedisStore)(nil)
