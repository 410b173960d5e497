package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"storelink-shopify-layer/internal/domain"
	"storelink-shopify-layer/internal/ports"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "Shopify.Session"

// RedisSessionStore persists sessions as JSON records with a per-record TTL
// matching the grant lifetime. The store enforces expiry; readers never see
// an expired record.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
}

// NewRedisSessionStore creates a Redis-backed session store.
func NewRedisSessionStore(client *redis.Client) ports.SessionStore {
	return &RedisSessionStore{
		client: client,
		prefix: sessionKeyPrefix,
	}
}

func (s *RedisSessionStore) StoreSession(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return &domain.StorageError{Op: "marshal session", Err: err}
	}

	ttl := time.Duration(session.ExpiresIn()) * time.Second
	if err := s.client.Set(ctx, s.key(session.ID), data, ttl).Err(); err != nil {
		return &domain.StorageError{Op: "store session", Err: err}
	}
	return nil
}

func (s *RedisSessionStore) LoadSession(ctx context.Context, id string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "load session", Err: err}
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, &domain.StorageError{Op: "decode session", Err: err}
	}
	return &session, nil
}

func (s *RedisSessionStore) DeleteSession(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return &domain.StorageError{Op: "delete session", Err: err}
	}
	return nil
}

func (s *RedisSessionStore) key(id string) string {
	return s.prefix + "." + id
}
