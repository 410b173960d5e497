package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"storelink-shopify-layer/internal/domain"
	"storelink-shopify-layer/internal/ports"

	"github.com/redis/go-redis/v9"
)

const (
	storeUsersPrefix    = "User.Stores"
	storeSessionsPrefix = "User.StoreSessions"
)

// RedisStoreIndex keeps the store membership sets and the (user, store)
// session pointers. Single-key operations are atomic in Redis; the index
// relies on that and on Redis TTL enforcement for the pointers.
type RedisStoreIndex struct {
	client *redis.Client
}

// NewRedisStoreIndex creates a Redis-backed store index.
func NewRedisStoreIndex(client *redis.Client) ports.StoreIndex {
	return &RedisStoreIndex{client: client}
}

func (i *RedisStoreIndex) AddUser(ctx context.Context, store, userID string) error {
	if err := i.client.SAdd(ctx, i.usersKey(store), userID).Err(); err != nil {
		return &domain.StorageError{Op: "add store member", Err: err}
	}
	return nil
}

func (i *RedisStoreIndex) ListUsers(ctx context.Context, store string) ([]string, error) {
	users, err := i.client.SMembers(ctx, i.usersKey(store)).Result()
	if err != nil {
		return nil, &domain.StorageError{Op: "list store members", Err: err}
	}
	return users, nil
}

// ListStores scans every membership set and tests the user against each.
// O(stores); a direct user-to-stores index would remove the scan.
func (i *RedisStoreIndex) ListStores(ctx context.Context, userID string) ([]string, error) {
	keys, err := i.client.Keys(ctx, i.usersKey("*")).Result()
	if err != nil {
		return nil, &domain.StorageError{Op: "scan stores", Err: err}
	}

	var stores []string
	for _, key := range keys {
		store := i.storeFromKey(key)
		member, err := i.client.SIsMember(ctx, key, userID).Result()
		if err != nil {
			return nil, &domain.StorageError{Op: "test store membership", Err: err}
		}
		if member {
			stores = append(stores, store)
		}
	}
	return stores, nil
}

func (i *RedisStoreIndex) RemoveUser(ctx context.Context, store, userID string) error {
	if err := i.client.SRem(ctx, i.usersKey(store), userID).Err(); err != nil {
		return &domain.StorageError{Op: "remove store member", Err: err}
	}
	return nil
}

func (i *RedisStoreIndex) DeleteStore(ctx context.Context, store string) error {
	if err := i.client.Del(ctx, i.usersKey(store)).Err(); err != nil {
		return &domain.StorageError{Op: "delete store members", Err: err}
	}
	return nil
}

func (i *RedisStoreIndex) RecordSession(ctx context.Context, userID, store, sessionID string, expiresIn int64) error {
	ttl := time.Duration(expiresIn) * time.Second
	if err := i.client.Set(ctx, i.sessionKey(userID, store), sessionID, ttl).Err(); err != nil {
		return &domain.StorageError{Op: "record session pointer", Err: err}
	}
	return nil
}

func (i *RedisStoreIndex) GetSession(ctx context.Context, userID, store string) (string, error) {
	sessionID, err := i.client.Get(ctx, i.sessionKey(userID, store)).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", &domain.StorageError{Op: "get session pointer", Err: err}
	}
	return sessionID, nil
}

func (i *RedisStoreIndex) ListSessionsByStore(ctx context.Context, userIDs []string, store string) ([]string, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	keys := make([]string, len(userIDs))
	for n, id := range userIDs {
		keys[n] = i.sessionKey(id, store)
	}

	values, err := i.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, &domain.StorageError{Op: "list session pointers", Err: err}
	}

	var sessionIDs []string
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			sessionIDs = append(sessionIDs, s)
		}
	}
	return sessionIDs, nil
}

func (i *RedisStoreIndex) DeleteSessions(ctx context.Context, userIDs []string, store string) error {
	if len(userIDs) == 0 {
		return nil
	}

	keys := make([]string, len(userIDs))
	for n, id := range userIDs {
		keys[n] = i.sessionKey(id, store)
	}
	if err := i.client.Del(ctx, keys...).Err(); err != nil {
		return &domain.StorageError{Op: "delete session pointers", Err: err}
	}
	return nil
}

func (i *RedisStoreIndex) usersKey(store string) string {
	return storeUsersPrefix + "." + store
}

func (i *RedisStoreIndex) sessionKey(userID, store string) string {
	return storeSessionsPrefix + "." + userID + "." + store
}

// storeFromKey recovers the store domain from a membership key. Store
// domains may themselves contain dots, so only the two prefix segments
// are stripped.
func (i *RedisStoreIndex) storeFromKey(key string) string {
	parts := strings.SplitN(key, ".", 3)
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}
