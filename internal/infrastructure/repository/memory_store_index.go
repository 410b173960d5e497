package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"storelink-shopify-layer/internal/domain"
	"storelink-shopify-layer/internal/ports"
)

type memoryPointer struct {
	sessionID string
	expireAt  time.Time
}

// MemoryStoreIndex is an in-memory StoreIndex with the same semantics as
// the Redis implementation. Used by tests.
type MemoryStoreIndex struct {
	mu       sync.RWMutex
	members  map[string]map[string]struct{}
	pointers map[string]memoryPointer
}

// NewMemoryStoreIndex creates an empty in-memory store index.
func NewMemoryStoreIndex() *MemoryStoreIndex {
	return &MemoryStoreIndex{
		members:  make(map[string]map[string]struct{}),
		pointers: make(map[string]memoryPointer),
	}
}

var _ ports.StoreIndex = (*MemoryStoreIndex)(nil)

func (i *MemoryStoreIndex) AddUser(_ context.Context, store, userID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.members[store] == nil {
		i.members[store] = make(map[string]struct{})
	}
	i.members[store][userID] = struct{}{}
	return nil
}

func (i *MemoryStoreIndex) ListUsers(_ context.Context, store string) ([]string, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	users := make([]string, 0, len(i.members[store]))
	for user := range i.members[store] {
		users = append(users, user)
	}
	sort.Strings(users)
	return users, nil
}

func (i *MemoryStoreIndex) ListStores(_ context.Context, userID string) ([]string, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	var stores []string
	for store, users := range i.members {
		if _, ok := users[userID]; ok {
			stores = append(stores, store)
		}
	}
	sort.Strings(stores)
	return stores, nil
}

func (i *MemoryStoreIndex) RemoveUser(_ context.Context, store, userID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	delete(i.members[store], userID)
	return nil
}

func (i *MemoryStoreIndex) DeleteStore(_ context.Context, store string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	delete(i.members, store)
	return nil
}

func (i *MemoryStoreIndex) RecordSession(_ context.Context, userID, store, sessionID string, expiresIn int64) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.pointers[userID+"."+store] = memoryPointer{
		sessionID: sessionID,
		expireAt:  time.Now().Add(time.Duration(expiresIn) * time.Second),
	}
	return nil
}

func (i *MemoryStoreIndex) GetSession(_ context.Context, userID, store string) (string, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	p, ok := i.pointers[userID+"."+store]
	if !ok || time.Now().After(p.expireAt) {
		return "", domain.ErrNotFound
	}
	return p.sessionID, nil
}

func (i *MemoryStoreIndex) ListSessionsByStore(_ context.Context, userIDs []string, store string) ([]string, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	var sessionIDs []string
	for _, userID := range userIDs {
		p, ok := i.pointers[userID+"."+store]
		if ok && time.Now().Before(p.expireAt) {
			sessionIDs = append(sessionIDs, p.sessionID)
		}
	}
	return sessionIDs, nil
}

func (i *MemoryStoreIndex) DeleteSessions(_ context.Context, userIDs []string, store string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	for _, userID := range userIDs {
		delete(i.pointers, userID+"."+store)
	}
	return nil
}
