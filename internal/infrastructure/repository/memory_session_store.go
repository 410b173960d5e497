package repository

import (
	"context"
	"sync"
	"time"

	"storelink-shopify-layer/internal/domain"
	"storelink-shopify-layer/internal/ports"
)

type memorySessionRecord struct {
	session  domain.Session
	expireAt time.Time
}

// MemorySessionStore is an in-memory SessionStore with the same TTL
// semantics as the Redis implementation. Used by tests.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]memorySessionRecord
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]memorySessionRecord),
	}
}

var _ ports.SessionStore = (*MemorySessionStore)(nil)

func (s *MemorySessionStore) StoreSession(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = memorySessionRecord{
		session:  *session,
		expireAt: time.Now().Add(time.Duration(session.ExpiresIn()) * time.Second),
	}
	return nil
}

func (s *MemorySessionStore) LoadSession(_ context.Context, id string) (*domain.Session, error) {
	s.mu.RLock()
	record, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok || time.Now().After(record.expireAt) {
		return nil, domain.ErrNotFound
	}
	session := record.session
	return &session, nil
}

func (s *MemorySessionStore) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// Len reports the number of stored records, expired ones included.
func (s *MemorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
