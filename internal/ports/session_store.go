package ports

import (
	"context"

	"storelink-shopify-layer/internal/domain"
)

// SessionStore defines how OAuth sessions are persisted.
// Implementations: Redis (prod), in-memory (test).
type SessionStore interface {
	// StoreSession creates or updates a session. The record's TTL follows
	// the grant lifetime (default 3600s for pending sessions).
	StoreSession(ctx context.Context, session *domain.Session) error

	// LoadSession retrieves a session by id. Returns domain.ErrNotFound
	// when the record is absent or has expired.
	LoadSession(ctx context.Context, id string) (*domain.Session, error)

	// DeleteSession removes a session. Deleting an absent session is not
	// an error.
	DeleteSession(ctx context.Context, id string) error
}
