package ports

import "context"

// StoreIndex maintains the bidirectional store/user/session mapping:
// a membership set per store, and a TTL-bounded session pointer per
// (user, store) pair. Multi-key sequences are not transactional; every
// pointer independently expires, bounding the lifetime of any
// inconsistency.
type StoreIndex interface {
	// AddUser records userID as a member of the store. Idempotent.
	AddUser(ctx context.Context, store, userID string) error

	// ListUsers returns all member user ids of the store.
	ListUsers(ctx context.Context, store string) ([]string, error)

	// ListStores returns every store userID is a member of.
	ListStores(ctx context.Context, userID string) ([]string, error)

	// RemoveUser drops userID from the store's membership set.
	RemoveUser(ctx context.Context, store, userID string) error

	// DeleteStore removes the store's membership set entirely.
	DeleteStore(ctx context.Context, store string) error

	// RecordSession upserts the (user, store) -> sessionID pointer with the
	// given TTL in seconds. A re-authorization replaces the prior pointer.
	RecordSession(ctx context.Context, userID, store, sessionID string, expiresIn int64) error

	// GetSession returns the session id pointed to by (user, store).
	// Returns domain.ErrNotFound when no live pointer exists.
	GetSession(ctx context.Context, userID, store string) (string, error)

	// ListSessionsByStore returns the live session ids pointed to by the
	// given users for one store. Dangling or expired pointers are skipped.
	ListSessionsByStore(ctx context.Context, userIDs []string, store string) ([]string, error)

	// DeleteSessions removes the (user, store) pointers for all given users.
	DeleteSessions(ctx context.Context, userIDs []string, store string) error
}
