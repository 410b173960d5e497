package ports

import "context"

// UserResolver maps an opaque application session token to a stable end-user
// id. Backed by the external identity provider; tests stub it.
type UserResolver interface {
	ResolveUserID(ctx context.Context, sessionToken string) (string, error)
}
