package repository

import (
	"context"
	"testing"
	"time"

	"storelink-shopify-layer/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionWithTTL(id string, expiresIn int64) *domain.Session {
	session := domain.NewSession(id, "shop.example.com", "123456789012345", true)
	session.AccessToken = "token-" + id
	session.OnlineAccessInfo = &domain.OnlineAccessInfo{ExpiresIn: expiresIn}
	return session
}

func TestMemorySessionStore(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		store := NewMemorySessionStore()
		require.NoError(t, store.StoreSession(ctx, sessionWithTTL("s1", 3600)))

		loaded, err := store.LoadSession(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, "token-s1", loaded.AccessToken)
		assert.Equal(t, "shop.example.com", loaded.Shop)
	})

	t.Run("missing session is ErrNotFound", func(t *testing.T) {
		store := NewMemorySessionStore()
		_, err := store.LoadSession(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		store := NewMemorySessionStore()
		require.NoError(t, store.StoreSession(ctx, sessionWithTTL("s1", 3600)))
		require.NoError(t, store.DeleteSession(ctx, "s1"))
		require.NoError(t, store.DeleteSession(ctx, "s1"))

		_, err := store.LoadSession(ctx, "s1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("expiry is per session", func(t *testing.T) {
		store := NewMemorySessionStore()
		require.NoError(t, store.StoreSession(ctx, sessionWithTTL("short", 1)))
		require.NoError(t, store.StoreSession(ctx, sessionWithTTL("long", 3)))

		_, err := store.LoadSession(ctx, "short")
		require.NoError(t, err, "still inside its ttl")

		time.Sleep(1100 * time.Millisecond)

		_, err = store.LoadSession(ctx, "short")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = store.LoadSession(ctx, "long")
		assert.NoError(t, err, "sibling ttl unaffected")
	})

	t.Run("rewrite resets the ttl", func(t *testing.T) {
		store := NewMemorySessionStore()
		require.NoError(t, store.StoreSession(ctx, sessionWithTTL("s1", 1)))

		time.Sleep(600 * time.Millisecond)
		require.NoError(t, store.StoreSession(ctx, sessionWithTTL("s1", 1)))
		time.Sleep(600 * time.Millisecond)

		_, err := store.LoadSession(ctx, "s1")
		assert.NoError(t, err)
	})

	t.Run("loaded session is a copy", func(t *testing.T) {
		store := NewMemorySessionStore()
		require.NoError(t, store.StoreSession(ctx, sessionWithTTL("s1", 3600)))

		first, err := store.LoadSession(ctx, "s1")
		require.NoError(t, err)
		first.AccessToken = "mutated"

		second, err := store.LoadSession(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, "token-s1", second.AccessToken)
	})
}

func TestMemoryStoreIndex(t *testing.T) {
	ctx := context.Background()

	t.Run("membership", func(t *testing.T) {
		index := NewMemoryStoreIndex()
		require.NoError(t, index.AddUser(ctx, "store-a", "user-1"))
		require.NoError(t, index.AddUser(ctx, "store-a", "user-1"))
		require.NoError(t, index.AddUser(ctx, "store-a", "user-2"))
		require.NoError(t, index.AddUser(ctx, "store-b", "user-1"))

		users, err := index.ListUsers(ctx, "store-a")
		require.NoError(t, err)
		assert.Equal(t, []string{"user-1", "user-2"}, users)

		stores, err := index.ListStores(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, []string{"store-a", "store-b"}, stores)

		require.NoError(t, index.RemoveUser(ctx, "store-a", "user-1"))
		users, err = index.ListUsers(ctx, "store-a")
		require.NoError(t, err)
		assert.Equal(t, []string{"user-2"}, users)
	})

	t.Run("session pointers", func(t *testing.T) {
		index := NewMemoryStoreIndex()
		require.NoError(t, index.RecordSession(ctx, "user-1", "store-a", "sess-1", 3600))
		require.NoError(t, index.RecordSession(ctx, "user-2", "store-a", "sess-2", 3600))
		require.NoError(t, index.RecordSession(ctx, "user-1", "store-b", "sess-3", 3600))

		sessionID, err := index.GetSession(ctx, "user-1", "store-a")
		require.NoError(t, err)
		assert.Equal(t, "sess-1", sessionID)

		sessionIDs, err := index.ListSessionsByStore(ctx, []string{"user-1", "user-2"}, "store-a")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"sess-1", "sess-2"}, sessionIDs)

		require.NoError(t, index.DeleteSessions(ctx, []string{"user-1", "user-2"}, "store-a"))

		_, err = index.GetSession(ctx, "user-1", "store-a")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		sessionID, err = index.GetSession(ctx, "user-1", "store-b")
		require.NoError(t, err)
		assert.Equal(t, "sess-3", sessionID, "other store untouched")
	})

	t.Run("pointer ttl", func(t *testing.T) {
		index := NewMemoryStoreIndex()
		require.NoError(t, index.RecordSession(ctx, "user-1", "store-a", "sess-1", 1))

		time.Sleep(1100 * time.Millisecond)

		_, err := index.GetSession(ctx, "user-1", "store-a")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		sessionIDs, err := index.ListSessionsByStore(ctx, []string{"user-1"}, "store-a")
		require.NoError(t, err)
		assert.Empty(t, sessionIDs)
	})

	t.Run("delete store drops membership only", func(t *testing.T) {
		index := NewMemoryStoreIndex()
		require.NoError(t, index.AddUser(ctx, "store-a", "user-1"))
		require.NoError(t, index.RecordSession(ctx, "user-1", "store-a", "sess-1", 3600))

		require.NoError(t, index.DeleteStore(ctx, "store-a"))

		users, err := index.ListUsers(ctx, "store-a")
		require.NoError(t, err)
		assert.Empty(t, users)

		sessionID, err := index.GetSession(ctx, "user-1", "store-a")
		require.NoError(t, err)
		assert.Equal(t, "sess-1", sessionID, "pointers are cleaned by DeleteSessions, not DeleteStore")
	})
}
