package webhook_handlers

import (
	"context"
	"testing"

	"storelink-shopify-layer/internal/application"
	"storelink-shopify-layer/internal/domain"
	"storelink-shopify-layer/internal/infrastructure/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticResolver struct {
	userID string
}

func (r *staticResolver) ResolveUserID(context.Context, string) (string, error) {
	return r.userID, nil
}

func newHandlerFixture(t *testing.T) (*AppUninstalledHandler, *repository.MemoryStoreIndex, *repository.MemorySessionStore) {
	t.Helper()
	index := repository.NewMemoryStoreIndex()
	sessions := repository.NewMemorySessionStore()
	access := application.NewAccessService(&staticResolver{userID: "user-1"}, index, sessions, zerolog.Nop())

	ctx := context.Background()
	session := domain.NewSession("sess-1", "shop.example.com", "123456789012345", true)
	session.AccessToken = "shpat_token"
	require.NoError(t, sessions.StoreSession(ctx, session))
	require.NoError(t, access.SaveSessionInfo(ctx, "token", "shop.example.com", "sess-1", 3600))

	deleted := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_stores_deleted_total"})
	return NewAppUninstalledHandler(access, deleted, zerolog.Nop()), index, sessions
}

func TestAppUninstalledHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("claims only the uninstall topic", func(t *testing.T) {
		handler, _, _ := newHandlerFixture(t)
		assert.True(t, handler.CanHandle("app/uninstalled"))
		assert.False(t, handler.CanHandle("orders/create"))
	})

	t.Run("cleans up from the header shop domain", func(t *testing.T) {
		handler, index, sessions := newHandlerFixture(t)

		err := handler.Handle(ctx, &domain.WebhookEvent{
			Topic:   "app/uninstalled",
			Shop:    "shop.example.com",
			Payload: []byte(`{}`),
		})
		require.NoError(t, err)

		users, err := index.ListUsers(ctx, "shop.example.com")
		require.NoError(t, err)
		assert.Empty(t, users)

		_, err = sessions.LoadSession(ctx, "sess-1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("falls back to the payload domain", func(t *testing.T) {
		handler, index, _ := newHandlerFixture(t)

		err := handler.Handle(ctx, &domain.WebhookEvent{
			Topic:   "app/uninstalled",
			Payload: []byte(`{"domain":"shop.example.com"}`),
		})
		require.NoError(t, err)

		users, err := index.ListUsers(ctx, "shop.example.com")
		require.NoError(t, err)
		assert.Empty(t, users)
	})

	t.Run("missing shop domain is swallowed", func(t *testing.T) {
		handler, index, _ := newHandlerFixture(t)

		err := handler.Handle(ctx, &domain.WebhookEvent{
			Topic:   "app/uninstalled",
			Payload: []byte(`{"reason":"closed"}`),
		})
		require.NoError(t, err)

		users, err := index.ListUsers(ctx, "shop.example.com")
		require.NoError(t, err)
		assert.Equal(t, []string{"user-1"}, users, "nothing deleted")
	})
}
