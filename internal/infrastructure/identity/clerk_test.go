package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"storelink-shopify-layer/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("irrelevant"))
	require.NoError(t, err)
	return token
}

func TestResolveUserID(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves via the sessions endpoint", func(t *testing.T) {
		var gotPath, gotAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotAuth = r.Header.Get("Authorization")
			w.Write([]byte(`{"id":"sess_123","user_id":"user_abc"}`))
		}))
		t.Cleanup(server.Close)

		resolver := NewClerkResolverWithOptions("clerk-key", server.URL, server.Client(), zerolog.Nop())
		userID, err := resolver.ResolveUserID(ctx, signedToken(t, jwt.MapClaims{"sid": "sess_123"}))

		require.NoError(t, err)
		assert.Equal(t, "user_abc", userID)
		assert.Equal(t, "/v1/sessions/sess_123", gotPath)
		assert.Equal(t, "Bearer clerk-key", gotAuth)
	})

	t.Run("empty token is rejected", func(t *testing.T) {
		resolver := NewClerkResolverWithOptions("clerk-key", "http://unused", http.DefaultClient, zerolog.Nop())
		_, err := resolver.ResolveUserID(ctx, "")
		assert.Error(t, err)
	})

	t.Run("token without sid claim is rejected", func(t *testing.T) {
		resolver := NewClerkResolverWithOptions("clerk-key", "http://unused", http.DefaultClient, zerolog.Nop())
		_, err := resolver.ResolveUserID(ctx, signedToken(t, jwt.MapClaims{"sub": "user_abc"}))
		assert.Error(t, err)
	})

	t.Run("provider error is an upstream error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "not found", http.StatusNotFound)
		}))
		t.Cleanup(server.Close)

		resolver := NewClerkResolverWithOptions("clerk-key", server.URL, server.Client(), zerolog.Nop())
		_, err := resolver.ResolveUserID(ctx, signedToken(t, jwt.MapClaims{"sid": "sess_gone"}))

		var upstream *domain.UpstreamError
		require.ErrorAs(t, err, &upstream)
		assert.Equal(t, http.StatusNotFound, upstream.Status)
	})

	t.Run("session without user id is rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id":"sess_123"}`))
		}))
		t.Cleanup(server.Close)

		resolver := NewClerkResolverWithOptions("clerk-key", server.URL, server.Client(), zerolog.Nop())
		_, err := resolver.ResolveUserID(ctx, signedToken(t, jwt.MapClaims{"sid": "sess_123"}))
		assert.Error(t, err)
	})
}
