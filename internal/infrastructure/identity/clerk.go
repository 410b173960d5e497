// Package identity resolves application session tokens to stable end-user
// ids through the external identity provider. The core only consumes the
// narrow "session token to user id" capability.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"storelink-shopify-layer/internal/domain"
	"storelink-shopify-layer/internal/ports"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://api.clerk.dev"

// ClerkResolver resolves a Clerk session token: the token's sid claim names
// the identity session, which the Clerk API maps to a user id. The token
// itself is not trusted; the authoritative lookup happens server-side.
type ClerkResolver struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClerkResolver creates a resolver against the Clerk API.
func NewClerkResolver(apiKey string, logger zerolog.Logger) *ClerkResolver {
	return NewClerkResolverWithOptions(apiKey, defaultBaseURL, &http.Client{Timeout: 10 * time.Second}, logger)
}

// NewClerkResolverWithOptions creates a resolver with a caller-supplied
// endpoint and HTTP client.
func NewClerkResolverWithOptions(apiKey, baseURL string, httpClient *http.Client, logger zerolog.Logger) *ClerkResolver {
	return &ClerkResolver{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

var _ ports.UserResolver = (*ClerkResolver)(nil)

func (r *ClerkResolver) ResolveUserID(ctx context.Context, sessionToken string) (string, error) {
	if sessionToken == "" {
		return "", fmt.Errorf("session token is empty")
	}

	sid, err := sessionIDFromToken(sessionToken)
	if err != nil {
		return "", fmt.Errorf("failed to parse session token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/v1/sessions/%s", r.baseURL, sid), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create session request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", &domain.UpstreamError{Op: "resolve user", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &domain.UpstreamError{Op: "resolve user", Status: resp.StatusCode}
	}

	var session struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return "", &domain.UpstreamError{Op: "resolve user", Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if session.UserID == "" {
		return "", fmt.Errorf("identity session has no user id")
	}
	return session.UserID, nil
}

// sessionIDFromToken extracts the sid claim without verifying the token
// signature. Verification belongs to the identity provider; the sid is only
// a lookup key for the authoritative API call.
func sessionIDFromToken(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", err
	}

	sid, ok := claims["sid"].(string)
	if !ok || sid == "" {
		return "", fmt.Errorf("token has no sid claim")
	}
	return sid, nil
}
