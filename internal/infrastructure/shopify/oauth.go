package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"storelink-shopify-layer/internal/domain"
	"storelink-shopify-layer/internal/infrastructure/signature"
	"storelink-shopify-layer/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	hostScheme       = "https"
	pendingCookieTTL = 60 * time.Second
	exchangeTimeout  = 10 * time.Second
)

// OAuth owns the install/authorize/callback handshake. The signed cookie,
// not the query string, is the source of truth for which pending
// authorization a callback belongs to.
type OAuth struct {
	sessions   ports.SessionStore
	hostName   string
	apiKey     string
	apiSecret  string
	scopes     domain.ScopeSet
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewOAuth creates an OAuth coordinator.
func NewOAuth(
	sessions ports.SessionStore,
	hostName string,
	apiKey string,
	apiSecret string,
	scopes string,
	logger zerolog.Logger,
) *OAuth {
	return NewOAuthWithClient(sessions, hostName, apiKey, apiSecret, scopes, &http.Client{Timeout: exchangeTimeout}, logger)
}

// NewOAuthWithClient creates an OAuth coordinator with a caller-supplied
// HTTP client for the token exchange.
func NewOAuthWithClient(
	sessions ports.SessionStore,
	hostName string,
	apiKey string,
	apiSecret string,
	scopes string,
	httpClient *http.Client,
	logger zerolog.Logger,
) *OAuth {
	return &OAuth{
		sessions:   sessions,
		hostName:   hostName,
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		scopes:     domain.NewScopeSet(scopes),
		httpClient: httpClient,
		logger:     logger,
	}
}

// RequiredScopes returns the scope set the app is configured to request.
func (o *OAuth) RequiredScopes() domain.ScopeSet {
	return o.scopes
}

// APISecret exposes the shared secret for signature verification on the
// webhook path.
func (o *OAuth) APISecret() string {
	return o.apiSecret
}

// BeginAuth starts the OAuth handshake: it persists a pending session,
// sets the signed session cookie, and returns the platform authorize URL
// to redirect the browser to. The session write is awaited before the URL
// is returned; a redirect the server could not later validate is worse
// than a failed install.
func (o *OAuth) BeginAuth(ctx context.Context, w http.ResponseWriter, store, redirectPath string) (string, error) {
	state, err := nonce()
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}

	session := domain.NewSession(uuid.NewString(), store, state, true)

	if err := o.sessions.StoreSession(ctx, session); err != nil {
		return "", fmt.Errorf("failed to save oauth session: %w", err)
	}

	setSessionCookie(w, o.apiSecret, session.ID, time.Now().Add(pendingCookieTTL))

	query := url.Values{}
	query.Set("client_id", o.apiKey)
	query.Set("scope", o.scopes.String())
	query.Set("redirect_uri", fmt.Sprintf("%s://%s%s", hostScheme, o.hostName, redirectPath))
	query.Set("state", state)
	query.Set("grant_options[]", "per-user")

	authURL := fmt.Sprintf("https://%s/admin/oauth/authorize?%s", store, query.Encode())

	o.logger.Info().
		Str("shop", store).
		Str("session_id", session.ID).
		Str("scopes", o.scopes.String()).
		Msg("OAuth flow started")

	return authURL, nil
}

// ValidateAuthCallback completes the handshake: it checks the callback
// signature and state against the cookie-bound pending session, exchanges
// the authorization code for an access token, and persists the finalized
// session. Validation failures abort before any mutation.
func (o *OAuth) ValidateAuthCallback(ctx context.Context, w http.ResponseWriter, r *http.Request, query domain.AuthQuery) (*domain.Session, error) {
	sessionID, ok := readSessionCookie(r, o.apiSecret)
	if !ok {
		return nil, &domain.ValidationError{
			Reason: fmt.Sprintf("could not find an oauth cookie for shop %s", query.Shop),
		}
	}

	session, err := o.sessions.LoadSession(ctx, sessionID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, &domain.ValidationError{
			Reason: fmt.Sprintf("no oauth session found for shop %s", query.Shop),
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load oauth session: %w", err)
	}

	if !o.isQueryValid(query, session) {
		return nil, &domain.ValidationError{Reason: "invalid oauth callback"}
	}

	token, err := o.exchangeCode(ctx, session.Shop, query.Code)
	if err != nil {
		return nil, err
	}

	expires := time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	session.AccessToken = token.AccessToken
	session.Scope = token.Scope
	session.Expires = &expires
	session.OnlineAccessInfo = &domain.OnlineAccessInfo{
		ExpiresIn:           token.ExpiresIn,
		AssociatedUserScope: token.AssociatedUserScope,
		AssociatedUser:      token.AssociatedUser,
	}

	setSessionCookie(w, o.apiSecret, session.ID, expires)

	if err := o.sessions.StoreSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save oauth session: %w", err)
	}

	o.logger.Info().
		Str("shop", session.Shop).
		Str("session_id", session.ID).
		Str("granted_scopes", session.Scope).
		Msg("OAuth flow completed")

	return session, nil
}

// LoadCurrentSession resolves the session strictly from the signed cookie.
// An absent cookie or record is a normal condition and returns (nil, nil).
func (o *OAuth) LoadCurrentSession(ctx context.Context, r *http.Request) (*domain.Session, error) {
	sessionID, ok := readSessionCookie(r, o.apiSecret)
	if !ok {
		return nil, nil
	}

	session, err := o.sessions.LoadSession(ctx, sessionID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load current session: %w", err)
	}
	return session, nil
}

// isQueryValid checks the callback HMAC over everything but the hmac
// parameter itself, then the state nonce against the pending session.
// Both comparisons are constant-time.
func (o *OAuth) isQueryValid(query domain.AuthQuery, session *domain.Session) bool {
	if query.HMAC == "" {
		return false
	}
	if !signature.VerifyHex(o.apiSecret, query.SignedFields(), query.HMAC) {
		return false
	}
	return signature.SafeCompare(query.State, session.State)
}

type accessTokenResponse struct {
	AccessToken         string                `json:"access_token"`
	Scope               string                `json:"scope"`
	ExpiresIn           int64                 `json:"expires_in"`
	AssociatedUserScope string                `json:"associated_user_scope"`
	AssociatedUser      domain.AssociatedUser `json:"associated_user"`
}

// exchangeCode posts the authorization code to the platform's token
// endpoint. The call is bounded by the client timeout and awaited to its
// conclusion; the flow never redirects on an unexchanged code.
func (o *OAuth) exchangeCode(ctx context.Context, shop, code string) (*accessTokenResponse, error) {
	body, err := json.Marshal(map[string]string{
		"client_id":     o.apiKey,
		"client_secret": o.apiSecret,
		"code":          code,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode token request: %w", err)
	}

	tokenURL := fmt.Sprintf("https://%s/admin/oauth/access_token", shop)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, &domain.UpstreamError{Op: "token exchange", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		o.logger.Error().
			Int("status", resp.StatusCode).
			Str("shop", shop).
			Str("body", string(respBody)).
			Msg("Token exchange returned non-OK status")
		return nil, &domain.UpstreamError{Op: "token exchange", Status: resp.StatusCode}
	}

	var token accessTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, &domain.UpstreamError{Op: "token exchange", Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return &token, nil
}
