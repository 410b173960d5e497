package domain

import "time"

// AssociatedUser is the profile of the shop user an online grant belongs to.
type AssociatedUser struct {
	ID            int64  `json:"id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	AccountOwner  bool   `json:"account_owner"`
	Locale        string `json:"locale"`
	Collaborator  bool   `json:"collaborator"`
}

// OnlineAccessInfo carries the per-user grant details returned by the token
// exchange for online sessions.
type OnlineAccessInfo struct {
	ExpiresIn           int64          `json:"expires_in"`
	AssociatedUserScope string         `json:"associated_user_scope"`
	AssociatedUser      AssociatedUser `json:"associated_user"`
}

// Session represents one OAuth grant for a shop. A session without an access
// token is pending and must never be treated as authorizing API access.
type Session struct {
	ID               string            `json:"id"`
	Shop             string            `json:"shop"`
	State            string            `json:"state"`
	IsOnline         bool              `json:"isOnline"`
	Scope            string            `json:"scope,omitempty"`
	AccessToken      string            `json:"accessToken,omitempty"`
	Expires          *time.Time        `json:"expires,omitempty"`
	OnlineAccessInfo *OnlineAccessInfo `json:"onlineAccessInfo,omitempty"`
}

// NewSession creates a pending session bound to the given shop and state nonce.
func NewSession(id, shop, state string, isOnline bool) *Session {
	return &Session{
		ID:       id,
		Shop:     shop,
		State:    state,
		IsOnline: isOnline,
	}
}

// Clone returns a copy of the session under a new id.
func (s *Session) Clone(newID string) *Session {
	clone := *s
	clone.ID = newID
	return &clone
}

// IsActive reports whether the session authorizes API access: its scopes are
// unchanged from the required set, it holds an access token, and it has not
// expired.
func (s *Session) IsActive(required ScopeSet) bool {
	if !required.Equals(NewScopeSet(s.Scope)) {
		return false
	}
	if s.AccessToken == "" {
		return false
	}
	if s.Expires != nil && s.Expires.Before(time.Now()) {
		return false
	}
	return true
}

// ExpiresIn returns the grant lifetime in seconds, defaulting to 3600 when
// the token exchange did not report one.
func (s *Session) ExpiresIn() int64 {
	if s.OnlineAccessInfo != nil && s.OnlineAccessInfo.ExpiresIn > 0 {
		return s.OnlineAccessInfo.ExpiresIn
	}
	return 3600
}
