package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
	"time"
)

// SessionCookieName is the cookie that carries the OAuth session id between
// the begin-auth redirect and the callback.
const SessionCookieName = "shopify_app_session"

// signCookieValue appends an HMAC-SHA256 signature to the value so a
// tampered cookie is rejected on read.
func signCookieValue(secret, value string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(value))
	return value + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// verifyCookieValue splits off the signature and validates it, returning
// the original value.
func verifyCookieValue(secret, signed string) (string, bool) {
	idx := strings.LastIndex(signed, ".")
	if idx < 0 {
		return "", false
	}
	value, sig := signed[:idx], signed[idx+1:]

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(value))
	expected := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return "", false
	}
	return value, true
}

// setSessionCookie writes the signed session cookie. Secure and
// SameSite=Lax: the callback arrives as a top-level cross-site navigation,
// which Lax permits, while still keeping the cookie off subresource
// requests.
func setSessionCookie(w http.ResponseWriter, secret, sessionID string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    signCookieValue(secret, sessionID),
		Path:     "/",
		Expires:  expires,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// readSessionCookie returns the session id from a validly signed cookie,
// or false when the cookie is absent or its signature does not verify.
func readSessionCookie(r *http.Request, secret string) (string, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", false
	}
	return verifyCookieValue(secret, cookie.Value)
}
