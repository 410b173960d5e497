// Package signature computes and verifies the HMAC-SHA256 digests the
// platform attaches to OAuth callbacks (hex, over a canonicalized query)
// and webhook deliveries (base64, over the raw body).
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"net/url"
)

// Canonicalize renders the fields as URL-encoded key=value pairs joined by
// "&", sorted by key. The platform computes its digest over the same form;
// the ordering is load-bearing.
func Canonicalize(fields map[string]string) string {
	values := url.Values{}
	for k, v := range fields {
		values.Set(k, v)
	}
	return values.Encode()
}

// SignHex returns the hex-encoded HMAC-SHA256 of the canonicalized fields.
// Used for query-style contexts (OAuth callback).
func SignHex(secret string, fields map[string]string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(Canonicalize(fields)))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignBase64 returns the base64-encoded HMAC-SHA256 of the raw bytes.
// Used for webhook bodies, which are signed byte-exact without
// canonicalization.
func SignBase64(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// SafeCompare compares two strings in constant time. Mismatched lengths
// return false without leaking how many leading bytes matched.
func SafeCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// VerifyHex recomputes the hex digest over fields and compares it to the
// provided one in constant time.
func VerifyHex(secret string, fields map[string]string, provided string) bool {
	return SafeCompare(SignHex(secret, fields), provided)
}

// VerifyBase64 recomputes the base64 digest over body and compares it to
// the provided one in constant time.
func VerifyBase64(secret string, body []byte, provided string) bool {
	return SafeCompare(SignBase64(secret, body), provided)
}
