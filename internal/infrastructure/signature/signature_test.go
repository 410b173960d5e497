package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalize(t *testing.T) {
	t.Run("sorts pairs by key regardless of insertion order", func(t *testing.T) {
		fields := map[string]string{
			"shop":      "shop.example.com",
			"code":      "authcode",
			"timestamp": "1700000000",
			"state":     "123",
		}
		assert.Equal(t,
			"code=authcode&shop=shop.example.com&state=123&timestamp=1700000000",
			Canonicalize(fields))
	})

	t.Run("url-encodes values", func(t *testing.T) {
		assert.Equal(t, "redirect=https%3A%2F%2Fexample.com%2Fcb",
			Canonicalize(map[string]string{"redirect": "https://example.com/cb"}))
	})
}

func TestSignRoundTrip(t *testing.T) {
	secret := "shhh"
	fields := map[string]string{
		"code":  "authcode",
		"shop":  "shop.example.com",
		"state": "123456789012345",
	}

	t.Run("hex digest verifies against its own fields", func(t *testing.T) {
		digest := SignHex(secret, fields)
		assert.True(t, VerifyHex(secret, fields, digest))
	})

	t.Run("changing any field flips verification", func(t *testing.T) {
		digest := SignHex(secret, fields)
		for key := range fields {
			tampered := map[string]string{}
			for k, v := range fields {
				tampered[k] = v
			}
			tampered[key] = tampered[key] + "x"
			assert.False(t, VerifyHex(secret, tampered, digest), "field %q", key)
		}
	})

	t.Run("wrong secret fails verification", func(t *testing.T) {
		digest := SignHex(secret, fields)
		assert.False(t, VerifyHex("other", fields, digest))
	})

	t.Run("base64 digest verifies raw bytes", func(t *testing.T) {
		body := []byte(`{"domain":"shop.example.com"}`)
		digest := SignBase64(secret, body)
		assert.True(t, VerifyBase64(secret, body, digest))
		assert.False(t, VerifyBase64(secret, body[:len(body)-1], digest))
	})
}

func TestSafeCompare(t *testing.T) {
	t.Run("equal strings match", func(t *testing.T) {
		assert.True(t, SafeCompare("abcdef", "abcdef"))
	})

	t.Run("mismatched lengths return false", func(t *testing.T) {
		assert.False(t, SafeCompare("abc", "abcd"))
	})

	t.Run("single character difference returns false", func(t *testing.T) {
		assert.False(t, SafeCompare("abcdef", "abcdeg"))
	})

	t.Run("empty strings match", func(t *testing.T) {
		assert.True(t, SafeCompare("", ""))
	})
}
