package shopify

import "crypto/rand"

const nonceLength = 15

// nonce returns a random digit string binding an authorize request to its
// callback.
func nonce() (string, error) {
	bytes := make([]byte, nonceLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}

	digits := make([]byte, nonceLength)
	for i, b := range bytes {
		digits[i] = '0' + b%10
	}
	return string(digits), nil
}
