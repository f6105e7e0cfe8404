package common

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateRandByteArray returns size cryptographically random bytes.
func GenerateRandByteArray(size int) ([]byte, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// MakeRandBase64String generates an opaque random string carrying size bytes
// of entropy, encoded with URL-safe base64 (no padding). The resulting string
// length is ceil(size*4/3).
//
// It returns an error if the random number generator fails.
func MakeRandBase64String(size int) (string, error) {
	b, err := GenerateRandByteArray(size)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
