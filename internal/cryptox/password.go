// Package cryptox implements one-way password hashing for the SeaBattle
// backend: PBKDF2-SHA256 with a per-call random salt and constant-time
// verification.
package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/seabattle/internal/common"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// Iterations is the PBKDF2 iteration count.
	Iterations = 10000

	// SaltSize is the random salt length in bytes.
	SaltSize = 16

	// KeySize is the derived key length in bytes.
	KeySize = 32

	// Delimiter separates the salt and the derived key in the encoded form.
	Delimiter = ":"
)

// HashPassword derives a key from password with a fresh random salt and
// encodes the result as base64(salt) + ":" + base64(key).
//
// Two calls with the same password produce different encodings, and both
// verify.
func HashPassword(password string) (string, error) {
	salt, err := common.GenerateRandByteArray(SaltSize)
	if err != nil {
		return "", fmt.Errorf("error generating salt: %w", err)
	}

	key := pbkdf2.Key([]byte(password), salt, Iterations, KeySize, sha256.New)

	return base64.StdEncoding.EncodeToString(salt) + Delimiter +
		base64.StdEncoding.EncodeToString(key), nil
}

// VerifyPassword reports whether password matches the encoded hash.
//
// Malformed input (wrong shape, bad base64) yields false, never an error:
// a stored hash that cannot be decoded must behave like a wrong password.
func VerifyPassword(password string, encoded string) bool {
	parts := strings.Split(encoded, Delimiter)
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}
	stored, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	key := pbkdf2.Key([]byte(password), salt, Iterations, KeySize, sha256.New)

	return subtle.ConstantTimeCompare(key, stored) == 1
}
