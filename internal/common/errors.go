// Package common defines shared constants and sentinel errors used across
// the SeaBattle backend layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Refresh-token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrTokenAlreadyRotated = errors.New("token already rotated")
	ErrTokenRevoked        = errors.New("token revoked")

	// ErrTokenReuseDetected marks a revoked refresh token presented again.
	// The transport layer surfaces it as a generic unauthorized response
	// but logs it distinctly.
	ErrTokenReuseDetected = errors.New("revoked token reuse detected")

	// Password-change errors.
	ErrPasswordUnchanged = errors.New("new password equals current password")

	// Startup configuration errors.
	ErrorInvalidSecret = errors.New("signing secret missing or too short")
)
