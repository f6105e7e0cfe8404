package models

import (
	"strings"
	"time"
)

// RevokeReason classifies why a refresh token was revoked. The set is closed;
// anything a caller sends outside of it parses to Manual.
type RevokeReason string

const (
	RevokeReasonManual             RevokeReason = "Manual"
	RevokeReasonExpired            RevokeReason = "Expired"
	RevokeReasonReplacedByNewToken RevokeReason = "ReplacedByNewToken"
	RevokeReasonCompromised        RevokeReason = "Compromised"
	RevokeReasonUnknown            RevokeReason = "Unknown"
)

// ParseRevokeReason maps a caller-supplied string onto the closed reason set,
// case-insensitively. Unrecognized or empty input yields Manual: revocation
// must not fail because the client sent a reason we do not know.
func ParseRevokeReason(s string) RevokeReason {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "manual":
		return RevokeReasonManual
	case "expired":
		return RevokeReasonExpired
	case "replacedbynewtoken":
		return RevokeReasonReplacedByNewToken
	case "compromised":
		return RevokeReasonCompromised
	case "unknown":
		return RevokeReasonUnknown
	default:
		return RevokeReasonManual
	}
}

// RefreshToken is a long-lived opaque credential stored server-side. The row
// references its owner by id only; callers resolve the user through the
// users repository.
type RefreshToken struct {
	Token       string
	UserID      string
	CreatedAt   time.Time
	CreatedByIP string
	ExpiresAt   time.Time

	// Revocation state. RevokedAt set means the token left the Active state
	// for good; ReplacedByToken links to its successor when the exit was a
	// rotation.
	RevokedAt       *time.Time
	RevokedByIP     *string
	ReplacedByToken *string
	ReasonRevoked   *RevokeReason
}

// IsRevoked reports whether the token has been explicitly revoked.
func (t *RefreshToken) IsRevoked() bool { return t.RevokedAt != nil }

// IsExpired reports whether the token expiry has passed at the given instant.
func (t *RefreshToken) IsExpired(now time.Time) bool { return !now.Before(t.ExpiresAt) }

// IsActive reports whether the token can still be redeemed: not revoked, not
// expired, and not superseded by a rotation successor.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.IsRevoked() && !t.IsExpired(now) && t.ReplacedByToken == nil
}
