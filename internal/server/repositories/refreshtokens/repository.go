// Package refreshtokens declares the server-side repository contract for
// the stored refresh-token set.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/seabattle/internal/server/models"
)

// Repository defines operations for storing, retrieving, and revoking
// refresh tokens. Rows are never deleted; revocation and rotation only mark
// state on the existing row.
type Repository interface {
	// Create stores a new refresh token row. A duplicate token value yields
	// common.ErrorConflict so the caller can regenerate.
	Create(ctx context.Context, token *models.RefreshToken) error

	// FindByToken returns the row for the given opaque value, or
	// common.ErrorNotFound.
	FindByToken(ctx context.Context, value string) (*models.RefreshToken, error)

	// Revoke transitions the row out of the Active state, recording the
	// revocation time, client address, reason, and optional successor. The
	// update is conditional on the row still being unrevoked and without a
	// successor; the returned bool reports whether this caller won that
	// transition. Concurrent rotations of one token therefore produce
	// exactly one true.
	Revoke(ctx context.Context, value string, at time.Time, byIP string, reason models.RevokeReason, replacedBy *string) (bool, error)

	// RevokeAllActive revokes every currently active token of the user in
	// one statement and returns the number of rows transitioned.
	RevokeAllActive(ctx context.Context, userID string, at time.Time, reason models.RevokeReason) (int64, error)
}
