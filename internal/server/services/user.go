// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login, password changes, win/loss
// counters, and the refresh-token state machine: rotation, revocation, and
// compromise handling.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/seabattle/internal/common"
	"github.com/dmitrijs2005/seabattle/internal/cryptox"
	"github.com/dmitrijs2005/seabattle/internal/dbx"
	"github.com/dmitrijs2005/seabattle/internal/server/auth"
	"github.com/dmitrijs2005/seabattle/internal/server/models"
	"github.com/dmitrijs2005/seabattle/internal/server/repositories/repomanager"
)

// UserService provides authentication and session-lifecycle operations:
//   - Register / Authenticate: create users and mint auth bundles
//   - Refresh: rotate refresh tokens, detecting reuse of revoked ones
//   - Revoke: explicit refresh-token revocation
//   - ChangePassword, IncrementWins, IncrementLosses
//
// The service never logs; it reports outcomes through typed errors so the
// transport layer decides what to record and what to reveal.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	issuer      *auth.Issuer
}

// NewUserService constructs a UserService over the given database handle,
// repository manager, and token issuer.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, issuer *auth.Issuer) *UserService {
	return &UserService{db: db, repomanager: m, issuer: issuer}
}

// Register creates a new user and returns a fresh auth bundle bound to
// clientIP. A taken username yields common.ErrorConflict.
func (s *UserService) Register(ctx context.Context, username, password, clientIP string) (*auth.AuthBundle, error) {
	usersRepo := s.repomanager.Users(s.db)

	if _, err := usersRepo.GetByName(ctx, username); err == nil {
		return nil, common.ErrorConflict
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error checking username: %w", err)
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, common.ErrorInternal
	}

	// User row and first refresh token commit as one unit.
	var bundle *auth.AuthBundle
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := s.repomanager.Users(tx).Create(ctx, &models.User{
			Name:         username,
			PasswordHash: hash,
		})
		if err != nil {
			return err
		}
		bundle, err = s.issueBundle(ctx, user, clientIP, tx)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("error registering user: %w", err)
	}
	return bundle, nil
}

// Authenticate verifies credentials and mints a fresh auth bundle. An absent
// user and a wrong password are indistinguishable to the caller: both yield
// common.ErrorUnauthorized.
func (s *UserService) Authenticate(ctx context.Context, username, password, clientIP string) (*auth.AuthBundle, error) {
	user, err := s.repomanager.Users(s.db).GetByName(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	if !cryptox.VerifyPassword(password, user.PasswordHash) {
		return nil, common.ErrorUnauthorized
	}

	bundle, err := s.issueBundle(ctx, user, clientIP, s.db)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return bundle, nil
}

// ChangePassword re-hashes and stores a new password after verifying the
// current one. Outstanding refresh tokens stay valid.
func (s *UserService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	usersRepo := s.repomanager.Users(s.db)

	user, err := usersRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return common.ErrorInternal
	}

	if !cryptox.VerifyPassword(currentPassword, user.PasswordHash) {
		return common.ErrorUnauthorized
	}
	if newPassword == currentPassword {
		return common.ErrPasswordUnchanged
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return common.ErrorInternal
	}
	if err := usersRepo.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("error updating password: %w", err)
	}
	return nil
}

// Refresh redeems a refresh token for a new auth bundle, rotating the
// presented token.
//
// State handling, in order:
//   - unknown value: common.ErrInvalidToken
//   - revoked: reuse of a dead credential — every active token of the owner
//     is cascade-revoked with reason Compromised, then
//     common.ErrTokenReuseDetected is returned
//   - expired (not revoked): common.ErrTokenExpired, no cascade
//   - successor already set: common.ErrTokenAlreadyRotated
//   - active: revoke it with reason ReplacedByNewToken, link the successor,
//     and persist old and new rows in one transaction
func (s *UserService) Refresh(ctx context.Context, presentedToken, clientIP string) (*auth.AuthBundle, error) {
	token, err := s.repomanager.RefreshTokens(s.db).FindByToken(ctx, presentedToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}

	now := time.Now()

	if token.IsRevoked() {
		err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			_, err := s.repomanager.RefreshTokens(tx).RevokeAllActive(ctx, token.UserID, now, models.RevokeReasonCompromised)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("error revoking user tokens: %w", err)
		}
		return nil, common.ErrTokenReuseDetected
	}

	if token.IsExpired(now) {
		return nil, common.ErrTokenExpired
	}

	if token.ReplacedByToken != nil {
		return nil, common.ErrTokenAlreadyRotated
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, token.UserID)
	if err != nil {
		return nil, common.ErrorInternal
	}

	var bundle *auth.AuthBundle
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repomanager.RefreshTokens(tx)

		newBundle, newToken, err := s.issuer.MintAuthBundle(user, clientIP, nil)
		if err != nil {
			return err
		}

		// Conditional transition out of Active: if a concurrent request
		// rotated this row first, we lose here and nothing is committed.
		won, err := repoTx.Revoke(ctx, token.Token, now, clientIP,
			models.RevokeReasonReplacedByNewToken, &newToken.Token)
		if err != nil {
			return err
		}
		if !won {
			return common.ErrTokenAlreadyRotated
		}

		if err := repoTx.Create(ctx, newToken); err != nil {
			return err
		}
		bundle = newBundle
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrTokenAlreadyRotated) {
			return nil, common.ErrTokenAlreadyRotated
		}
		return nil, fmt.Errorf("error rotating refresh token: %w", err)
	}
	return bundle, nil
}

// Revoke marks a refresh token revoked with the supplied reason (lenient
// parsing, Manual fallback). An unknown value yields common.ErrorNotFound;
// a token that is already revoked yields common.ErrTokenRevoked.
func (s *UserService) Revoke(ctx context.Context, presentedToken, clientIP, reason string) error {
	repo := s.repomanager.RefreshTokens(s.db)

	token, err := repo.FindByToken(ctx, presentedToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error searching refresh token: %w", err)
	}

	if token.IsRevoked() {
		return common.ErrTokenRevoked
	}

	won, err := repo.Revoke(ctx, token.Token, time.Now(), clientIP,
		models.ParseRevokeReason(reason), nil)
	if err != nil {
		return fmt.Errorf("error revoking refresh token: %w", err)
	}
	if !won {
		// A concurrent request revoked or rotated it between our read and
		// this update.
		return common.ErrTokenRevoked
	}
	return nil
}

// IncrementWins bumps the user's win counter.
func (s *UserService) IncrementWins(ctx context.Context, userID string) error {
	return s.repomanager.Users(s.db).IncrementWins(ctx, userID)
}

// IncrementLosses bumps the user's loss counter.
func (s *UserService) IncrementLosses(ctx context.Context, userID string) error {
	return s.repomanager.Users(s.db).IncrementLosses(ctx, userID)
}

// --- helpers below ---

// issueBundle mints an auth bundle and persists its refresh token through
// the given handle. On the vanishingly rare collision of a fresh token value
// with a stored one the bundle is re-minted once.
func (s *UserService) issueBundle(ctx context.Context, user *models.User, clientIP string, db dbx.DBTX) (*auth.AuthBundle, error) {
	repo := s.repomanager.RefreshTokens(db)

	for attempt := 0; attempt < 2; attempt++ {
		bundle, refreshToken, err := s.issuer.MintAuthBundle(user, clientIP, nil)
		if err != nil {
			return nil, err
		}
		err = repo.Create(ctx, refreshToken)
		if err == nil {
			return bundle, nil
		}
		if !errors.Is(err, common.ErrorConflict) {
			return nil, err
		}
	}
	return nil, common.ErrorConflict
}
