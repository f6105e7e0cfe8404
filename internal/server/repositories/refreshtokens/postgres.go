package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/seabattle/internal/common"
	"github.com/dmitrijs2005/seabattle/internal/dbx"
	"github.com/dmitrijs2005/seabattle/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new refresh token row.
func (r *PostgresRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (token, user_id, created_at, created_by_ip, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		token.Token, token.UserID, token.CreatedAt, token.CreatedByIP, token.ExpiresAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return common.ErrorConflict
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// FindByToken returns the refresh token row for the given opaque value.
// If not found, it returns common.ErrorNotFound.
func (r *PostgresRepository) FindByToken(ctx context.Context, value string) (*models.RefreshToken, error) {
	query := `
		SELECT token, user_id, created_at, created_by_ip, expires_at,
		       revoked_at, revoked_by_ip, replaced_by_token, revoke_reason
		FROM refresh_tokens
		WHERE token = $1
	`

	token := &models.RefreshToken{}
	var (
		revokedAt  sql.NullTime
		revokedBy  sql.NullString
		replacedBy sql.NullString
		reason     sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&token.Token, &token.UserID, &token.CreatedAt, &token.CreatedByIP, &token.ExpiresAt,
		&revokedAt, &revokedBy, &replacedBy, &reason)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if revokedAt.Valid {
		token.RevokedAt = &revokedAt.Time
	}
	if revokedBy.Valid {
		token.RevokedByIP = &revokedBy.String
	}
	if replacedBy.Valid {
		token.ReplacedByToken = &replacedBy.String
	}
	if reason.Valid {
		parsed := models.RevokeReason(reason.String)
		token.ReasonRevoked = &parsed
	}
	return token, nil
}

// Revoke performs the conditional transition out of Active. The WHERE clause
// guards against a concurrent revocation or rotation of the same row, so at
// most one caller observes true.
func (r *PostgresRepository) Revoke(ctx context.Context, value string, at time.Time, byIP string, reason models.RevokeReason, replacedBy *string) (bool, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = $2, revoked_by_ip = $3, revoke_reason = $4, replaced_by_token = $5
		WHERE token = $1 AND revoked_at IS NULL AND replaced_by_token IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, value, at, byIP, string(reason), replacedBy)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

// RevokeAllActive revokes every active token of the user in one statement.
func (r *PostgresRepository) RevokeAllActive(ctx context.Context, userID string, at time.Time, reason models.RevokeReason) (int64, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = $2, revoke_reason = $3
		WHERE user_id = $1 AND revoked_at IS NULL AND replaced_by_token IS NULL AND expires_at > $2
	`
	res, err := r.db.ExecContext(ctx, query, userID, at, string(reason))
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
