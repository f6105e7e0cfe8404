// Package dbx holds the small database plumbing shared by the repository
// layer: a handle interface satisfied by both pools and transactions, and a
// wrapper that turns a function into an atomic unit of work.
package dbx

import (
	"context"
	"database/sql"
	"fmt"
)

// DBTX is the query surface repositories are written against. *sql.DB and
// *sql.Tx both satisfy it, so the same repository code runs in auto-commit
// mode or inside a transaction depending on what the caller passes in.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back when it returns an error or panics; panics are
// rethrown after the rollback.
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    // several repository calls against tx commit or fail together
//	    return nil
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	done := false
	defer func() {
		if !done {
			// fn panicked; roll back and let the panic continue
			_ = tx.Rollback()
		}
	}()

	if err := fn(ctx, tx); err != nil {
		done = true
		_ = tx.Rollback()
		return err
	}

	done = true
	return tx.Commit()
}
