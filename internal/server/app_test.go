package server

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/seabattle/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewApp_ClosesDBWhenMigrationsFail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	// no query expectations: the first migration statement fails
	mock.ExpectClose()

	orig := openDatabase
	openDatabase = func(ctx context.Context, dsn string) (*sql.DB, error) {
		return db, nil
	}
	t.Cleanup(func() { openDatabase = orig })

	cfg := &config.Config{}
	cfg.LoadDefaults()

	_, err = NewApp(context.Background(), cfg)
	require.Error(t, err)
	assert.ErrorContains(t, err, "migration error")
	assert.NoError(t, mock.ExpectationsWereMet(), "connection pool must be closed on init failure")
}

func TestNewApp_OpenError(t *testing.T) {
	orig := openDatabase
	openDatabase = func(ctx context.Context, dsn string) (*sql.DB, error) {
		return nil, context.DeadlineExceeded
	}
	t.Cleanup(func() { openDatabase = orig })

	cfg := &config.Config{}
	cfg.LoadDefaults()

	_, err := NewApp(context.Background(), cfg)
	require.Error(t, err)
	assert.ErrorContains(t, err, "db init error")
}
