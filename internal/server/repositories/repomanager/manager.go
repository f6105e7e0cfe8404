package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/seabattle/internal/dbx"
	"github.com/dmitrijs2005/seabattle/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/seabattle/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX. Passing the plain
// *sql.DB gives auto-commit behavior; passing a transaction groups several
// repository calls into one atomic unit.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
