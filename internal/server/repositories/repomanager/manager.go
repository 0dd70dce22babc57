package repomanager

import (
	"context"
	"database/sql"

	"github.com/dkurguzov/betkeeper/internal/dbx"
	"github.com/dkurguzov/betkeeper/internal/server/repositories/bets"
	"github.com/dkurguzov/betkeeper/internal/server/repositories/contracts"
	"github.com/dkurguzov/betkeeper/internal/server/repositories/refreshtokens"
	"github.com/dkurguzov/betkeeper/internal/server/repositories/transactions"
	"github.com/dkurguzov/betkeeper/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Contracts(db dbx.DBTX) contracts.Repository
	Transactions(db dbx.DBTX) transactions.Repository
	Bets(db dbx.DBTX) bets.Repository
}
