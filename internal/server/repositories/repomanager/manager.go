package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/memorialboard/internal/dbx"
	"github.com/dmitrijs2005/memorialboard/internal/server/repositories/approvers"
	"github.com/dmitrijs2005/memorialboard/internal/server/repositories/messages"
)

// RepositoryManager vends repositories bound to either the pool or a
// transaction, so services can move a group of calls into dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Messages(db dbx.DBTX) messages.Repository
	Approvers(db dbx.DBTX) approvers.Repository
}
