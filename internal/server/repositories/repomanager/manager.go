package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/contacts/internal/dbx"
	"github.com/dmitrijs2005/contacts/internal/server/repositories/contacts"
	"github.com/dmitrijs2005/contacts/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so the same code
// runs on the pool or inside a dbx.WithTx transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Contacts(db dbx.DBTX) contacts.Repository
}
