package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/mailreminder/internal/dbx"
	"github.com/dmitrijs2005/mailreminder/internal/server/repositories/reminders"
	"github.com/dmitrijs2005/mailreminder/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so the same
// constructors serve plain connections and transactions.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Reminders(db dbx.DBTX) reminders.Repository
}
