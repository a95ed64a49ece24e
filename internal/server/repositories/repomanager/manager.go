// Package repomanager vends repository implementations bound to a database
// handle and runs schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/mailauth/internal/dbx"
	"github.com/dmitrijs2005/mailauth/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
}
