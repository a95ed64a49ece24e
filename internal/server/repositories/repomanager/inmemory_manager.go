package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/mailauth/internal/dbx"
	"github.com/dmitrijs2005/mailauth/internal/server/repositories/users"
)

// InMemoryRepositoryManager serves one process-local user store regardless
// of the handle passed in. Used when no database DSN is configured.
type InMemoryRepositoryManager struct {
	users *users.InMemoryRepository
}

func NewInMemoryRepositoryManager() RepositoryManager {
	return &InMemoryRepositoryManager{users: users.NewInMemoryRepository()}
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

func (m *InMemoryRepositoryManager) Users(dbx.DBTX) users.Repository {
	return m.users
}
