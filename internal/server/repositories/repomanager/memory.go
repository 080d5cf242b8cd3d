package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/filesafe/internal/server/repositories/grants"
	"github.com/dmitrijs2005/filesafe/internal/server/repositories/objects"
	"github.com/dmitrijs2005/filesafe/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/filesafe/internal/server/repositories/users"
)

// MemoryRepositoryManager backs every repository with in-process maps.
// Used by tests and by the dev mode that runs without Postgres.
type MemoryRepositoryManager struct {
	users         users.Repository
	objects       objects.Repository
	grants        grants.Repository
	refreshTokens refreshtokens.Repository
}

func NewMemoryRepositoryManager() RepositoryManager {
	return &MemoryRepositoryManager{
		users:         users.NewMemoryRepository(),
		objects:       objects.NewMemoryRepository(),
		grants:        grants.NewMemoryRepository(),
		refreshTokens: refreshtokens.NewMemoryRepository(),
	}
}

func (m *MemoryRepositoryManager) Conn() *sql.DB {
	return nil
}

func (m *MemoryRepositoryManager) RunMigrations(ctx context.Context) error {
	return nil
}

func (m *MemoryRepositoryManager) Users() users.Repository {
	return m.users
}

func (m *MemoryRepositoryManager) Objects() objects.Repository {
	return m.objects
}

func (m *MemoryRepositoryManager) Grants() grants.Repository {
	return m.grants
}

func (m *MemoryRepositoryManager) RefreshTokens() refreshtokens.Repository {
	return m.refreshTokens
}
