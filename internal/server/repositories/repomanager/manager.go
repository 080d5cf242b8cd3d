// Package repomanager wires the concrete repositories behind one handle.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/filesafe/internal/server/repositories/grants"
	"github.com/dmitrijs2005/filesafe/internal/server/repositories/objects"
	"github.com/dmitrijs2005/filesafe/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/filesafe/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context) error
	Conn() *sql.DB
	Users() users.Repository
	Objects() objects.Repository
	Grants() grants.Repository
	RefreshTokens() refreshtokens.Repository
}
