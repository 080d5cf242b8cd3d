package grants

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/filesafe/internal/common"
	"github.com/dmitrijs2005/filesafe/internal/dbx"
	"github.com/dmitrijs2005/filesafe/internal/server/models"
)

// PostgresRepository relies on single-statement writes for pair-level
// serialization: the unique index on (object_id, grantee_id) plus
// conditional UPDATEs make racing Revoke/UpdatePermissions calls commute to
// a consistent state, with the revoked flag only ever moving one way.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, grant *models.Grant) (*models.Grant, error) {
	if grant.ID == "" {
		grant.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO grants (id, object_id, grantee_id, view_permission, download_permission, expiration, revoked)
		 VALUES ($1, $2, $3, $4, $5, $6, FALSE)
		 ON CONFLICT (object_id, grantee_id) DO UPDATE SET
		   view_permission = EXCLUDED.view_permission,
		   download_permission = EXCLUDED.download_permission,
		   expiration = EXCLUDED.expiration,
		   revoked = FALSE,
		   updated_at = now()
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		grant.ID, grant.ObjectID, grant.GranteeID, grant.View, grant.Download, grant.Expiration).
		Scan(&grant.ID, &grant.CreatedAt, &grant.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	grant.Revoked = false
	return grant, nil
}

func (r *PostgresRepository) Get(ctx context.Context, objectID, granteeID string) (*models.Grant, error) {
	query :=
		`SELECT id, object_id, grantee_id, view_permission, download_permission, expiration, revoked, created_at, updated_at
		 FROM grants
		 WHERE object_id = $1 AND grantee_id = $2
		 `

	grant := &models.Grant{}
	err := r.db.QueryRowContext(ctx, query, objectID, granteeID).
		Scan(&grant.ID, &grant.ObjectID, &grant.GranteeID, &grant.View, &grant.Download,
			&grant.Expiration, &grant.Revoked, &grant.CreatedAt, &grant.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return grant, nil
}

func (r *PostgresRepository) UpdatePermissions(ctx context.Context, objectID, granteeID string, view, download bool, now time.Time) error {
	query :=
		`UPDATE grants
		 SET view_permission = $3, download_permission = $4, updated_at = now()
		 WHERE object_id = $1 AND grantee_id = $2 AND revoked = FALSE AND expiration > $5
		 `

	res, err := r.db.ExecContext(ctx, query, objectID, granteeID, view, download, now)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrGrantNotFound
	}

	return nil
}

func (r *PostgresRepository) Revoke(ctx context.Context, objectID, granteeID string) error {
	query :=
		`UPDATE grants
		 SET revoked = TRUE, updated_at = now()
		 WHERE object_id = $1 AND grantee_id = $2
		 `

	res, err := r.db.ExecContext(ctx, query, objectID, granteeID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrGrantNotFound
	}

	return nil
}

func (r *PostgresRepository) ListByObject(ctx context.Context, objectID string) ([]*models.Grant, error) {
	query :=
		`SELECT id, object_id, grantee_id, view_permission, download_permission, expiration, revoked, created_at, updated_at
		 FROM grants
		 WHERE object_id = $1
		 ORDER BY created_at
		 `

	rows, err := r.db.QueryContext(ctx, query, objectID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	return scanGrants(rows)
}

func (r *PostgresRepository) ListActiveByGrantee(ctx context.Context, granteeID string, now time.Time) ([]*models.Grant, error) {
	query :=
		`SELECT id, object_id, grantee_id, view_permission, download_permission, expiration, revoked, created_at, updated_at
		 FROM grants
		 WHERE grantee_id = $1 AND revoked = FALSE AND expiration > $2
		 ORDER BY created_at
		 `

	rows, err := r.db.QueryContext(ctx, query, granteeID, now)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	return scanGrants(rows)
}

func scanGrants(rows *sql.Rows) ([]*models.Grant, error) {
	var result []*models.Grant
	for rows.Next() {
		grant := &models.Grant{}
		err := rows.Scan(&grant.ID, &grant.ObjectID, &grant.GranteeID, &grant.View, &grant.Download,
			&grant.Expiration, &grant.Revoked, &grant.CreatedAt, &grant.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, grant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
