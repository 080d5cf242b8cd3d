package objects

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/filesafe/internal/common"
	"github.com/dmitrijs2005/filesafe/internal/dbx"
	"github.com/dmitrijs2005/filesafe/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, object *models.EncryptedObject) (*models.EncryptedObject, error) {
	if object.ID == "" {
		object.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO objects (id, owner_id, name, storage_key, enc_key, iv)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		object.ID, object.OwnerID, object.Name, object.StorageKey, object.Key, object.IV).
		Scan(&object.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return object, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.EncryptedObject, error) {
	query :=
		`SELECT id, owner_id, name, storage_key, enc_key, iv, created_at FROM objects
		 WHERE id = $1
		 `

	object := &models.EncryptedObject{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&object.ID, &object.OwnerID, &object.Name, &object.StorageKey,
			&object.Key, &object.IV, &object.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return object, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.EncryptedObject, error) {
	query :=
		`SELECT id, owner_id, name, storage_key, enc_key, iv, created_at FROM objects
		 WHERE owner_id = $1
		 ORDER BY created_at
		 `

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.EncryptedObject
	for rows.Next() {
		object := &models.EncryptedObject{}
		err := rows.Scan(&object.ID, &object.OwnerID, &object.Name, &object.StorageKey,
			&object.Key, &object.IV, &object.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, object)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
