// Package objects persists encrypted-object metadata: display name, storage
// key of the ciphertext blob, and the key/IV pair that produced it. There
// is deliberately no update operation: the (ciphertext, key, iv) triple is
// immutable once stored, and a changed file means a new object.
package objects

import (
	"context"

	"github.com/dmitrijs2005/filesafe/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, object *models.EncryptedObject) (*models.EncryptedObject, error)
	GetByID(ctx context.Context, id string) (*models.EncryptedObject, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.EncryptedObject, error)
}
