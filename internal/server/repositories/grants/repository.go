// Package grants persists the sharing ledger: one row per (object, grantee)
// pair. A grant moves Active -> Expired by the clock alone (expiration is
// stored, the expired state is computed) and Active -> Revoked by explicit
// owner action. Neither path returns to Active on the same row; Upsert
// replaces the row, which is the only way to re-activate a pair.
package grants

import (
	"context"
	"time"

	"github.com/dmitrijs2005/filesafe/internal/server/models"
)

type Repository interface {
	// Upsert creates the grant for (ObjectID, GranteeID) or replaces an
	// existing one, resetting permissions, expiration and the revoked flag.
	Upsert(ctx context.Context, grant *models.Grant) (*models.Grant, error)

	// Get returns the grant for the pair, or common.ErrorNotFound.
	Get(ctx context.Context, objectID, granteeID string) (*models.Grant, error)

	// UpdatePermissions sets the permission bits on an effectively-active
	// grant. Missing, revoked, or expired rows all fail with
	// common.ErrGrantNotFound: a dead grant is not editable, only
	// replaceable. The check and the write are a single statement, so a
	// racing Revoke can never be overwritten.
	UpdatePermissions(ctx context.Context, objectID, granteeID string, view, download bool, now time.Time) error

	// Revoke marks the pair's grant revoked. Idempotent: revoking an
	// already-revoked or expired grant succeeds as a no-op. An unknown pair
	// fails with common.ErrGrantNotFound.
	Revoke(ctx context.Context, objectID, granteeID string) error

	// ListByObject returns every grant for the object, regardless of state.
	ListByObject(ctx context.Context, objectID string) ([]*models.Grant, error)

	// ListActiveByGrantee returns only the grants that are effectively
	// active at now for the given grantee.
	ListActiveByGrantee(ctx context.Context, granteeID string, now time.Time) ([]*models.Grant, error)
}
