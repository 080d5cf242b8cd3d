package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/filesafe/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, userID string, token string, validity time.Duration) error
	Get(ctx context.Context, token string) (*models.RefreshToken, error)
	Delete(ctx context.Context, token string) error

	// Rotate atomically consumes oldToken and stores newToken for the same
	// user. When oldToken is already gone the rotation fails with
	// ErrorNotFound and nothing is stored, so a token presented twice
	// concurrently yields exactly one new pair.
	Rotate(ctx context.Context, oldToken, userID, newToken string, validity time.Duration) error
}
