package grants

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/filesafe/internal/common"
	"github.com/dmitrijs2005/filesafe/internal/server/models"
)

// MemoryRepository is an in-process Repository for tests and dev mode. A
// single mutex serializes all writes, which gives the same per-pair
// guarantees the Postgres implementation gets from single-statement writes.
type MemoryRepository struct {
	mu     sync.RWMutex
	grants map[pairKey]*models.Grant
}

type pairKey struct {
	objectID  string
	granteeID string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{grants: make(map[pairKey]*models.Grant)}
}

func (r *MemoryRepository) Upsert(_ context.Context, grant *models.Grant) (*models.Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey{grant.ObjectID, grant.GranteeID}
	now := time.Now()

	cp := *grant
	cp.Revoked = false
	if prev, ok := r.grants[key]; ok {
		cp.ID = prev.ID
		cp.CreatedAt = prev.CreatedAt
	} else {
		if cp.ID == "" {
			cp.ID = uuid.NewString()
		}
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	r.grants[key] = &cp

	out := cp
	return &out, nil
}

func (r *MemoryRepository) Get(_ context.Context, objectID, granteeID string) (*models.Grant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.grants[pairKey{objectID, granteeID}]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *g
	return &cp, nil
}

func (r *MemoryRepository) UpdatePermissions(_ context.Context, objectID, granteeID string, view, download bool, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.grants[pairKey{objectID, granteeID}]
	if !ok || !g.EffectivelyActive(now) {
		return common.ErrGrantNotFound
	}

	g.View = view
	g.Download = download
	g.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryRepository) Revoke(_ context.Context, objectID, granteeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.grants[pairKey{objectID, granteeID}]
	if !ok {
		return common.ErrGrantNotFound
	}

	g.Revoked = true
	g.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryRepository) ListByObject(_ context.Context, objectID string) ([]*models.Grant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.Grant
	for key, g := range r.grants {
		if key.objectID == objectID {
			cp := *g
			result = append(result, &cp)
		}
	}
	sortByCreation(result)
	return result, nil
}

func (r *MemoryRepository) ListActiveByGrantee(_ context.Context, granteeID string, now time.Time) ([]*models.Grant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.Grant
	for key, g := range r.grants {
		if key.granteeID == granteeID && g.EffectivelyActive(now) {
			cp := *g
			result = append(result, &cp)
		}
	}
	sortByCreation(result)
	return result, nil
}

func sortByCreation(grants []*models.Grant) {
	sort.Slice(grants, func(i, j int) bool {
		return grants[i].CreatedAt.Before(grants[j].CreatedAt)
	})
}
