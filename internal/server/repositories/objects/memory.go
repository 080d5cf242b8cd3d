package objects

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/filesafe/internal/common"
	"github.com/dmitrijs2005/filesafe/internal/server/models"
)

// MemoryRepository is an in-process Repository for tests and dev mode.
type MemoryRepository struct {
	mu      sync.RWMutex
	objects map[string]*models.EncryptedObject
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{objects: make(map[string]*models.EncryptedObject)}
}

func (r *MemoryRepository) Create(_ context.Context, object *models.EncryptedObject) (*models.EncryptedObject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *object
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	r.objects[cp.ID] = &cp

	out := cp
	return &out, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.EncryptedObject, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.objects[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *MemoryRepository) ListByOwner(_ context.Context, ownerID string) ([]*models.EncryptedObject, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.EncryptedObject
	for _, o := range r.objects {
		if o.OwnerID == ownerID {
			cp := *o
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}
