package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/filesafe/internal/common"
	"github.com/dmitrijs2005/filesafe/internal/cryptox"
	"github.com/dmitrijs2005/filesafe/internal/logging"
	"github.com/dmitrijs2005/filesafe/internal/server/access"
	"github.com/dmitrijs2005/filesafe/internal/server/blobstore"
	"github.com/dmitrijs2005/filesafe/internal/server/models"
	"github.com/dmitrijs2005/filesafe/internal/server/repositories/grants"
	"github.com/dmitrijs2005/filesafe/internal/server/repositories/objects"
)

// RetrievedObject is what an authorized caller gets back: the stored
// ciphertext with the exact key/IV pair that produced it. Decryption
// happens at the client; plaintext is never materialized server-side on
// the retrieval path.
type RetrievedObject struct {
	Name       string
	Ciphertext []byte
	Key        []byte
	IV         []byte
}

// ObjectService owns the encrypted-object lifecycle: upload (encrypt and
// store) and authorization-gated retrieval.
type ObjectService struct {
	objects objects.Repository
	grants  grants.Repository
	blobs   blobstore.Store
	logger  logging.Logger
	now     func() time.Time
}

func NewObjectService(objectRepo objects.Repository, grantRepo grants.Repository,
	blobs blobstore.Store, logger logging.Logger) *ObjectService {
	return &ObjectService{
		objects: objectRepo,
		grants:  grantRepo,
		blobs:   blobs,
		logger:  logger.With("component", "objects"),
		now:     time.Now,
	}
}

// WithClock overrides the wall clock. Tests use it to exercise expiration.
func (s *ObjectService) WithClock(now func() time.Time) *ObjectService {
	s.now = now
	return s
}

func randomStorageKey(now time.Time) string {
	return fmt.Sprintf("objects/%d/%d/%d/%v", now.Year(), now.Month(), now.Day(), uuid.New())
}

// Upload encrypts plaintext under a fresh key/IV pair and persists the
// ciphertext blob plus the metadata row. The pair is generated exactly once
// for this object; nothing ever rewrites the stored ciphertext or its key
// material under the same id.
func (s *ObjectService) Upload(ctx context.Context, ownerID, name string, plaintext []byte) (*models.EncryptedObject, error) {
	key, iv, err := cryptox.GenerateKeyMaterial()
	if err != nil {
		s.logger.Error(ctx, "key material generation failed", "error", err)
		return nil, common.ErrorInternal
	}

	ciphertext, err := cryptox.Encrypt(plaintext, key, iv)
	if err != nil {
		s.logger.Error(ctx, "encryption failed", "error", err)
		return nil, common.ErrorInternal
	}

	storageKey := randomStorageKey(s.now())
	if err := s.blobs.Put(ctx, storageKey, ciphertext); err != nil {
		return nil, err
	}

	object := &models.EncryptedObject{
		OwnerID:    ownerID,
		Name:       name,
		StorageKey: storageKey,
		Key:        key,
		IV:         iv,
	}
	object, err = s.objects.Create(ctx, object)
	if err != nil {
		s.logger.Error(ctx, "object metadata insert failed", "error", err)
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "object stored", "object_id", object.ID, "owner", ownerID, "size", len(ciphertext))
	return object, nil
}

// Authorize re-evaluates the access decision for one request. It is never
// cached: expiration and revocation must bite on the very next call.
func (s *ObjectService) Authorize(ctx context.Context, principalID, objectID string, op access.Operation) (access.Decision, error) {
	object, err := s.objects.GetByID(ctx, objectID)
	if err != nil {
		return access.Decision{}, err
	}
	return s.authorizeObject(ctx, principalID, object, op)
}

func (s *ObjectService) authorizeObject(ctx context.Context, principalID string, object *models.EncryptedObject, op access.Operation) (access.Decision, error) {
	var grant *models.Grant
	if object.OwnerID != principalID {
		g, err := s.grants.Get(ctx, object.ID, principalID)
		switch {
		case err == nil:
			grant = g
		case errors.Is(err, common.ErrorNotFound):
			// No grant row; access.Authorize turns this into DenyNoGrant.
		default:
			return access.Decision{}, err
		}
	}

	return access.Authorize(object, grant, principalID, op, s.now()), nil
}

// Retrieve performs an authorization-gated read. When the decision is a
// denial, the decision is returned with a nil object and a nil error: a
// denied request is an expected outcome, not a fault. Key material is only
// ever present in the result the caller receives after an Allow.
func (s *ObjectService) Retrieve(ctx context.Context, principalID, objectID string, op access.Operation) (*RetrievedObject, access.Decision, error) {
	object, err := s.objects.GetByID(ctx, objectID)
	if err != nil {
		return nil, access.Decision{}, err
	}

	decision, err := s.authorizeObject(ctx, principalID, object, op)
	if err != nil {
		return nil, access.Decision{}, err
	}
	if !decision.Allowed {
		s.logger.Info(ctx, "retrieval denied", "object_id", objectID, "principal", principalID, "reason", decision.Reason)
		return nil, decision, nil
	}

	ciphertext, err := s.blobs.Get(ctx, object.StorageKey)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// Metadata row without a blob: corrupted storage, not a
			// permissions problem.
			s.logger.Error(ctx, "ciphertext blob missing", "object_id", objectID, "storage_key", object.StorageKey)
			return nil, decision, fmt.Errorf("%w: ciphertext blob missing", common.ErrorInternal)
		}
		return nil, decision, err
	}

	return &RetrievedObject{
		Name:       object.Name,
		Ciphertext: ciphertext,
		Key:        object.Key,
		IV:         object.IV,
	}, decision, nil
}

// ListOwned returns the metadata rows of objects owned by the principal.
func (s *ObjectService) ListOwned(ctx context.Context, ownerID string) ([]*models.EncryptedObject, error) {
	return s.objects.ListByOwner(ctx, ownerID)
}

// Exists reports whether an object id is known. Share-link resolution uses
// it so a stale reference to a deleted object reads as not found.
func (s *ObjectService) Exists(ctx context.Context, objectID string) error {
	_, err := s.objects.GetByID(ctx, objectID)
	return err
}
