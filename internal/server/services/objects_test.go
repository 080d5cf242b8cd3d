package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/filesafe/internal/common"
	"github.com/dmitrijs2005/filesafe/internal/cryptox"
	"github.com/dmitrijs2005/filesafe/internal/server/access"
	"github.com/dmitrijs2005/filesafe/internal/server/blobstore"
	"github.com/dmitrijs2005/filesafe/internal/server/models"
	"github.com/dmitrijs2005/filesafe/internal/server/repositories/grants"
	"github.com/dmitrijs2005/filesafe/internal/server/repositories/objects"
	"github.com/dmitrijs2005/filesafe/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type objectFixture struct {
	objectsSvc *ObjectService
	grantsSvc  *GrantService
	blobs      *blobstore.MemoryStore
	clock      *fakeClock
	alice      *models.User
	bob        *models.User
}

func newObjectFixture(t *testing.T) *objectFixture {
	t.Helper()
	ctx := context.Background()

	userRepo := users.NewMemoryRepository()
	objectRepo := objects.NewMemoryRepository()
	grantRepo := grants.NewMemoryRepository()
	blobs := blobstore.NewMemoryStore()

	alice, err := userRepo.Create(ctx, &models.User{UserName: "alice"})
	require.NoError(t, err)
	bob, err := userRepo.Create(ctx, &models.User{UserName: "bob"})
	require.NoError(t, err)

	clock := newFakeClock()
	logger := testLogger()

	return &objectFixture{
		objectsSvc: NewObjectService(objectRepo, grantRepo, blobs, logger).WithClock(clock.Now),
		grantsSvc:  NewGrantService(objectRepo, grantRepo, userRepo, logger).WithClock(clock.Now),
		blobs:      blobs,
		clock:      clock,
		alice:      alice,
		bob:        bob,
	}
}

func TestUpload_StoresCiphertextNotPlaintext(t *testing.T) {
	f := newObjectFixture(t)
	ctx := context.Background()
	plaintext := []byte("quarterly numbers, do not forward")

	object, err := f.objectsSvc.Upload(ctx, f.alice.ID, "q3.txt", plaintext)
	require.NoError(t, err)
	require.NotEmpty(t, object.ID)
	require.Len(t, object.Key, cryptox.KeySize)
	require.Len(t, object.IV, cryptox.IVSize)

	stored, err := f.blobs.Get(ctx, object.StorageKey)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, stored)

	decrypted, err := cryptox.Decrypt(stored, object.Key, object.IV)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestUpload_FreshKeyMaterialPerObject(t *testing.T) {
	f := newObjectFixture(t)
	ctx := context.Background()

	first, err := f.objectsSvc.Upload(ctx, f.alice.ID, "a.txt", []byte("same content"))
	require.NoError(t, err)
	second, err := f.objectsSvc.Upload(ctx, f.alice.ID, "b.txt", []byte("same content"))
	require.NoError(t, err)

	assert.NotEqual(t, first.Key, second.Key)
	assert.NotEqual(t, first.IV, second.IV)
	assert.NotEqual(t, first.StorageKey, second.StorageKey)
}

func TestRetrieve_OwnerAlwaysAllowed(t *testing.T) {
	f := newObjectFixture(t)
	ctx := context.Background()

	object, err := f.objectsSvc.Upload(ctx, f.alice.ID, "mine.txt", []byte("hello"))
	require.NoError(t, err)

	for _, op := range []access.Operation{access.OpView, access.OpDownload} {
		result, decision, err := f.objectsSvc.Retrieve(ctx, f.alice.ID, object.ID, op)
		require.NoError(t, err)
		require.True(t, decision.Allowed)
		require.NotNil(t, result)
		assert.Equal(t, "mine.txt", result.Name)
	}
}

func TestRetrieve_DenialIsResultNotError(t *testing.T) {
	f := newObjectFixture(t)
	ctx := context.Background()

	object, err := f.objectsSvc.Upload(ctx, f.alice.ID, "private.txt", []byte("hello"))
	require.NoError(t, err)

	result, decision, err := f.objectsSvc.Retrieve(ctx, f.bob.ID, object.ID, access.OpView)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.False(t, decision.Allowed)
	assert.Equal(t, access.DenyNoGrant, decision.Reason)
}

func TestRetrieve_UnknownObject(t *testing.T) {
	f := newObjectFixture(t)

	_, _, err := f.objectsSvc.Retrieve(context.Background(), f.alice.ID, "no-such-id", access.OpView)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestRetrieve_MissingBlobIsInternal(t *testing.T) {
	f := newObjectFixture(t)
	ctx := context.Background()

	object, err := f.objectsSvc.Upload(ctx, f.alice.ID, "orphan.txt", []byte("hello"))
	require.NoError(t, err)
	f.blobs.Delete(object.StorageKey)

	_, _, err = f.objectsSvc.Retrieve(ctx, f.alice.ID, object.ID, access.OpView)
	assert.ErrorIs(t, err, common.ErrorInternal)
}

// Walks an object through the full sharing lifecycle: view-only grant,
// permission check on both operations, then expiry.
func TestSharingLifecycle(t *testing.T) {
	f := newObjectFixture(t)
	ctx := context.Background()
	plaintext := []byte("hello")

	object, err := f.objectsSvc.Upload(ctx, f.alice.ID, "hello.txt", plaintext)
	require.NoError(t, err)

	// Before any grant Bob is shut out entirely.
	decision, err := f.objectsSvc.Authorize(ctx, f.bob.ID, object.ID, access.OpView)
	require.NoError(t, err)
	assert.Equal(t, access.Decision{Allowed: false, Reason: access.DenyNoGrant}, decision)

	// View-only for one hour.
	_, err = f.grantsSvc.Share(ctx, f.alice.ID, object.ID, "bob", true, false, 1)
	require.NoError(t, err)

	result, decision, err := f.objectsSvc.Retrieve(ctx, f.bob.ID, object.ID, access.OpView)
	require.NoError(t, err)
	require.True(t, decision.Allowed)
	decrypted, err := cryptox.Decrypt(result.Ciphertext, result.Key, result.IV)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)

	// Download was not granted; independent of view.
	_, decision, err = f.objectsSvc.Retrieve(ctx, f.bob.ID, object.ID, access.OpDownload)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, access.DenyPermissionNotGranted, decision.Reason)

	// One hour later the grant is dead, with no extra writes anywhere.
	f.clock.Advance(time.Hour)
	_, decision, err = f.objectsSvc.Retrieve(ctx, f.bob.ID, object.ID, access.OpView)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, access.DenyExpired, decision.Reason)
}

func TestRevocationBitesImmediately(t *testing.T) {
	f := newObjectFixture(t)
	ctx := context.Background()

	object, err := f.objectsSvc.Upload(ctx, f.alice.ID, "doc.txt", []byte("hello"))
	require.NoError(t, err)
	_, err = f.grantsSvc.Share(ctx, f.alice.ID, object.ID, "bob", true, true, 24)
	require.NoError(t, err)

	decision, err := f.objectsSvc.Authorize(ctx, f.bob.ID, object.ID, access.OpDownload)
	require.NoError(t, err)
	require.True(t, decision.Allowed)

	require.NoError(t, f.grantsSvc.Revoke(ctx, f.alice.ID, object.ID, "bob"))

	decision, err = f.objectsSvc.Authorize(ctx, f.bob.ID, object.ID, access.OpDownload)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, access.DenyRevoked, decision.Reason)

	// Revoked is terminal; only a fresh share reopens access.
	_, err = f.grantsSvc.Share(ctx, f.alice.ID, object.ID, "bob", true, true, 24)
	require.NoError(t, err)
	decision, err = f.objectsSvc.Authorize(ctx, f.bob.ID, object.ID, access.OpDownload)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestExists(t *testing.T) {
	f := newObjectFixture(t)
	ctx := context.Background()

	object, err := f.objectsSvc.Upload(ctx, f.alice.ID, "x.txt", []byte("x"))
	require.NoError(t, err)

	assert.NoError(t, f.objectsSvc.Exists(ctx, object.ID))
	assert.ErrorIs(t, f.objectsSvc.Exists(ctx, "nope"), common.ErrorNotFound)
}
