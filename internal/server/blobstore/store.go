// Package blobstore is the adapter over ciphertext blob storage. The core
// treats it as a get/put map keyed by storage key; only ciphertext ever
// passes through it. No retry logic lives here; transient failures
// surface as ErrStorageUnavailable for the caller to decide on.
package blobstore

import "context"

type Store interface {
	// Put persists a ciphertext blob under key.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the blob stored under key, common.ErrorNotFound if the
	// key is unknown, or common.ErrStorageUnavailable on transient failure.
	Get(ctx context.Context, key string) ([]byte, error)
}
