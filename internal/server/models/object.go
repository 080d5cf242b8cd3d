// Package models defines server-side data models persisted in the database.
package models

import "time"

// EncryptedObject is the metadata row for one uploaded file. The ciphertext
// itself lives in the blob store under StorageKey. Key and IV are the exact
// pair used to produce the stored ciphertext; they are generated once per
// object and never regenerated, since a new pair without re-encryption
// would silently make the ciphertext unreadable. Ciphertext, Key and IV are
// therefore immutable as a unit; re-uploading creates a new object id.
type EncryptedObject struct {
	ID         string
	OwnerID    string
	Name       string
	StorageKey string
	Key        []byte
	IV         []byte
	CreatedAt  time.Time
}
