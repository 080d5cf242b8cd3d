// Package sharelink issues opaque references to objects. A reference is the
// object id sealed under a server secret, so clients can pass it around
// without learning or forging ids. A reference carries no authority of its
// own: every resolution still goes through the access check, and revocation
// happens in the grant ledger, never on the reference.
package sharelink

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/dmitrijs2005/filesafe/internal/common"
	"github.com/dmitrijs2005/filesafe/internal/cryptox"
)

type Issuer struct {
	key []byte
}

// NewIssuer derives the sealing key from the configured secret. The same
// secret always yields the same key, so references stay resolvable across
// restarts.
func NewIssuer(secret string) *Issuer {
	h := sha256.Sum256([]byte("filesafe/sharelink:" + secret))
	return &Issuer{key: h[:]}
}

// Issue seals objectID into a URL-safe reference. Existence of the object
// is the caller's concern; the issuer only encodes.
func (i *Issuer) Issue(objectID string) (string, error) {
	sealed, err := cryptox.Seal([]byte(objectID), i.key)
	if err != nil {
		return "", fmt.Errorf("sealing reference: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Resolve unseals a reference back into an object id. Malformed, tampered,
// or foreign references all resolve to ErrorNotFound, so callers cannot
// distinguish a bad reference from a missing object.
func (i *Issuer) Resolve(ref string) (string, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(ref)
	if err != nil {
		return "", common.ErrorNotFound
	}
	id, err := cryptox.OpenSealed(sealed, i.key)
	if err != nil {
		return "", common.ErrorNotFound
	}
	return string(id), nil
}
