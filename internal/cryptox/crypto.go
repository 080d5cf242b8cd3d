// Package cryptox implements the symmetric cryptography used for stored
// objects: per-object key material, AES-256-CBC with PKCS#7 padding for
// file content, and AES-GCM sealing for short references.
//
// Key custody model: the per-object key and IV are persisted next to the
// object's metadata, so the storage layer is trusted with key material.
// Confidentiality against other users is enforced by the access check, not
// by key secrecy from the server.
package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"fmt"

	"github.com/dmitrijs2005/filesafe/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// IVSize is the CBC initialization vector length in bytes.
	IVSize = aes.BlockSize
)

// GenerateKeyMaterial produces a fresh random key/IV pair for one object.
// The output is never derived from user input, timestamps, or object ids.
// An error means the entropy source is unavailable and the request must
// fail; there is no fallback.
func GenerateKeyMaterial() (key, iv []byte, err error) {
	key = make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, nil, fmt.Errorf("entropy source unavailable: %w", err)
	}
	iv = make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, fmt.Errorf("entropy source unavailable: %w", err)
	}
	return key, iv, nil
}

// pkcs7Pad appends 1..BlockSize bytes so the result is a whole number of
// blocks. Always appends at least one byte.
func pkcs7Pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte) ([]byte, error) {
	if len(b) == 0 || len(b)%aes.BlockSize != 0 {
		return nil, common.ErrDecryptionFailure
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize {
		return nil, common.ErrDecryptionFailure
	}
	// Constant-time check of the padding bytes.
	var bad byte
	for _, c := range b[len(b)-n:] {
		bad |= c ^ byte(n)
	}
	if subtle.ConstantTimeByteEq(bad, 0) != 1 {
		return nil, common.ErrDecryptionFailure
	}
	return b[:len(b)-n], nil
}

// Encrypt encrypts plaintext with AES-256-CBC and PKCS#7 padding. It is
// stateless and deterministic given (plaintext, key, iv), so re-encrypting
// the same bytes with the same material reproduces the same ciphertext.
func Encrypt(plaintext, key, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("invalid key: %w", err)
	}
	if len(iv) != IVSize {
		return nil, fmt.Errorf("invalid iv length %d, want %d", len(iv), IVSize)
	}

	padded := pkcs7Pad(plaintext)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

// Decrypt reverses Encrypt. Any inconsistency in the (ciphertext, key, iv)
// triple (wrong key length, ciphertext not a whole number of blocks, or
// padding that fails validation) yields common.ErrDecryptionFailure.
// Ciphertext length is checked before any cipher work.
func Decrypt(ciphertext, key, iv []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, common.ErrDecryptionFailure
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryptionFailure, err)
	}
	if len(iv) != IVSize {
		return nil, common.ErrDecryptionFailure
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)
	return pkcs7Unpad(plaintext)
}

// Seal encrypts a short token under key with AES-GCM. A fresh random nonce
// is generated per call and prepended to the result. Used for sealed
// share-link references, not for file content.
func Seal(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("entropy source unavailable: %w", err)
	}

	return aesgcm.Seal(nonce, nonce, plaintext, nil), nil
}

// OpenSealed reverses Seal. Tampered or truncated inputs yield
// common.ErrDecryptionFailure.
func OpenSealed(sealed, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryptionFailure, err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryptionFailure, err)
	}
	if len(sealed) < aesgcm.NonceSize() {
		return nil, common.ErrDecryptionFailure
	}

	nonce, ciphertext := sealed[:aesgcm.NonceSize()], sealed[aesgcm.NonceSize():]
	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, common.ErrDecryptionFailure
	}
	return plaintext, nil
}

// HashPassword derives a 32-byte argon2id verifier from a password and salt.
// Deterministic for the same inputs; used for login verification only,
// never for object keys.
func HashPassword(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}
