// Package common defines shared sentinel errors and small random helpers
// used across the filesafe server. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Sharing validation errors.
	ErrNotOwner          = errors.New("not the object owner")
	ErrGrantNotFound     = errors.New("grant not found")
	ErrInvalidDuration   = errors.New("grant duration must be positive")
	ErrUnknownPermission = errors.New("unknown permission")

	// Crypto and storage errors. ErrDecryptionFailure indicates a
	// ciphertext/key/iv mismatch or corrupted bytes and must never be
	// reported as an authorization problem.
	ErrDecryptionFailure  = errors.New("decryption failure")
	ErrStorageUnavailable = errors.New("storage unavailable")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// User account errors.
	ErrLoginAlreadyExists   = errors.New("login already exists")
	ErrInvalidLoginPassword = errors.New("invalid login/password")
)
