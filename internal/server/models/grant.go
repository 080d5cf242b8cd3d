package models

import "time"

// GrantStatus is the derived state of a grant at a point in time. It is
// never stored: Expiration and Revoked are, and the status is recomputed on
// every access check.
type GrantStatus string

const (
	GrantStatusActive  GrantStatus = "active"
	GrantStatusExpired GrantStatus = "expired"
	GrantStatusRevoked GrantStatus = "revoked"
)

// Grant authorizes one principal to view and/or download one object until
// expiration or revocation. Exactly one grant exists per (ObjectID,
// GranteeID) pair; re-sharing replaces it. View and Download are
// independent: neither implies the other.
type Grant struct {
	ID        string
	ObjectID  string
	GranteeID string
	View      bool
	Download  bool
	// Expiration is absolute, computed at creation as created_at plus the
	// grantor-supplied duration.
	Expiration time.Time
	// Revoked is monotonic: once set it is never unset on this row. A fresh
	// grant (CreateOrReplace) is the only way back to active.
	Revoked   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EffectivelyActive reports whether the grant authorizes anything at the
// given instant: not revoked and not past expiration.
func (g *Grant) EffectivelyActive(now time.Time) bool {
	return !g.Revoked && now.Before(g.Expiration)
}

// StatusAt computes the derived status. Revocation wins over expiration so
// an owner listing shares sees an explicitly revoked grant as revoked.
func (g *Grant) StatusAt(now time.Time) GrantStatus {
	switch {
	case g.Revoked:
		return GrantStatusRevoked
	case !now.Before(g.Expiration):
		return GrantStatusExpired
	default:
		return GrantStatusActive
	}
}
