// Package access implements the authorization decision for object
// retrieval. The decision is a plain value, not an error: expired grants
// and missing permission bits are expected outcomes, not faults.
package access

import (
	"time"

	"github.com/dmitrijs2005/filesafe/internal/server/models"
)

// Operation is a retrieval mode a principal can request.
type Operation string

const (
	// OpView returns decrypted bytes for in-browser rendering.
	OpView Operation = "view"
	// OpDownload returns decrypted bytes for local persistence.
	OpDownload Operation = "download"
)

// Valid reports whether op names a known operation.
func (op Operation) Valid() bool {
	return op == OpView || op == OpDownload
}

// DenyReason distinguishes denial outcomes for user messaging.
type DenyReason string

const (
	DenyNoGrant              DenyReason = "no_grant"
	DenyExpired              DenyReason = "expired"
	DenyRevoked              DenyReason = "revoked"
	DenyPermissionNotGranted DenyReason = "permission_not_granted"
)

// Decision is the outcome of one authorization check. Reason is set only
// when Allowed is false.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason DenyReason) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Authorize decides whether principal may perform op on object. grant is
// the row for (object, principal), or nil when none exists; it is ignored
// for the owner. The decision depends on the supplied now, so it must be
// recomputed on every request: revocation and expiration take effect on
// the next check, and a cached decision would miss both.
func Authorize(object *models.EncryptedObject, grant *models.Grant, principalID string, op Operation, now time.Time) Decision {
	if object.OwnerID == principalID {
		return allow()
	}

	if grant == nil {
		return deny(DenyNoGrant)
	}
	if grant.Revoked {
		return deny(DenyRevoked)
	}
	if !now.Before(grant.Expiration) {
		return deny(DenyExpired)
	}

	switch op {
	case OpView:
		if !grant.View {
			return deny(DenyPermissionNotGranted)
		}
	case OpDownload:
		if !grant.Download {
			return deny(DenyPermissionNotGranted)
		}
	default:
		return deny(DenyPermissionNotGranted)
	}

	return allow()
}
