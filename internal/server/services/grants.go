package services

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/filesafe/internal/common"
	"github.com/dmitrijs2005/filesafe/internal/logging"
	"github.com/dmitrijs2005/filesafe/internal/server/models"
	"github.com/dmitrijs2005/filesafe/internal/server/repositories/grants"
	"github.com/dmitrijs2005/filesafe/internal/server/repositories/objects"
	"github.com/dmitrijs2005/filesafe/internal/server/repositories/users"
)

// Permission names accepted by UpdatePermission. A closed set: adding a
// capability means touching this switch, the model, and the schema.
const (
	PermissionView     = "view"
	PermissionDownload = "download"
)

// GrantSummary is the owner-facing description of one grant, annotated
// with the effective status computed at call time.
type GrantSummary struct {
	ObjectID   string
	GranteeID  string
	Grantee    string
	View       bool
	Download   bool
	Expiration time.Time
	Status     models.GrantStatus
}

// AccessibleObject describes one object a principal can reach, either as
// owner or through an effectively-active grant. Key material never appears
// in listings.
type AccessibleObject struct {
	ObjectID   string
	Name       string
	OwnerID    string
	Owned      bool
	View       bool
	Download   bool
	Expiration time.Time // zero for owned objects
	CreatedAt  time.Time
}

// GrantService owns the sharing ledger. Every mutating operation checks
// ownership against the object row first; grantees can never modify their
// own grants.
type GrantService struct {
	objects objects.Repository
	grants  grants.Repository
	users   users.Repository
	logger  logging.Logger
	now     func() time.Time
}

func NewGrantService(objectRepo objects.Repository, grantRepo grants.Repository,
	userRepo users.Repository, logger logging.Logger) *GrantService {
	return &GrantService{
		objects: objectRepo,
		grants:  grantRepo,
		users:   userRepo,
		logger:  logger.With("component", "grants"),
		now:     time.Now,
	}
}

// WithClock overrides the wall clock. Tests use it to exercise expiration.
func (s *GrantService) WithClock(now func() time.Time) *GrantService {
	s.now = now
	return s
}

// requireOwner loads the object and verifies the caller owns it.
func (s *GrantService) requireOwner(ctx context.Context, objectID, callerID string) (*models.EncryptedObject, error) {
	object, err := s.objects.GetByID(ctx, objectID)
	if err != nil {
		return nil, err
	}
	if object.OwnerID != callerID {
		return nil, common.ErrNotOwner
	}
	return object, nil
}

func (s *GrantService) granteeByName(ctx context.Context, userName string) (*models.User, error) {
	grantee, err := s.users.GetByLogin(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrGrantNotFound
		}
		return nil, err
	}
	return grantee, nil
}

// Share creates or replaces the grant for (objectID, grantee). Replacing
// resets permissions, expiration and the revoked flag; re-sharing is the
// only way back to active for a pair that expired or was revoked.
// durationHours must be positive; the transport layer applies the default
// before calling.
func (s *GrantService) Share(ctx context.Context, callerID, objectID, granteeName string,
	view, download bool, durationHours int) (*GrantSummary, error) {
	if durationHours <= 0 {
		return nil, common.ErrInvalidDuration
	}

	if _, err := s.requireOwner(ctx, objectID, callerID); err != nil {
		return nil, err
	}

	grantee, err := s.users.GetByLogin(ctx, granteeName)
	if err != nil {
		return nil, err
	}

	now := s.now()
	grant := &models.Grant{
		ObjectID:   objectID,
		GranteeID:  grantee.ID,
		View:       view,
		Download:   download,
		Expiration: now.Add(time.Duration(durationHours) * time.Hour),
	}
	grant, err = s.grants.Upsert(ctx, grant)
	if err != nil {
		s.logger.Error(ctx, "grant upsert failed", "error", err)
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "object shared", "object_id", objectID, "grantee", grantee.ID,
		"view", view, "download", download, "expiration", grant.Expiration)

	return s.summarize(grant, grantee.UserName, now), nil
}

// UpdatePermission flips one permission bit on an effectively-active
// grant. Expired and revoked grants are not editable and report
// ErrGrantNotFound; the owner re-shares instead.
func (s *GrantService) UpdatePermission(ctx context.Context, callerID, objectID, granteeName,
	permission string, value bool) error {
	if _, err := s.requireOwner(ctx, objectID, callerID); err != nil {
		return err
	}

	grantee, err := s.granteeByName(ctx, granteeName)
	if err != nil {
		return err
	}

	grant, err := s.grants.Get(ctx, objectID, grantee.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrGrantNotFound
		}
		return err
	}

	view, download := grant.View, grant.Download
	switch permission {
	case PermissionView:
		view = value
	case PermissionDownload:
		download = value
	default:
		return common.ErrUnknownPermission
	}

	// The repository re-checks liveness in the same statement, so a revoke
	// landing between the read above and this write still wins.
	return s.grants.UpdatePermissions(ctx, objectID, grantee.ID, view, download, s.now())
}

// Revoke marks the pair's grant revoked. Terminal and immediate: the next
// authorization check sees it. Idempotent for grants that are already
// revoked or expired.
func (s *GrantService) Revoke(ctx context.Context, callerID, objectID, granteeName string) error {
	if _, err := s.requireOwner(ctx, objectID, callerID); err != nil {
		return err
	}

	grantee, err := s.granteeByName(ctx, granteeName)
	if err != nil {
		return err
	}

	if err := s.grants.Revoke(ctx, objectID, grantee.ID); err != nil {
		return err
	}

	s.logger.Info(ctx, "grant revoked", "object_id", objectID, "grantee", grantee.ID)
	return nil
}

// ListSharedWith returns every grant on the object, including expired and
// revoked ones, annotated with the status at call time. Owner only.
func (s *GrantService) ListSharedWith(ctx context.Context, callerID, objectID string) ([]*GrantSummary, error) {
	if _, err := s.requireOwner(ctx, objectID, callerID); err != nil {
		return nil, err
	}

	all, err := s.grants.ListByObject(ctx, objectID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	result := make([]*GrantSummary, 0, len(all))
	for _, g := range all {
		userName := g.GranteeID
		if u, err := s.users.GetByID(ctx, g.GranteeID); err == nil {
			userName = u.UserName
		}
		result = append(result, s.summarize(g, userName, now))
	}
	return result, nil
}

// ListAccessibleTo returns the objects the principal owns plus those
// reachable through an effectively-active grant.
func (s *GrantService) ListAccessibleTo(ctx context.Context, principalID string) ([]*AccessibleObject, error) {
	now := s.now()

	owned, err := s.objects.ListByOwner(ctx, principalID)
	if err != nil {
		return nil, err
	}

	result := make([]*AccessibleObject, 0, len(owned))
	for _, o := range owned {
		result = append(result, &AccessibleObject{
			ObjectID:  o.ID,
			Name:      o.Name,
			OwnerID:   o.OwnerID,
			Owned:     true,
			View:      true,
			Download:  true,
			CreatedAt: o.CreatedAt,
		})
	}

	active, err := s.grants.ListActiveByGrantee(ctx, principalID, now)
	if err != nil {
		return nil, err
	}
	for _, g := range active {
		object, err := s.objects.GetByID(ctx, g.ObjectID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				// Grants reference objects weakly; a deleted object just
				// drops out of the listing.
				continue
			}
			return nil, err
		}
		result = append(result, &AccessibleObject{
			ObjectID:   object.ID,
			Name:       object.Name,
			OwnerID:    object.OwnerID,
			View:       g.View,
			Download:   g.Download,
			Expiration: g.Expiration,
			CreatedAt:  object.CreatedAt,
		})
	}

	return result, nil
}

func (s *GrantService) summarize(g *models.Grant, granteeName string, now time.Time) *GrantSummary {
	return &GrantSummary{
		ObjectID:   g.ObjectID,
		GranteeID:  g.GranteeID,
		Grantee:    granteeName,
		View:       g.View,
		Download:   g.Download,
		Expiration: g.Expiration,
		Status:     g.StatusAt(now),
	}
}
