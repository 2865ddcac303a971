// Package membership is the single source of truth for who can act on
// a community. Every role-gated request resolves through Lookup or
// EnsureMember; a pending, suspended, or banned row never grants
// access.
package membership

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/mistreatedbee/Communityhub-server/internal/apperrors"
	"github.com/mistreatedbee/Communityhub-server/internal/audit"
	"github.com/mistreatedbee/Communityhub-server/internal/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db    *gorm.DB
	audit *audit.Recorder
}

func NewService(db *gorm.DB, recorder *audit.Recorder) *Service {
	return &Service{db: db, audit: recorder}
}

// Lookup returns the user's active membership in the community, or nil
// when none exists. Rows in any other status are treated as absent.
func (s *Service) Lookup(ctx context.Context, communityID, userID uuid.UUID) (*models.Membership, error) {
	var m models.Membership
	err := s.db.WithContext(ctx).
		Where("community_id = ? AND user_id = ? AND status = ?", communityID, userID, models.MembershipStatusActive).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// EnsureMember is the assertion form of Lookup: it fails with
// Forbidden when the user holds no active membership.
func (s *Service) EnsureMember(ctx context.Context, communityID, userID uuid.UUID) (*models.Membership, error) {
	m, err := s.Lookup(ctx, communityID, userID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, apperrors.Forbidden("not a member of this community")
	}
	return m, nil
}

// Join handles a direct (non-invited) join. The community's approval
// policy decides the initial status. A pre-existing membership is
// returned as-is, whatever its state; concurrent duplicate joins
// converge on the (community, user) unique index.
func (s *Service) Join(ctx context.Context, communityID, userID uuid.UUID) (*models.Membership, error) {
	var community models.Community
	if err := s.db.WithContext(ctx).First(&community, communityID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("community")
		}
		return nil, err
	}
	if community.Status != models.CommunityStatusActive {
		return nil, apperrors.Forbidden("community is not accepting members")
	}

	status := models.MembershipStatusActive
	if community.RequireApproval {
		status = models.MembershipStatusPending
	}

	m := models.Membership{
		CommunityID: communityID,
		UserID:      userID,
		Role:        models.MembershipRoleMember,
		Status:      status,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "community_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&m).Error
	if err != nil {
		return nil, err
	}

	// Re-read: on conflict the insert was a no-op and the existing row
	// is authoritative.
	var current models.Membership
	if err := s.db.WithContext(ctx).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		First(&current).Error; err != nil {
		return nil, err
	}

	s.audit.Record(ctx, userID, &communityID, "membership.join", map[string]string{
		"status": string(current.Status),
	})
	return &current, nil
}

// Promote creates or upgrades a membership to the given role with
// active status. An existing higher role is kept; status always ends
// active. db may be a transaction handle.
func Promote(db *gorm.DB, communityID, userID uuid.UUID, role models.MembershipRole) (*models.Membership, error) {
	m := models.Membership{
		CommunityID: communityID,
		UserID:      userID,
		Role:        role,
		Status:      models.MembershipStatusActive,
	}
	err := db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "community_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&m).Error
	if err != nil {
		return nil, err
	}

	var current models.Membership
	if err := db.
		Where("community_id = ? AND user_id = ?", communityID, userID).
		First(&current).Error; err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if current.Status != models.MembershipStatusActive {
		updates["status"] = models.MembershipStatusActive
	}
	if models.RoleRank(role) > models.RoleRank(current.Role) {
		updates["role"] = role
	}
	if len(updates) > 0 {
		if err := db.Model(&current).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return &current, nil
}

func (s *Service) List(ctx context.Context, communityID uuid.UUID, offset, limit int) ([]models.Membership, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Membership{}).Where("community_id = ?", communityID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var members []models.Membership
	if err := query.
		Preload("User").
		Order("created_at ASC").
		Offset(offset).
		Limit(limit).
		Find(&members).Error; err != nil {
		return nil, 0, err
	}
	return members, total, nil
}

func (s *Service) get(ctx context.Context, communityID, userID uuid.UUID) (*models.Membership, error) {
	var m models.Membership
	err := s.db.WithContext(ctx).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("membership")
		}
		return nil, err
	}
	return &m, nil
}

// UpdateRole changes a member's community role. The owner row is
// immutable here and the owner role is never assigned this way;
// ownership transfer is a separate concern.
func (s *Service) UpdateRole(ctx context.Context, actorID, communityID, userID uuid.UUID, role models.MembershipRole) (*models.Membership, error) {
	if role == models.MembershipRoleOwner {
		return nil, apperrors.Validation("cannot assign the owner role")
	}

	m, err := s.get(ctx, communityID, userID)
	if err != nil {
		return nil, err
	}
	if m.Role == models.MembershipRoleOwner {
		return nil, apperrors.Forbidden("cannot change the owner's role")
	}

	if err := s.db.WithContext(ctx).Model(m).Update("role", role).Error; err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actorID, &communityID, "membership.role_updated", map[string]string{
		"user_id": userID.String(),
		"role":    string(role),
	})
	return m, nil
}

// UpdateStatus approves, suspends, or bans a member. The owner row
// cannot be targeted.
func (s *Service) UpdateStatus(ctx context.Context, actorID, communityID, userID uuid.UUID, status models.MembershipStatus) (*models.Membership, error) {
	m, err := s.get(ctx, communityID, userID)
	if err != nil {
		return nil, err
	}
	if m.Role == models.MembershipRoleOwner {
		return nil, apperrors.Forbidden("cannot change the owner's status")
	}

	if err := s.db.WithContext(ctx).Model(m).Update("status", status).Error; err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actorID, &communityID, "membership.status_updated", map[string]string{
		"user_id": userID.String(),
		"status":  string(status),
	})
	return m, nil
}

func (s *Service) Remove(ctx context.Context, actorID, communityID, userID uuid.UUID) error {
	m, err := s.get(ctx, communityID, userID)
	if err != nil {
		return err
	}
	if m.Role == models.MembershipRoleOwner {
		return apperrors.Forbidden("cannot remove the owner")
	}

	if err := s.db.WithContext(ctx).Delete(m).Error; err != nil {
		return err
	}

	s.audit.Record(ctx, actorID, &communityID, "membership.removed", map[string]string{
		"user_id": userID.String(),
	})
	return nil
}
