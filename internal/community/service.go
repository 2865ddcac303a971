// Package community manages the tenant entities themselves: creation,
// settings, and lifecycle. Data inside a community is guarded by the
// membership package and by community-scoped queries in the handlers.
package community

import (
	"context"
	"errors"
	"regexp"

	"github.com/google/uuid"
	"github.com/mistreatedbee/Communityhub-server/internal/apperrors"
	"github.com/mistreatedbee/Communityhub-server/internal/audit"
	"github.com/mistreatedbee/Communityhub-server/internal/database/models"
	"github.com/mistreatedbee/Communityhub-server/internal/membership"
	"gorm.io/gorm"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

type Service struct {
	db    *gorm.DB
	audit *audit.Recorder
}

func NewService(db *gorm.DB, recorder *audit.Recorder) *Service {
	return &Service{db: db, audit: recorder}
}

type CreateInput struct {
	Name            string
	Slug            string
	Description     string
	RequireApproval bool
}

func validateSlug(slug string) error {
	if len(slug) < 3 || len(slug) > 50 || !slugPattern.MatchString(slug) {
		return apperrors.Validation("slug must be 3-50 lowercase letters, digits, and hyphens")
	}
	return nil
}

// Create provisions a community with ownerID as its owner. The slug is
// globally unique. A retry by the same owner resumes a partially
// applied claim, but only when the owner membership is actually
// missing; re-running a completed claim is a Conflict like any other
// duplicate slug.
func (s *Service) Create(ctx context.Context, actorID, ownerID uuid.UUID, input CreateInput) (*models.Community, error) {
	if input.Name == "" {
		return nil, apperrors.Validation("name is required")
	}
	if err := validateSlug(input.Slug); err != nil {
		return nil, err
	}

	var existing models.Community
	err := s.db.WithContext(ctx).Where("slug = ?", input.Slug).First(&existing).Error
	if err == nil {
		if existing.CreatedBy == ownerID {
			var owned int64
			err := s.db.WithContext(ctx).Model(&models.Membership{}).
				Where("community_id = ? AND user_id = ?", existing.ID, ownerID).
				Count(&owned).Error
			if err != nil {
				return nil, err
			}
			if owned == 0 {
				// Crashed claim: the community row exists but the
				// owner membership never landed. Finish the claim.
				if _, err := membership.Promote(s.db.WithContext(ctx), existing.ID, ownerID, models.MembershipRoleOwner); err != nil {
					return nil, err
				}
				return &existing, nil
			}
		}
		return nil, apperrors.Conflict("a community with this slug already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	community := models.Community{
		Name:            input.Name,
		Slug:            input.Slug,
		Description:     input.Description,
		Status:          models.CommunityStatusActive,
		RequireApproval: input.RequireApproval,
		CreatedBy:       ownerID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&community).Error; err != nil {
			// A concurrent claim can win the slug between the check
			// above and this insert.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.Conflict("a community with this slug already exists")
			}
			return err
		}
		_, err := membership.Promote(tx, community.ID, ownerID, models.MembershipRoleOwner)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actorID, &community.ID, "community.created", map[string]string{
		"slug":  community.Slug,
		"owner": ownerID.String(),
	})
	return &community, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Community, error) {
	var community models.Community
	if err := s.db.WithContext(ctx).First(&community, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("community")
		}
		return nil, err
	}
	return &community, nil
}

// ListForUser returns the communities where the user holds an active
// membership.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Community, error) {
	var communities []models.Community
	err := s.db.WithContext(ctx).
		Joins("JOIN memberships ON memberships.community_id = communities.id").
		Where("memberships.user_id = ? AND memberships.status = ?",
			userID, models.MembershipStatusActive).
		Order("communities.created_at ASC").
		Find(&communities).Error
	return communities, err
}

func (s *Service) ListAll(ctx context.Context, offset, limit int) ([]models.Community, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Community{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var communities []models.Community
	if err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&communities).Error; err != nil {
		return nil, 0, err
	}
	return communities, total, nil
}

type UpdateInput struct {
	Name        *string
	Description *string
	LogoFileID  *uuid.UUID
}

func (s *Service) Update(ctx context.Context, actorID, id uuid.UUID, input UpdateInput) (*models.Community, error) {
	community, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		if *input.Name == "" {
			return nil, apperrors.Validation("name cannot be empty")
		}
		updates["name"] = *input.Name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.LogoFileID != nil {
		// The logo must be a file already stored under this community.
		var file models.StoredFile
		err := s.db.WithContext(ctx).
			Where("id = ? AND community_id = ?", *input.LogoFileID, id).
			First(&file).Error
		if err != nil {
			return nil, apperrors.NotFound("logo file")
		}
		updates["logo_file_id"] = *input.LogoFileID
	}
	if len(updates) == 0 {
		return community, nil
	}

	if err := s.db.WithContext(ctx).Model(community).Updates(updates).Error; err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actorID, &id, "community.updated", nil)
	return community, nil
}

func (s *Service) UpdateSettings(ctx context.Context, actorID, id uuid.UUID, requireApproval bool) (*models.Community, error) {
	community, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(community).Update("require_approval", requireApproval).Error; err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actorID, &id, "community.settings_updated", map[string]string{
		"require_approval": boolString(requireApproval),
	})
	return community, nil
}

func (s *Service) SetStatus(ctx context.Context, actorID, id uuid.UUID, status models.CommunityStatus) (*models.Community, error) {
	community, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(community).Update("status", status).Error; err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actorID, &id, "community.status_updated", map[string]string{
		"status": string(status),
	})
	return community, nil
}

// Delete removes a community together with its memberships and
// invitations in one transaction, so no membership ever outlives its
// community.
func (s *Service) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	community, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("community_id = ?", id).Delete(&models.Membership{}).Error; err != nil {
			return err
		}
		if err := tx.Where("community_id = ?", id).Delete(&models.Invitation{}).Error; err != nil {
			return err
		}
		return tx.Delete(community).Error
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, actorID, &id, "community.deleted", map[string]string{
		"slug": community.Slug,
	})
	return nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
