// Package invitations implements the community invitation lifecycle:
// issue, resend, revoke, and single-use acceptance into an active
// membership.
package invitations

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/mistreatedbee/Communityhub-server/internal/apperrors"
	"github.com/mistreatedbee/Communityhub-server/internal/audit"
	"github.com/mistreatedbee/Communityhub-server/internal/database/models"
	"github.com/mistreatedbee/Communityhub-server/internal/membership"
	"github.com/mistreatedbee/Communityhub-server/internal/tasks"
	"gorm.io/gorm"
)

const (
	minTTLDays = 1
	maxTTLDays = 30
)

type Service struct {
	db             *gorm.DB
	queue          *asynq.Client
	audit          *audit.Recorder
	logger         *slog.Logger
	defaultTTLDays int
}

func NewService(db *gorm.DB, queue *asynq.Client, recorder *audit.Recorder, logger *slog.Logger, defaultTTLDays int) *Service {
	if defaultTTLDays <= 0 {
		defaultTTLDays = 7
	}
	return &Service{db: db, queue: queue, audit: recorder, logger: logger, defaultTTLDays: defaultTTLDays}
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func (s *Service) clampTTL(ttlDays int) int {
	if ttlDays == 0 {
		ttlDays = s.defaultTTLDays
	}
	if ttlDays < minTTLDays {
		ttlDays = minTTLDays
	}
	if ttlDays > maxTTLDays {
		ttlDays = maxTTLDays
	}
	return ttlDays
}

type CreateInput struct {
	Email   string
	Role    models.MembershipRole
	TTLDays int
}

func (s *Service) Create(ctx context.Context, communityID, inviterID uuid.UUID, input CreateInput) (*models.Invitation, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, apperrors.Validation("email is required")
	}
	if input.Role == models.MembershipRoleOwner {
		return nil, apperrors.Validation("cannot invite as owner")
	}
	role := input.Role
	if role == "" {
		role = models.MembershipRoleMember
	}

	// One outstanding invitation per (community, email). Terminal or
	// expired rows do not block a fresh invite.
	now := time.Now().UTC()
	var outstanding int64
	err := s.db.WithContext(ctx).Model(&models.Invitation{}).
		Where("community_id = ? AND email = ? AND status = ? AND expires_at > ?",
			communityID, email, models.InvitationStatusSent, now).
		Count(&outstanding).Error
	if err != nil {
		return nil, err
	}
	if outstanding > 0 {
		return nil, apperrors.Conflict("an outstanding invitation already exists for this email")
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}

	inv := models.Invitation{
		CommunityID: communityID,
		Email:       email,
		Role:        role,
		Token:       token,
		Status:      models.InvitationStatusSent,
		ExpiresAt:   now.AddDate(0, 0, s.clampTTL(input.TTLDays)),
		InvitedBy:   inviterID,
	}
	if err := s.db.WithContext(ctx).Create(&inv).Error; err != nil {
		return nil, err
	}

	s.enqueueEmail(ctx, inv.ID)
	s.audit.Record(ctx, inviterID, &communityID, "invitation.created", map[string]string{
		"email": email,
		"role":  string(role),
	})
	return &inv, nil
}

// get loads an invitation within the resolved community only.
func (s *Service) get(ctx context.Context, communityID, invitationID uuid.UUID) (*models.Invitation, error) {
	var inv models.Invitation
	err := s.db.WithContext(ctx).
		Where("id = ? AND community_id = ?", invitationID, communityID).
		First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("invitation")
		}
		return nil, err
	}
	return &inv, nil
}

// Resend reissues the token and expiry. Only acceptance is terminal
// for resend: a revoked or expired invitation goes back to sent.
func (s *Service) Resend(ctx context.Context, actorID, communityID, invitationID uuid.UUID) (*models.Invitation, error) {
	inv, err := s.get(ctx, communityID, invitationID)
	if err != nil {
		return nil, err
	}
	if Derive(inv, time.Now().UTC()) == models.InvitationStatusAccepted {
		return nil, apperrors.InvalidState("invitation has already been accepted")
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"token":      token,
		"status":     models.InvitationStatusSent,
		"expires_at": time.Now().UTC().AddDate(0, 0, s.defaultTTLDays),
		"revoked_by": nil,
		"revoked_at": nil,
	}
	if err := s.db.WithContext(ctx).Model(inv).Updates(updates).Error; err != nil {
		return nil, err
	}

	s.enqueueEmail(ctx, inv.ID)
	s.audit.Record(ctx, actorID, &communityID, "invitation.resent", map[string]string{
		"email": inv.Email,
	})
	return inv, nil
}

func (s *Service) Revoke(ctx context.Context, actorID, communityID, invitationID uuid.UUID) (*models.Invitation, error) {
	inv, err := s.get(ctx, communityID, invitationID)
	if err != nil {
		return nil, err
	}
	if Derive(inv, time.Now().UTC()) == models.InvitationStatusAccepted {
		return nil, apperrors.InvalidState("invitation has already been accepted")
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":     models.InvitationStatusRevoked,
		"revoked_by": actorID,
		"revoked_at": now,
	}
	if err := s.db.WithContext(ctx).Model(inv).Updates(updates).Error; err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actorID, &communityID, "invitation.revoked", map[string]string{
		"email": inv.Email,
	})
	return inv, nil
}

// Accept consumes an invitation token for the calling user. The
// transition to accepted is guarded by a conditional update on the
// stored status, so a token can be consumed at most once even under
// concurrent attempts. The invitation itself is the approval: the
// membership comes out active regardless of the community's approval
// policy.
func (s *Service) Accept(ctx context.Context, token string, user *models.User) (*models.Membership, error) {
	var inv models.Invitation
	err := s.db.WithContext(ctx).Where("token = ?", token).First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("invitation")
		}
		return nil, err
	}

	if !strings.EqualFold(inv.Email, user.Email) {
		return nil, apperrors.Forbidden("invitation was issued to a different email address")
	}

	now := time.Now().UTC()
	if Derive(&inv, now) != models.InvitationStatusSent {
		return nil, apperrors.InvitationInvalid("invitation is no longer valid")
	}

	var member *models.Membership
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Single-use guard: only the first acceptance flips the row.
		res := tx.Model(&models.Invitation{}).
			Where("id = ? AND status = ? AND expires_at > ?", inv.ID, models.InvitationStatusSent, now).
			Updates(map[string]interface{}{
				"status":      models.InvitationStatusAccepted,
				"accepted_by": user.ID,
				"accepted_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.InvitationInvalid("invitation is no longer valid")
		}

		m, err := membership.Promote(tx, inv.CommunityID, user.ID, inv.Role)
		if err != nil {
			return err
		}
		member = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, user.ID, &inv.CommunityID, "invitation.accepted", map[string]string{
		"email": inv.Email,
		"role":  string(inv.Role),
	})
	return member, nil
}

func (s *Service) List(ctx context.Context, communityID uuid.UUID, offset, limit int) ([]models.Invitation, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Invitation{}).Where("community_id = ?", communityID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var invs []models.Invitation
	if err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&invs).Error; err != nil {
		return nil, 0, err
	}
	return invs, total, nil
}

func (s *Service) enqueueEmail(ctx context.Context, invitationID uuid.UUID) {
	if s.queue == nil {
		return
	}
	task, err := tasks.NewInvitationEmailTask(tasks.InvitationEmailPayload{InvitationID: invitationID})
	if err == nil {
		_, err = s.queue.EnqueueContext(ctx, task)
	}
	if err != nil {
		s.logger.Warn("failed to enqueue invitation email", "invitation_id", invitationID, "error", err)
	}
}
