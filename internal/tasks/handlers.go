package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/mistreatedbee/Communityhub-server/internal/database/models"
	"github.com/mistreatedbee/Communityhub-server/internal/mailer"
	"gorm.io/gorm"
)

type Handler struct {
	db     *gorm.DB
	logger *slog.Logger
	mail   *mailer.Mailer
}

func NewHandler(db *gorm.DB, logger *slog.Logger, mail *mailer.Mailer) *Handler {
	return &Handler{db: db, logger: logger, mail: mail}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeInvitationEmail, h.HandleInvitationEmail)
	mux.HandleFunc(TypeInvitationSweep, h.HandleInvitationSweep)
	mux.HandleFunc(TypeAuditRecord, h.HandleAuditRecord)
}

func (h *Handler) HandleInvitationEmail(ctx context.Context, t *asynq.Task) error {
	var payload InvitationEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	var inv models.Invitation
	if err := h.db.WithContext(ctx).Preload("Community").First(&inv, payload.InvitationID).Error; err != nil {
		// Deleted between enqueue and delivery; nothing to do.
		h.logger.Info("invitation gone, skipping email", "invitation_id", payload.InvitationID)
		return nil
	}

	// Only deliver invitations that are still open.
	if inv.DeriveStatus(time.Now().UTC()) != models.InvitationStatusSent {
		h.logger.Info("invitation no longer open, skipping email", "invitation_id", inv.ID)
		return nil
	}

	if h.mail == nil {
		h.logger.Warn("mailer not configured, dropping invitation email", "invitation_id", inv.ID)
		return nil
	}

	communityName := "a community"
	if inv.Community != nil {
		communityName = inv.Community.Name
	}

	if err := h.mail.SendInvitation(inv.Email, communityName, string(inv.Role), inv.Token, inv.ExpiresAt); err != nil {
		return fmt.Errorf("sending invitation email: %w", err)
	}

	h.logger.Info("invitation email sent", "invitation_id", inv.ID, "email", inv.Email)
	return nil
}

// HandleInvitationSweep bulk-marks stale sent invitations as expired.
// Read paths derive status from expires_at regardless, so the sweep is
// cosmetic housekeeping, not a correctness mechanism.
func (h *Handler) HandleInvitationSweep(ctx context.Context, t *asynq.Task) error {
	res := h.db.WithContext(ctx).Model(&models.Invitation{}).
		Where("status = ? AND expires_at < ?", models.InvitationStatusSent, time.Now().UTC()).
		Update("status", models.InvitationStatusExpired)
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected > 0 {
		h.logger.Info("expired invitations swept", "count", res.RowsAffected)
	}
	return nil
}

func (h *Handler) HandleAuditRecord(ctx context.Context, t *asynq.Task) error {
	var payload AuditRecordPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	meta := "{}"
	if len(payload.Metadata) > 0 {
		if data, err := json.Marshal(payload.Metadata); err == nil {
			meta = string(data)
		}
	}

	entry := models.AuditLog{
		ActorID:     payload.ActorID,
		CommunityID: payload.CommunityID,
		Action:      payload.Action,
		Metadata:    meta,
		CreatedAt:   payload.RecordedAt,
	}
	return h.db.WithContext(ctx).Create(&entry).Error
}
