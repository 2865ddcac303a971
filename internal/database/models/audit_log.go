package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditLog is append-only. Rows are written by the worker from
// fire-and-forget events and are never updated or deleted.
type AuditLog struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	ActorID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"actor_id"`
	CommunityID *uuid.UUID `gorm:"type:uuid;index" json:"community_id,omitempty"`
	Action      string     `gorm:"not null;index" json:"action"`
	Metadata    string     `gorm:"default:'{}'" json:"metadata"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
