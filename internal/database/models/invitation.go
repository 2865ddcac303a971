package models

import (
	"time"

	"github.com/google/uuid"
)

type InvitationStatus string

const (
	InvitationStatusSent     InvitationStatus = "sent"
	InvitationStatusExpired  InvitationStatus = "expired"
	InvitationStatusAccepted InvitationStatus = "accepted"
	InvitationStatusRevoked  InvitationStatus = "revoked"
)

// Invitation is a single-use, community-scoped token granting an email
// address a specific role. The stored Status only records terminal
// transitions; expiry is derived at read time from ExpiresAt.
type Invitation struct {
	Base
	CommunityID uuid.UUID        `gorm:"type:uuid;not null;index" json:"community_id"`
	Email       string           `gorm:"not null;index" json:"email"`
	Role        MembershipRole   `gorm:"default:'member'" json:"role"`
	Token       string           `gorm:"uniqueIndex;not null" json:"-"`
	Status      InvitationStatus `gorm:"default:'sent'" json:"-"`
	ExpiresAt   time.Time        `gorm:"not null" json:"expires_at"`
	InvitedBy   uuid.UUID        `gorm:"type:uuid;not null" json:"invited_by"`

	AcceptedBy *uuid.UUID `gorm:"type:uuid" json:"accepted_by,omitempty"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	RevokedBy  *uuid.UUID `gorm:"type:uuid" json:"revoked_by,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`

	Community *Community `gorm:"foreignKey:CommunityID" json:"-"`
}

func (Invitation) TableName() string {
	return "invitations"
}

// DeriveStatus computes the invitation's effective status at now.
// Terminal stored statuses win over expiry; everything else is expired
// once ExpiresAt has passed. No background process is trusted to keep
// the stored column current.
func (i *Invitation) DeriveStatus(now time.Time) InvitationStatus {
	switch i.Status {
	case InvitationStatusAccepted, InvitationStatusRevoked:
		return i.Status
	}
	if i.ExpiresAt.Before(now) {
		return InvitationStatusExpired
	}
	return InvitationStatusSent
}
