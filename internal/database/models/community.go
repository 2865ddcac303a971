package models

import "github.com/google/uuid"

type CommunityStatus string

const (
	CommunityStatusActive    CommunityStatus = "active"
	CommunityStatusSuspended CommunityStatus = "suspended"
)

type Community struct {
	Base
	Name        string          `gorm:"not null" json:"name"`
	Slug        string          `gorm:"uniqueIndex;not null" json:"slug"`
	Description string          `json:"description,omitempty"`
	Status      CommunityStatus `gorm:"default:'active'" json:"status"`
	LogoFileID  *uuid.UUID      `gorm:"type:uuid" json:"logo_file_id,omitempty"`
	CreatedBy   uuid.UUID       `gorm:"type:uuid;not null" json:"created_by"`

	// Direct joins create pending memberships when set.
	RequireApproval bool `gorm:"default:false" json:"require_approval"`

	Memberships []Membership `gorm:"foreignKey:CommunityID;constraint:OnDelete:CASCADE" json:"-"`
	Invitations []Invitation `gorm:"foreignKey:CommunityID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Community) TableName() string {
	return "communities"
}
