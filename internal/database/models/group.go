package models

import "github.com/google/uuid"

type Group struct {
	Base
	CommunityID uuid.UUID `gorm:"type:uuid;not null;index" json:"community_id"`
	CreatedBy   uuid.UUID `gorm:"type:uuid;not null" json:"created_by"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description,omitempty"`

	Members []GroupMember `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Group) TableName() string {
	return "groups"
}

// GroupMember is keyed by (group, user); duplicate joins upsert into
// the same row and leaving deletes it outright.
type GroupMember struct {
	JoinBase
	GroupID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_group_members_group_user" json:"group_id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_group_members_group_user" json:"user_id"`
	CommunityID uuid.UUID `gorm:"type:uuid;not null;index" json:"community_id"`
}

func (GroupMember) TableName() string {
	return "group_members"
}
