package models

import "github.com/google/uuid"

type Announcement struct {
	Base
	CommunityID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"community_id"`
	CreatedBy        uuid.UUID  `gorm:"type:uuid;not null" json:"created_by"`
	Title            string     `gorm:"not null" json:"title"`
	Body             string     `json:"body"`
	AttachmentFileID *uuid.UUID `gorm:"type:uuid" json:"attachment_file_id,omitempty"`
}

func (Announcement) TableName() string {
	return "announcements"
}
