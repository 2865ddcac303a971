package models

import "github.com/google/uuid"

type Resource struct {
	Base
	CommunityID uuid.UUID  `gorm:"type:uuid;not null;index" json:"community_id"`
	CreatedBy   uuid.UUID  `gorm:"type:uuid;not null" json:"created_by"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `json:"description,omitempty"`
	URL         string     `json:"url,omitempty"`
	FileID      *uuid.UUID `gorm:"type:uuid" json:"file_id,omitempty"`
	ThumbID     *uuid.UUID `gorm:"type:uuid" json:"thumbnail_file_id,omitempty"`

	// Optional link to a program in the same community. Verified against
	// the resolved community before the relation is written.
	ProgramID *uuid.UUID `gorm:"type:uuid" json:"program_id,omitempty"`
}

func (Resource) TableName() string {
	return "resources"
}
