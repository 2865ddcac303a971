package models

import "github.com/google/uuid"

type Program struct {
	Base
	CommunityID uuid.UUID `gorm:"type:uuid;not null;index" json:"community_id"`
	CreatedBy   uuid.UUID `gorm:"type:uuid;not null" json:"created_by"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description,omitempty"`

	Enrollments []ProgramEnrollment `gorm:"foreignKey:ProgramID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Program) TableName() string {
	return "programs"
}

// ProgramEnrollment is keyed by (program, user); duplicate enrollment
// requests upsert into the same row and withdrawal deletes it.
type ProgramEnrollment struct {
	JoinBase
	ProgramID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_program_enrollments_program_user" json:"program_id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_program_enrollments_program_user" json:"user_id"`
	CommunityID uuid.UUID `gorm:"type:uuid;not null;index" json:"community_id"`
}

func (ProgramEnrollment) TableName() string {
	return "program_enrollments"
}
