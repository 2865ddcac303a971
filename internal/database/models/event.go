package models

import (
	"time"

	"github.com/google/uuid"
)

type Event struct {
	Base
	CommunityID uuid.UUID  `gorm:"type:uuid;not null;index" json:"community_id"`
	CreatedBy   uuid.UUID  `gorm:"type:uuid;not null" json:"created_by"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	StartsAt    time.Time  `gorm:"not null" json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	ThumbID     *uuid.UUID `gorm:"type:uuid" json:"thumbnail_file_id,omitempty"`

	RSVPs []EventRSVP `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Event) TableName() string {
	return "events"
}

type RSVPStatus string

const (
	RSVPStatusGoing    RSVPStatus = "going"
	RSVPStatusMaybe    RSVPStatus = "maybe"
	RSVPStatusDeclined RSVPStatus = "declined"
)

// EventRSVP is keyed by (event, user); repeated RSVPs update the
// existing row.
type EventRSVP struct {
	JoinBase
	EventID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_event_rsvps_event_user" json:"event_id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_event_rsvps_event_user" json:"user_id"`
	CommunityID uuid.UUID  `gorm:"type:uuid;not null;index" json:"community_id"`
	Status      RSVPStatus `gorm:"default:'going'" json:"status"`
}

func (EventRSVP) TableName() string {
	return "event_rsvps"
}
