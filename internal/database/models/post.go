package models

import "github.com/google/uuid"

type Post struct {
	Base
	CommunityID uuid.UUID  `gorm:"type:uuid;not null;index" json:"community_id"`
	AuthorID    uuid.UUID  `gorm:"type:uuid;not null" json:"author_id"`
	Title       string     `gorm:"not null" json:"title"`
	Body        string     `json:"body"`
	Pinned      bool       `gorm:"default:false" json:"pinned"`
	MediaFileID *uuid.UUID `gorm:"type:uuid" json:"media_file_id,omitempty"`

	Author *User `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}

func (Post) TableName() string {
	return "posts"
}
