package models

import "github.com/google/uuid"

type FilePurpose string

const (
	FilePurposeResource       FilePurpose = "resource"
	FilePurposeResourceThumb  FilePurpose = "resource-thumbnail"
	FilePurposeEventThumb     FilePurpose = "event-thumbnail"
	FilePurposeAnnouncement   FilePurpose = "announcement-attachment"
	FilePurposePostMedia      FilePurpose = "post-media"
	FilePurposeLogo           FilePurpose = "logo"
)

// StoredFile is the metadata row for a blob in object storage. The
// CommunityID tag is written once at upload and is the sole authority
// for access control on download.
type StoredFile struct {
	Base
	CommunityID uuid.UUID   `gorm:"type:uuid;not null;index" json:"community_id"`
	UploadedBy  uuid.UUID   `gorm:"type:uuid;not null" json:"uploaded_by"`
	Purpose     FilePurpose `gorm:"not null" json:"purpose"`
	Filename    string      `gorm:"not null" json:"filename"`
	ContentType string      `gorm:"not null" json:"content_type"`
	Size        int64       `gorm:"not null" json:"size"`
	StorageKey  string      `gorm:"uniqueIndex;not null" json:"-"`
}

func (StoredFile) TableName() string {
	return "stored_files"
}
