package handlers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/mistreatedbee/Communityhub-server/internal/apperrors"
	"github.com/mistreatedbee/Communityhub-server/internal/database/models"
	"gorm.io/gorm"
)

// ensureCommunityFile verifies that a referenced stored file belongs to
// the given community and was uploaded for one of the allowed purposes.
// A file from another community reads as not found.
func ensureCommunityFile(ctx context.Context, db *gorm.DB, communityID, fileID uuid.UUID, purposes ...models.FilePurpose) error {
	var file models.StoredFile
	err := db.WithContext(ctx).
		Where("id = ? AND community_id = ?", fileID, communityID).
		First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound("file not found")
	}
	if err != nil {
		return err
	}
	for _, p := range purposes {
		if file.Purpose == p {
			return nil
		}
	}
	return apperrors.Validation("file was not uploaded for this purpose")
}

// ensureCommunityProgram verifies that a referenced program belongs to
// the given community.
func ensureCommunityProgram(ctx context.Context, db *gorm.DB, communityID, programID uuid.UUID) error {
	var program models.Program
	err := db.WithContext(ctx).
		Where("id = ? AND community_id = ?", programID, communityID).
		First(&program).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound("program not found")
	}
	return err
}
