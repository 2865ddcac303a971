package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/mistreatedbee/Communityhub-server/internal/apperrors"
	"github.com/mistreatedbee/Communityhub-server/internal/audit"
	"github.com/mistreatedbee/Communityhub-server/internal/database/models"
	"gorm.io/gorm"
)

const mb = int64(1 << 20)

type purposeRule struct {
	maxSize      int64
	typePrefixes []string // empty means any content type
}

var purposeRules = map[models.FilePurpose]purposeRule{
	models.FilePurposeResource:      {maxSize: 50 * mb},
	models.FilePurposeResourceThumb: {maxSize: 5 * mb, typePrefixes: []string{"image/"}},
	models.FilePurposeEventThumb:    {maxSize: 5 * mb, typePrefixes: []string{"image/"}},
	models.FilePurposeLogo:          {maxSize: 5 * mb, typePrefixes: []string{"image/"}},
	models.FilePurposePostMedia:     {maxSize: 10 * mb, typePrefixes: []string{"image/", "video/"}},
	models.FilePurposeAnnouncement:  {maxSize: 20 * mb},
}

type FileService struct {
	db     *gorm.DB
	store  BlobStore
	audit  *audit.Recorder
	logger *slog.Logger
}

func NewFileService(db *gorm.DB, store BlobStore, recorder *audit.Recorder, logger *slog.Logger) *FileService {
	return &FileService{db: db, store: store, audit: recorder, logger: logger}
}

func validateUpload(purpose models.FilePurpose, contentType string, size int64) error {
	rule, ok := purposeRules[purpose]
	if !ok {
		return apperrors.Validation("unknown file purpose")
	}
	if size <= 0 {
		return apperrors.Validation("file is empty")
	}
	if size > rule.maxSize {
		return apperrors.Newf(apperrors.KindValidation, "file exceeds the %dMB limit for this purpose", rule.maxSize/mb)
	}
	if len(rule.typePrefixes) > 0 {
		allowed := false
		for _, prefix := range rule.typePrefixes {
			if strings.HasPrefix(contentType, prefix) {
				allowed = true
				break
			}
		}
		if !allowed {
			return apperrors.Validation("content type is not allowed for this purpose")
		}
	}
	return nil
}

type UploadInput struct {
	Purpose     models.FilePurpose
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Upload validates the file against its purpose and stores it with the
// resolved community stamped into the metadata row. The tag is written
// once and never updated.
func (s *FileService) Upload(ctx context.Context, communityID, uploaderID uuid.UUID, input UploadInput) (*models.StoredFile, error) {
	if err := validateUpload(input.Purpose, input.ContentType, input.Size); err != nil {
		return nil, err
	}
	if input.Filename == "" {
		return nil, apperrors.Validation("filename is required")
	}

	file := models.StoredFile{
		CommunityID: communityID,
		UploadedBy:  uploaderID,
		Purpose:     input.Purpose,
		Filename:    input.Filename,
		ContentType: input.ContentType,
		Size:        input.Size,
		StorageKey:  fmt.Sprintf("%s/%s", communityID, uuid.New()),
	}
	if err := s.db.WithContext(ctx).Create(&file).Error; err != nil {
		return nil, err
	}

	if err := s.store.Put(ctx, file.StorageKey, input.Body, input.Size, input.ContentType); err != nil {
		// The metadata row without its blob is useless; drop it so the
		// upload is cleanly retryable.
		if delErr := s.db.WithContext(ctx).Unscoped().Delete(&file).Error; delErr != nil {
			s.logger.Error("failed to clean up file row after store error", "file_id", file.ID, "error", delErr)
		}
		return nil, err
	}

	s.audit.Record(ctx, uploaderID, &communityID, "file.uploaded", map[string]string{
		"file_id": file.ID.String(),
		"purpose": string(input.Purpose),
	})
	return &file, nil
}

// Open locates the file by its identifier and compares the stored
// community tag against the resolved community. Any mismatch, and any
// truly missing file, is the same NotFound: a caller in another
// community learns nothing, not even the content type or size.
func (s *FileService) Open(ctx context.Context, communityID, fileID uuid.UUID) (*models.StoredFile, io.ReadCloser, error) {
	var file models.StoredFile
	if err := s.db.WithContext(ctx).First(&file, fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperrors.NotFound("file")
		}
		return nil, nil, err
	}

	if !strings.EqualFold(file.CommunityID.String(), communityID.String()) {
		return nil, nil, apperrors.NotFound("file")
	}

	body, err := s.store.Get(ctx, file.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	return &file, body, nil
}

func (s *FileService) Delete(ctx context.Context, actorID, communityID, fileID uuid.UUID) error {
	var file models.StoredFile
	err := s.db.WithContext(ctx).
		Where("id = ? AND community_id = ?", fileID, communityID).
		First(&file).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("file")
		}
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&file).Error; err != nil {
		return err
	}
	if err := s.store.Delete(ctx, file.StorageKey); err != nil {
		// The row is already gone; log the orphaned blob and move on.
		s.logger.Warn("failed to delete blob", "key", file.StorageKey, "error", err)
	}

	s.audit.Record(ctx, actorID, &communityID, "file.deleted", map[string]string{
		"file_id": fileID.String(),
	})
	return nil
}
