package storage_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mistreatedbee/Communityhub-server/internal/apperrors"
	"github.com/mistreatedbee/Communityhub-server/internal/audit"
	"github.com/mistreatedbee/Communityhub-server/internal/database/models"
	"github.com/mistreatedbee/Communityhub-server/internal/storage"
	"github.com/mistreatedbee/Communityhub-server/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newFileService(db *gorm.DB) (*storage.FileService, *storage.MemoryStore) {
	store := storage.NewMemoryStore()
	recorder := audit.NewRecorder(nil, db, slog.Default())
	return storage.NewFileService(db, store, recorder, slog.Default()), store
}

func upload(t *testing.T, svc *storage.FileService, tc *testutil.TestSetup, purpose models.FilePurpose, contentType, content string) (*models.StoredFile, error) {
	t.Helper()
	return svc.Upload(context.Background(), tc.Community.ID, tc.Owner.ID, storage.UploadInput{
		Purpose:     purpose,
		Filename:    "upload.bin",
		ContentType: contentType,
		Size:        int64(len(content)),
		Body:        strings.NewReader(content),
	})
}

func TestFileService_UploadAndOpen(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	svc, _ := newFileService(tc.DB)

	file, err := upload(t, svc, tc, models.FilePurposePostMedia, "image/png", "pngdata")
	require.NoError(t, err)
	assert.Equal(t, tc.Community.ID, file.CommunityID)

	got, body, err := svc.Open(context.Background(), tc.Community.ID, file.ID)
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "pngdata", string(data))
	assert.Equal(t, "image/png", got.ContentType)
}

func TestFileService_Open_CrossCommunityReadsAsNotFound(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	svc, _ := newFileService(tc.DB)

	file, err := upload(t, svc, tc, models.FilePurposeResource, "application/pdf", "pdfdata")
	require.NoError(t, err)

	otherOwner := testutil.CreateTestUser(t, tc.DB)
	otherCommunity := testutil.CreateTestCommunity(t, tc.DB, otherOwner)

	// Existing file, wrong community: indistinguishable from a missing
	// file.
	_, _, err = svc.Open(context.Background(), otherCommunity.ID, file.ID)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestFileService_Upload_PurposeRules(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	svc, _ := newFileService(tc.DB)

	tests := []struct {
		name        string
		purpose     models.FilePurpose
		contentType string
		size        int64
		wantKind    apperrors.Kind
		wantOK      bool
	}{
		{"thumbnail accepts image", models.FilePurposeEventThumb, "image/jpeg", 1024, 0, true},
		{"thumbnail rejects pdf", models.FilePurposeEventThumb, "application/pdf", 1024, apperrors.KindValidation, false},
		{"thumbnail rejects oversize", models.FilePurposeEventThumb, "image/jpeg", 6 << 20, apperrors.KindValidation, false},
		{"post media accepts video", models.FilePurposePostMedia, "video/mp4", 1024, 0, true},
		{"post media rejects audio", models.FilePurposePostMedia, "audio/mpeg", 1024, apperrors.KindValidation, false},
		{"resource accepts any type", models.FilePurposeResource, "application/zip", 1024, 0, true},
		{"resource rejects oversize", models.FilePurposeResource, "application/zip", 51 << 20, apperrors.KindValidation, false},
		{"announcement attachment within limit", models.FilePurposeAnnouncement, "application/pdf", 19 << 20, 0, true},
		{"unknown purpose", models.FilePurpose("mystery"), "image/png", 1024, apperrors.KindValidation, false},
		{"empty file", models.FilePurposeLogo, "image/png", 0, apperrors.KindValidation, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upload(context.Background(), tc.Community.ID, tc.Owner.ID, storage.UploadInput{
				Purpose:     tt.purpose,
				Filename:    "f.bin",
				ContentType: tt.contentType,
				Size:        tt.size,
				Body:        strings.NewReader(strings.Repeat("x", 16)),
			})
			if tt.wantOK {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, tt.wantKind, apperrors.KindOf(err))
			}
		})
	}
}

func TestFileService_Delete(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	svc, _ := newFileService(tc.DB)
	ctx := context.Background()

	file, err := upload(t, svc, tc, models.FilePurposeResource, "text/plain", "bytes")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, tc.Owner.ID, tc.Community.ID, file.ID))

	_, _, err = svc.Open(ctx, tc.Community.ID, file.ID)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	// Deleting from another community is NotFound too, and the own
	// community's file survives the attempt.
	other, err := upload(t, svc, tc, models.FilePurposeResource, "text/plain", "keep")
	require.NoError(t, err)

	otherOwner := testutil.CreateTestUser(t, tc.DB)
	otherCommunity := testutil.CreateTestCommunity(t, tc.DB, otherOwner)
	err = svc.Delete(ctx, otherOwner.ID, otherCommunity.ID, other.ID)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	_, body, err := svc.Open(ctx, tc.Community.ID, other.ID)
	require.NoError(t, err)
	body.Close()
}
