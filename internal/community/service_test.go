package community_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/mistreatedbee/Communityhub-server/internal/apperrors"
	"github.com/mistreatedbee/Communityhub-server/internal/audit"
	"github.com/mistreatedbee/Communityhub-server/internal/community"
	"github.com/mistreatedbee/Communityhub-server/internal/database/models"
	"github.com/mistreatedbee/Communityhub-server/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newCommunityService(db *gorm.DB) *community.Service {
	return community.NewService(db, audit.NewRecorder(nil, db, slog.Default()))
}

func TestCommunityService_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	svc := newCommunityService(db)
	owner := testutil.CreateTestUser(t, db)

	c, err := svc.Create(context.Background(), owner.ID, owner.ID, community.CreateInput{
		Name: "Chess Club",
		Slug: "chess-club",
	})
	require.NoError(t, err)
	assert.Equal(t, models.CommunityStatusActive, c.Status)

	// The creator comes out as an active owner.
	var m models.Membership
	require.NoError(t, db.Where("community_id = ? AND user_id = ?", c.ID, owner.ID).First(&m).Error)
	assert.Equal(t, models.MembershipRoleOwner, m.Role)
	assert.Equal(t, models.MembershipStatusActive, m.Status)
}

func TestCommunityService_Create_SlugValidation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	svc := newCommunityService(db)
	owner := testutil.CreateTestUser(t, db)
	ctx := context.Background()

	for _, slug := range []string{"ab", "UPPER", "has space", "-leading", "trailing-", "double--hyphen", "with_underscore"} {
		_, err := svc.Create(ctx, owner.ID, owner.ID, community.CreateInput{Name: "X", Slug: slug})
		assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err), "slug %q should be rejected", slug)
	}

	for _, slug := range []string{"abc", "my-community", "a1b2-c3", "team-42"} {
		_, err := svc.Create(ctx, owner.ID, owner.ID, community.CreateInput{Name: "X", Slug: slug})
		assert.NoError(t, err, "slug %q should be accepted", slug)
	}
}

func TestCommunityService_Create_SlugConflict(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	svc := newCommunityService(db)
	ctx := context.Background()
	first := testutil.CreateTestUser(t, db)
	second := testutil.CreateTestUser(t, db)

	_, err := svc.Create(ctx, first.ID, first.ID, community.CreateInput{Name: "A", Slug: "taken"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, second.ID, second.ID, community.CreateInput{Name: "B", Slug: "taken"})
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
}

func TestCommunityService_Create_ClaimRetry(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	svc := newCommunityService(db)
	ctx := context.Background()
	owner := testutil.CreateTestUser(t, db)

	first, err := svc.Create(ctx, owner.ID, owner.ID, community.CreateInput{Name: "A", Slug: "mine"})
	require.NoError(t, err)

	// Simulate a half-applied claim: the membership row went missing.
	require.NoError(t, db.Where("community_id = ?", first.ID).Delete(&models.Membership{}).Error)

	second, err := svc.Create(ctx, owner.ID, owner.ID, community.CreateInput{Name: "A", Slug: "mine"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var m models.Membership
	require.NoError(t, db.Where("community_id = ? AND user_id = ?", first.ID, owner.ID).First(&m).Error)
	assert.Equal(t, models.MembershipRoleOwner, m.Role)
}

func TestCommunityService_ListForUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	svc := newCommunityService(db)
	ctx := context.Background()

	owner := testutil.CreateTestUser(t, db)
	mine := testutil.CreateTestCommunity(t, db, owner)

	other := testutil.CreateTestUser(t, db)
	theirs := testutil.CreateTestCommunity(t, db, other)

	// A suspended membership does not surface the community.
	suspendedIn := testutil.CreateTestCommunity(t, db, other)
	testutil.CreateTestMembership(t, db, suspendedIn, owner, models.MembershipRoleMember, models.MembershipStatusSuspended)

	communities, err := svc.ListForUser(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, communities, 1)
	assert.Equal(t, mine.ID, communities[0].ID)
	assert.NotEqual(t, theirs.ID, communities[0].ID)
}

func TestCommunityService_Update_LogoMustBelong(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	svc := newCommunityService(tc.DB)
	ctx := context.Background()

	otherOwner := testutil.CreateTestUser(t, tc.DB)
	otherCommunity := testutil.CreateTestCommunity(t, tc.DB, otherOwner)
	foreignLogo := testutil.CreateTestStoredFile(t, tc.DB, otherCommunity, otherOwner, models.FilePurposeLogo)

	_, err := svc.Update(ctx, tc.Owner.ID, tc.Community.ID, community.UpdateInput{LogoFileID: &foreignLogo.ID})
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	ownLogo := testutil.CreateTestStoredFile(t, tc.DB, tc.Community, tc.Owner, models.FilePurposeLogo)
	updated, err := svc.Update(ctx, tc.Owner.ID, tc.Community.ID, community.UpdateInput{LogoFileID: &ownLogo.ID})
	require.NoError(t, err)

	var stored models.Community
	require.NoError(t, tc.DB.First(&stored, updated.ID).Error)
	require.NotNil(t, stored.LogoFileID)
	assert.Equal(t, ownLogo.ID, *stored.LogoFileID)
}

func TestCommunityService_Delete_Cascades(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	svc := newCommunityService(tc.DB)
	ctx := context.Background()

	member := testutil.CreateTestUser(t, tc.DB)
	testutil.CreateTestMembership(t, tc.DB, tc.Community, member, models.MembershipRoleMember, models.MembershipStatusActive)
	testutil.CreateTestInvitation(t, tc.DB, tc.Community, tc.Owner, "pending@example.com", models.MembershipRoleMember)

	require.NoError(t, svc.Delete(ctx, tc.Owner.ID, tc.Community.ID))

	_, err := svc.Get(ctx, tc.Community.ID)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	var memberships int64
	tc.DB.Model(&models.Membership{}).Where("community_id = ?", tc.Community.ID).Count(&memberships)
	assert.EqualValues(t, 0, memberships)

	var invitations int64
	tc.DB.Model(&models.Invitation{}).Where("community_id = ?", tc.Community.ID).Count(&invitations)
	assert.EqualValues(t, 0, invitations)
}

func TestCommunityService_Create_CompletedClaimConflicts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	svc := newCommunityService(db)
	ctx := context.Background()
	owner := testutil.CreateTestUser(t, db)

	_, err := svc.Create(ctx, owner.ID, owner.ID, community.CreateInput{Name: "A", Slug: "taken"})
	require.NoError(t, err)

	// The owner membership is intact, so this is not a crashed claim
	// being resumed; it is an attempt to create a second community
	// with a taken slug.
	_, err = svc.Create(ctx, owner.ID, owner.ID, community.CreateInput{Name: "B", Slug: "taken"})
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
}

func TestCommunityService_Create_DeletedSlugConflicts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	svc := newCommunityService(db)
	ctx := context.Background()
	owner := testutil.CreateTestUser(t, db)

	first, err := svc.Create(ctx, owner.ID, owner.ID, community.CreateInput{Name: "A", Slug: "retired"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, owner.ID, first.ID))

	// The deleted community still occupies the slug's unique index;
	// the insert failure surfaces as Conflict, not as an internal
	// error.
	other := testutil.CreateTestUser(t, db)
	_, err = svc.Create(ctx, other.ID, other.ID, community.CreateInput{Name: "B", Slug: "retired"})
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
}
