package invitations_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mistreatedbee/Communityhub-server/internal/apperrors"
	"github.com/mistreatedbee/Communityhub-server/internal/audit"
	"github.com/mistreatedbee/Communityhub-server/internal/database/models"
	"github.com/mistreatedbee/Communityhub-server/internal/invitations"
	"github.com/mistreatedbee/Communityhub-server/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newInvitationService(db *gorm.DB) *invitations.Service {
	logger := slog.Default()
	recorder := audit.NewRecorder(nil, db, logger)
	return invitations.NewService(db, nil, recorder, logger, 7)
}

func TestInvitationService_Create(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	svc := newInvitationService(tc.DB)
	ctx := context.Background()

	inv, err := svc.Create(ctx, tc.Community.ID, tc.Owner.ID, invitations.CreateInput{
		Email: "  Invitee@Example.COM ",
		Role:  models.MembershipRoleMember,
	})
	require.NoError(t, err)
	assert.Equal(t, "invitee@example.com", inv.Email)
	assert.Equal(t, models.MembershipRoleMember, inv.Role)
	assert.Len(t, inv.Token, 64)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, 7), inv.ExpiresAt, time.Minute)
}

func TestInvitationService_Create_OutstandingConflict(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	svc := newInvitationService(tc.DB)
	ctx := context.Background()

	_, err := svc.Create(ctx, tc.Community.ID, tc.Owner.ID, invitations.CreateInput{Email: "dupe@example.com"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, tc.Community.ID, tc.Owner.ID, invitations.CreateInput{Email: "dupe@example.com"})
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
}

func TestInvitationService_Create_ExpiredDoesNotBlock(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	svc := newInvitationService(tc.DB)
	ctx := context.Background()

	old := testutil.CreateTestInvitation(t, tc.DB, tc.Community, tc.Owner, "again@example.com", models.MembershipRoleMember)
	require.NoError(t, tc.DB.Model(old).Update("expires_at", time.Now().UTC().Add(-time.Hour)).Error)

	_, err := svc.Create(ctx, tc.Community.ID, tc.Owner.ID, invitations.CreateInput{Email: "again@example.com"})
	assert.NoError(t, err)
}

func TestInvitationService_Create_NoOwnerRole(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	svc := newInvitationService(tc.DB)
	_, err := svc.Create(context.Background(), tc.Community.ID, tc.Owner.ID, invitations.CreateInput{
		Email: "boss@example.com",
		Role:  models.MembershipRoleOwner,
	})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestInvitationService_Create_TTLClamp(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	svc := newInvitationService(tc.DB)
	ctx := context.Background()

	inv, err := svc.Create(ctx, tc.Community.ID, tc.Owner.ID, invitations.CreateInput{
		Email:   "long@example.com",
		TTLDays: 365,
	})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, 30), inv.ExpiresAt, time.Minute)

	inv, err = svc.Create(ctx, tc.Community.ID, tc.Owner.ID, invitations.CreateInput{
		Email:   "short@example.com",
		TTLDays: -3,
	})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, 1), inv.ExpiresAt, time.Minute)
}

func TestInvitationService_Accept(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	svc := newInvitationService(tc.DB)
	ctx := context.Background()

	invitee := testutil.CreateTestUser(t, tc.DB)
	inv := testutil.CreateTestInvitation(t, tc.DB, tc.Community, tc.Owner, invitee.Email, models.MembershipRoleModerator)

	m, err := svc.Accept(ctx, inv.Token, invitee)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipRoleModerator, m.Role)
	assert.Equal(t, models.MembershipStatusActive, m.Status)

	var stored models.Invitation
	require.NoError(t, tc.DB.First(&stored, inv.ID).Error)
	assert.Equal(t, models.InvitationStatusAccepted, stored.Status)
	require.NotNil(t, stored.AcceptedBy)
	assert.Equal(t, invitee.ID, *stored.AcceptedBy)
}

func TestInvitationService_Accept_SingleUse(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	svc := newInvitationService(tc.DB)
	ctx := context.Background()

	invitee := testutil.CreateTestUser(t, tc.DB)
	inv := testutil.CreateTestInvitation(t, tc.DB, tc.Community, tc.Owner, invitee.Email, models.MembershipRoleMember)

	_, err := svc.Accept(ctx, inv.Token, invitee)
	require.NoError(t, err)

	_, err = svc.Accept(ctx, inv.Token, invitee)
	assert.Equal(t, apperrors.KindInvitationInvalid, apperrors.KindOf(err))
}

func TestInvitationService_Accept_WrongEmail(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	svc := newInvitationService(tc.DB)

	stranger := testutil.CreateTestUser(t, tc.DB)
	inv := testutil.CreateTestInvitation(t, tc.DB, tc.Community, tc.Owner, "someone-else@example.com", models.MembershipRoleMember)

	_, err := svc.Accept(context.Background(), inv.Token, stranger)
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))

	// The token survives a failed attempt.
	var stored models.Invitation
	require.NoError(t, tc.DB.First(&stored, inv.ID).Error)
	assert.Equal(t, models.InvitationStatusSent, stored.Status)
}

func TestInvitationService_Accept_Expired(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	svc := newInvitationService(tc.DB)

	invitee := testutil.CreateTestUser(t, tc.DB)
	inv := testutil.CreateTestInvitation(t, tc.DB, tc.Community, tc.Owner, invitee.Email, models.MembershipRoleMember)
	require.NoError(t, tc.DB.Model(inv).Update("expires_at", time.Now().UTC().Add(-time.Hour)).Error)

	_, err := svc.Accept(context.Background(), inv.Token, invitee)
	assert.Equal(t, apperrors.KindInvitationInvalid, apperrors.KindOf(err))
}

func TestInvitationService_Accept_KeepsHigherRole(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	svc := newInvitationService(tc.DB)
	ctx := context.Background()

	invitee := testutil.CreateTestUser(t, tc.DB)
	testutil.CreateTestMembership(t, tc.DB, tc.Community, invitee, models.MembershipRoleAdmin, models.MembershipStatusActive)

	inv := testutil.CreateTestInvitation(t, tc.DB, tc.Community, tc.Owner, invitee.Email, models.MembershipRoleMember)
	m, err := svc.Accept(ctx, inv.Token, invitee)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipRoleAdmin, m.Role)
}

func TestInvitationService_Accept_ActivatesPendingMember(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	svc := newInvitationService(tc.DB)
	ctx := context.Background()

	invitee := testutil.CreateTestUser(t, tc.DB)
	testutil.CreateTestMembership(t, tc.DB, tc.Community, invitee, models.MembershipRoleMember, models.MembershipStatusPending)

	inv := testutil.CreateTestInvitation(t, tc.DB, tc.Community, tc.Owner, invitee.Email, models.MembershipRoleMember)
	m, err := svc.Accept(ctx, inv.Token, invitee)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipStatusActive, m.Status)
}

func TestInvitationService_Revoke(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	svc := newInvitationService(tc.DB)
	ctx := context.Background()

	inv := testutil.CreateTestInvitation(t, tc.DB, tc.Community, tc.Owner, "gone@example.com", models.MembershipRoleMember)

	revoked, err := svc.Revoke(ctx, tc.Owner.ID, tc.Community.ID, inv.ID)
	require.NoError(t, err)

	var stored models.Invitation
	require.NoError(t, tc.DB.First(&stored, revoked.ID).Error)
	assert.Equal(t, models.InvitationStatusRevoked, stored.Status)
	assert.NotNil(t, stored.RevokedAt)
}

func TestInvitationService_Revoke_AcceptedBlocks(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	svc := newInvitationService(tc.DB)
	ctx := context.Background()

	invitee := testutil.CreateTestUser(t, tc.DB)
	inv := testutil.CreateTestInvitation(t, tc.DB, tc.Community, tc.Owner, invitee.Email, models.MembershipRoleMember)
	_, err := svc.Accept(ctx, inv.Token, invitee)
	require.NoError(t, err)

	_, err = svc.Revoke(ctx, tc.Owner.ID, tc.Community.ID, inv.ID)
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))
}

func TestInvitationService_Resend_AfterRevoke(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	svc := newInvitationService(tc.DB)
	ctx := context.Background()

	inv := testutil.CreateTestInvitation(t, tc.DB, tc.Community, tc.Owner, "back@example.com", models.MembershipRoleMember)
	_, err := svc.Revoke(ctx, tc.Owner.ID, tc.Community.ID, inv.ID)
	require.NoError(t, err)

	resent, err := svc.Resend(ctx, tc.Owner.ID, tc.Community.ID, inv.ID)
	require.NoError(t, err)

	var stored models.Invitation
	require.NoError(t, tc.DB.First(&stored, resent.ID).Error)
	assert.Equal(t, models.InvitationStatusSent, stored.Status)
	assert.Nil(t, stored.RevokedBy)
	assert.NotEqual(t, inv.Token, stored.Token)
}

func TestInvitationService_Resend_RotatesToken(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	svc := newInvitationService(tc.DB)
	ctx := context.Background()

	inv := testutil.CreateTestInvitation(t, tc.DB, tc.Community, tc.Owner, "rotate@example.com", models.MembershipRoleMember)
	oldToken := inv.Token

	_, err := svc.Resend(ctx, tc.Owner.ID, tc.Community.ID, inv.ID)
	require.NoError(t, err)

	invitee := testutil.CreateTestUser(t, tc.DB)
	require.NoError(t, tc.DB.Model(&models.Invitation{}).Where("id = ?", inv.ID).Update("email", invitee.Email).Error)

	_, err = svc.Accept(ctx, oldToken, invitee)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestInvitationService_ScopedLookup(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	svc := newInvitationService(tc.DB)
	ctx := context.Background()

	otherOwner := testutil.CreateTestUser(t, tc.DB)
	otherCommunity := testutil.CreateTestCommunity(t, tc.DB, otherOwner)

	inv := testutil.CreateTestInvitation(t, tc.DB, tc.Community, tc.Owner, "scoped@example.com", models.MembershipRoleMember)

	// An admin of another community cannot touch the invitation via
	// their own community id.
	_, err := svc.Revoke(ctx, otherOwner.ID, otherCommunity.ID, inv.ID)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}
