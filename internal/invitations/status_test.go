package invitations

import (
	"testing"
	"time"

	"github.com/mistreatedbee/Communityhub-server/internal/database/models"
	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	now := time.Now().UTC()
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	tests := []struct {
		name      string
		stored    models.InvitationStatus
		expiresAt time.Time
		want      models.InvitationStatus
	}{
		{"sent and live", models.InvitationStatusSent, future, models.InvitationStatusSent},
		{"sent and past expiry", models.InvitationStatusSent, past, models.InvitationStatusExpired},
		{"accepted stays accepted after expiry", models.InvitationStatusAccepted, past, models.InvitationStatusAccepted},
		{"revoked stays revoked after expiry", models.InvitationStatusRevoked, past, models.InvitationStatusRevoked},
		{"accepted before expiry", models.InvitationStatusAccepted, future, models.InvitationStatusAccepted},
		{"stale expired column, still past", models.InvitationStatusExpired, past, models.InvitationStatusExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveStatus(tt.stored, tt.expiresAt, now)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeriveStatus_ExpiryBoundary(t *testing.T) {
	now := time.Now().UTC()

	// An invitation expiring exactly now is not yet expired; only a
	// strictly earlier ExpiresAt is.
	assert.Equal(t, models.InvitationStatusSent, DeriveStatus(models.InvitationStatusSent, now, now))
	assert.Equal(t, models.InvitationStatusExpired, DeriveStatus(models.InvitationStatusSent, now.Add(-time.Nanosecond), now))
}
