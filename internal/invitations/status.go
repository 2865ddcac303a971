package invitations

import (
	"time"

	"github.com/mistreatedbee/Communityhub-server/internal/database/models"
)

// DeriveStatus computes an invitation's effective status from its
// stored fields and the current time. The derivation itself lives on
// models.Invitation so the worker can use it without importing this
// package.
func DeriveStatus(status models.InvitationStatus, expiresAt, now time.Time) models.InvitationStatus {
	inv := models.Invitation{Status: status, ExpiresAt: expiresAt}
	return inv.DeriveStatus(now)
}

// Derive is DeriveStatus applied to a row.
func Derive(inv *models.Invitation, now time.Time) models.InvitationStatus {
	return inv.DeriveStatus(now)
}
