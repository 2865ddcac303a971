package handlers

import (
	"net/http"
	"time"

	"github.com/mistreatedbee/Communityhub-server/internal/api/middleware"
	"github.com/mistreatedbee/Communityhub-server/internal/database/models"
	"gorm.io/gorm"
)

type DashboardHandler struct {
	db *gorm.DB
}

func NewDashboardHandler(db *gorm.DB) *DashboardHandler {
	return &DashboardHandler{db: db}
}

type CommunityStatsResponse struct {
	ActiveMembers   int64 `json:"active_members"`
	PendingMembers  int64 `json:"pending_members"`
	OpenInvitations int64 `json:"open_invitations"`
	Posts           int64 `json:"posts"`
	UpcomingEvents  int64 `json:"upcoming_events"`
	Groups          int64 `json:"groups"`
	Programs        int64 `json:"programs"`
	Resources       int64 `json:"resources"`
	Announcements   int64 `json:"announcements"`
	StoredFiles     int64 `json:"stored_files"`
	StorageBytes    int64 `json:"storage_bytes"`
}

// Stats handles GET /api/v1/communities/{communityID}/stats
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	communityID := middleware.GetCommunityID(r.Context())
	now := time.Now().UTC()

	var stats CommunityStatsResponse
	db := h.db.WithContext(r.Context())
	db.Model(&models.Membership{}).Where("community_id = ? AND status = ?", communityID, models.MembershipStatusActive).Count(&stats.ActiveMembers)
	db.Model(&models.Membership{}).Where("community_id = ? AND status = ?", communityID, models.MembershipStatusPending).Count(&stats.PendingMembers)
	db.Model(&models.Invitation{}).Where("community_id = ? AND status = ? AND expires_at > ?", communityID, models.InvitationStatusSent, now).Count(&stats.OpenInvitations)
	db.Model(&models.Post{}).Where("community_id = ?", communityID).Count(&stats.Posts)
	db.Model(&models.Event{}).Where("community_id = ? AND starts_at >= ?", communityID, now).Count(&stats.UpcomingEvents)
	db.Model(&models.Group{}).Where("community_id = ?", communityID).Count(&stats.Groups)
	db.Model(&models.Program{}).Where("community_id = ?", communityID).Count(&stats.Programs)
	db.Model(&models.Resource{}).Where("community_id = ?", communityID).Count(&stats.Resources)
	db.Model(&models.Announcement{}).Where("community_id = ?", communityID).Count(&stats.Announcements)
	db.Model(&models.StoredFile{}).Where("community_id = ?", communityID).Count(&stats.StoredFiles)

	var sum struct{ Total int64 }
	db.Model(&models.StoredFile{}).
		Select("COALESCE(SUM(size), 0) AS total").
		Where("community_id = ?", communityID).
		Scan(&sum)
	stats.StorageBytes = sum.Total

	writeJSON(w, http.StatusOK, stats)
}
