package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mistreatedbee/Communityhub-server/internal/api/dto"
	"github.com/mistreatedbee/Communityhub-server/internal/api/middleware"
	"github.com/mistreatedbee/Communityhub-server/internal/database/models"
	"github.com/mistreatedbee/Communityhub-server/internal/membership"
)

type MemberHandler struct {
	members *membership.Service
}

func NewMemberHandler(members *membership.Service) *MemberHandler {
	return &MemberHandler{members: members}
}

type MemberResponse struct {
	UserID      string `json:"user_id"`
	CommunityID string `json:"community_id"`
	Role        string `json:"role"`
	Status      string `json:"status"`
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	JoinedAt    string `json:"joined_at"`
}

func membershipToResponse(m *models.Membership) MemberResponse {
	resp := MemberResponse{
		UserID:      m.UserID.String(),
		CommunityID: m.CommunityID.String(),
		Role:        string(m.Role),
		Status:      string(m.Status),
		JoinedAt:    m.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if m.User != nil {
		resp.Name = m.User.Name
		resp.Email = m.User.Email
	}
	return resp
}

// List handles GET /api/v1/communities/{communityID}/members
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	page := parsePagination(r)
	members, total, err := h.members.List(r.Context(), middleware.GetCommunityID(r.Context()), page.Offset(), page.PerPage)
	if err != nil {
		respondError(w, err)
		return
	}

	items := make([]MemberResponse, len(members))
	for i := range members {
		items[i] = membershipToResponse(&members[i])
	}
	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Data:       items,
		Total:      total,
		Page:       page.Page,
		PerPage:    page.PerPage,
		TotalPages: totalPages(total, page.PerPage),
	})
}

type UpdateMemberRoleRequest struct {
	Role string `json:"role"`
}

func (r UpdateMemberRoleRequest) Validate() map[string]string {
	errs := make(map[string]string)
	switch models.MembershipRole(r.Role) {
	case models.MembershipRoleAdmin, models.MembershipRoleModerator, models.MembershipRoleMember:
	default:
		errs["role"] = "Role must be admin, moderator, or member"
	}
	return errs
}

// UpdateRole handles PUT /api/v1/communities/{communityID}/members/{userID}/role
func (h *MemberHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid user ID"})
		return
	}

	var req UpdateMemberRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	m, err := h.members.UpdateRole(r.Context(), middleware.GetUserID(r.Context()), middleware.GetCommunityID(r.Context()), userID, models.MembershipRole(req.Role))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, membershipToResponse(m))
}

type UpdateMemberStatusRequest struct {
	Status string `json:"status"`
}

func (r UpdateMemberStatusRequest) Validate() map[string]string {
	errs := make(map[string]string)
	switch models.MembershipStatus(r.Status) {
	case models.MembershipStatusActive, models.MembershipStatusSuspended, models.MembershipStatusBanned:
	default:
		errs["status"] = "Status must be active, suspended, or banned"
	}
	return errs
}

// UpdateStatus handles PUT /api/v1/communities/{communityID}/members/{userID}/status
func (h *MemberHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid user ID"})
		return
	}

	var req UpdateMemberStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	m, err := h.members.UpdateStatus(r.Context(), middleware.GetUserID(r.Context()), middleware.GetCommunityID(r.Context()), userID, models.MembershipStatus(req.Status))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, membershipToResponse(m))
}

// Remove handles DELETE /api/v1/communities/{communityID}/members/{userID}
func (h *MemberHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid user ID"})
		return
	}

	if err := h.members.Remove(r.Context(), middleware.GetUserID(r.Context()), middleware.GetCommunityID(r.Context()), userID); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Leave handles POST /api/v1/communities/{communityID}/leave
func (h *MemberHandler) Leave(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if err := h.members.Remove(r.Context(), userID, middleware.GetCommunityID(r.Context()), userID); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Left community"})
}
