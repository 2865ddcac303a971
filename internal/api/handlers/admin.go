package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mistreatedbee/Communityhub-server/internal/api/dto"
	"github.com/mistreatedbee/Communityhub-server/internal/api/middleware"
	"github.com/mistreatedbee/Communityhub-server/internal/apperrors"
	"github.com/mistreatedbee/Communityhub-server/internal/audit"
	"github.com/mistreatedbee/Communityhub-server/internal/community"
	"github.com/mistreatedbee/Communityhub-server/internal/database/models"
	"gorm.io/gorm"
)

type AdminHandler struct {
	db          *gorm.DB
	communities *community.Service
	audit       *audit.Recorder
}

func NewAdminHandler(db *gorm.DB, communities *community.Service, recorder *audit.Recorder) *AdminHandler {
	return &AdminHandler{db: db, communities: communities, audit: recorder}
}

// ListUsers handles GET /api/v1/admin/users with an optional email
// substring filter.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page := parsePagination(r)

	query := h.db.WithContext(r.Context()).Model(&models.User{})
	if email := r.URL.Query().Get("email"); email != "" {
		query = query.Where("email LIKE ?", "%"+email+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondError(w, err)
		return
	}

	var users []models.User
	err := query.Order("created_at DESC").
		Offset(page.Offset()).Limit(page.PerPage).
		Find(&users).Error
	if err != nil {
		respondError(w, err)
		return
	}

	items := make([]dto.UserDTO, len(users))
	for i := range users {
		items[i] = userToDTO(&users[i])
	}
	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Data:       items,
		Total:      total,
		Page:       page.Page,
		PerPage:    page.PerPage,
		TotalPages: totalPages(total, page.PerPage),
	})
}

func (h *AdminHandler) loadUser(r *http.Request) (*models.User, error) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		return nil, apperrors.Validation("invalid user ID")
	}

	var user models.User
	err = h.db.WithContext(r.Context()).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

type UpdateUserStatusRequest struct {
	Status string `json:"status"`
}

func (r UpdateUserStatusRequest) Validate() map[string]string {
	errs := make(map[string]string)
	switch models.UserStatus(r.Status) {
	case models.UserStatusActive, models.UserStatusSuspended, models.UserStatusBanned:
	default:
		errs["status"] = "Status must be active, suspended, or banned"
	}
	return errs
}

// UpdateUserStatus handles PUT /api/v1/admin/users/{userID}/status.
// A suspended or banned user is rejected at authentication on their
// next request; no session revocation step is needed.
func (h *AdminHandler) UpdateUserStatus(w http.ResponseWriter, r *http.Request) {
	user, err := h.loadUser(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req UpdateUserStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	actorID := middleware.GetUserID(r.Context())
	if user.ID == actorID {
		respondError(w, apperrors.Validation("you cannot change your own status"))
		return
	}

	user.Status = models.UserStatus(req.Status)
	if err := h.db.WithContext(r.Context()).Save(user).Error; err != nil {
		respondError(w, err)
		return
	}

	h.audit.Record(r.Context(), actorID, nil, "user.status_changed", map[string]string{
		"user_id": user.ID.String(),
		"status":  req.Status,
	})
	writeJSON(w, http.StatusOK, userToDTO(user))
}

type UpdateUserRoleRequest struct {
	GlobalRole string `json:"global_role"`
}

func (r UpdateUserRoleRequest) Validate() map[string]string {
	errs := make(map[string]string)
	switch models.GlobalRole(r.GlobalRole) {
	case models.GlobalRoleSuperAdmin, models.GlobalRoleUser:
	default:
		errs["global_role"] = "Role must be super_admin or user"
	}
	return errs
}

// UpdateUserRole handles PUT /api/v1/admin/users/{userID}/role
func (h *AdminHandler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	user, err := h.loadUser(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req UpdateUserRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	actorID := middleware.GetUserID(r.Context())
	if user.ID == actorID {
		respondError(w, apperrors.Validation("you cannot change your own role"))
		return
	}

	user.GlobalRole = models.GlobalRole(req.GlobalRole)
	if err := h.db.WithContext(r.Context()).Save(user).Error; err != nil {
		respondError(w, err)
		return
	}

	h.audit.Record(r.Context(), actorID, nil, "user.role_changed", map[string]string{
		"user_id": user.ID.String(),
		"role":    req.GlobalRole,
	})
	writeJSON(w, http.StatusOK, userToDTO(user))
}

// ListCommunities handles GET /api/v1/admin/communities
func (h *AdminHandler) ListCommunities(w http.ResponseWriter, r *http.Request) {
	page := parsePagination(r)
	communities, total, err := h.communities.ListAll(r.Context(), page.Offset(), page.PerPage)
	if err != nil {
		respondError(w, err)
		return
	}

	items := make([]CommunityResponse, len(communities))
	for i := range communities {
		items[i] = communityToResponse(&communities[i])
	}
	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Data:       items,
		Total:      total,
		Page:       page.Page,
		PerPage:    page.PerPage,
		TotalPages: totalPages(total, page.PerPage),
	})
}

type UpdateCommunityStatusRequest struct {
	Status string `json:"status"`
}

func (r UpdateCommunityStatusRequest) Validate() map[string]string {
	errs := make(map[string]string)
	switch models.CommunityStatus(r.Status) {
	case models.CommunityStatusActive, models.CommunityStatusSuspended:
	default:
		errs["status"] = "Status must be active or suspended"
	}
	return errs
}

// UpdateCommunityStatus handles PUT /api/v1/admin/communities/{communityID}/status
func (h *AdminHandler) UpdateCommunityStatus(w http.ResponseWriter, r *http.Request) {
	communityID, err := uuid.Parse(chi.URLParam(r, "communityID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid community ID"})
		return
	}

	var req UpdateCommunityStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	c, err := h.communities.SetStatus(r.Context(), middleware.GetUserID(r.Context()), communityID, models.CommunityStatus(req.Status))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, communityToResponse(c))
}

// DeleteCommunity handles DELETE /api/v1/admin/communities/{communityID}
func (h *AdminHandler) DeleteCommunity(w http.ResponseWriter, r *http.Request) {
	communityID, err := uuid.Parse(chi.URLParam(r, "communityID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid community ID"})
		return
	}

	if err := h.communities.Delete(r.Context(), middleware.GetUserID(r.Context()), communityID); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type ProvisionCommunityRequest struct {
	Name            string `json:"name"`
	Slug            string `json:"slug"`
	Description     string `json:"description,omitempty"`
	RequireApproval bool   `json:"require_approval,omitempty"`
	OwnerUserID     string `json:"owner_user_id"`
}

// ProvisionCommunity handles POST /api/v1/admin/communities: create a
// community on behalf of an existing user, who becomes its owner.
func (h *AdminHandler) ProvisionCommunity(w http.ResponseWriter, r *http.Request) {
	var req ProvisionCommunityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	ownerID, err := uuid.Parse(req.OwnerUserID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid owner user ID"})
		return
	}

	var owner models.User
	err = h.db.WithContext(r.Context()).First(&owner, ownerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(w, apperrors.NotFound("owner user not found"))
		return
	}
	if err != nil {
		respondError(w, err)
		return
	}

	c, err := h.communities.Create(r.Context(), middleware.GetUserID(r.Context()), ownerID, community.CreateInput{
		Name:            req.Name,
		Slug:            req.Slug,
		Description:     req.Description,
		RequireApproval: req.RequireApproval,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, communityToResponse(c))
}
