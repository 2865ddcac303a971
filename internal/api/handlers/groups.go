package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mistreatedbee/Communityhub-server/internal/api/dto"
	"github.com/mistreatedbee/Communityhub-server/internal/api/middleware"
	"github.com/mistreatedbee/Communityhub-server/internal/apperrors"
	"github.com/mistreatedbee/Communityhub-server/internal/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GroupHandler struct {
	db *gorm.DB
}

func NewGroupHandler(db *gorm.DB) *GroupHandler {
	return &GroupHandler{db: db}
}

type CreateGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (r CreateGroupRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if r.Name == "" {
		errs["name"] = "Name is required"
	}
	return errs
}

type GroupResponse struct {
	ID          string `json:"id"`
	CommunityID string `json:"community_id"`
	CreatedBy   string `json:"created_by"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MemberCount int64  `json:"member_count"`
	CreatedAt   string `json:"created_at"`
}

func (h *GroupHandler) groupToResponse(r *http.Request, g *models.Group) GroupResponse {
	var count int64
	h.db.WithContext(r.Context()).Model(&models.GroupMember{}).
		Where("group_id = ?", g.ID).Count(&count)
	return GroupResponse{
		ID:          g.ID.String(),
		CommunityID: g.CommunityID.String(),
		CreatedBy:   g.CreatedBy.String(),
		Name:        g.Name,
		Description: g.Description,
		MemberCount: count,
		CreatedAt:   g.CreatedAt.Format(time.RFC3339),
	}
}

// Create handles POST /api/v1/communities/{communityID}/groups
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	group := models.Group{
		CommunityID: middleware.GetCommunityID(r.Context()),
		CreatedBy:   middleware.GetUserID(r.Context()),
		Name:        req.Name,
		Description: req.Description,
	}
	if err := h.db.WithContext(r.Context()).Create(&group).Error; err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.groupToResponse(r, &group))
}

// List handles GET /api/v1/communities/{communityID}/groups
func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	communityID := middleware.GetCommunityID(r.Context())
	page := parsePagination(r)

	var total int64
	if err := h.db.WithContext(r.Context()).Model(&models.Group{}).
		Where("community_id = ?", communityID).Count(&total).Error; err != nil {
		respondError(w, err)
		return
	}

	var groups []models.Group
	err := h.db.WithContext(r.Context()).
		Where("community_id = ?", communityID).
		Order("name ASC").
		Offset(page.Offset()).Limit(page.PerPage).
		Find(&groups).Error
	if err != nil {
		respondError(w, err)
		return
	}

	items := make([]GroupResponse, len(groups))
	for i := range groups {
		items[i] = h.groupToResponse(r, &groups[i])
	}
	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Data:       items,
		Total:      total,
		Page:       page.Page,
		PerPage:    page.PerPage,
		TotalPages: totalPages(total, page.PerPage),
	})
}

func (h *GroupHandler) load(r *http.Request) (*models.Group, error) {
	groupID, err := uuid.Parse(chi.URLParam(r, "groupID"))
	if err != nil {
		return nil, apperrors.Validation("invalid group ID")
	}

	var group models.Group
	err = h.db.WithContext(r.Context()).
		Where("id = ? AND community_id = ?", groupID, middleware.GetCommunityID(r.Context())).
		First(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("group not found")
	}
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// Get handles GET /api/v1/communities/{communityID}/groups/{groupID}
func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	group, err := h.load(r)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.groupToResponse(r, group))
}

type UpdateGroupRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Update handles PUT /api/v1/communities/{communityID}/groups/{groupID}
func (h *GroupHandler) Update(w http.ResponseWriter, r *http.Request) {
	group, err := h.load(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req UpdateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.Name != nil {
		if *req.Name == "" {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Name cannot be empty"})
			return
		}
		group.Name = *req.Name
	}
	if req.Description != nil {
		group.Description = *req.Description
	}

	if err := h.db.WithContext(r.Context()).Save(group).Error; err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.groupToResponse(r, group))
}

// Delete handles DELETE /api/v1/communities/{communityID}/groups/{groupID}
func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	group, err := h.load(r)
	if err != nil {
		respondError(w, err)
		return
	}

	err = h.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", group.ID).Delete(&models.GroupMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(group).Error
	})
	if err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Join handles POST /api/v1/communities/{communityID}/groups/{groupID}/join.
// Joining twice is a no-op.
func (h *GroupHandler) Join(w http.ResponseWriter, r *http.Request) {
	group, err := h.load(r)
	if err != nil {
		respondError(w, err)
		return
	}

	member := models.GroupMember{
		GroupID:     group.ID,
		UserID:      middleware.GetUserID(r.Context()),
		CommunityID: group.CommunityID,
	}
	err = h.db.WithContext(r.Context()).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "group_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&member).Error
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Joined group"})
}

// Leave handles POST /api/v1/communities/{communityID}/groups/{groupID}/leave
func (h *GroupHandler) Leave(w http.ResponseWriter, r *http.Request) {
	group, err := h.load(r)
	if err != nil {
		respondError(w, err)
		return
	}

	err = h.db.WithContext(r.Context()).
		Where("group_id = ? AND user_id = ?", group.ID, middleware.GetUserID(r.Context())).
		Delete(&models.GroupMember{}).Error
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Left group"})
}
