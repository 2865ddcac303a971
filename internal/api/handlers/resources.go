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
)

type ResourceHandler struct {
	db *gorm.DB
}

func NewResourceHandler(db *gorm.DB) *ResourceHandler {
	return &ResourceHandler{db: db}
}

type CreateResourceRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	FileID      string `json:"file_id,omitempty"`
	ThumbFileID string `json:"thumbnail_file_id,omitempty"`
	ProgramID   string `json:"program_id,omitempty"`
}

func (r CreateResourceRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if r.Title == "" {
		errs["title"] = "Title is required"
	}
	if r.URL == "" && r.FileID == "" {
		errs["url"] = "A resource needs a URL or a file"
	}
	for field, raw := range map[string]string{"file_id": r.FileID, "thumbnail_file_id": r.ThumbFileID, "program_id": r.ProgramID} {
		if raw == "" {
			continue
		}
		if _, err := uuid.Parse(raw); err != nil {
			errs[field] = "Invalid ID"
		}
	}
	return errs
}

type ResourceResponse struct {
	ID          string `json:"id"`
	CommunityID string `json:"community_id"`
	CreatedBy   string `json:"created_by"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	FileID      string `json:"file_id,omitempty"`
	ThumbFileID string `json:"thumbnail_file_id,omitempty"`
	ProgramID   string `json:"program_id,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func resourceToResponse(res *models.Resource) ResourceResponse {
	resp := ResourceResponse{
		ID:          res.ID.String(),
		CommunityID: res.CommunityID.String(),
		CreatedBy:   res.CreatedBy.String(),
		Title:       res.Title,
		Description: res.Description,
		URL:         res.URL,
		CreatedAt:   res.CreatedAt.Format(time.RFC3339),
	}
	if res.FileID != nil {
		resp.FileID = res.FileID.String()
	}
	if res.ThumbID != nil {
		resp.ThumbFileID = res.ThumbID.String()
	}
	if res.ProgramID != nil {
		resp.ProgramID = res.ProgramID.String()
	}
	return resp
}

// Create handles POST /api/v1/communities/{communityID}/resources.
// Every referenced file and program must belong to the same community.
func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateResourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	communityID := middleware.GetCommunityID(r.Context())
	res := models.Resource{
		CommunityID: communityID,
		CreatedBy:   middleware.GetUserID(r.Context()),
		Title:       req.Title,
		Description: req.Description,
		URL:         req.URL,
	}

	if req.FileID != "" {
		fileID, _ := uuid.Parse(req.FileID)
		if err := ensureCommunityFile(r.Context(), h.db, communityID, fileID, models.FilePurposeResource); err != nil {
			respondError(w, err)
			return
		}
		res.FileID = &fileID
	}
	if req.ThumbFileID != "" {
		thumbID, _ := uuid.Parse(req.ThumbFileID)
		if err := ensureCommunityFile(r.Context(), h.db, communityID, thumbID, models.FilePurposeResourceThumb); err != nil {
			respondError(w, err)
			return
		}
		res.ThumbID = &thumbID
	}
	if req.ProgramID != "" {
		programID, _ := uuid.Parse(req.ProgramID)
		if err := ensureCommunityProgram(r.Context(), h.db, communityID, programID); err != nil {
			respondError(w, err)
			return
		}
		res.ProgramID = &programID
	}

	if err := h.db.WithContext(r.Context()).Create(&res).Error; err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resourceToResponse(&res))
}

// List handles GET /api/v1/communities/{communityID}/resources with an
// optional program_id filter.
func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	communityID := middleware.GetCommunityID(r.Context())
	page := parsePagination(r)

	query := h.db.WithContext(r.Context()).Model(&models.Resource{}).
		Where("community_id = ?", communityID)
	if raw := r.URL.Query().Get("program_id"); raw != "" {
		programID, err := uuid.Parse(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid program ID"})
			return
		}
		query = query.Where("program_id = ?", programID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondError(w, err)
		return
	}

	var resources []models.Resource
	err := query.Order("created_at DESC").
		Offset(page.Offset()).Limit(page.PerPage).
		Find(&resources).Error
	if err != nil {
		respondError(w, err)
		return
	}

	items := make([]ResourceResponse, len(resources))
	for i := range resources {
		items[i] = resourceToResponse(&resources[i])
	}
	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Data:       items,
		Total:      total,
		Page:       page.Page,
		PerPage:    page.PerPage,
		TotalPages: totalPages(total, page.PerPage),
	})
}

func (h *ResourceHandler) load(r *http.Request) (*models.Resource, error) {
	resourceID, err := uuid.Parse(chi.URLParam(r, "resourceID"))
	if err != nil {
		return nil, apperrors.Validation("invalid resource ID")
	}

	var res models.Resource
	err = h.db.WithContext(r.Context()).
		Where("id = ? AND community_id = ?", resourceID, middleware.GetCommunityID(r.Context())).
		First(&res).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("resource not found")
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Get handles GET /api/v1/communities/{communityID}/resources/{resourceID}
func (h *ResourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	res, err := h.load(r)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resourceToResponse(res))
}

type UpdateResourceRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	URL         *string `json:"url,omitempty"`
}

// Update handles PUT /api/v1/communities/{communityID}/resources/{resourceID}
func (h *ResourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	res, err := h.load(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req UpdateResourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.Title != nil {
		if *req.Title == "" {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Title cannot be empty"})
			return
		}
		res.Title = *req.Title
	}
	if req.Description != nil {
		res.Description = *req.Description
	}
	if req.URL != nil {
		res.URL = *req.URL
	}

	if err := h.db.WithContext(r.Context()).Save(res).Error; err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resourceToResponse(res))
}

// Delete handles DELETE /api/v1/communities/{communityID}/resources/{resourceID}
func (h *ResourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	res, err := h.load(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.db.WithContext(r.Context()).Delete(res).Error; err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
