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

type AnnouncementHandler struct {
	db *gorm.DB
}

func NewAnnouncementHandler(db *gorm.DB) *AnnouncementHandler {
	return &AnnouncementHandler{db: db}
}

type CreateAnnouncementRequest struct {
	Title            string `json:"title"`
	Body             string `json:"body,omitempty"`
	AttachmentFileID string `json:"attachment_file_id,omitempty"`
}

func (r CreateAnnouncementRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if r.Title == "" {
		errs["title"] = "Title is required"
	}
	if r.AttachmentFileID != "" {
		if _, err := uuid.Parse(r.AttachmentFileID); err != nil {
			errs["attachment_file_id"] = "Invalid file ID"
		}
	}
	return errs
}

type AnnouncementResponse struct {
	ID               string `json:"id"`
	CommunityID      string `json:"community_id"`
	CreatedBy        string `json:"created_by"`
	Title            string `json:"title"`
	Body             string `json:"body,omitempty"`
	AttachmentFileID string `json:"attachment_file_id,omitempty"`
	CreatedAt        string `json:"created_at"`
}

func announcementToResponse(a *models.Announcement) AnnouncementResponse {
	resp := AnnouncementResponse{
		ID:          a.ID.String(),
		CommunityID: a.CommunityID.String(),
		CreatedBy:   a.CreatedBy.String(),
		Title:       a.Title,
		Body:        a.Body,
		CreatedAt:   a.CreatedAt.Format(time.RFC3339),
	}
	if a.AttachmentFileID != nil {
		resp.AttachmentFileID = a.AttachmentFileID.String()
	}
	return resp
}

// Create handles POST /api/v1/communities/{communityID}/announcements
func (h *AnnouncementHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAnnouncementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	communityID := middleware.GetCommunityID(r.Context())
	ann := models.Announcement{
		CommunityID: communityID,
		CreatedBy:   middleware.GetUserID(r.Context()),
		Title:       req.Title,
		Body:        req.Body,
	}
	if req.AttachmentFileID != "" {
		fileID, _ := uuid.Parse(req.AttachmentFileID)
		if err := ensureCommunityFile(r.Context(), h.db, communityID, fileID, models.FilePurposeAnnouncement); err != nil {
			respondError(w, err)
			return
		}
		ann.AttachmentFileID = &fileID
	}

	if err := h.db.WithContext(r.Context()).Create(&ann).Error; err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, announcementToResponse(&ann))
}

// List handles GET /api/v1/communities/{communityID}/announcements
func (h *AnnouncementHandler) List(w http.ResponseWriter, r *http.Request) {
	communityID := middleware.GetCommunityID(r.Context())
	page := parsePagination(r)

	var total int64
	if err := h.db.WithContext(r.Context()).Model(&models.Announcement{}).
		Where("community_id = ?", communityID).Count(&total).Error; err != nil {
		respondError(w, err)
		return
	}

	var announcements []models.Announcement
	err := h.db.WithContext(r.Context()).
		Where("community_id = ?", communityID).
		Order("created_at DESC").
		Offset(page.Offset()).Limit(page.PerPage).
		Find(&announcements).Error
	if err != nil {
		respondError(w, err)
		return
	}

	items := make([]AnnouncementResponse, len(announcements))
	for i := range announcements {
		items[i] = announcementToResponse(&announcements[i])
	}
	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Data:       items,
		Total:      total,
		Page:       page.Page,
		PerPage:    page.PerPage,
		TotalPages: totalPages(total, page.PerPage),
	})
}

func (h *AnnouncementHandler) load(r *http.Request) (*models.Announcement, error) {
	announcementID, err := uuid.Parse(chi.URLParam(r, "announcementID"))
	if err != nil {
		return nil, apperrors.Validation("invalid announcement ID")
	}

	var ann models.Announcement
	err = h.db.WithContext(r.Context()).
		Where("id = ? AND community_id = ?", announcementID, middleware.GetCommunityID(r.Context())).
		First(&ann).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("announcement not found")
	}
	if err != nil {
		return nil, err
	}
	return &ann, nil
}

// Get handles GET /api/v1/communities/{communityID}/announcements/{announcementID}
func (h *AnnouncementHandler) Get(w http.ResponseWriter, r *http.Request) {
	ann, err := h.load(r)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, announcementToResponse(ann))
}

type UpdateAnnouncementRequest struct {
	Title *string `json:"title,omitempty"`
	Body  *string `json:"body,omitempty"`
}

// Update handles PUT /api/v1/communities/{communityID}/announcements/{announcementID}
func (h *AnnouncementHandler) Update(w http.ResponseWriter, r *http.Request) {
	ann, err := h.load(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req UpdateAnnouncementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.Title != nil {
		if *req.Title == "" {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Title cannot be empty"})
			return
		}
		ann.Title = *req.Title
	}
	if req.Body != nil {
		ann.Body = *req.Body
	}

	if err := h.db.WithContext(r.Context()).Save(ann).Error; err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, announcementToResponse(ann))
}

// Delete handles DELETE /api/v1/communities/{communityID}/announcements/{announcementID}
func (h *AnnouncementHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ann, err := h.load(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.db.WithContext(r.Context()).Delete(ann).Error; err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
