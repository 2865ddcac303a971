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

type ProgramHandler struct {
	db *gorm.DB
}

func NewProgramHandler(db *gorm.DB) *ProgramHandler {
	return &ProgramHandler{db: db}
}

type CreateProgramRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (r CreateProgramRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if r.Name == "" {
		errs["name"] = "Name is required"
	}
	return errs
}

type ProgramResponse struct {
	ID            string `json:"id"`
	CommunityID   string `json:"community_id"`
	CreatedBy     string `json:"created_by"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	EnrolledCount int64  `json:"enrolled_count"`
	Enrolled      bool   `json:"enrolled"`
	CreatedAt     string `json:"created_at"`
}

func (h *ProgramHandler) programToResponse(r *http.Request, p *models.Program) ProgramResponse {
	resp := ProgramResponse{
		ID:          p.ID.String(),
		CommunityID: p.CommunityID.String(),
		CreatedBy:   p.CreatedBy.String(),
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
	h.db.WithContext(r.Context()).Model(&models.ProgramEnrollment{}).
		Where("program_id = ?", p.ID).Count(&resp.EnrolledCount)

	var mine int64
	h.db.WithContext(r.Context()).Model(&models.ProgramEnrollment{}).
		Where("program_id = ? AND user_id = ?", p.ID, middleware.GetUserID(r.Context())).
		Count(&mine)
	resp.Enrolled = mine > 0
	return resp
}

// Create handles POST /api/v1/communities/{communityID}/programs
func (h *ProgramHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProgramRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	program := models.Program{
		CommunityID: middleware.GetCommunityID(r.Context()),
		CreatedBy:   middleware.GetUserID(r.Context()),
		Name:        req.Name,
		Description: req.Description,
	}
	if err := h.db.WithContext(r.Context()).Create(&program).Error; err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.programToResponse(r, &program))
}

// List handles GET /api/v1/communities/{communityID}/programs
func (h *ProgramHandler) List(w http.ResponseWriter, r *http.Request) {
	communityID := middleware.GetCommunityID(r.Context())
	page := parsePagination(r)

	var total int64
	if err := h.db.WithContext(r.Context()).Model(&models.Program{}).
		Where("community_id = ?", communityID).Count(&total).Error; err != nil {
		respondError(w, err)
		return
	}

	var programs []models.Program
	err := h.db.WithContext(r.Context()).
		Where("community_id = ?", communityID).
		Order("name ASC").
		Offset(page.Offset()).Limit(page.PerPage).
		Find(&programs).Error
	if err != nil {
		respondError(w, err)
		return
	}

	items := make([]ProgramResponse, len(programs))
	for i := range programs {
		items[i] = h.programToResponse(r, &programs[i])
	}
	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Data:       items,
		Total:      total,
		Page:       page.Page,
		PerPage:    page.PerPage,
		TotalPages: totalPages(total, page.PerPage),
	})
}

func (h *ProgramHandler) load(r *http.Request) (*models.Program, error) {
	programID, err := uuid.Parse(chi.URLParam(r, "programID"))
	if err != nil {
		return nil, apperrors.Validation("invalid program ID")
	}

	var program models.Program
	err = h.db.WithContext(r.Context()).
		Where("id = ? AND community_id = ?", programID, middleware.GetCommunityID(r.Context())).
		First(&program).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("program not found")
	}
	if err != nil {
		return nil, err
	}
	return &program, nil
}

// Get handles GET /api/v1/communities/{communityID}/programs/{programID}
func (h *ProgramHandler) Get(w http.ResponseWriter, r *http.Request) {
	program, err := h.load(r)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.programToResponse(r, program))
}

type UpdateProgramRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Update handles PUT /api/v1/communities/{communityID}/programs/{programID}
func (h *ProgramHandler) Update(w http.ResponseWriter, r *http.Request) {
	program, err := h.load(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req UpdateProgramRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.Name != nil {
		if *req.Name == "" {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Name cannot be empty"})
			return
		}
		program.Name = *req.Name
	}
	if req.Description != nil {
		program.Description = *req.Description
	}

	if err := h.db.WithContext(r.Context()).Save(program).Error; err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.programToResponse(r, program))
}

// Delete handles DELETE /api/v1/communities/{communityID}/programs/{programID}.
// Resources pointing at the program keep their rows but lose the link.
func (h *ProgramHandler) Delete(w http.ResponseWriter, r *http.Request) {
	program, err := h.load(r)
	if err != nil {
		respondError(w, err)
		return
	}

	err = h.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("program_id = ?", program.ID).Delete(&models.ProgramEnrollment{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Resource{}).
			Where("program_id = ?", program.ID).
			Update("program_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(program).Error
	})
	if err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Enroll handles POST /api/v1/communities/{communityID}/programs/{programID}/enroll.
// Enrolling twice is a no-op.
func (h *ProgramHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	program, err := h.load(r)
	if err != nil {
		respondError(w, err)
		return
	}

	enrollment := models.ProgramEnrollment{
		ProgramID:   program.ID,
		UserID:      middleware.GetUserID(r.Context()),
		CommunityID: program.CommunityID,
	}
	err = h.db.WithContext(r.Context()).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "program_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&enrollment).Error
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Enrolled"})
}

// Withdraw handles POST /api/v1/communities/{communityID}/programs/{programID}/withdraw
func (h *ProgramHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	program, err := h.load(r)
	if err != nil {
		respondError(w, err)
		return
	}

	err = h.db.WithContext(r.Context()).
		Where("program_id = ? AND user_id = ?", program.ID, middleware.GetUserID(r.Context())).
		Delete(&models.ProgramEnrollment{}).Error
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Withdrawn"})
}
