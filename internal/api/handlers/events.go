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

type EventHandler struct {
	db *gorm.DB
}

func NewEventHandler(db *gorm.DB) *EventHandler {
	return &EventHandler{db: db}
}

type CreateEventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	StartsAt    string `json:"starts_at"`
	EndsAt      string `json:"ends_at,omitempty"`
	ThumbFileID string `json:"thumbnail_file_id,omitempty"`
}

func (r CreateEventRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if r.Title == "" {
		errs["title"] = "Title is required"
	}
	starts, err := time.Parse(time.RFC3339, r.StartsAt)
	if err != nil {
		errs["starts_at"] = "Must be an RFC 3339 timestamp"
	}
	if r.EndsAt != "" {
		ends, err := time.Parse(time.RFC3339, r.EndsAt)
		if err != nil {
			errs["ends_at"] = "Must be an RFC 3339 timestamp"
		} else if err == nil && errs["starts_at"] == "" && !ends.After(starts) {
			errs["ends_at"] = "Must be after starts_at"
		}
	}
	if r.ThumbFileID != "" {
		if _, err := uuid.Parse(r.ThumbFileID); err != nil {
			errs["thumbnail_file_id"] = "Invalid file ID"
		}
	}
	return errs
}

type EventResponse struct {
	ID          string `json:"id"`
	CommunityID string `json:"community_id"`
	CreatedBy   string `json:"created_by"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	StartsAt    string `json:"starts_at"`
	EndsAt      string `json:"ends_at,omitempty"`
	ThumbFileID string `json:"thumbnail_file_id,omitempty"`
	RSVPStatus  string `json:"rsvp_status,omitempty"`
	GoingCount  int64  `json:"going_count"`
	CreatedAt   string `json:"created_at"`
}

func (h *EventHandler) eventToResponse(r *http.Request, e *models.Event) EventResponse {
	resp := EventResponse{
		ID:          e.ID.String(),
		CommunityID: e.CommunityID.String(),
		CreatedBy:   e.CreatedBy.String(),
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
		StartsAt:    e.StartsAt.Format(time.RFC3339),
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
	}
	if e.EndsAt != nil {
		resp.EndsAt = e.EndsAt.Format(time.RFC3339)
	}
	if e.ThumbID != nil {
		resp.ThumbFileID = e.ThumbID.String()
	}

	h.db.WithContext(r.Context()).Model(&models.EventRSVP{}).
		Where("event_id = ? AND status = ?", e.ID, models.RSVPStatusGoing).
		Count(&resp.GoingCount)

	var mine models.EventRSVP
	err := h.db.WithContext(r.Context()).
		Where("event_id = ? AND user_id = ?", e.ID, middleware.GetUserID(r.Context())).
		First(&mine).Error
	if err == nil {
		resp.RSVPStatus = string(mine.Status)
	}
	return resp
}

// Create handles POST /api/v1/communities/{communityID}/events
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	communityID := middleware.GetCommunityID(r.Context())
	starts, _ := time.Parse(time.RFC3339, req.StartsAt)
	event := models.Event{
		CommunityID: communityID,
		CreatedBy:   middleware.GetUserID(r.Context()),
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    starts,
	}
	if req.EndsAt != "" {
		ends, _ := time.Parse(time.RFC3339, req.EndsAt)
		event.EndsAt = &ends
	}
	if req.ThumbFileID != "" {
		thumbID, _ := uuid.Parse(req.ThumbFileID)
		if err := ensureCommunityFile(r.Context(), h.db, communityID, thumbID, models.FilePurposeEventThumb); err != nil {
			respondError(w, err)
			return
		}
		event.ThumbID = &thumbID
	}

	if err := h.db.WithContext(r.Context()).Create(&event).Error; err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.eventToResponse(r, &event))
}

// List handles GET /api/v1/communities/{communityID}/events. By default
// only upcoming events are returned; past=true includes finished ones.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	communityID := middleware.GetCommunityID(r.Context())
	page := parsePagination(r)

	query := h.db.WithContext(r.Context()).Model(&models.Event{}).
		Where("community_id = ?", communityID)
	if r.URL.Query().Get("past") != "true" {
		query = query.Where("starts_at >= ?", time.Now().UTC())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondError(w, err)
		return
	}

	var events []models.Event
	err := query.Order("starts_at ASC").
		Offset(page.Offset()).Limit(page.PerPage).
		Find(&events).Error
	if err != nil {
		respondError(w, err)
		return
	}

	items := make([]EventResponse, len(events))
	for i := range events {
		items[i] = h.eventToResponse(r, &events[i])
	}
	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Data:       items,
		Total:      total,
		Page:       page.Page,
		PerPage:    page.PerPage,
		TotalPages: totalPages(total, page.PerPage),
	})
}

func (h *EventHandler) load(r *http.Request) (*models.Event, error) {
	eventID, err := uuid.Parse(chi.URLParam(r, "eventID"))
	if err != nil {
		return nil, apperrors.Validation("invalid event ID")
	}

	var event models.Event
	err = h.db.WithContext(r.Context()).
		Where("id = ? AND community_id = ?", eventID, middleware.GetCommunityID(r.Context())).
		First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("event not found")
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// Get handles GET /api/v1/communities/{communityID}/events/{eventID}
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, err := h.load(r)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.eventToResponse(r, event))
}

type UpdateEventRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Location    *string `json:"location,omitempty"`
	StartsAt    *string `json:"starts_at,omitempty"`
	EndsAt      *string `json:"ends_at,omitempty"`
}

// Update handles PUT /api/v1/communities/{communityID}/events/{eventID}
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	event, err := h.load(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req UpdateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.Title != nil {
		if *req.Title == "" {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Title cannot be empty"})
			return
		}
		event.Title = *req.Title
	}
	if req.Description != nil {
		event.Description = *req.Description
	}
	if req.Location != nil {
		event.Location = *req.Location
	}
	if req.StartsAt != nil {
		starts, err := time.Parse(time.RFC3339, *req.StartsAt)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "starts_at must be an RFC 3339 timestamp"})
			return
		}
		event.StartsAt = starts
	}
	if req.EndsAt != nil {
		if *req.EndsAt == "" {
			event.EndsAt = nil
		} else {
			ends, err := time.Parse(time.RFC3339, *req.EndsAt)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "ends_at must be an RFC 3339 timestamp"})
				return
			}
			event.EndsAt = &ends
		}
	}

	if err := h.db.WithContext(r.Context()).Save(event).Error; err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.eventToResponse(r, event))
}

// Delete handles DELETE /api/v1/communities/{communityID}/events/{eventID}
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	event, err := h.load(r)
	if err != nil {
		respondError(w, err)
		return
	}

	err = h.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", event.ID).Delete(&models.EventRSVP{}).Error; err != nil {
			return err
		}
		return tx.Delete(event).Error
	})
	if err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type RSVPRequest struct {
	Status string `json:"status"`
}

func (r RSVPRequest) Validate() map[string]string {
	errs := make(map[string]string)
	switch models.RSVPStatus(r.Status) {
	case models.RSVPStatusGoing, models.RSVPStatusMaybe, models.RSVPStatusDeclined:
	default:
		errs["status"] = "Status must be going, maybe, or declined"
	}
	return errs
}

// RSVP handles POST /api/v1/communities/{communityID}/events/{eventID}/rsvp.
// Repeated calls replace the caller's previous answer.
func (h *EventHandler) RSVP(w http.ResponseWriter, r *http.Request) {
	event, err := h.load(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req RSVPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	rsvp := models.EventRSVP{
		EventID:     event.ID,
		UserID:      middleware.GetUserID(r.Context()),
		CommunityID: event.CommunityID,
		Status:      models.RSVPStatus(req.Status),
	}
	err = h.db.WithContext(r.Context()).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
		}).
		Create(&rsvp).Error
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.eventToResponse(r, event))
}
