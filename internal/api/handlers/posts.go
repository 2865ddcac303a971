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
	"github.com/mistreatedbee/Communityhub-server/internal/audit"
	"github.com/mistreatedbee/Communityhub-server/internal/database/models"
	"gorm.io/gorm"
)

type PostHandler struct {
	db    *gorm.DB
	audit *audit.Recorder
}

func NewPostHandler(db *gorm.DB, recorder *audit.Recorder) *PostHandler {
	return &PostHandler{db: db, audit: recorder}
}

type CreatePostRequest struct {
	Title       string `json:"title"`
	Body        string `json:"body,omitempty"`
	MediaFileID string `json:"media_file_id,omitempty"`
}

func (r CreatePostRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if r.Title == "" {
		errs["title"] = "Title is required"
	}
	if r.MediaFileID != "" {
		if _, err := uuid.Parse(r.MediaFileID); err != nil {
			errs["media_file_id"] = "Invalid file ID"
		}
	}
	return errs
}

type PostResponse struct {
	ID          string `json:"id"`
	CommunityID string `json:"community_id"`
	AuthorID    string `json:"author_id"`
	AuthorName  string `json:"author_name,omitempty"`
	Title       string `json:"title"`
	Body        string `json:"body,omitempty"`
	Pinned      bool   `json:"pinned"`
	MediaFileID string `json:"media_file_id,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func postToResponse(p *models.Post) PostResponse {
	resp := PostResponse{
		ID:          p.ID.String(),
		CommunityID: p.CommunityID.String(),
		AuthorID:    p.AuthorID.String(),
		Title:       p.Title,
		Body:        p.Body,
		Pinned:      p.Pinned,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339),
	}
	if p.MediaFileID != nil {
		resp.MediaFileID = p.MediaFileID.String()
	}
	if p.Author != nil {
		resp.AuthorName = p.Author.Name
	}
	return resp
}

// Create handles POST /api/v1/communities/{communityID}/posts
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	communityID := middleware.GetCommunityID(r.Context())
	userID := middleware.GetUserID(r.Context())

	post := models.Post{
		CommunityID: communityID,
		AuthorID:    userID,
		Title:       req.Title,
		Body:        req.Body,
	}
	if req.MediaFileID != "" {
		fileID, _ := uuid.Parse(req.MediaFileID)
		if err := ensureCommunityFile(r.Context(), h.db, communityID, fileID, models.FilePurposePostMedia); err != nil {
			respondError(w, err)
			return
		}
		post.MediaFileID = &fileID
	}

	if err := h.db.WithContext(r.Context()).Create(&post).Error; err != nil {
		respondError(w, err)
		return
	}

	h.audit.Record(r.Context(), userID, &communityID, "post.created", map[string]string{"post_id": post.ID.String()})
	writeJSON(w, http.StatusCreated, postToResponse(&post))
}

// List handles GET /api/v1/communities/{communityID}/posts. Pinned
// posts sort first.
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	communityID := middleware.GetCommunityID(r.Context())
	page := parsePagination(r)

	var total int64
	if err := h.db.WithContext(r.Context()).Model(&models.Post{}).
		Where("community_id = ?", communityID).
		Count(&total).Error; err != nil {
		respondError(w, err)
		return
	}

	var posts []models.Post
	err := h.db.WithContext(r.Context()).
		Preload("Author").
		Where("community_id = ?", communityID).
		Order("pinned DESC, created_at DESC").
		Offset(page.Offset()).Limit(page.PerPage).
		Find(&posts).Error
	if err != nil {
		respondError(w, err)
		return
	}

	items := make([]PostResponse, len(posts))
	for i := range posts {
		items[i] = postToResponse(&posts[i])
	}
	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Data:       items,
		Total:      total,
		Page:       page.Page,
		PerPage:    page.PerPage,
		TotalPages: totalPages(total, page.PerPage),
	})
}

func (h *PostHandler) load(r *http.Request) (*models.Post, error) {
	postID, err := uuid.Parse(chi.URLParam(r, "postID"))
	if err != nil {
		return nil, apperrors.Validation("invalid post ID")
	}

	var post models.Post
	err = h.db.WithContext(r.Context()).
		Preload("Author").
		Where("id = ? AND community_id = ?", postID, middleware.GetCommunityID(r.Context())).
		First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("post not found")
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// Get handles GET /api/v1/communities/{communityID}/posts/{postID}
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	post, err := h.load(r)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, postToResponse(post))
}

type UpdatePostRequest struct {
	Title *string `json:"title,omitempty"`
	Body  *string `json:"body,omitempty"`
}

// Update handles PUT /api/v1/communities/{communityID}/posts/{postID}.
// Only the author or a moderator-or-above may edit.
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	post, err := h.load(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if !canModeratePost(r, post) {
		respondError(w, apperrors.Forbidden("you cannot edit this post"))
		return
	}

	var req UpdatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.Title != nil {
		if *req.Title == "" {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Title cannot be empty"})
			return
		}
		post.Title = *req.Title
	}
	if req.Body != nil {
		post.Body = *req.Body
	}

	if err := h.db.WithContext(r.Context()).Save(post).Error; err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, postToResponse(post))
}

type PinPostRequest struct {
	Pinned bool `json:"pinned"`
}

// Pin handles PUT /api/v1/communities/{communityID}/posts/{postID}/pin
func (h *PostHandler) Pin(w http.ResponseWriter, r *http.Request) {
	post, err := h.load(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req PinPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	post.Pinned = req.Pinned
	if err := h.db.WithContext(r.Context()).Save(post).Error; err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, postToResponse(post))
}

// Delete handles DELETE /api/v1/communities/{communityID}/posts/{postID}
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	post, err := h.load(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if !canModeratePost(r, post) {
		respondError(w, apperrors.Forbidden("you cannot delete this post"))
		return
	}

	if err := h.db.WithContext(r.Context()).Delete(post).Error; err != nil {
		respondError(w, err)
		return
	}

	communityID := middleware.GetCommunityID(r.Context())
	h.audit.Record(r.Context(), middleware.GetUserID(r.Context()), &communityID, "post.deleted", map[string]string{"post_id": post.ID.String()})
	w.WriteHeader(http.StatusNoContent)
}

// canModeratePost reports whether the caller is the author or holds a
// moderation role in the community.
func canModeratePost(r *http.Request, post *models.Post) bool {
	if middleware.IsSuperAdmin(r.Context()) {
		return true
	}
	if post.AuthorID == middleware.GetUserID(r.Context()) {
		return true
	}
	m := middleware.GetMembership(r.Context())
	return m != nil && models.RoleRank(m.Role) >= models.RoleRank(models.MembershipRoleModerator)
}
