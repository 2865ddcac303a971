package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/mistreatedbee/Communityhub-server/internal/api/dto"
	"github.com/mistreatedbee/Communityhub-server/internal/api/middleware"
	"github.com/mistreatedbee/Communityhub-server/internal/community"
	"github.com/mistreatedbee/Communityhub-server/internal/database/models"
	"github.com/mistreatedbee/Communityhub-server/internal/membership"
)

type CommunityHandler struct {
	communities *community.Service
	members     *membership.Service
}

func NewCommunityHandler(communities *community.Service, members *membership.Service) *CommunityHandler {
	return &CommunityHandler{communities: communities, members: members}
}

type CreateCommunityRequest struct {
	Name            string `json:"name"`
	Slug            string `json:"slug"`
	Description     string `json:"description,omitempty"`
	RequireApproval bool   `json:"require_approval,omitempty"`
}

type CommunityResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Slug            string `json:"slug"`
	Description     string `json:"description,omitempty"`
	Status          string `json:"status"`
	RequireApproval bool   `json:"require_approval"`
	LogoFileID      string `json:"logo_file_id,omitempty"`
	CreatedAt       string `json:"created_at"`
}

func communityToResponse(c *models.Community) CommunityResponse {
	resp := CommunityResponse{
		ID:              c.ID.String(),
		Name:            c.Name,
		Slug:            c.Slug,
		Description:     c.Description,
		Status:          string(c.Status),
		RequireApproval: c.RequireApproval,
		CreatedAt:       c.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if c.LogoFileID != nil {
		resp.LogoFileID = c.LogoFileID.String()
	}
	return resp
}

// Create handles POST /api/v1/communities. The caller becomes the
// owner; re-running a claim that half-applied finds the existing
// community instead of failing.
func (h *CommunityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCommunityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	userID := middleware.GetUserID(r.Context())
	c, err := h.communities.Create(r.Context(), userID, userID, community.CreateInput{
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

// ListMine handles GET /api/v1/communities
func (h *CommunityHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	communities, err := h.communities.ListForUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}

	resp := make([]CommunityResponse, len(communities))
	for i := range communities {
		resp[i] = communityToResponse(&communities[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/communities/{communityID}
func (h *CommunityHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.communities.Get(r.Context(), middleware.GetCommunityID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, communityToResponse(c))
}

type UpdateCommunityRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	LogoFileID  *string `json:"logo_file_id,omitempty"`
}

// Update handles PUT /api/v1/communities/{communityID}
func (h *CommunityHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateCommunityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	input := community.UpdateInput{
		Name:        req.Name,
		Description: req.Description,
	}
	if req.LogoFileID != nil {
		id, err := uuid.Parse(*req.LogoFileID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid logo file ID"})
			return
		}
		input.LogoFileID = &id
	}

	c, err := h.communities.Update(r.Context(), middleware.GetUserID(r.Context()), middleware.GetCommunityID(r.Context()), input)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, communityToResponse(c))
}

type UpdateSettingsRequest struct {
	RequireApproval bool `json:"require_approval"`
}

// UpdateSettings handles PUT /api/v1/communities/{communityID}/settings
func (h *CommunityHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	c, err := h.communities.UpdateSettings(r.Context(), middleware.GetUserID(r.Context()), middleware.GetCommunityID(r.Context()), req.RequireApproval)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, communityToResponse(c))
}

// Join handles POST /api/v1/communities/{communityID}/join. The
// community id comes from the path; the resulting status depends on
// the community's approval policy.
func (h *CommunityHandler) Join(w http.ResponseWriter, r *http.Request) {
	communityID, err := middleware.ResolveCommunityID(r)
	if err != nil {
		respondError(w, err)
		return
	}

	m, err := h.members.Join(r.Context(), communityID, middleware.GetUserID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, membershipToResponse(m))
}
