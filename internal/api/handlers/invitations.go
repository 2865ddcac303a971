package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mistreatedbee/Communityhub-server/internal/api/dto"
	"github.com/mistreatedbee/Communityhub-server/internal/api/middleware"
	"github.com/mistreatedbee/Communityhub-server/internal/auth"
	"github.com/mistreatedbee/Communityhub-server/internal/database/models"
	"github.com/mistreatedbee/Communityhub-server/internal/invitations"
)

type InvitationHandler struct {
	invitations *invitations.Service
	auth        *auth.Service
}

func NewInvitationHandler(invs *invitations.Service, authService *auth.Service) *InvitationHandler {
	return &InvitationHandler{invitations: invs, auth: authService}
}

type CreateInvitationRequest struct {
	Email   string `json:"email"`
	Role    string `json:"role,omitempty"`
	TTLDays int    `json:"ttl_days,omitempty"`
}

type InvitationResponse struct {
	ID          string `json:"id"`
	CommunityID string `json:"community_id"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	Status      string `json:"status"`
	ExpiresAt   string `json:"expires_at"`
	InvitedBy   string `json:"invited_by"`
	CreatedAt   string `json:"created_at"`
}

func invitationToResponse(inv *models.Invitation) InvitationResponse {
	return InvitationResponse{
		ID:          inv.ID.String(),
		CommunityID: inv.CommunityID.String(),
		Email:       inv.Email,
		Role:        string(inv.Role),
		Status:      string(invitations.Derive(inv, time.Now().UTC())),
		ExpiresAt:   inv.ExpiresAt.Format(time.RFC3339),
		InvitedBy:   inv.InvitedBy.String(),
		CreatedAt:   inv.CreatedAt.Format(time.RFC3339),
	}
}

// Create handles POST /api/v1/communities/{communityID}/invitations
func (h *InvitationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	inv, err := h.invitations.Create(r.Context(), middleware.GetCommunityID(r.Context()), middleware.GetUserID(r.Context()), invitations.CreateInput{
		Email:   req.Email,
		Role:    models.MembershipRole(req.Role),
		TTLDays: req.TTLDays,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, invitationToResponse(inv))
}

// List handles GET /api/v1/communities/{communityID}/invitations
func (h *InvitationHandler) List(w http.ResponseWriter, r *http.Request) {
	page := parsePagination(r)
	invs, total, err := h.invitations.List(r.Context(), middleware.GetCommunityID(r.Context()), page.Offset(), page.PerPage)
	if err != nil {
		respondError(w, err)
		return
	}

	items := make([]InvitationResponse, len(invs))
	for i := range invs {
		items[i] = invitationToResponse(&invs[i])
	}
	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Data:       items,
		Total:      total,
		Page:       page.Page,
		PerPage:    page.PerPage,
		TotalPages: totalPages(total, page.PerPage),
	})
}

// Resend handles POST /api/v1/communities/{communityID}/invitations/{invitationID}/resend
func (h *InvitationHandler) Resend(w http.ResponseWriter, r *http.Request) {
	invitationID, err := uuid.Parse(chi.URLParam(r, "invitationID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid invitation ID"})
		return
	}

	inv, err := h.invitations.Resend(r.Context(), middleware.GetUserID(r.Context()), middleware.GetCommunityID(r.Context()), invitationID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invitationToResponse(inv))
}

// Revoke handles DELETE /api/v1/communities/{communityID}/invitations/{invitationID}
func (h *InvitationHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	invitationID, err := uuid.Parse(chi.URLParam(r, "invitationID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid invitation ID"})
		return
	}

	_, err = h.invitations.Revoke(r.Context(), middleware.GetUserID(r.Context()), middleware.GetCommunityID(r.Context()), invitationID)
	if err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type AcceptInvitationRequest struct {
	Token string `json:"token"`
}

// Accept handles POST /api/v1/invitations/accept. The token is the
// only lookup key; no community id appears in the path because the
// caller is not yet a member.
func (h *InvitationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	var req AcceptInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.Token == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Token is required"})
		return
	}

	user, err := h.auth.GetUserByID(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}

	m, err := h.invitations.Accept(r.Context(), req.Token, user)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, membershipToResponse(m))
}
