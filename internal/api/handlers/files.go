package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mistreatedbee/Communityhub-server/internal/api/dto"
	"github.com/mistreatedbee/Communityhub-server/internal/api/middleware"
	"github.com/mistreatedbee/Communityhub-server/internal/database/models"
	"github.com/mistreatedbee/Communityhub-server/internal/storage"
)

// maxUploadMemory bounds the multipart parse buffer, not the file size.
const maxUploadMemory = 32 << 20

type FileHandler struct {
	files *storage.FileService
}

func NewFileHandler(files *storage.FileService) *FileHandler {
	return &FileHandler{files: files}
}

type FileResponse struct {
	ID          string `json:"id"`
	CommunityID string `json:"community_id"`
	UploadedBy  string `json:"uploaded_by"`
	Purpose     string `json:"purpose"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	CreatedAt   string `json:"created_at"`
}

func fileToResponse(f *models.StoredFile) FileResponse {
	return FileResponse{
		ID:          f.ID.String(),
		CommunityID: f.CommunityID.String(),
		UploadedBy:  f.UploadedBy.String(),
		Purpose:     string(f.Purpose),
		Filename:    f.Filename,
		ContentType: f.ContentType,
		Size:        f.Size,
		CreatedAt:   f.CreatedAt.Format(time.RFC3339),
	}
}

// Upload handles POST /api/v1/communities/{communityID}/files as a
// multipart form with a "file" part and a "purpose" field.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "A file part is required"})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	stored, err := h.files.Upload(r.Context(), middleware.GetCommunityID(r.Context()), middleware.GetUserID(r.Context()), storage.UploadInput{
		Purpose:     models.FilePurpose(r.FormValue("purpose")),
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, fileToResponse(stored))
}

// Download handles GET /api/v1/communities/{communityID}/files/{fileID}
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	fileID, err := uuid.Parse(chi.URLParam(r, "fileID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid file ID"})
		return
	}

	file, body, err := h.files.Open(r.Context(), middleware.GetCommunityID(r.Context()), fileID)
	if err != nil {
		respondError(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	_, _ = io.Copy(w, body)
}

// Delete handles DELETE /api/v1/communities/{communityID}/files/{fileID}
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	fileID, err := uuid.Parse(chi.URLParam(r, "fileID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid file ID"})
		return
	}

	if err := h.files.Delete(r.Context(), middleware.GetUserID(r.Context()), middleware.GetCommunityID(r.Context()), fileID); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
