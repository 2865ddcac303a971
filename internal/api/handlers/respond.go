package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mistreatedbee/Communityhub-server/internal/apperrors"
	"github.com/mistreatedbee/Communityhub-server/internal/api/dto"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError is the single translation point from the service error
// taxonomy to HTTP status codes. Unmapped errors are logged and
// surface as a generic 500 without leaking internals.
func respondError(w http.ResponseWriter, err error) {
	var ae *apperrors.Error
	if !errors.As(err, &ae) || ae.Kind == apperrors.KindInternal {
		slog.Error("unhandled error", "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal server error"})
		return
	}

	status := http.StatusInternalServerError
	switch ae.Kind {
	case apperrors.KindUnauthorized:
		status = http.StatusUnauthorized
	case apperrors.KindAccountSuspended, apperrors.KindAccountBanned, apperrors.KindForbidden:
		status = http.StatusForbidden
	case apperrors.KindValidation:
		status = http.StatusBadRequest
	case apperrors.KindNotFound:
		status = http.StatusNotFound
	case apperrors.KindConflict:
		status = http.StatusConflict
	case apperrors.KindInvalidState, apperrors.KindInvitationInvalid:
		status = http.StatusUnprocessableEntity
	}

	writeJSON(w, status, dto.ErrorResponse{Error: ae.Message})
}

func parsePagination(r *http.Request) dto.PaginationParams {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	p := dto.PaginationParams{Page: page, PerPage: perPage}
	p.Normalize()
	return p
}

func totalPages(total int64, perPage int) int {
	pages := int(total) / perPage
	if int(total)%perPage > 0 {
		pages++
	}
	return pages
}
