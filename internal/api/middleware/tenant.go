package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mistreatedbee/Communityhub-server/internal/apperrors"
)

// ResolveCommunityID derives the single authoritative community
// identifier for a request. The path-bound identifier always wins; a
// community id supplied in the query is only a fallback for routes
// with no path binding, and can never override the path. This is what
// stops a caller with credentials for community A from smuggling
// community B's id into the request elsewhere.
func ResolveCommunityID(r *http.Request) (uuid.UUID, error) {
	if raw := chi.URLParam(r, "communityID"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, apperrors.Validation("malformed community identifier")
		}
		return id, nil
	}

	if raw := r.URL.Query().Get("community_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, apperrors.Validation("malformed community identifier")
		}
		return id, nil
	}

	return uuid.Nil, apperrors.Validation("missing community identifier")
}
