package middleware

import (
	"context"
	"net/http"

	"github.com/mistreatedbee/Communityhub-server/internal/database/models"
	"github.com/mistreatedbee/Communityhub-server/internal/membership"
)

// RequireCommunityRole is the one reusable authorization gate for
// community-scoped routes. In order: a platform super-admin passes the
// role check unconditionally (downstream queries still scope by the
// resolved community id); otherwise the community id is resolved from
// the request, the caller's active membership is looked up, and its
// role must be in the allowed set. With no roles given, any active
// membership passes, which is the form used by read-mostly endpoints.
//
// Every privileged community route composes through this gate.
func RequireCommunityRole(members *membership.Service, roles ...models.MembershipRole) func(http.Handler) http.Handler {
	allowed := make(map[models.MembershipRole]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			communityID, err := ResolveCommunityID(r)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Invalid community identifier")
				return
			}

			ctx := context.WithValue(r.Context(), CommunityIDKey, communityID)

			if IsSuperAdmin(ctx) {
				// Bypasses the membership check only. The community id
				// in context is still the resolved one.
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			m, err := members.EnsureMember(ctx, communityID, GetUserID(ctx))
			if err != nil {
				writeError(w, http.StatusForbidden, "Forbidden")
				return
			}
			if len(allowed) > 0 && !allowed[m.Role] {
				writeError(w, http.StatusForbidden, "Forbidden")
				return
			}

			ctx = context.WithValue(ctx, MembershipKey, m)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
