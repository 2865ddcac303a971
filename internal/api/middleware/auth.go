package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/mistreatedbee/Communityhub-server/internal/auth"
	"github.com/mistreatedbee/Communityhub-server/internal/database/models"
	"gorm.io/gorm"
)

type contextKey string

const (
	UserIDKey      contextKey = "user_id"
	UserEmailKey   contextKey = "user_email"
	GlobalRoleKey  contextKey = "global_role"
	CommunityIDKey contextKey = "community_id"
	MembershipKey  contextKey = "membership"
)

// Auth verifies the bearer credential and the account's current
// status. A structurally valid token for a suspended or banned account
// is still rejected; the status lookup happens on every request.
func Auth(jwtService *auth.JWTService, db *gorm.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string

			// 1. Check Authorization header (API requests)
			authHeader := r.Header.Get("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				token = strings.TrimPrefix(authHeader, "Bearer ")
			}

			// 2. Check cookie (browser clients)
			if token == "" {
				if cookie, err := r.Cookie("token"); err == nil && cookie.Value != "" {
					token = cookie.Value
				}
			}

			if token == "" {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			claims, err := jwtService.ValidateToken(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			var user models.User
			if err := db.WithContext(r.Context()).First(&user, claims.UserID).Error; err != nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			switch user.Status {
			case models.UserStatusSuspended:
				writeError(w, http.StatusForbidden, "Account is suspended")
				return
			case models.UserStatusBanned:
				writeError(w, http.StatusForbidden, "Account is banned")
				return
			}

			// The database row, not the token, is authoritative for the
			// global role.
			ctx := r.Context()
			ctx = context.WithValue(ctx, UserIDKey, user.ID)
			ctx = context.WithValue(ctx, UserEmailKey, user.Email)
			ctx = context.WithValue(ctx, GlobalRoleKey, user.GlobalRole)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Helper functions to extract values from context
func GetUserID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(UserIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

func GetUserEmail(ctx context.Context) string {
	if email, ok := ctx.Value(UserEmailKey).(string); ok {
		return email
	}
	return ""
}

func GetGlobalRole(ctx context.Context) models.GlobalRole {
	if role, ok := ctx.Value(GlobalRoleKey).(models.GlobalRole); ok {
		return role
	}
	return models.GlobalRoleUser
}

func IsSuperAdmin(ctx context.Context) bool {
	return GetGlobalRole(ctx) == models.GlobalRoleSuperAdmin
}

func GetCommunityID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(CommunityIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// GetMembership returns the caller's membership stashed by the role
// gate, or nil for a super-admin bypass.
func GetMembership(ctx context.Context) *models.Membership {
	if m, ok := ctx.Value(MembershipKey).(*models.Membership); ok {
		return m
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// RequireSuperAdmin guards the platform-admin routes that have no
// community scope.
func RequireSuperAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsSuperAdmin(r.Context()) {
				writeError(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
