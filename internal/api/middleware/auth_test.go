package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/mistreatedbee/Communityhub-server/internal/api/middleware"
	"github.com/mistreatedbee/Communityhub-server/internal/database/models"
	"github.com/mistreatedbee/Communityhub-server/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func setupAuthRouter(t *testing.T) (*chi.Mux, *testutil.TestSetup) {
	tc := testutil.NewTestContext(t)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(tc.JWTService, tc.DB))
		r.Get("/protected", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		r.With(middleware.RequireSuperAdmin()).Get("/admin", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})
	return r, tc
}

func TestAuth_MissingToken(t *testing.T) {
	router, tc := setupAuthRouter(t)
	defer tc.Cleanup()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, testutil.UnauthenticatedRequest(t, http.MethodGet, "/protected", nil))
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}

func TestAuth_InvalidToken(t *testing.T) {
	router, tc := setupAuthRouter(t)
	defer tc.Cleanup()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, testutil.AuthenticatedRequest(t, http.MethodGet, "/protected", nil, "not-a-jwt"))
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}

func TestAuth_ValidToken(t *testing.T) {
	router, tc := setupAuthRouter(t)
	defer tc.Cleanup()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, testutil.AuthenticatedRequest(t, http.MethodGet, "/protected", nil, tc.OwnerToken))
	testutil.AssertStatus(t, rr, http.StatusOK)
}

func TestAuth_CookieToken(t *testing.T) {
	router, tc := setupAuthRouter(t)
	defer tc.Cleanup()

	req := testutil.UnauthenticatedRequest(t, http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: tc.OwnerToken})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	testutil.AssertStatus(t, rr, http.StatusOK)
}

func TestAuth_SuspendedAccount(t *testing.T) {
	router, tc := setupAuthRouter(t)
	defer tc.Cleanup()

	// The token was minted while the account was active; the current
	// row state still wins.
	assert.NoError(t, tc.DB.Model(tc.Owner).Update("status", models.UserStatusSuspended).Error)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, testutil.AuthenticatedRequest(t, http.MethodGet, "/protected", nil, tc.OwnerToken))
	testutil.AssertStatus(t, rr, http.StatusForbidden)
}

func TestAuth_BannedAccount(t *testing.T) {
	router, tc := setupAuthRouter(t)
	defer tc.Cleanup()

	assert.NoError(t, tc.DB.Model(tc.Owner).Update("status", models.UserStatusBanned).Error)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, testutil.AuthenticatedRequest(t, http.MethodGet, "/protected", nil, tc.OwnerToken))
	testutil.AssertStatus(t, rr, http.StatusForbidden)
}

func TestAuth_DeletedUser(t *testing.T) {
	router, tc := setupAuthRouter(t)
	defer tc.Cleanup()

	assert.NoError(t, tc.DB.Delete(tc.Owner).Error)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, testutil.AuthenticatedRequest(t, http.MethodGet, "/protected", nil, tc.OwnerToken))
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}

func TestRequireSuperAdmin(t *testing.T) {
	router, tc := setupAuthRouter(t)
	defer tc.Cleanup()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, testutil.AuthenticatedRequest(t, http.MethodGet, "/admin", nil, tc.OwnerToken))
	testutil.AssertStatus(t, rr, http.StatusForbidden)

	// Role elevation in the database takes effect on the next request
	// with the same token.
	assert.NoError(t, tc.DB.Model(tc.Owner).Update("global_role", models.GlobalRoleSuperAdmin).Error)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, testutil.AuthenticatedRequest(t, http.MethodGet, "/admin", nil, tc.OwnerToken))
	testutil.AssertStatus(t, rr, http.StatusOK)
}
