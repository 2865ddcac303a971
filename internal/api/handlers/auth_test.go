package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mistreatedbee/Communityhub-server/internal/api/dto"
	"github.com/mistreatedbee/Communityhub-server/internal/api/handlers"
	"github.com/mistreatedbee/Communityhub-server/internal/auth"
	"github.com/mistreatedbee/Communityhub-server/internal/database/models"
	"github.com/mistreatedbee/Communityhub-server/internal/testutil"
	"gorm.io/gorm"
)

func newAuthHandler(t *testing.T) (*handlers.AuthHandler, *gorm.DB, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	svc := auth.NewService(db, testutil.CreateTestJWTService())
	return handlers.NewAuthHandler(svc), db, func() { testutil.CleanupTestDB(t, db) }
}

func TestAuthHandler_Register(t *testing.T) {
	h, _, cleanup := newAuthHandler(t)
	defer cleanup()

	req := testutil.UnauthenticatedRequest(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email":    "new@example.com",
		"password": "testpassword123",
		"name":     "New User",
	})
	rr := httptest.NewRecorder()
	h.Register(rr, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)

	var resp dto.AuthResponse
	testutil.ParseJSONResponse(t, rr, &resp)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "new@example.com", resp.User.Email)
	assert.Equal(t, string(models.GlobalRoleUser), resp.User.GlobalRole)

	// The session cookie is set alongside the body token.
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "token", cookies[0].Name)
	assert.Equal(t, resp.Token, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestAuthHandler_Register_Validation(t *testing.T) {
	h, _, cleanup := newAuthHandler(t)
	defer cleanup()

	req := testutil.UnauthenticatedRequest(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email":    "short@example.com",
		"password": "short",
	})
	rr := httptest.NewRecorder()
	h.Register(rr, req)
	testutil.AssertStatus(t, rr, http.StatusBadRequest)

	var resp dto.ErrorResponse
	testutil.ParseJSONResponse(t, rr, &resp)
	assert.Contains(t, resp.Details, "password")
	assert.Contains(t, resp.Details, "name")
}

func TestAuthHandler_Login_Suspended(t *testing.T) {
	h, db, cleanup := newAuthHandler(t)
	defer cleanup()

	user := testutil.CreateTestUser(t, db)
	require.NoError(t, db.Model(user).Update("email", "suspended@example.com").Error)
	require.NoError(t, db.Model(user).Update("status", models.UserStatusSuspended).Error)

	req := testutil.UnauthenticatedRequest(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "suspended@example.com",
		"password": "testpassword123",
	})
	rr := httptest.NewRecorder()
	h.Login(rr, req)
	testutil.AssertStatus(t, rr, http.StatusForbidden)
}

func TestAuthHandler_Logout_ClearsCookie(t *testing.T) {
	h, _, cleanup := newAuthHandler(t)
	defer cleanup()

	req := testutil.UnauthenticatedRequest(t, http.MethodPost, "/api/v1/auth/logout", nil)
	rr := httptest.NewRecorder()
	h.Logout(rr, req)
	testutil.AssertStatus(t, rr, http.StatusOK)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "token", cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestAuthHandler_Register_RetiredEmailConflict(t *testing.T) {
	h, db, cleanup := newAuthHandler(t)
	defer cleanup()

	user := testutil.CreateTestUser(t, db)
	require.NoError(t, db.Model(user).Update("email", "retired@example.com").Error)
	require.NoError(t, db.Delete(user).Error)

	// The soft-deleted account still holds the email in the unique
	// index; the insert failure maps to a conflict, not a 500.
	req := testutil.UnauthenticatedRequest(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email":    "retired@example.com",
		"password": "testpassword123",
		"name":     "Second",
	})
	rr := httptest.NewRecorder()
	h.Register(rr, req)
	testutil.AssertStatus(t, rr, http.StatusConflict)
}
