package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mistreatedbee/Communityhub-server/internal/auth"
	"github.com/mistreatedbee/Communityhub-server/internal/database/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB creates an in-memory SQLite database for testing
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Community{},
		&models.Membership{},
		&models.Invitation{},
		&models.Post{},
		&models.Resource{},
		&models.Group{},
		&models.GroupMember{},
		&models.Event{},
		&models.EventRSVP{},
		&models.Program{},
		&models.ProgramEnrollment{},
		&models.Announcement{},
		&models.StoredFile{},
		&models.AuditLog{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// CleanupTestDB closes the test database connection
func CleanupTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Logf("warning: failed to get sql.DB: %v", err)
		return
	}
	sqlDB.Close()
}

// CreateTestUser creates an active user with a unique email
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	hash, err := auth.HashPassword("testpassword123")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Base: models.Base{
			ID: uuid.New(),
		},
		Email:        "test-" + uuid.New().String()[:8] + "@example.com",
		PasswordHash: hash,
		Name:         "Test User",
		GlobalRole:   models.GlobalRoleUser,
		Status:       models.UserStatusActive,
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	return user
}

// CreateTestSuperAdmin creates a user with the platform-wide role
func CreateTestSuperAdmin(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	user := CreateTestUser(t, db)
	user.GlobalRole = models.GlobalRoleSuperAdmin
	if err := db.Save(user).Error; err != nil {
		t.Fatalf("failed to elevate test user: %v", err)
	}
	return user
}

// CreateTestCommunity creates an active community owned by the given user
func CreateTestCommunity(t *testing.T, db *gorm.DB, owner *models.User) *models.Community {
	t.Helper()

	community := &models.Community{
		Base: models.Base{
			ID: uuid.New(),
		},
		Name:      "Test Community",
		Slug:      "test-" + uuid.New().String()[:8],
		Status:    models.CommunityStatusActive,
		CreatedBy: owner.ID,
	}
	if err := db.Create(community).Error; err != nil {
		t.Fatalf("failed to create test community: %v", err)
	}

	CreateTestMembership(t, db, community, owner, models.MembershipRoleOwner, models.MembershipStatusActive)
	return community
}

// CreateTestMembership creates a membership row directly
func CreateTestMembership(t *testing.T, db *gorm.DB, community *models.Community, user *models.User, role models.MembershipRole, status models.MembershipStatus) *models.Membership {
	t.Helper()

	m := &models.Membership{
		JoinBase: models.JoinBase{
			ID: uuid.New(),
		},
		CommunityID: community.ID,
		UserID:      user.ID,
		Role:        role,
		Status:      status,
	}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("failed to create test membership: %v", err)
	}
	return m
}

// CreateTestInvitation creates a live invitation for the given email
func CreateTestInvitation(t *testing.T, db *gorm.DB, community *models.Community, inviter *models.User, email string, role models.MembershipRole) *models.Invitation {
	t.Helper()

	inv := &models.Invitation{
		Base: models.Base{
			ID: uuid.New(),
		},
		CommunityID: community.ID,
		Email:       email,
		Role:        role,
		Token:       uuid.New().String() + uuid.New().String(),
		Status:      models.InvitationStatusSent,
		ExpiresAt:   time.Now().UTC().Add(72 * time.Hour),
		InvitedBy:   inviter.ID,
	}
	if err := db.Create(inv).Error; err != nil {
		t.Fatalf("failed to create test invitation: %v", err)
	}
	return inv
}

// CreateTestStoredFile creates a file metadata row without a blob
func CreateTestStoredFile(t *testing.T, db *gorm.DB, community *models.Community, uploader *models.User, purpose models.FilePurpose) *models.StoredFile {
	t.Helper()

	file := &models.StoredFile{
		Base: models.Base{
			ID: uuid.New(),
		},
		CommunityID: community.ID,
		UploadedBy:  uploader.ID,
		Purpose:     purpose,
		Filename:    "test.bin",
		ContentType: "application/octet-stream",
		Size:        4,
		StorageKey:  community.ID.String() + "/" + uuid.New().String(),
	}
	if err := db.Create(file).Error; err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	return file
}

// CreateTestJWTService creates a JWT service for testing
func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-for-testing", 24*time.Hour)
}

// GenerateTestToken generates a valid JWT token for the given user
func GenerateTestToken(t *testing.T, jwtService *auth.JWTService, user *models.User) string {
	t.Helper()

	token, err := jwtService.GenerateToken(user.ID, user.Email, user.GlobalRole)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}

	return token
}

// AuthenticatedRequest creates an HTTP request with authentication
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// UnauthenticatedRequest creates an HTTP request without authentication
func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// AssertStatus checks if the response has the expected status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// TestSetup holds the common test dependencies
type TestSetup struct {
	DB         *gorm.DB
	JWTService *auth.JWTService
	Community  *models.Community
	Owner      *models.User
	OwnerToken string
}

// NewTestContext creates a database, a community, its owner, and a
// valid token for the owner.
func NewTestContext(t *testing.T) *TestSetup {
	t.Helper()

	db := SetupTestDB(t)
	jwtService := CreateTestJWTService()
	owner := CreateTestUser(t, db)
	community := CreateTestCommunity(t, db, owner)
	token := GenerateTestToken(t, jwtService, owner)

	return &TestSetup{
		DB:         db,
		JWTService: jwtService,
		Community:  community,
		Owner:      owner,
		OwnerToken: token,
	}
}

// Cleanup closes the test database
func (ts *TestSetup) Cleanup() {
	if ts.DB != nil {
		sqlDB, err := ts.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}
