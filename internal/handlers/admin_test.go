package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"anonchat/internal/auth"
	"anonchat/internal/middleware"
	"anonchat/internal/mocks"
	"anonchat/internal/models"
	"anonchat/internal/presence"
	"anonchat/internal/repositories"
	"anonchat/internal/ws"
)

type adminMockSet struct {
	adminRepo   *mocks.AdminRepositoryMock
	reportRepo  *mocks.ReportRepositoryMock
	profileRepo *mocks.ProfileRepositoryMock
	notifRepo   *mocks.NotificationRepositoryMock
	blogRepo    *mocks.BlogRepositoryMock
	roomRepo    *mocks.RoomRepositoryMock
}

func newAdminHandlerUnderTest() (*AdminHandler, adminMockSet) {
	set := adminMockSet{
		adminRepo:   new(mocks.AdminRepositoryMock),
		reportRepo:  new(mocks.ReportRepositoryMock),
		profileRepo: new(mocks.ProfileRepositoryMock),
		notifRepo:   new(mocks.NotificationRepositoryMock),
		blogRepo:    new(mocks.BlogRepositoryMock),
		roomRepo:    new(mocks.RoomRepositoryMock),
	}
	handler := NewAdminHandler(
		set.adminRepo, set.reportRepo, set.profileRepo, set.notifRepo,
		set.blogRepo, set.roomRepo, presence.NoopStore{},
		auth.NewTokenService("secret", time.Hour), ws.NewHub(), nil,
	)
	return handler, set
}

func setupAdminRouter(handler *AdminHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/admin/login", handler.Login)
	authed := r.Group("/admin", func(c *gin.Context) {
		c.Set(middleware.ContextUserID, "admin-1")
		c.Next()
	})
	authed.GET("/stats", handler.Stats)
	authed.GET("/reports", handler.ListReports)
	authed.PATCH("/reports/:report_id", handler.ResolveReport)
	authed.POST("/users/:user_id/ban", handler.BanUser)
	authed.POST("/broadcast", handler.Broadcast)
	return r
}

func superAdmin() models.AdminUser {
	return models.AdminUser{ID: "admin-1", Email: "root@example.com", Role: models.AdminRoleSuper, IsActive: true}
}

func TestAdminLoginSuccess(t *testing.T) {
	handler, set := newAdminHandlerUnderTest()
	router := setupAdminRouter(handler)

	set.adminRepo.On("VerifyPassword", mock.Anything, "root@example.com", "hunter2secret").
		Return(superAdmin(), nil).Once()
	set.adminRepo.On("TouchLastLogin", mock.Anything, "admin-1").Return(nil).Once()

	body := bytes.NewBufferString(`{"email":"root@example.com","password":"hunter2secret"}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Token)
	set.adminRepo.AssertExpectations(t)
}

func TestAdminLoginBadCredentials(t *testing.T) {
	handler, set := newAdminHandlerUnderTest()
	router := setupAdminRouter(handler)

	set.adminRepo.On("VerifyPassword", mock.Anything, "root@example.com", "wrong-pass").
		Return(models.AdminUser{}, repositories.ErrInvalidCredentials).Once()

	body := bytes.NewBufferString(`{"email":"root@example.com","password":"wrong-pass"}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestResolveReportNotifiesReporter(t *testing.T) {
	handler, set := newAdminHandlerUnderTest()
	router := setupAdminRouter(handler)

	set.adminRepo.On("GetActiveByID", mock.Anything, "admin-1").Return(superAdmin(), nil).Once()
	set.reportRepo.On("UpdateStatus", mock.Anything, "rep-1", mock.MatchedBy(func(u repositories.ReportUpdate) bool {
		return u.Status == models.ReportResolved && u.ActionBy == "admin-1"
	})).Return(models.Report{ID: "rep-1", ReportedBy: "user-a", Status: models.ReportResolved}, nil).Once()
	set.notifRepo.On("Create", mock.Anything, mock.MatchedBy(func(in repositories.NotificationInput) bool {
		return in.UserID == "user-a" && in.Type == models.NotificationAdminAction
	})).Return(models.Notification{ID: "n-1"}, nil).Once()

	body := bytes.NewBufferString(`{"status":"resolved"}`)
	req := httptest.NewRequest(http.MethodPatch, "/admin/reports/rep-1", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	set.reportRepo.AssertExpectations(t)
	set.notifRepo.AssertExpectations(t)
}

func TestResolveReportRejectsPendingTransition(t *testing.T) {
	handler, set := newAdminHandlerUnderTest()
	router := setupAdminRouter(handler)

	set.adminRepo.On("GetActiveByID", mock.Anything, "admin-1").Return(superAdmin(), nil).Once()

	body := bytes.NewBufferString(`{"status":"pending"}`)
	req := httptest.NewRequest(http.MethodPatch, "/admin/reports/rep-1", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	set.reportRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestListReportsRequiresPermission(t *testing.T) {
	handler, set := newAdminHandlerUnderTest()
	router := setupAdminRouter(handler)

	moderator := models.AdminUser{ID: "admin-1", Role: models.AdminRoleSupport, IsActive: true}
	set.adminRepo.On("GetActiveByID", mock.Anything, "admin-1").Return(moderator, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/admin/reports", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBanUserNotifiesTarget(t *testing.T) {
	handler, set := newAdminHandlerUnderTest()
	router := setupAdminRouter(handler)

	set.adminRepo.On("GetActiveByID", mock.Anything, "admin-1").Return(superAdmin(), nil).Once()
	set.profileRepo.On("SetBanned", mock.Anything, "user-x", true).Return(nil).Once()
	set.notifRepo.On("Create", mock.Anything, mock.MatchedBy(func(in repositories.NotificationInput) bool {
		return in.UserID == "user-x" && in.Type == models.NotificationAdminAction
	})).Return(models.Notification{ID: "n-1"}, nil).Once()
	set.profileRepo.On("GetByID", mock.Anything, "user-x").Return(models.Profile{ID: "user-x", Banned: true}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/admin/users/user-x/ban", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	set.profileRepo.AssertExpectations(t)
	set.notifRepo.AssertExpectations(t)
}

func TestBroadcastReachesEveryProfile(t *testing.T) {
	handler, set := newAdminHandlerUnderTest()
	router := setupAdminRouter(handler)

	set.adminRepo.On("GetActiveByID", mock.Anything, "admin-1").Return(superAdmin(), nil).Once()
	set.profileRepo.On("List", mock.Anything).Return([]models.Profile{{ID: "u1"}, {ID: "u2"}}, nil).Once()
	set.notifRepo.On("Create", mock.Anything, mock.MatchedBy(func(in repositories.NotificationInput) bool {
		return in.Type == models.NotificationSystem
	})).Return(models.Notification{}, nil).Twice()

	body := bytes.NewBufferString(`{"title":"Maintenance","message":"Back soon"}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/broadcast", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]int
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2, resp["sent"])
	set.notifRepo.AssertExpectations(t)
}
