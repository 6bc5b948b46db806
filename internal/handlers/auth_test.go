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
	"anonchat/internal/mocks"
	"anonchat/internal/models"
	"anonchat/internal/repositories"
)

func setupAuthRouter(handler *AuthHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/anonymous", handler.CreateSession)
	r.POST("/auth/resume", handler.ResumeSession)
	r.GET("/auth/suggest", handler.SuggestUsername)
	r.GET("/auth/check", handler.CheckUsername)
	return r
}

func TestCreateSessionSuccess(t *testing.T) {
	profileRepo := new(mocks.ProfileRepositoryMock)
	handler := NewAuthHandler(profileRepo, auth.NewTokenService("secret", time.Hour))
	router := setupAuthRouter(handler)

	profileRepo.On("Create", mock.Anything, "ghost_42", mock.Anything).
		Return(models.Profile{ID: "user-1", Username: "ghost_42"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/auth/anonymous", bytes.NewBufferString(`{"username":"ghost_42"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		Token   string         `json:"token"`
		Profile models.Profile `json:"profile"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "user-1", resp.Profile.ID)
	profileRepo.AssertExpectations(t)
}

func TestCreateSessionTakenUsername(t *testing.T) {
	profileRepo := new(mocks.ProfileRepositoryMock)
	handler := NewAuthHandler(profileRepo, auth.NewTokenService("secret", time.Hour))
	router := setupAuthRouter(handler)

	profileRepo.On("Create", mock.Anything, "ghost_42", mock.Anything).
		Return(models.Profile{}, repositories.ErrUsernameTaken).Once()

	req := httptest.NewRequest(http.MethodPost, "/auth/anonymous", bytes.NewBufferString(`{"username":"ghost_42"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateSessionRejectsInvalidUsername(t *testing.T) {
	profileRepo := new(mocks.ProfileRepositoryMock)
	handler := NewAuthHandler(profileRepo, auth.NewTokenService("secret", time.Hour))
	router := setupAuthRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/auth/anonymous", bytes.NewBufferString(`{"username":"x"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	profileRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestResumeSessionExchangesValidToken(t *testing.T) {
	profileRepo := new(mocks.ProfileRepositoryMock)
	tokens := auth.NewTokenService("secret", time.Hour)
	handler := NewAuthHandler(profileRepo, tokens)
	router := setupAuthRouter(handler)

	cached, err := tokens.Issue("user-1", "ghost_42", auth.ScopeUser)
	require.NoError(t, err)

	profileRepo.On("GetByID", mock.Anything, "user-1").
		Return(models.Profile{ID: "user-1", Username: "ghost_42"}, nil).Once()

	body, _ := json.Marshal(map[string]string{"token": cached})
	req := httptest.NewRequest(http.MethodPost, "/auth/resume", bytes.NewBuffer(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Token   string         `json:"token"`
		Profile models.Profile `json:"profile"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "user-1", resp.Profile.ID)
	profileRepo.AssertExpectations(t)
}

func TestResumeSessionRejectsUsernameOnly(t *testing.T) {
	profileRepo := new(mocks.ProfileRepositoryMock)
	handler := NewAuthHandler(profileRepo, auth.NewTokenService("secret", time.Hour))
	router := setupAuthRouter(handler)

	// Usernames are public; knowing one must never recover a session.
	req := httptest.NewRequest(http.MethodPost, "/auth/resume", bytes.NewBufferString(`{"username":"ghost_42"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	profileRepo.AssertNotCalled(t, "GetByUsername", mock.Anything, mock.Anything)
	profileRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestResumeSessionRejectsGarbageToken(t *testing.T) {
	profileRepo := new(mocks.ProfileRepositoryMock)
	handler := NewAuthHandler(profileRepo, auth.NewTokenService("secret", time.Hour))
	router := setupAuthRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/auth/resume", bytes.NewBufferString(`{"token":"not-a-token"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	profileRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestResumeSessionBannedRejected(t *testing.T) {
	profileRepo := new(mocks.ProfileRepositoryMock)
	tokens := auth.NewTokenService("secret", time.Hour)
	handler := NewAuthHandler(profileRepo, tokens)
	router := setupAuthRouter(handler)

	cached, err := tokens.Issue("user-1", "ghost_42", auth.ScopeUser)
	require.NoError(t, err)

	profileRepo.On("GetByID", mock.Anything, "user-1").
		Return(models.Profile{ID: "user-1", Username: "ghost_42", Banned: true}, nil).Once()

	body, _ := json.Marshal(map[string]string{"token": cached})
	req := httptest.NewRequest(http.MethodPost, "/auth/resume", bytes.NewBuffer(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSuggestUsernameRetriesUntilFree(t *testing.T) {
	profileRepo := new(mocks.ProfileRepositoryMock)
	handler := NewAuthHandler(profileRepo, auth.NewTokenService("secret", time.Hour))
	router := setupAuthRouter(handler)

	profileRepo.On("UsernameTaken", mock.Anything, mock.Anything).Return(true, nil).Once()
	profileRepo.On("UsernameTaken", mock.Anything, mock.Anything).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/auth/suggest", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NoError(t, auth.ValidateUsername(resp["username"]))
	profileRepo.AssertExpectations(t)
}

func TestCheckUsernameReportsAvailability(t *testing.T) {
	profileRepo := new(mocks.ProfileRepositoryMock)
	handler := NewAuthHandler(profileRepo, auth.NewTokenService("secret", time.Hour))
	router := setupAuthRouter(handler)

	profileRepo.On("UsernameTaken", mock.Anything, "ghost_42").Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/auth/check?username=ghost_42", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, true, resp["available"])
}
