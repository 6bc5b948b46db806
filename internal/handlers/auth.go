package handlers

import (
	"errors"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"anonchat/internal/auth"
	"anonchat/internal/repositories"
)

// AuthHandler manages anonymous identity creation and token issuance.
type AuthHandler struct {
	profileRepo repositories.ProfileRepository
	tokens      *auth.TokenService

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(profileRepo repositories.ProfileRepository, tokens *auth.TokenService) *AuthHandler {
	return &AuthHandler{
		profileRepo: profileRepo,
		tokens:      tokens,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateSession creates an anonymous profile for a chosen username and
// issues a session token. There is no password; the identity lives as
// long as the profile does.
func (h *AuthHandler) CreateSession(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := auth.ValidateUsername(req.Username); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.profileRepo.Create(c.Request.Context(), req.Username, auth.AvatarURL(req.Username))
	if err != nil {
		if errors.Is(err, repositories.ErrUsernameTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create profile"})
		return
	}

	token, err := h.tokens.Issue(profile.ID, profile.Username, auth.ScopeUser)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token, "profile": profile})
}

// ResumeSession exchanges a previously issued token for a fresh one so
// cached anonymous identities survive a page reload. The cached token is
// the credential; a username alone never recovers an identity, since
// usernames are public.
func (h *AuthHandler) ResumeSession(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims, err := h.tokens.Validate(req.Token)
	if err != nil || claims.Scope != auth.ScopeUser {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
		return
	}

	profile, err := h.profileRepo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile no longer exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load profile"})
		return
	}
	if profile.Banned {
		c.JSON(http.StatusForbidden, gin.H{"error": "account banned"})
		return
	}

	token, err := h.tokens.Issue(profile.ID, profile.Username, auth.ScopeUser)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "profile": profile})
}

// SuggestUsername generates a random username not currently in use.
func (h *AuthHandler) SuggestUsername(c *gin.Context) {
	for attempt := 0; attempt < 10; attempt++ {
		h.rngMu.Lock()
		candidate := auth.GenerateUsername(h.rng)
		h.rngMu.Unlock()

		taken, err := h.profileRepo.UsernameTaken(c.Request.Context(), candidate)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not check username"})
			return
		}
		if !taken {
			c.JSON(http.StatusOK, gin.H{"username": candidate})
			return
		}
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "could not find a free username"})
}

// CheckUsername reports whether a username is valid and available.
func (h *AuthHandler) CheckUsername(c *gin.Context) {
	username := c.Query("username")
	if err := auth.ValidateUsername(username); err != nil {
		c.JSON(http.StatusOK, gin.H{"available": false, "reason": err.Error()})
		return
	}
	taken, err := h.profileRepo.UsernameTaken(c.Request.Context(), username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not check username"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": !taken})
}
