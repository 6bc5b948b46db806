package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"anonchat/internal/auth"
	"anonchat/internal/middleware"
	"anonchat/internal/models"
	"anonchat/internal/presence"
	"anonchat/internal/repositories"
	"anonchat/internal/ws"
)

// ProfileHandler manages the anonymous user directory and the caller's
// own profile.
type ProfileHandler struct {
	profileRepo repositories.ProfileRepository
	lastSeen    presence.LastSeenStore
	presenceHub *ws.PresenceHub
	feed        *ws.Hub
}

// NewProfileHandler builds a ProfileHandler.
func NewProfileHandler(profileRepo repositories.ProfileRepository, lastSeen presence.LastSeenStore, presenceHub *ws.PresenceHub, feed *ws.Hub) *ProfileHandler {
	return &ProfileHandler{
		profileRepo: profileRepo,
		lastSeen:    lastSeen,
		presenceHub: presenceHub,
		feed:        feed,
	}
}

// ListUsers returns all profiles with liveness derived from the presence
// channel, falling back to the durable last-seen store for members whose
// socket is gone but whose heartbeat is still fresh.
func (h *ProfileHandler) ListUsers(c *gin.Context) {
	profiles, err := h.profileRepo.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load users"})
		return
	}

	online := map[string]models.PresenceState{}
	for _, m := range h.presenceHub.Snapshot() {
		online[m.UserID] = m
	}

	now := time.Now()
	for i := range profiles {
		if m, ok := online[profiles[i].ID]; ok {
			profiles[i].IsOnline = true
			profiles[i].LastSeen = m.LastSeen
			continue
		}
		if at, ok, err := h.lastSeen.LastSeen(c.Request.Context(), profiles[i].ID); err == nil && ok {
			profiles[i].IsOnline = now.Sub(at) <= presence.StalenessWindow
			profiles[i].LastSeen = at
		}
	}

	c.JSON(http.StatusOK, gin.H{"users": profiles})
}

// GetUser returns one profile.
func (h *ProfileHandler) GetUser(c *gin.Context) {
	profile, err := h.profileRepo.GetByID(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		if errors.Is(err, repositories.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

// Me returns the caller's own profile.
func (h *ProfileHandler) Me(c *gin.Context) {
	profile, err := h.profileRepo.GetByID(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateUsername renames the caller and refreshes the derived avatar
// seed. A rename is rejected when the name is taken.
func (h *ProfileHandler) UpdateUsername(c *gin.Context) {
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

	userID := middleware.UserID(c)
	if err := h.profileRepo.UpdateUsername(c.Request.Context(), userID, req.Username); err != nil {
		if errors.Is(err, repositories.ErrUsernameTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not rename"})
		return
	}
	if err := h.profileRepo.UpdateAvatar(c.Request.Context(), userID, auth.AvatarURL(req.Username)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update avatar"})
		return
	}

	profile, err := h.profileRepo.GetByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load profile"})
		return
	}
	h.feed.Publish("profiles", models.FeedUpdate, profile, nil)
	c.JSON(http.StatusOK, profile)
}

// Heartbeat records liveness for callers without a live presence
// socket. An explicit {"online": false} marks the caller offline
// immediately, for page-hide and unload.
func (h *ProfileHandler) Heartbeat(c *gin.Context) {
	req := struct {
		Online *bool `json:"online"`
	}{}
	_ = c.ShouldBindJSON(&req)
	online := req.Online == nil || *req.Online

	userID := middleware.UserID(c)
	now := time.Now()
	if online {
		if err := h.lastSeen.Touch(c.Request.Context(), userID, now); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not record heartbeat"})
			return
		}
	}
	if err := h.profileRepo.SetPresence(c.Request.Context(), userID, online, now); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not record heartbeat"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// DeleteMe removes the caller's profile. Rows referencing the profile
// are cleaned up by the schema's cascades.
func (h *ProfileHandler) DeleteMe(c *gin.Context) {
	userID := middleware.UserID(c)
	profile, err := h.profileRepo.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repositories.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load profile"})
		return
	}
	if err := h.profileRepo.Delete(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete profile"})
		return
	}
	h.feed.Publish("profiles", models.FeedDelete, profile, nil)
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
