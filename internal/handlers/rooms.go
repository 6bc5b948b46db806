package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"anonchat/internal/middleware"
	"anonchat/internal/models"
	"anonchat/internal/observability"
	"anonchat/internal/repositories"
	"anonchat/internal/ws"
)

// RoomHandler manages public chat rooms and their message history.
type RoomHandler struct {
	roomRepo    repositories.RoomRepository
	messageRepo repositories.MessageRepository
	profileRepo repositories.ProfileRepository
	feed        *ws.Hub
}

// NewRoomHandler builds a RoomHandler.
func NewRoomHandler(roomRepo repositories.RoomRepository, messageRepo repositories.MessageRepository, profileRepo repositories.ProfileRepository, feed *ws.Hub) *RoomHandler {
	return &RoomHandler{
		roomRepo:    roomRepo,
		messageRepo: messageRepo,
		profileRepo: profileRepo,
		feed:        feed,
	}
}

// ListRooms returns all public rooms.
func (h *RoomHandler) ListRooms(c *gin.Context) {
	rooms, err := h.roomRepo.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load rooms"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// GetRoom returns one room.
func (h *RoomHandler) GetRoom(c *gin.Context) {
	room, err := h.roomRepo.Get(c.Request.Context(), c.Param("room_id"))
	if err != nil {
		if errors.Is(err, repositories.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load room"})
		return
	}
	c.JSON(http.StatusOK, room)
}

// ListMessages returns a room's history in chronological order.
func (h *RoomHandler) ListMessages(c *gin.Context) {
	roomID := c.Param("room_id")
	if _, err := h.roomRepo.Get(c.Request.Context(), roomID); err != nil {
		if errors.Is(err, repositories.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load room"})
		return
	}

	msgs, err := h.messageRepo.ListForRoom(c.Request.Context(), roomID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// SendMessage stores a room message and fans it out on the change feed.
func (h *RoomHandler) SendMessage(c *gin.Context) {
	roomID := c.Param("room_id")
	var req struct {
		Content     string `json:"content" binding:"required"`
		MessageType string `json:"message_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty message"})
		return
	}
	if req.MessageType == "" {
		req.MessageType = models.MessageTypeText
	}
	if !models.ValidMessageType(req.MessageType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown message type"})
		return
	}

	if _, err := h.roomRepo.Get(c.Request.Context(), roomID); err != nil {
		if errors.Is(err, repositories.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load room"})
		return
	}

	userID := middleware.UserID(c)
	sender, err := h.profileRepo.GetByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load sender"})
		return
	}
	if sender.Banned {
		c.JSON(http.StatusForbidden, gin.H{"error": "account banned"})
		return
	}

	msg, err := h.messageRepo.CreateRoomMessage(c.Request.Context(), roomID, userID, sender.Username, req.Content, req.MessageType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store message"})
		return
	}

	observability.IncMessageStored("room")
	h.feed.Publish("messages", models.FeedInsert, msg, map[string]string{"chat_room_id": roomID})
	c.JSON(http.StatusCreated, msg)
}
