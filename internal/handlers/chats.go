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

// ChatHandler manages private one-to-one chats: directory, history,
// sending, read receipts and blocking.
type ChatHandler struct {
	chatRepo    repositories.PrivateChatRepository
	messageRepo repositories.MessageRepository
	profileRepo repositories.ProfileRepository
	notifRepo   repositories.NotificationRepository
	feed        *ws.Hub
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(chatRepo repositories.PrivateChatRepository, messageRepo repositories.MessageRepository, profileRepo repositories.ProfileRepository, notifRepo repositories.NotificationRepository, feed *ws.Hub) *ChatHandler {
	return &ChatHandler{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		profileRepo: profileRepo,
		notifRepo:   notifRepo,
		feed:        feed,
	}
}

// ListChats returns the caller's conversation directory with per-chat
// unread counts.
func (h *ChatHandler) ListChats(c *gin.Context) {
	chats, err := h.chatRepo.ListForUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// StartChat finds or creates the single conversation with another user.
// Starting an existing conversation is a no-op returning that row, so
// two users starting simultaneously converge on one chat.
func (h *ChatHandler) StartChat(c *gin.Context) {
	var req struct {
		PartnerID string `json:"partner_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := middleware.UserID(c)
	if _, err := h.profileRepo.GetByID(c.Request.Context(), req.PartnerID); err != nil {
		if errors.Is(err, repositories.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "partner not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load partner"})
		return
	}

	chat, err := h.chatRepo.FindOrCreate(c.Request.Context(), userID, req.PartnerID)
	if err != nil {
		if errors.Is(err, repositories.ErrSelfChat) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot chat with yourself"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start chat"})
		return
	}

	h.feed.Publish("private_chats", models.FeedInsert, chat, nil)
	c.JSON(http.StatusOK, chat)
}

// GetChat returns one conversation for a participant.
func (h *ChatHandler) GetChat(c *gin.Context) {
	chat, ok := h.participantChat(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, chat)
}

// ListMessages returns a conversation's history for a participant.
func (h *ChatHandler) ListMessages(c *gin.Context) {
	chat, ok := h.participantChat(c)
	if !ok {
		return
	}
	msgs, err := h.messageRepo.ListForChat(c.Request.Context(), chat.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// SendMessage stores a private message, bumps the chat's activity,
// notifies the partner and fans the row out on the change feed. Sending
// into a blocked conversation fails for both sides.
func (h *ChatHandler) SendMessage(c *gin.Context) {
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

	chat, ok := h.participantChat(c)
	if !ok {
		return
	}
	if chat.Blocked() {
		c.JSON(http.StatusForbidden, gin.H{"error": "conversation is blocked"})
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

	msg, err := h.messageRepo.CreateChatMessage(c.Request.Context(), chat.ID, userID, sender.Username, req.Content, req.MessageType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store message"})
		return
	}
	if err := h.chatRepo.Touch(c.Request.Context(), chat.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update chat"})
		return
	}

	partnerID := chat.Participant1
	if partnerID == userID {
		partnerID = chat.Participant2
	}
	if notif, err := h.notifRepo.Create(c.Request.Context(), repositories.NotificationInput{
		UserID:   partnerID,
		Type:     models.NotificationMessage,
		Title:    "New message",
		Message:  sender.Username + " sent you a message",
		FromUser: &sender.Username,
	}); err == nil {
		h.feed.Publish("notifications", models.FeedInsert, notif, map[string]string{"user_id": partnerID})
	}

	observability.IncMessageStored("private")
	h.feed.Publish("messages", models.FeedInsert, msg, map[string]string{"private_chat_id": chat.ID})
	h.feed.Publish("private_chats", models.FeedUpdate, chat, nil)
	c.JSON(http.StatusCreated, msg)
}

// MarkRead marks every message from the partner as read and fans out one
// update event per affected row.
func (h *ChatHandler) MarkRead(c *gin.Context) {
	chat, ok := h.participantChat(c)
	if !ok {
		return
	}

	userID := middleware.UserID(c)
	ids, err := h.messageRepo.MarkChatRead(c.Request.Context(), chat.ID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not mark messages read"})
		return
	}

	for _, id := range ids {
		msg, err := h.messageRepo.Get(c.Request.Context(), id)
		if err != nil {
			continue
		}
		h.feed.Publish("messages", models.FeedUpdate, msg, map[string]string{"private_chat_id": chat.ID})
	}
	c.JSON(http.StatusOK, gin.H{"marked": len(ids)})
}

// Touch bumps the conversation's last-activity timestamp so directory
// ordering follows a confirmed send.
func (h *ChatHandler) Touch(c *gin.Context) {
	chat, ok := h.participantChat(c)
	if !ok {
		return
	}
	if err := h.chatRepo.Touch(c.Request.Context(), chat.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update chat"})
		return
	}
	h.feed.Publish("private_chats", models.FeedUpdate, chat, nil)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Block closes the conversation for both sides.
func (h *ChatHandler) Block(c *gin.Context) {
	chatID := c.Param("chat_id")
	userID := middleware.UserID(c)

	if err := h.chatRepo.Block(c.Request.Context(), chatID, userID); err != nil {
		if errors.Is(err, repositories.ErrChatNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not block chat"})
		return
	}

	chat, err := h.chatRepo.Get(c.Request.Context(), chatID)
	if err == nil {
		h.feed.Publish("private_chats", models.FeedUpdate, chat, nil)
	}
	c.JSON(http.StatusOK, gin.H{"status": "blocked"})
}

// Unblock reopens the conversation. Only the side that blocked may undo it.
func (h *ChatHandler) Unblock(c *gin.Context) {
	chatID := c.Param("chat_id")
	userID := middleware.UserID(c)

	if err := h.chatRepo.Unblock(c.Request.Context(), chatID, userID); err != nil {
		switch {
		case errors.Is(err, repositories.ErrChatNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		case errors.Is(err, repositories.ErrNotBlocker):
			c.JSON(http.StatusForbidden, gin.H{"error": "only the blocker can unblock"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not unblock chat"})
		}
		return
	}

	chat, err := h.chatRepo.Get(c.Request.Context(), chatID)
	if err == nil {
		h.feed.Publish("private_chats", models.FeedUpdate, chat, nil)
	}
	c.JSON(http.StatusOK, gin.H{"status": "unblocked"})
}

// participantChat loads the chat in the path and verifies the caller is
// a participant, writing the error response itself on failure.
func (h *ChatHandler) participantChat(c *gin.Context) (models.PrivateChat, bool) {
	chat, err := h.chatRepo.Get(c.Request.Context(), c.Param("chat_id"))
	if err != nil {
		if errors.Is(err, repositories.ErrChatNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
			return models.PrivateChat{}, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chat"})
		return models.PrivateChat{}, false
	}
	if !chat.HasParticipant(middleware.UserID(c)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a chat participant"})
		return models.PrivateChat{}, false
	}
	return chat, true
}
