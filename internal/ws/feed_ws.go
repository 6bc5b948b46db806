package ws

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"anonchat/internal/auth"
	"anonchat/internal/observability"
	"anonchat/internal/repositories"
)

// FeedWebSocketHandler serves change-feed subscriptions: one websocket
// per (table, optional column filter) scope.
type FeedWebSocketHandler struct {
	hub      *Hub
	chatRepo repositories.PrivateChatRepository
	tokens   *auth.TokenService
}

// NewFeedWebSocketHandler constructs a FeedWebSocketHandler.
func NewFeedWebSocketHandler(hub *Hub, chatRepo repositories.PrivateChatRepository, tokens *auth.TokenService) *FeedWebSocketHandler {
	return &FeedWebSocketHandler{hub: hub, chatRepo: chatRepo, tokens: tokens}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle authorizes the requested scope, upgrades, and registers the client.
func (h *FeedWebSocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("anonchat/ws").Start(c.Request.Context(), "ws.feed.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	claims, err := h.validateToken(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	table := c.Query("table")
	filterKey, filterValue, err := parseFilter(c.Query("filter"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.authorizeScope(c.Request.Context(), claims.UserID, table, filterKey, filterValue); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      claims.UserID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	client := h.hub.AddClient(conn, info, table, filterKey, filterValue)

	observability.IncWSActive("feed")
	observability.IncWSEvent("feed", "ws_connect")
	publishLifecycleEvent(ctx, "feed", table, info, "ws_connect", "", requestID, traceID)

	// Keep connection alive and clean on close.
	go func() {
		var closeReason string
		defer func() {
			h.hub.RemoveClient(client)
			observability.DecWSActive("feed")
			observability.IncWSEvent("feed", "ws_disconnect")
			publishLifecycleEvent(ctx, "feed", table, info, "ws_disconnect", closeReason, requestID, traceID)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent("feed", "ws_error")
					publishLifecycleEvent(ctx, "feed", table, info, "ws_error", closeReason, requestID, traceID)
				}
				return
			}
		}
	}()
}

func (h *FeedWebSocketHandler) authorizeScope(ctx context.Context, userID, table, filterKey, filterValue string) error {
	switch table {
	case "messages":
		switch filterKey {
		case "":
			// Broad invalidation feed for the conversation directory.
			// The hub strips rows before filterless fan-out, so no
			// message content crosses this subscription.
			return nil
		case "chat_room_id":
			return nil
		case "private_chat_id":
			chat, err := h.chatRepo.Get(ctx, filterValue)
			if err != nil {
				return fmt.Errorf("unknown chat")
			}
			if !chat.HasParticipant(userID) {
				return fmt.Errorf("not a chat participant")
			}
			return nil
		}
		return fmt.Errorf("unsupported filter column %q", filterKey)
	case "private_chats", "profiles", "chat_rooms":
		if filterKey != "" {
			return fmt.Errorf("table %q supports no filter", table)
		}
		return nil
	case "notifications":
		if filterKey != "user_id" || filterValue != userID {
			return fmt.Errorf("notifications feed is scoped to the caller")
		}
		return nil
	}
	return fmt.Errorf("unsupported table %q", table)
}

func (h *FeedWebSocketHandler) validateToken(c *gin.Context) (auth.Claims, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if token := c.Query("token"); token != "" {
			header = "Bearer " + token
		}
	}
	return validateBearer(h.tokens, header)
}

func parseFilter(raw string) (string, string, error) {
	if raw == "" {
		return "", "", nil
	}
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("filter must be column:value")
	}
	return parts[0], parts[1], nil
}

func publishLifecycleEvent(ctx context.Context, kind, resource string, info ConnInfo, event, reason, requestID, traceID string) {
	_ = observability.PublishEvent(ctx, "ws_events."+kind, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"kind":        kind,
				"resource":    resource,
				"event":       event,
				"conn_id":     info.ConnID,
				"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"user_id":   info.UserID,
				"device_id": info.DeviceID,
				"ip":        info.IP,
			},
		},
	}, observability.BuildHeaders(requestID, traceID))
}
