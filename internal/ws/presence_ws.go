package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"anonchat/internal/auth"
	"anonchat/internal/models"
	"anonchat/internal/observability"
	"anonchat/internal/presence"
)

// PresenceWebSocketHandler serves the shared presence channel.
type PresenceWebSocketHandler struct {
	hub      *PresenceHub
	lastSeen presence.LastSeenStore
	tokens   *auth.TokenService
}

// NewPresenceWebSocketHandler constructs a PresenceWebSocketHandler.
func NewPresenceWebSocketHandler(hub *PresenceHub, lastSeen presence.LastSeenStore, tokens *auth.TokenService) *PresenceWebSocketHandler {
	return &PresenceWebSocketHandler{hub: hub, lastSeen: lastSeen, tokens: tokens}
}

// Handle upgrades the caller onto the presence channel. The caller is a
// member only once it sends its first track frame; until then it just
// receives sync snapshots.
func (h *PresenceWebSocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("anonchat/ws").Start(c.Request.Context(), "ws.presence.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	header := c.GetHeader("Authorization")
	if header == "" {
		if token := c.Query("token"); token != "" {
			header = "Bearer " + token
		}
	}
	claims, err := validateBearer(h.tokens, header)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
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
	client := h.hub.Join(claims.UserID, conn, info)

	observability.IncWSActive("presence")
	observability.IncWSEvent("presence", "ws_connect")
	publishLifecycleEvent(ctx, "presence", "channel", info, "ws_connect", "", requestID, traceID)

	// Greet the new socket with the current member set.
	if payload, err := json.Marshal(models.PresenceFrame{Type: models.PresenceSync, Members: h.hub.Snapshot()}); err == nil {
		_ = client.write(payload)
	}

	go h.readLoop(c, client, info, requestID, traceID)
}

func (h *PresenceWebSocketHandler) readLoop(c *gin.Context, client *feedClient, info ConnInfo, requestID, traceID string) {
	ctx := c.Request.Context()
	conn := client.conn
	var closeReason string
	defer func() {
		h.hub.Leave(info.UserID, client)
		observability.DecWSActive("presence")
		observability.IncWSEvent("presence", "ws_disconnect")
		publishLifecycleEvent(ctx, "presence", "channel", info, "ws_disconnect", closeReason, requestID, traceID)
		conn.Close()
	}()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("presence", "ws_error")
				publishLifecycleEvent(ctx, "presence", "channel", info, "ws_error", closeReason, requestID, traceID)
			}
			return
		}
		var frame models.PresenceFrame
		if err := json.Unmarshal(raw, &frame); err != nil || frame.Type != models.PresenceTrack {
			continue
		}
		state := models.PresenceState{}
		if frame.State != nil {
			state = *frame.State
		}
		now := time.Now()
		state.LastSeen = now
		h.hub.Track(info.UserID, state)
		if err := h.lastSeen.Touch(ctx, info.UserID, now); err != nil {
			observability.IncWSEvent("presence", "last_seen_error")
		}
	}
}

func validateBearer(tokens *auth.TokenService, header string) (auth.Claims, error) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return auth.Claims{}, auth.ErrInvalidToken
	}
	return tokens.Validate(header[len(prefix):])
}
