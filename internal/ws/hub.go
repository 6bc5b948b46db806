package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"anonchat/internal/models"
	"anonchat/internal/observability"
)

// feedClient wraps a websocket connection with a write lock so broadcasts
// from concurrent request handlers do not interleave frames.
type feedClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
	info ConnInfo
}

func (c *feedClient) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// subscription scopes a feed client to one collection, optionally
// narrowed to rows where a single column equals a value.
type subscription struct {
	client      *feedClient
	table       string
	filterKey   string
	filterValue string
}

// Hub fans change-feed events out to subscribed websocket clients.
type Hub struct {
	subs map[*feedClient]*subscription
	mu   sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*feedClient]*subscription)}
}

// AddClient registers a connection subscribed to table, optionally
// filtered by column equality. filterKey may be empty for a table-level
// subscription (broad invalidation feeds).
func (h *Hub) AddClient(conn *websocket.Conn, info ConnInfo, table, filterKey, filterValue string) *feedClient {
	client := &feedClient{conn: conn, info: info}
	h.mu.Lock()
	h.subs[client] = &subscription{
		client:      client,
		table:       table,
		filterKey:   filterKey,
		filterValue: filterValue,
	}
	h.mu.Unlock()
	return client
}

// RemoveClient drops a connection's subscription.
func (h *Hub) RemoveClient(client *feedClient) {
	h.mu.Lock()
	delete(h.subs, client)
	h.mu.Unlock()
}

// SubscriberCount reports live subscriptions, for tests and debugging.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// privateRowTables lists collections whose rows carry per-user content.
// Filterless subscriptions to these receive the bare table+action
// invalidation; the row itself only travels on filtered subscriptions,
// which passed a participant or ownership check at upgrade time.
var privateRowTables = map[string]bool{
	"messages":      true,
	"private_chats": true,
}

// Publish delivers a change event to every subscription matching the
// table and, when the subscription carries a filter, the row attributes.
// attrs holds the filterable column values of the affected row.
func (h *Hub) Publish(table, action string, row interface{}, attrs map[string]string) {
	payload, err := json.Marshal(models.FeedEvent{Table: table, Action: action, Row: row})
	if err != nil {
		log.Printf("feed event marshal error: %v", err)
		return
	}
	stripped := payload
	if privateRowTables[table] {
		stripped, err = json.Marshal(models.FeedEvent{Table: table, Action: action})
		if err != nil {
			log.Printf("feed event marshal error: %v", err)
			return
		}
	}

	type delivery struct {
		client  *feedClient
		payload []byte
	}

	h.mu.RLock()
	matched := make([]delivery, 0, len(h.subs))
	for client, sub := range h.subs {
		if sub.table != table {
			continue
		}
		if sub.filterKey == "" {
			matched = append(matched, delivery{client, stripped})
			continue
		}
		if attrs[sub.filterKey] != sub.filterValue {
			continue
		}
		matched = append(matched, delivery{client, payload})
	}
	h.mu.RUnlock()

	for _, d := range matched {
		if err := d.client.write(d.payload); err != nil {
			log.Printf("websocket write error: %v", err)
			d.client.conn.Close()
			h.RemoveClient(d.client)
			h.publishWSError("feed", table, d.client.info, err)
		}
	}
}

func (h *Hub) publishWSError(kind, resource string, info ConnInfo, err error) {
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        kind,
			"resource":    resource,
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events."+kind, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent(kind, "ws_error")
}
