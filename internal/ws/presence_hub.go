package ws

import (
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"anonchat/internal/models"
	"anonchat/internal/observability"
	"anonchat/internal/presence"
)

// PresenceHub is the single shared presence channel for the deployment.
// Members track their own state; every membership or state change is
// answered with a full sync snapshot to all connected members. Members
// whose last heartbeat exceeds the staleness window are evicted even if
// their socket never closed.
type PresenceHub struct {
	members map[string]models.PresenceState
	conns   map[string]*feedClient
	mu      sync.Mutex
}

// NewPresenceHub creates an empty presence channel.
func NewPresenceHub() *PresenceHub {
	return &PresenceHub{
		members: make(map[string]models.PresenceState),
		conns:   make(map[string]*feedClient),
	}
}

// Join registers a member connection. A reconnect replaces the previous
// socket so each identity holds at most one membership.
func (h *PresenceHub) Join(userID string, conn *websocket.Conn, info ConnInfo) *feedClient {
	client := &feedClient{conn: conn, info: info}
	h.mu.Lock()
	if prev, ok := h.conns[userID]; ok {
		prev.conn.Close()
	}
	h.conns[userID] = client
	h.mu.Unlock()
	return client
}

// Track records a member's self-announced state and rebroadcasts.
func (h *PresenceHub) Track(userID string, state models.PresenceState) {
	state.UserID = userID
	if state.LastSeen.IsZero() {
		state.LastSeen = time.Now()
	}
	h.mu.Lock()
	h.members[userID] = state
	h.mu.Unlock()
	h.broadcastSync()
}

// Leave removes a member when its socket goes away. A stale client whose
// socket was already replaced must not evict the fresh membership.
func (h *PresenceHub) Leave(userID string, client *feedClient) {
	h.mu.Lock()
	current, ok := h.conns[userID]
	if !ok || current != client {
		h.mu.Unlock()
		return
	}
	delete(h.conns, userID)
	delete(h.members, userID)
	h.mu.Unlock()
	h.broadcastSync()
}

// Snapshot returns the current member set in stable order.
func (h *PresenceHub) Snapshot() []models.PresenceState {
	h.mu.Lock()
	defer h.mu.Unlock()
	members := make([]models.PresenceState, 0, len(h.members))
	for _, m := range h.members {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].UserID < members[j].UserID })
	return members
}

// Sweep evicts members whose last heartbeat is older than the staleness
// window and rebroadcasts if anything changed.
func (h *PresenceHub) Sweep(now time.Time) {
	h.mu.Lock()
	evicted := false
	for id, m := range h.members {
		if now.Sub(m.LastSeen) > presence.StalenessWindow {
			delete(h.members, id)
			evicted = true
		}
	}
	h.mu.Unlock()
	if evicted {
		h.broadcastSync()
	}
}

// RunSweeper periodically evicts stale members until stop is closed.
func (h *PresenceHub) RunSweeper(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			h.Sweep(now)
		case <-stop:
			return
		}
	}
}

func (h *PresenceHub) broadcastSync() {
	members := h.Snapshot()
	observability.SetPresenceOnline(len(members))

	frame := models.PresenceFrame{Type: models.PresenceSync, Members: members}
	payload, err := json.Marshal(frame)
	if err != nil {
		log.Printf("presence sync marshal error: %v", err)
		return
	}

	h.mu.Lock()
	clients := make(map[string]*feedClient, len(h.conns))
	for id, c := range h.conns {
		clients[id] = c
	}
	h.mu.Unlock()

	for userID, client := range clients {
		if err := client.write(payload); err != nil {
			log.Printf("presence write error: %v", err)
			client.conn.Close()
			h.mu.Lock()
			if h.conns[userID] == client {
				delete(h.conns, userID)
				delete(h.members, userID)
			}
			h.mu.Unlock()
			observability.IncWSEvent("presence", "ws_error")
		}
	}
}
