package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"anonchat/internal/models"
	"anonchat/internal/presence"
)

func dialFeedClient(t *testing.T, hub *Hub, table, filterKey, filterValue string) *websocket.Conn {
	t.Helper()
	registered := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		hub.AddClient(conn, ConnInfo{ConnID: newConnID()}, table, filterKey, filterValue)
		close(registered)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	<-registered
	return conn
}

func readFeedEvent(t *testing.T, conn *websocket.Conn) models.FeedEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event models.FeedEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read feed event: %v", err)
	}
	return event
}

func TestHubAddAndRemoveClient(t *testing.T) {
	hub := NewHub()

	client := hub.AddClient(nil, ConnInfo{ConnID: "c1"}, "messages", "private_chat_id", "chat-1")
	if hub.SubscriberCount() != 1 {
		t.Fatalf("expected one subscriber")
	}

	hub.RemoveClient(client)
	if hub.SubscriberCount() != 0 {
		t.Fatalf("expected subscriber to be removed")
	}
}

func TestPublishStripsRowsOnFilterlessMessageFeeds(t *testing.T) {
	hub := NewHub()
	broad := dialFeedClient(t, hub, "messages", "", "")
	scoped := dialFeedClient(t, hub, "messages", "private_chat_id", "chat-1")

	chatID := "chat-1"
	row := models.Message{ID: "m1", PrivateChatID: &chatID, SenderID: "u1", Content: "between us"}
	hub.Publish("messages", models.FeedInsert, row, map[string]string{"private_chat_id": chatID})

	broadEvent := readFeedEvent(t, broad)
	if broadEvent.Table != "messages" || broadEvent.Action != models.FeedInsert {
		t.Fatalf("unexpected broad event: %+v", broadEvent)
	}
	if broadEvent.Row != nil {
		t.Fatalf("filterless subscription must only see the invalidation, got row %v", broadEvent.Row)
	}

	scopedEvent := readFeedEvent(t, scoped)
	if scopedEvent.Row == nil {
		t.Fatalf("participant subscription must receive the row")
	}
	fields, ok := scopedEvent.Row.(map[string]interface{})
	if !ok || fields["content"] != "between us" {
		t.Fatalf("unexpected scoped row: %v", scopedEvent.Row)
	}
}

func TestPublishKeepsRowsOnPublicFilterlessFeeds(t *testing.T) {
	hub := NewHub()
	conn := dialFeedClient(t, hub, "chat_rooms", "", "")

	hub.Publish("chat_rooms", models.FeedInsert, models.ChatRoom{ID: "r1", Name: "General"}, nil)

	event := readFeedEvent(t, conn)
	if event.Row == nil {
		t.Fatalf("public table rows stay on the broad feed")
	}
}

func TestPublishSkipsNonMatchingFilters(t *testing.T) {
	hub := NewHub()
	other := dialFeedClient(t, hub, "messages", "private_chat_id", "chat-2")

	chatID := "chat-1"
	hub.Publish("messages", models.FeedInsert, models.Message{ID: "m1", PrivateChatID: &chatID}, map[string]string{"private_chat_id": chatID})
	hub.Publish("messages", models.FeedInsert, models.Message{ID: "m2"}, map[string]string{"chat_room_id": "room-1"})

	other.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := other.ReadMessage(); err == nil {
		t.Fatalf("subscription for another chat must receive nothing")
	}
}

func TestPresenceHubTrackAndSnapshot(t *testing.T) {
	hub := NewPresenceHub()

	hub.Track("u2", models.PresenceState{Username: "bee"})
	hub.Track("u1", models.PresenceState{Username: "ant"})

	members := hub.Snapshot()
	if len(members) != 2 {
		t.Fatalf("expected two members, got %d", len(members))
	}
	if members[0].UserID != "u1" || members[1].UserID != "u2" {
		t.Fatalf("expected stable order by user id, got %s %s", members[0].UserID, members[1].UserID)
	}
	if members[0].LastSeen.IsZero() {
		t.Fatalf("expected track to default last seen")
	}
}

func TestPresenceHubTrackReplacesState(t *testing.T) {
	hub := NewPresenceHub()

	hub.Track("u1", models.PresenceState{Username: "old"})
	hub.Track("u1", models.PresenceState{Username: "new"})

	members := hub.Snapshot()
	if len(members) != 1 {
		t.Fatalf("expected a single membership per identity, got %d", len(members))
	}
	if members[0].Username != "new" {
		t.Fatalf("expected latest state to win, got %q", members[0].Username)
	}
}

func TestPresenceHubSweepEvictsStaleMembers(t *testing.T) {
	hub := NewPresenceHub()
	now := time.Now()

	hub.Track("fresh", models.PresenceState{LastSeen: now})
	hub.Track("stale", models.PresenceState{LastSeen: now.Add(-presence.StalenessWindow - time.Minute)})

	hub.Sweep(now)

	members := hub.Snapshot()
	if len(members) != 1 {
		t.Fatalf("expected one surviving member, got %d", len(members))
	}
	if members[0].UserID != "fresh" {
		t.Fatalf("expected the fresh member to survive, got %s", members[0].UserID)
	}
}

func TestPresenceHubSweepKeepsMembersInsideWindow(t *testing.T) {
	hub := NewPresenceHub()
	now := time.Now()

	hub.Track("u1", models.PresenceState{LastSeen: now.Add(-presence.StalenessWindow + time.Second)})
	hub.Sweep(now)

	if len(hub.Snapshot()) != 1 {
		t.Fatalf("member inside the window must not be evicted")
	}
}

func TestParseFilter(t *testing.T) {
	key, value, err := parseFilter("private_chat_id:abc")
	if err != nil || key != "private_chat_id" || value != "abc" {
		t.Fatalf("unexpected parse result: %s %s %v", key, value, err)
	}

	if _, _, err := parseFilter("no-colon"); err == nil {
		t.Fatalf("expected error for malformed filter")
	}
	if key, value, err := parseFilter(""); err != nil || key != "" || value != "" {
		t.Fatalf("empty filter must be allowed")
	}
}
