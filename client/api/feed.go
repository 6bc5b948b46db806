package api

import (
	"context"
	"encoding/json"
	"log"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"anonchat/client/directory"
	"anonchat/client/stream"
	"anonchat/internal/models"
)

// History fetches the ascending message history for a conversation.
func (c *Client) History(ctx context.Context, target stream.Target) ([]models.Message, error) {
	path := "/api/rooms/" + target.RoomID + "/messages"
	if target.ChatID != "" {
		path = "/api/chats/" + target.ChatID + "/messages"
	}
	var out struct {
		Messages []models.Message `json:"messages"`
	}
	if err := c.do(ctx, "GET", path, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// Send stores a message in the target conversation.
func (c *Client) Send(ctx context.Context, target stream.Target, content, msgType string) (models.Message, error) {
	path := "/api/rooms/" + target.RoomID + "/messages"
	if target.ChatID != "" {
		path = "/api/chats/" + target.ChatID + "/messages"
	}
	body := map[string]string{"content": content, "message_type": msgType}
	var msg models.Message
	if err := c.do(ctx, "POST", path, body, &msg); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// feedSubscription is one live change-feed websocket.
type feedSubscription struct {
	conn    *websocket.Conn
	events  chan stream.Event
	closed  sync.Once
	closeCh chan struct{}
}

func (s *feedSubscription) Events() <-chan stream.Event { return s.events }

func (s *feedSubscription) Close() error {
	s.closed.Do(func() {
		close(s.closeCh)
		_ = s.conn.Close()
	})
	return nil
}

// Subscribe opens a message feed scoped to exactly the target
// conversation.
func (c *Client) Subscribe(ctx context.Context, target stream.Target) (stream.Subscription, error) {
	filter := "chat_room_id:" + target.RoomID
	if target.ChatID != "" {
		filter = "private_chat_id:" + target.ChatID
	}

	conn, err := c.dialFeed(ctx, "messages", filter)
	if err != nil {
		return nil, err
	}

	sub := &feedSubscription{
		conn:    conn,
		events:  make(chan stream.Event, 16),
		closeCh: make(chan struct{}),
	}
	go func() {
		defer close(sub.events)
		for {
			var event models.FeedEvent
			if err := conn.ReadJSON(&event); err != nil {
				return
			}
			msg, err := decodeMessageRow(event.Row)
			if err != nil {
				log.Printf("api: bad feed row: %v", err)
				continue
			}
			select {
			case sub.events <- stream.Event{Action: event.Action, Message: msg}:
			case <-sub.closeCh:
				return
			}
		}
	}()
	return sub, nil
}

// tableSubscription aggregates filterless table feeds into one stream of
// table names for broad invalidation.
type tableSubscription struct {
	conns   []*websocket.Conn
	events  chan string
	closed  sync.Once
	closeCh chan struct{}
	wg      sync.WaitGroup
}

func (s *tableSubscription) Events() <-chan string { return s.events }

func (s *tableSubscription) Close() error {
	s.closed.Do(func() {
		close(s.closeCh)
		for _, conn := range s.conns {
			_ = conn.Close()
		}
	})
	return nil
}

// SubscribeTables opens one filterless feed per table and reports which
// table changed.
func (c *Client) SubscribeTables(ctx context.Context, tables []string) (directory.Invalidations, error) {
	sub := &tableSubscription{
		events:  make(chan string, 16),
		closeCh: make(chan struct{}),
	}

	for _, table := range tables {
		conn, err := c.dialFeed(ctx, table, "")
		if err != nil {
			_ = sub.Close()
			return nil, err
		}
		sub.conns = append(sub.conns, conn)

		sub.wg.Add(1)
		go func(table string, conn *websocket.Conn) {
			defer sub.wg.Done()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
				select {
				case sub.events <- table:
				case <-sub.closeCh:
					return
				}
			}
		}(table, conn)
	}

	go func() {
		sub.wg.Wait()
		close(sub.events)
	}()
	return sub, nil
}

func (c *Client) dialFeed(ctx context.Context, table, filter string) (*websocket.Conn, error) {
	q := url.Values{}
	q.Set("table", table)
	if filter != "" {
		q.Set("filter", filter)
	}
	q.Set("token", c.token)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL+"/ws/feed?"+q.Encode(), nil)
	return conn, err
}

func decodeMessageRow(row interface{}) (models.Message, error) {
	payload, err := json.Marshal(row)
	if err != nil {
		return models.Message{}, err
	}
	var msg models.Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}
