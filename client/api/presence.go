package api

import (
	"context"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	clientpresence "anonchat/client/presence"
	"anonchat/internal/models"
)

// presenceChannel is one live subscription to the shared presence
// channel.
type presenceChannel struct {
	conn    *websocket.Conn
	mu      sync.Mutex
	syncs   chan []models.PresenceState
	closed  sync.Once
	closeCh chan struct{}
}

func (p *presenceChannel) Track(ctx context.Context, state models.PresenceState) error {
	frame := models.PresenceFrame{Type: models.PresenceTrack, State: &state}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.WriteJSON(frame)
}

func (p *presenceChannel) Syncs() <-chan []models.PresenceState { return p.syncs }

func (p *presenceChannel) Close() error {
	p.closed.Do(func() {
		close(p.closeCh)
		_ = p.conn.Close()
	})
	return nil
}

// DialPresence joins the shared presence channel.
func (c *Client) DialPresence(ctx context.Context) (clientpresence.Channel, error) {
	q := url.Values{}
	q.Set("token", c.token)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL+"/ws/presence?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	channel := &presenceChannel{
		conn:    conn,
		syncs:   make(chan []models.PresenceState, 4),
		closeCh: make(chan struct{}),
	}
	go func() {
		defer close(channel.syncs)
		for {
			var frame models.PresenceFrame
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			if frame.Type != models.PresenceSync {
				continue
			}
			select {
			case channel.syncs <- frame.Members:
			case <-channel.closeCh:
				return
			}
		}
	}()
	return channel, nil
}
