package presence

import (
	"context"
	"log"
	"sync"
	"time"

	"anonchat/internal/models"
	"anonchat/internal/presence"
)

// HeartbeatInterval is how often the tracker re-announces itself while
// visible.
const HeartbeatInterval = 30 * time.Second

// Channel is one live subscription to the shared presence channel.
type Channel interface {
	// Track announces the local identity's state to all members.
	Track(ctx context.Context, state models.PresenceState) error
	// Syncs delivers full member snapshots; it closes when the channel
	// drops.
	Syncs() <-chan []models.PresenceState
	Close() error
}

// Dialer opens a presence channel subscription.
type Dialer interface {
	DialPresence(ctx context.Context) (Channel, error)
}

// StatusWriter is the durable presence fallback: it records liveness
// where users who lost their socket can still be seen.
type StatusWriter interface {
	SetOnline(ctx context.Context, online bool) error
}

// Tracker maintains the local identity's presence and answers who is
// online right now. The shared channel is the sole source of truth;
// members whose last heartbeat exceeds the staleness window are dropped
// even while the channel still lists them. Staleness is evaluated here
// and nowhere else.
type Tracker struct {
	dialer Dialer
	writer StatusWriter
	self   models.PresenceState
	now    func() time.Time

	mu      sync.Mutex
	channel Channel
	online  []models.PresenceState
	visible bool

	heartbeatStop chan struct{}
	cancel        context.CancelFunc
}

// NewTracker builds a tracker for one identity.
func NewTracker(dialer Dialer, writer StatusWriter, self models.PresenceState) *Tracker {
	return &Tracker{
		dialer:  dialer,
		writer:  writer,
		self:    self,
		now:     time.Now,
		visible: true,
	}
}

// Start announces the identity online, subscribes to the shared channel
// and begins heartbeating. Restarting tears down the previous
// subscription first so events are never delivered twice.
func (t *Tracker) Start(ctx context.Context) error {
	t.Stop()

	ctx, cancel := context.WithCancel(ctx)

	channel, err := t.dialer.DialPresence(ctx)
	if err != nil {
		cancel()
		return err
	}

	t.mu.Lock()
	t.channel = channel
	t.cancel = cancel
	t.heartbeatStop = make(chan struct{})
	stop := t.heartbeatStop
	t.mu.Unlock()

	t.announce(ctx, true)

	go t.consume(channel)
	go t.heartbeat(ctx, stop)
	return nil
}

// Stop announces the identity offline and tears the subscription down.
func (t *Tracker) Stop() {
	t.mu.Lock()
	channel := t.channel
	cancel := t.cancel
	stop := t.heartbeatStop
	t.channel = nil
	t.cancel = nil
	t.heartbeatStop = nil
	t.online = nil
	t.mu.Unlock()

	if channel == nil {
		return
	}
	if err := t.writer.SetOnline(context.Background(), false); err != nil {
		log.Printf("presence: offline announce failed: %v", err)
	}
	if stop != nil {
		close(stop)
	}
	_ = channel.Close()
	if cancel != nil {
		cancel()
	}
}

// SetVisible pauses heartbeats and announces offline when the page goes
// hidden, re-announcing online when it comes back.
func (t *Tracker) SetVisible(ctx context.Context, visible bool) {
	t.mu.Lock()
	changed := t.visible != visible
	t.visible = visible
	channel := t.channel
	t.mu.Unlock()

	if !changed || channel == nil {
		return
	}
	t.announce(ctx, visible)
}

// OnlineUsers returns the fresh member set, excluding the local
// identity. A dropped channel yields an empty set.
func (t *Tracker) OnlineUsers() []models.PresenceState {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	fresh := make([]models.PresenceState, 0, len(t.online))
	for _, m := range t.online {
		if m.UserID == t.self.UserID {
			continue
		}
		if now.Sub(m.LastSeen) > presence.StalenessWindow {
			continue
		}
		fresh = append(fresh, m)
	}
	return fresh
}

func (t *Tracker) announce(ctx context.Context, online bool) {
	if err := t.writer.SetOnline(ctx, online); err != nil {
		log.Printf("presence: status write failed: %v", err)
	}
	if !online {
		return
	}

	t.mu.Lock()
	channel := t.channel
	state := t.self
	t.mu.Unlock()
	if channel == nil {
		return
	}
	state.OnlineAt = t.now()
	state.LastSeen = t.now()
	if err := channel.Track(ctx, state); err != nil {
		log.Printf("presence: track failed: %v", err)
	}
}

func (t *Tracker) consume(channel Channel) {
	for members := range channel.Syncs() {
		t.mu.Lock()
		if t.channel != channel {
			t.mu.Unlock()
			return
		}
		t.online = members
		t.mu.Unlock()
	}

	// Channel dropped: nobody is known to be online anymore.
	t.mu.Lock()
	if t.channel == channel {
		t.online = nil
	}
	t.mu.Unlock()
}

func (t *Tracker) heartbeat(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.mu.Lock()
			visible := t.visible
			t.mu.Unlock()
			if visible {
				t.announce(ctx, true)
			}
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}
