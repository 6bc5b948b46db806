package presence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anonchat/internal/models"
	"anonchat/internal/presence"
)

type fakeChannel struct {
	mu      sync.Mutex
	tracked []models.PresenceState
	syncs   chan []models.PresenceState
	once    sync.Once
	closed  bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{syncs: make(chan []models.PresenceState, 8)}
}

func (c *fakeChannel) Track(_ context.Context, state models.PresenceState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracked = append(c.tracked, state)
	return nil
}

func (c *fakeChannel) Syncs() <-chan []models.PresenceState { return c.syncs }

func (c *fakeChannel) Close() error {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.syncs)
	})
	return nil
}

func (c *fakeChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeChannel) trackCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tracked)
}

type fakeDialer struct {
	mu       sync.Mutex
	channels []*fakeChannel
}

func (d *fakeDialer) DialPresence(context.Context) (Channel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch := newFakeChannel()
	d.channels = append(d.channels, ch)
	return ch, nil
}

func (d *fakeDialer) last() *fakeChannel {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.channels[len(d.channels)-1]
}

type fakeWriter struct {
	mu     sync.Mutex
	states []bool
}

func (w *fakeWriter) SetOnline(_ context.Context, online bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.states = append(w.states, online)
	return nil
}

func (w *fakeWriter) lastState() (bool, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.states) == 0 {
		return false, false
	}
	return w.states[len(w.states)-1], true
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not reached in time")
}

func selfState() models.PresenceState {
	return models.PresenceState{UserID: "u1", Username: "ghost_42"}
}

func TestOnlineUsersExcludesSelfAndStaleMembers(t *testing.T) {
	dialer := &fakeDialer{}
	tracker := NewTracker(dialer, &fakeWriter{}, selfState())
	require.NoError(t, tracker.Start(context.Background()))
	defer tracker.Stop()

	now := time.Now()
	tracker.now = func() time.Time { return now }

	dialer.last().syncs <- []models.PresenceState{
		{UserID: "u1", Username: "ghost_42", LastSeen: now},
		{UserID: "u2", Username: "bee", LastSeen: now.Add(-time.Minute)},
		{UserID: "u3", Username: "moth", LastSeen: now.Add(-presence.StalenessWindow - time.Second)},
	}

	waitFor(t, func() bool { return len(tracker.OnlineUsers()) == 1 })
	users := tracker.OnlineUsers()
	require.Len(t, users, 1)
	assert.Equal(t, "u2", users[0].UserID, "self and stale members stay out of the set")
}

func TestMemberAtStalenessBoundaryIsKept(t *testing.T) {
	dialer := &fakeDialer{}
	tracker := NewTracker(dialer, &fakeWriter{}, selfState())
	require.NoError(t, tracker.Start(context.Background()))
	defer tracker.Stop()

	now := time.Now()
	tracker.now = func() time.Time { return now }

	dialer.last().syncs <- []models.PresenceState{
		{UserID: "u2", LastSeen: now.Add(-presence.StalenessWindow)},
	}

	waitFor(t, func() bool { return len(tracker.OnlineUsers()) == 1 })
}

func TestDroppedChannelYieldsEmptySet(t *testing.T) {
	dialer := &fakeDialer{}
	tracker := NewTracker(dialer, &fakeWriter{}, selfState())
	require.NoError(t, tracker.Start(context.Background()))
	defer tracker.Stop()

	channel := dialer.last()
	channel.syncs <- []models.PresenceState{{UserID: "u2", LastSeen: time.Now()}}
	waitFor(t, func() bool { return len(tracker.OnlineUsers()) == 1 })

	channel.Close()
	waitFor(t, func() bool { return len(tracker.OnlineUsers()) == 0 })
}

func TestStartAnnouncesOnline(t *testing.T) {
	dialer := &fakeDialer{}
	writer := &fakeWriter{}
	tracker := NewTracker(dialer, writer, selfState())
	require.NoError(t, tracker.Start(context.Background()))
	defer tracker.Stop()

	online, ok := writer.lastState()
	require.True(t, ok)
	assert.True(t, online)
	waitFor(t, func() bool { return dialer.last().trackCount() == 1 })
}

func TestRestartTearsDownPreviousChannel(t *testing.T) {
	dialer := &fakeDialer{}
	tracker := NewTracker(dialer, &fakeWriter{}, selfState())
	require.NoError(t, tracker.Start(context.Background()))
	first := dialer.last()

	require.NoError(t, tracker.Start(context.Background()))
	defer tracker.Stop()
	second := dialer.last()

	assert.True(t, first.isClosed(), "restart must close the old subscription")
	require.NotSame(t, first, second)

	// Syncs on the dead channel must not reach the tracker.
	second.syncs <- []models.PresenceState{{UserID: "u2", LastSeen: time.Now()}}
	waitFor(t, func() bool { return len(tracker.OnlineUsers()) == 1 })
}

func TestStopAnnouncesOffline(t *testing.T) {
	dialer := &fakeDialer{}
	writer := &fakeWriter{}
	tracker := NewTracker(dialer, writer, selfState())
	require.NoError(t, tracker.Start(context.Background()))

	tracker.Stop()

	online, ok := writer.lastState()
	require.True(t, ok)
	assert.False(t, online)
	assert.True(t, dialer.last().isClosed())
	assert.Empty(t, tracker.OnlineUsers())
}

func TestHiddenPageAnnouncesOffline(t *testing.T) {
	dialer := &fakeDialer{}
	writer := &fakeWriter{}
	tracker := NewTracker(dialer, writer, selfState())
	require.NoError(t, tracker.Start(context.Background()))
	defer tracker.Stop()

	tracker.SetVisible(context.Background(), false)
	online, ok := writer.lastState()
	require.True(t, ok)
	assert.False(t, online)

	tracker.SetVisible(context.Background(), true)
	online, _ = writer.lastState()
	assert.True(t, online)
	waitFor(t, func() bool { return dialer.last().trackCount() == 2 })
}
