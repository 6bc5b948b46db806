package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anonchat/internal/models"
)

type fakeSubscription struct {
	events chan Event
	once   sync.Once
	closed chan struct{}
}

func newFakeSubscription() *fakeSubscription {
	return &fakeSubscription{events: make(chan Event, 16), closed: make(chan struct{})}
}

func (f *fakeSubscription) Events() <-chan Event { return f.events }

func (f *fakeSubscription) Close() error {
	f.once.Do(func() {
		close(f.closed)
		close(f.events)
	})
	return nil
}

func (f *fakeSubscription) emit(t *testing.T, event Event) {
	t.Helper()
	select {
	case f.events <- event:
	case <-f.closed:
		t.Fatalf("emit on a closed subscription")
	}
}

type fakeBackend struct {
	mu      sync.Mutex
	history map[Target][]models.Message
	subs    []*fakeSubscription

	sendErr          error
	sent             []string
	touched          []string
	historyFn        func(target Target) // called before History returns, for races
	beforeSendReturn func(msg models.Message)
	nextID           int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{history: make(map[Target][]models.Message)}
}

func (b *fakeBackend) History(_ context.Context, target Target) ([]models.Message, error) {
	if b.historyFn != nil {
		b.historyFn(target)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Message(nil), b.history[target]...), nil
}

func (b *fakeBackend) Send(_ context.Context, target Target, content, msgType string) (models.Message, error) {
	b.mu.Lock()
	if b.sendErr != nil {
		b.mu.Unlock()
		return models.Message{}, b.sendErr
	}
	b.nextID++
	b.sent = append(b.sent, content)
	hook := b.beforeSendReturn
	b.mu.Unlock()

	msg := models.Message{ID: "srv-" + content, Content: content, Type: msgType}
	if target.RoomID != "" {
		msg.ChatRoomID = &target.RoomID
	} else {
		msg.PrivateChatID = &target.ChatID
	}
	if hook != nil {
		hook(msg)
	}
	return msg, nil
}

func (b *fakeBackend) TouchChat(_ context.Context, chatID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.touched = append(b.touched, chatID)
	return nil
}

func (b *fakeBackend) Subscribe(_ context.Context, _ Target) (Subscription, error) {
	sub := newFakeSubscription()
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	return sub, nil
}

func (b *fakeBackend) lastSub() *fakeSubscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subs[len(b.subs)-1]
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

func TestActivateRejectsInvalidTargets(t *testing.T) {
	s := NewSynchronizer(newFakeBackend())

	assert.ErrorIs(t, s.Activate(context.Background(), Target{}), ErrInvalidTarget)
	assert.ErrorIs(t, s.Activate(context.Background(), Target{RoomID: "r", ChatID: "c"}), ErrInvalidTarget)
}

func TestSendWithoutActivationFails(t *testing.T) {
	s := NewSynchronizer(newFakeBackend())

	_, err := s.Send(context.Background(), "hi", "u1", "ghost", models.MessageTypeText)
	assert.ErrorIs(t, err, ErrNoTarget)
}

func TestProvisionalSendConfirmsInPlace(t *testing.T) {
	backend := newFakeBackend()
	target := Target{RoomID: "room-1"}
	s := NewSynchronizer(backend)
	require.NoError(t, s.Activate(context.Background(), target))

	entry, err := s.Send(context.Background(), "hello", "u1", "ghost", models.MessageTypeText)
	require.NoError(t, err)
	assert.True(t, entry.Delivered)
	assert.Equal(t, "srv-hello", entry.ID)

	msgs := s.Messages()
	require.Len(t, msgs, 1, "confirmed entry replaces the provisional one, never joins it")
	assert.Equal(t, "srv-hello", msgs[0].ID)
	assert.True(t, msgs[0].Delivered)
}

func TestEchoBeforeSendReturnsDoesNotDuplicate(t *testing.T) {
	backend := newFakeBackend()
	s := NewSynchronizer(backend)
	require.NoError(t, s.Activate(context.Background(), Target{RoomID: "room-1"}))

	// The feed delivers the server's insert while the send response is
	// still in flight, and the reconcile must not re-add it.
	backend.beforeSendReturn = func(msg models.Message) {
		backend.lastSub().emit(t, Event{Action: models.FeedInsert, Message: msg})
		waitFor(t, func() bool {
			for _, e := range s.Messages() {
				if e.ID == msg.ID {
					return true
				}
			}
			return false
		})
	}

	entry, err := s.Send(context.Background(), "hello", "u1", "ghost", models.MessageTypeText)
	require.NoError(t, err)
	assert.Equal(t, "srv-hello", entry.ID)

	msgs := s.Messages()
	require.Len(t, msgs, 1, "echoed row and confirmed provisional must collapse to one entry")
	assert.Equal(t, "srv-hello", msgs[0].ID)
	assert.True(t, msgs[0].Delivered)
}

func TestOwnEchoDoesNotDuplicate(t *testing.T) {
	backend := newFakeBackend()
	target := Target{RoomID: "room-1"}
	s := NewSynchronizer(backend)
	require.NoError(t, s.Activate(context.Background(), target))

	entry, err := s.Send(context.Background(), "hello", "u1", "ghost", models.MessageTypeText)
	require.NoError(t, err)

	// The server broadcasts our own insert back to us.
	backend.lastSub().emit(t, Event{Action: models.FeedInsert, Message: entry.Message})
	// And a replay of the same event.
	backend.lastSub().emit(t, Event{Action: models.FeedInsert, Message: entry.Message})

	waitFor(t, func() bool { return len(s.Messages()) >= 1 })
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, s.Messages(), 1)
}

func TestFailedSendIsRemoved(t *testing.T) {
	backend := newFakeBackend()
	backend.sendErr = errors.New("boom")
	s := NewSynchronizer(backend)
	require.NoError(t, s.Activate(context.Background(), Target{ChatID: "chat-1"}))

	_, err := s.Send(context.Background(), "hello", "u1", "ghost", models.MessageTypeText)
	require.Error(t, err)

	assert.Empty(t, s.Messages(), "failed provisional entry must not linger")
	assert.Empty(t, backend.touched, "a failed send must not touch the chat")
}

func TestChatSendTouchesChat(t *testing.T) {
	backend := newFakeBackend()
	s := NewSynchronizer(backend)
	require.NoError(t, s.Activate(context.Background(), Target{ChatID: "chat-1"}))

	_, err := s.Send(context.Background(), "hello", "u1", "ghost", models.MessageTypeText)
	require.NoError(t, err)
	assert.Equal(t, []string{"chat-1"}, backend.touched)
}

func TestUpdateOnlyPatchesReadFlag(t *testing.T) {
	backend := newFakeBackend()
	chatID := "chat-1"
	backend.history[Target{ChatID: chatID}] = []models.Message{
		{ID: "m1", PrivateChatID: &chatID, Content: "original"},
	}
	s := NewSynchronizer(backend)
	require.NoError(t, s.Activate(context.Background(), Target{ChatID: chatID}))

	backend.lastSub().emit(t, Event{Action: models.FeedUpdate, Message: models.Message{
		ID: "m1", Content: "tampered", IsRead: true,
	}})

	waitFor(t, func() bool { return s.Messages()[0].IsRead })
	assert.Equal(t, "original", s.Messages()[0].Content, "updates may only change the read flag")
}

func TestRapidSwitchDropsStaleSubscriptionEvents(t *testing.T) {
	backend := newFakeBackend()
	roomA := Target{RoomID: "room-a"}
	roomB := Target{RoomID: "room-b"}
	backend.history[roomB] = []models.Message{{ID: "b1", Content: "in b"}}

	s := NewSynchronizer(backend)
	require.NoError(t, s.Activate(context.Background(), roomA))
	staleSub := backend.lastSub()
	require.NoError(t, s.Activate(context.Background(), roomB))

	// The old feed is closed by the switch; anything it already buffered
	// belongs to the dead epoch and must be dropped.
	select {
	case <-staleSub.closed:
	default:
		select {
		case staleSub.events <- Event{Action: models.FeedInsert, Message: models.Message{ID: "a1", Content: "stale"}}:
		default:
		}
	}

	time.Sleep(20 * time.Millisecond)
	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "b1", msgs[0].ID)
}

func TestRapidSwitchDropsSlowHistoryFetch(t *testing.T) {
	backend := newFakeBackend()
	roomA := Target{RoomID: "room-a"}
	roomB := Target{RoomID: "room-b"}
	backend.history[roomA] = []models.Message{{ID: "a1", Content: "in a"}}
	backend.history[roomB] = []models.Message{{ID: "b1", Content: "in b"}}

	s := NewSynchronizer(backend)

	started := make(chan struct{})
	release := make(chan struct{})
	backend.historyFn = func(target Target) {
		if target == roomA {
			close(started)
			<-release
		}
	}

	done := make(chan error, 1)
	go func() { done <- s.Activate(context.Background(), roomA) }()
	<-started

	// Switch to B while A's history is still in flight.
	backend.historyFn = nil
	require.NoError(t, s.Activate(context.Background(), roomB))
	close(release)
	require.NoError(t, <-done)

	msgs := s.Messages()
	require.Len(t, msgs, 1, "the losing activation must not install its history")
	assert.Equal(t, "b1", msgs[0].ID)
}

func TestDeactivateClearsAndClosesFeed(t *testing.T) {
	backend := newFakeBackend()
	s := NewSynchronizer(backend)
	require.NoError(t, s.Activate(context.Background(), Target{RoomID: "room-1"}))
	sub := backend.lastSub()

	s.Deactivate()

	assert.Empty(t, s.Messages())
	select {
	case <-sub.closed:
	case <-time.After(time.Second):
		t.Fatal("subscription was not closed on deactivate")
	}
	_, err := s.Send(context.Background(), "hi", "u1", "ghost", models.MessageTypeText)
	assert.ErrorIs(t, err, ErrNoTarget)
}
