package directory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anonchat/internal/models"
)

type fakeInvalidations struct {
	events chan string
	once   sync.Once
	closed bool
	mu     sync.Mutex
}

func newFakeInvalidations() *fakeInvalidations {
	return &fakeInvalidations{events: make(chan string, 8)}
}

func (f *fakeInvalidations) Events() <-chan string { return f.events }

func (f *fakeInvalidations) Close() error {
	f.once.Do(func() {
		f.mu.Lock()
		f.closed = true
		f.mu.Unlock()
		close(f.events)
	})
	return nil
}

func (f *fakeInvalidations) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeBackend struct {
	mu        sync.Mutex
	chats     []models.ChatView
	subs      []*fakeInvalidations
	listCalls int
	created   []string
}

func (b *fakeBackend) ListChats(context.Context) ([]models.ChatView, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listCalls++
	return append([]models.ChatView(nil), b.chats...), nil
}

func (b *fakeBackend) FindOrCreateChat(_ context.Context, otherID string) (models.PrivateChat, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.created = append(b.created, otherID)
	for _, c := range b.chats {
		if c.Participant1 == otherID || c.Participant2 == otherID {
			return c.PrivateChat, nil
		}
	}
	chat := models.PrivateChat{ID: "chat-" + otherID, Participant1: "u1", Participant2: otherID}
	b.chats = append(b.chats, models.ChatView{PrivateChat: chat})
	return chat, nil
}

func (b *fakeBackend) BlockChat(_ context.Context, chatID string) error {
	return b.setBlocked(chatID, strPtr("u1"))
}

func (b *fakeBackend) UnblockChat(_ context.Context, chatID string) error {
	return b.setBlocked(chatID, nil)
}

func (b *fakeBackend) setBlocked(chatID string, by *string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.chats {
		if b.chats[i].ID == chatID {
			b.chats[i].BlockedBy = by
		}
	}
	return nil
}

func (b *fakeBackend) MarkChatRead(_ context.Context, chatID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.chats {
		if b.chats[i].ID == chatID {
			b.chats[i].UnreadCount = 0
		}
	}
	return nil
}

func (b *fakeBackend) SubscribeTables(_ context.Context, _ []string) (Invalidations, error) {
	sub := newFakeInvalidations()
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	return sub, nil
}

func (b *fakeBackend) lastSub() *fakeInvalidations {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subs[len(b.subs)-1]
}

func (b *fakeBackend) listCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listCalls
}

func strPtr(s string) *string { return &s }

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

func seededBackend() *fakeBackend {
	return &fakeBackend{chats: []models.ChatView{
		{PrivateChat: models.PrivateChat{ID: "chat-1", Participant1: "u1", Participant2: "u2"}, UnreadCount: 2},
		{PrivateChat: models.PrivateChat{ID: "chat-2", Participant1: "u1", Participant2: "u3"}, UnreadCount: 5},
	}}
}

func TestStartLoadsDirectory(t *testing.T) {
	backend := seededBackend()
	d := NewDirectory(backend, "u1")
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	assert.Len(t, d.Chats(), 2)
	assert.Equal(t, 2, d.UnreadCount("chat-1"))
	assert.Equal(t, 0, d.UnreadCount("chat-unknown"))
}

func TestUnreadAccountingIsPerChat(t *testing.T) {
	backend := seededBackend()
	d := NewDirectory(backend, "u1")
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	require.NoError(t, d.MarkRead(context.Background(), "chat-1"))

	assert.Equal(t, 0, d.UnreadCount("chat-1"))
	assert.Equal(t, 5, d.UnreadCount("chat-2"), "marking one chat read leaves the others alone")
}

func TestFindOrCreateChatIsIdempotent(t *testing.T) {
	backend := seededBackend()
	d := NewDirectory(backend, "u1")
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	first, err := d.FindOrCreateChat(context.Background(), "u4")
	require.NoError(t, err)
	second, err := d.FindOrCreateChat(context.Background(), "u4")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "one conversation per user pair")
	assert.Len(t, d.Chats(), 3)
}

func TestGuardSendRejectsBlockedChat(t *testing.T) {
	backend := seededBackend()
	d := NewDirectory(backend, "u1")
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	require.NoError(t, d.GuardSend("chat-1"))

	require.NoError(t, d.BlockUser(context.Background(), "chat-1"))
	assert.ErrorIs(t, d.GuardSend("chat-1"), ErrChatBlocked)
	assert.ErrorIs(t, d.GuardSend("nope"), ErrUnknownChat)

	require.NoError(t, d.UnblockUser(context.Background(), "chat-1"))
	assert.NoError(t, d.GuardSend("chat-1"), "unblock re-enables sends")
}

func TestBlockKeepsHistoryVisible(t *testing.T) {
	backend := seededBackend()
	d := NewDirectory(backend, "u1")
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	require.NoError(t, d.BlockUser(context.Background(), "chat-1"))

	chats := d.Chats()
	require.Len(t, chats, 2, "blocking hides nothing from the directory")
	for _, c := range chats {
		if c.ID == "chat-1" {
			require.NotNil(t, c.BlockedBy)
			assert.Equal(t, "u1", *c.BlockedBy)
		}
	}
}

func TestInvalidationTriggersRefresh(t *testing.T) {
	backend := seededBackend()
	d := NewDirectory(backend, "u1")
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()
	before := backend.listCount()

	backend.mu.Lock()
	backend.chats = append(backend.chats, models.ChatView{
		PrivateChat: models.PrivateChat{ID: "chat-3", Participant1: "u1", Participant2: "u9"},
	})
	backend.mu.Unlock()

	backend.lastSub().events <- "private_chats"

	waitFor(t, func() bool { return backend.listCount() > before })
	waitFor(t, func() bool { return len(d.Chats()) == 3 })
}

func TestStopClosesSubscription(t *testing.T) {
	backend := seededBackend()
	d := NewDirectory(backend, "u1")
	require.NoError(t, d.Start(context.Background()))

	d.Stop()
	assert.True(t, backend.lastSub().isClosed())
}

func TestRestartReplacesSubscription(t *testing.T) {
	backend := seededBackend()
	d := NewDirectory(backend, "u1")
	require.NoError(t, d.Start(context.Background()))
	first := backend.lastSub()

	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	assert.True(t, first.isClosed(), "restart must drop the old feed")
	assert.NotSame(t, first, backend.lastSub())
}
