package directory

import (
	"context"
	"errors"
	"log"
	"sync"

	"anonchat/internal/models"
)

// Invalidations is a table-level change subscription: every event names
// the collection that changed. The channel closes when the feed drops.
type Invalidations interface {
	Events() <-chan string
	Close() error
}

// Backend is the remote surface the directory needs.
type Backend interface {
	ListChats(ctx context.Context) ([]models.ChatView, error)
	FindOrCreateChat(ctx context.Context, otherID string) (models.PrivateChat, error)
	BlockChat(ctx context.Context, chatID string) error
	UnblockChat(ctx context.Context, chatID string) error
	MarkChatRead(ctx context.Context, chatID string) error
	SubscribeTables(ctx context.Context, tables []string) (Invalidations, error)
}

// ErrChatBlocked rejects a send into a blocked conversation before any
// remote call is made.
var ErrChatBlocked = errors.New("conversation is blocked")

// ErrUnknownChat is returned when a chat id is not in the directory.
var ErrUnknownChat = errors.New("unknown conversation")

// Directory maintains the local identity's private conversation list
// with partner info and unread counts. Any change to the chats or
// messages collections triggers a full re-fetch; correctness over
// bandwidth.
type Directory struct {
	backend Backend
	selfID  string

	mu    sync.Mutex
	chats []models.ChatView
	sub   Invalidations
}

// NewDirectory builds a directory for one identity.
func NewDirectory(backend Backend, selfID string) *Directory {
	return &Directory{backend: backend, selfID: selfID}
}

// Start loads the directory and subscribes to invalidations. Restarting
// tears down the prior subscription first.
func (d *Directory) Start(ctx context.Context) error {
	d.Stop()

	if err := d.Refresh(ctx); err != nil {
		return err
	}

	sub, err := d.backend.SubscribeTables(ctx, []string{"private_chats", "messages"})
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.sub = sub
	d.mu.Unlock()

	go d.consume(ctx, sub)
	return nil
}

// Stop releases the invalidation subscription.
func (d *Directory) Stop() {
	d.mu.Lock()
	sub := d.sub
	d.sub = nil
	d.mu.Unlock()
	if sub != nil {
		_ = sub.Close()
	}
}

// Refresh re-fetches the full directory. A failure keeps the last-known
// state; the next invalidation retries anyway.
func (d *Directory) Refresh(ctx context.Context) error {
	chats, err := d.backend.ListChats(ctx)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.chats = chats
	d.mu.Unlock()
	return nil
}

// Chats returns the current directory.
func (d *Directory) Chats() []models.ChatView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.ChatView(nil), d.chats...)
}

// UnreadCount returns one chat's unread count, zero for unknown ids.
func (d *Directory) UnreadCount(chatID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range d.chats {
		if c.ID == chatID {
			return c.UnreadCount
		}
	}
	return 0
}

// FindOrCreateChat returns the single conversation with another user,
// creating it remotely if absent. Safe to call repeatedly and from
// racing sessions; the server enforces one chat per unordered pair.
func (d *Directory) FindOrCreateChat(ctx context.Context, otherID string) (models.PrivateChat, error) {
	chat, err := d.backend.FindOrCreateChat(ctx, otherID)
	if err != nil {
		return models.PrivateChat{}, err
	}
	if err := d.Refresh(ctx); err != nil {
		log.Printf("directory: refresh after create failed: %v", err)
	}
	return chat, nil
}

// GuardSend rejects sends into blocked conversations. Call it before any
// remote send; a blocked chat must not reach the server at all.
func (d *Directory) GuardSend(chatID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range d.chats {
		if c.ID != chatID {
			continue
		}
		if c.Blocked() {
			return ErrChatBlocked
		}
		return nil
	}
	return ErrUnknownChat
}

// BlockUser sets the blocked-by marker, closing the conversation for
// both sides. History is kept.
func (d *Directory) BlockUser(ctx context.Context, chatID string) error {
	if err := d.backend.BlockChat(ctx, chatID); err != nil {
		return err
	}
	d.setBlockedBy(chatID, &d.selfID)
	return nil
}

// UnblockUser clears the marker, re-enabling sends in both directions.
func (d *Directory) UnblockUser(ctx context.Context, chatID string) error {
	if err := d.backend.UnblockChat(ctx, chatID); err != nil {
		return err
	}
	d.setBlockedBy(chatID, nil)
	return nil
}

// MarkRead flips the partner's messages to read and zeroes this chat's
// unread count. Other chats are untouched.
func (d *Directory) MarkRead(ctx context.Context, chatID string) error {
	if err := d.backend.MarkChatRead(ctx, chatID); err != nil {
		return err
	}
	d.mu.Lock()
	for i := range d.chats {
		if d.chats[i].ID == chatID {
			d.chats[i].UnreadCount = 0
		}
	}
	d.mu.Unlock()
	return nil
}

func (d *Directory) setBlockedBy(chatID string, by *string) {
	d.mu.Lock()
	for i := range d.chats {
		if d.chats[i].ID == chatID {
			d.chats[i].BlockedBy = by
		}
	}
	d.mu.Unlock()
}

func (d *Directory) consume(ctx context.Context, sub Invalidations) {
	for range sub.Events() {
		d.mu.Lock()
		current := d.sub == sub
		d.mu.Unlock()
		if !current {
			return
		}
		if err := d.Refresh(ctx); err != nil {
			log.Printf("directory: refresh failed: %v", err)
		}
	}
}
