package stream

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"anonchat/internal/models"
)

// Target is the one conversation a synchronizer is live on: a public
// room or a private chat, never both.
type Target struct {
	RoomID string
	ChatID string
}

// Valid reports whether exactly one side of the target is set.
func (t Target) Valid() bool {
	return (t.RoomID != "") != (t.ChatID != "")
}

// Event is an inbound change-feed event scoped to one conversation.
type Event struct {
	Action  string
	Message models.Message
}

// Subscription is one live message feed. Events closes when the feed
// drops or is torn down.
type Subscription interface {
	Events() <-chan Event
	Close() error
}

// Backend is the remote surface the synchronizer needs.
type Backend interface {
	History(ctx context.Context, target Target) ([]models.Message, error)
	Send(ctx context.Context, target Target, content, msgType string) (models.Message, error)
	TouchChat(ctx context.Context, chatID string) error
	Subscribe(ctx context.Context, target Target) (Subscription, error)
}

// Entry is a message as the conversation view sees it: the row plus the
// local delivery bookkeeping for optimistic sends.
type Entry struct {
	models.Message
	Delivered     bool
	CorrelationID string
}

// Send phases. A provisional entry either confirms in place or is
// removed; it never lingers.
const (
	sendProvisional = iota
	sendConfirmed
	sendFailed
)

var (
	// ErrNoTarget is returned when Send is called before Activate.
	ErrNoTarget = errors.New("no active conversation")
	// ErrInvalidTarget is returned for a target that is not exactly a
	// room or a chat.
	ErrInvalidTarget = errors.New("target must be a room or a chat")
)

// Synchronizer keeps an ordered, duplicate-free live message list for
// exactly one conversation at a time. Switching conversations bumps an
// epoch; every inbound event and in-flight fetch is tagged with the
// epoch it belongs to, and anything from a stale epoch is dropped.
type Synchronizer struct {
	backend Backend

	mu      sync.Mutex
	target  Target
	epoch   uint64
	sub     Subscription
	active  bool
	entries []Entry
}

// NewSynchronizer builds a synchronizer over a backend.
func NewSynchronizer(backend Backend) *Synchronizer {
	return &Synchronizer{backend: backend}
}

// Activate switches to a conversation: tear down the old subscription,
// clear the list, load ascending history, then subscribe before
// accepting sends.
func (s *Synchronizer) Activate(ctx context.Context, target Target) error {
	if !target.Valid() {
		return ErrInvalidTarget
	}

	s.mu.Lock()
	s.epoch++
	epoch := s.epoch
	prev := s.sub
	s.sub = nil
	s.active = false
	s.target = target
	s.entries = nil
	s.mu.Unlock()

	if prev != nil {
		_ = prev.Close()
	}

	history, err := s.backend.History(ctx, target)
	if err != nil {
		return err
	}

	sub, err := s.backend.Subscribe(ctx, target)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.epoch != epoch {
		// Switched again while we were loading; this activation lost.
		s.mu.Unlock()
		_ = sub.Close()
		return nil
	}
	entries := make([]Entry, 0, len(history))
	for _, m := range history {
		entries = append(entries, Entry{Message: m, Delivered: true})
	}
	s.entries = entries
	s.sub = sub
	s.active = true
	s.mu.Unlock()

	go s.consume(sub, epoch)
	return nil
}

// Deactivate tears down the current subscription and clears the list.
func (s *Synchronizer) Deactivate() {
	s.mu.Lock()
	s.epoch++
	sub := s.sub
	s.sub = nil
	s.active = false
	s.target = Target{}
	s.entries = nil
	s.mu.Unlock()

	if sub != nil {
		_ = sub.Close()
	}
}

// Send appends a provisional entry immediately, then reconciles with the
// server's copy: confirmed in place on success, removed entirely on
// failure so the caller can restore its input.
func (s *Synchronizer) Send(ctx context.Context, content, senderID, senderName, msgType string) (Entry, error) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return Entry{}, ErrNoTarget
	}
	target := s.target
	epoch := s.epoch

	correlation := uuid.NewString()
	provisional := Entry{
		Message: models.Message{
			ID:         correlation,
			SenderID:   senderID,
			SenderName: senderName,
			Content:    content,
			Type:       msgType,
		},
		Delivered:     false,
		CorrelationID: correlation,
	}
	if target.RoomID != "" {
		provisional.ChatRoomID = &target.RoomID
	} else {
		provisional.PrivateChatID = &target.ChatID
	}
	s.entries = append(s.entries, provisional)
	s.mu.Unlock()

	confirmed, err := s.backend.Send(ctx, target, content, msgType)
	phase := sendConfirmed
	if err != nil {
		phase = sendFailed
	}

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		if err != nil {
			return Entry{}, err
		}
		return Entry{Message: confirmed, Delivered: true}, nil
	}
	switch phase {
	case sendConfirmed:
		// The feed may have echoed the server row before the response
		// arrived; in that case the confirmed id is already in the list
		// and the provisional entry is dropped instead of replaced.
		echoed := false
		for i := range s.entries {
			if s.entries[i].ID == confirmed.ID {
				echoed = true
				break
			}
		}
		if echoed {
			kept := s.entries[:0]
			for _, e := range s.entries {
				if e.CorrelationID != correlation {
					kept = append(kept, e)
				}
			}
			s.entries = kept
			break
		}
		for i := range s.entries {
			if s.entries[i].CorrelationID == correlation {
				s.entries[i] = Entry{Message: confirmed, Delivered: true, CorrelationID: correlation}
				break
			}
		}
	case sendFailed:
		kept := s.entries[:0]
		for _, e := range s.entries {
			if e.CorrelationID != correlation {
				kept = append(kept, e)
			}
		}
		s.entries = kept
	}
	s.mu.Unlock()

	if err != nil {
		return Entry{}, err
	}
	if target.ChatID != "" {
		// Keep directory ordering in step with the send.
		_ = s.backend.TouchChat(ctx, target.ChatID)
	}
	return Entry{Message: confirmed, Delivered: true, CorrelationID: correlation}, nil
}

// Messages returns the current ordered list.
func (s *Synchronizer) Messages() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}

func (s *Synchronizer) consume(sub Subscription, epoch uint64) {
	for event := range sub.Events() {
		s.mu.Lock()
		if s.epoch != epoch {
			s.mu.Unlock()
			return
		}
		s.apply(event)
		s.mu.Unlock()
	}
}

// apply handles one inbound event under the lock. Inserts for an id
// already present are no-ops (our own writes echo back); updates may
// only change the read flag, everything else about a stored message is
// immutable.
func (s *Synchronizer) apply(event Event) {
	switch event.Action {
	case models.FeedInsert:
		for _, e := range s.entries {
			if e.ID == event.Message.ID {
				return
			}
		}
		s.entries = append(s.entries, Entry{Message: event.Message, Delivered: true})
	case models.FeedUpdate:
		for i := range s.entries {
			if s.entries[i].ID == event.Message.ID {
				s.entries[i].IsRead = event.Message.IsRead
				return
			}
		}
	}
}
