package cache

import (
	"context"
	"log"
	"sync"
	"time"
)

// DefaultInterval is the periodic autosave cadence.
const DefaultInterval = 60 * time.Second

// Autosaver persists the latest UserData on a fixed interval and on
// demand. Every completed save or clear is announced on Notify so a
// sibling process watching the same file can reconcile; writes are
// last-writer-wins, no merging is attempted.
type Autosaver struct {
	store    *Store
	interval time.Duration
	notify   chan struct{}

	mu      sync.Mutex
	current UserData
	dirty   bool

	started  bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewAutosaver wraps a store. interval <= 0 selects DefaultInterval.
func NewAutosaver(store *Store, interval time.Duration) *Autosaver {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Autosaver{
		store:    store,
		interval: interval,
		notify:   make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Notify signals after every save or clear.
func (a *Autosaver) Notify() <-chan struct{} {
	return a.notify
}

// Update replaces the data to be persisted and marks it dirty.
func (a *Autosaver) Update(data UserData) {
	a.mu.Lock()
	a.current = data
	a.dirty = true
	a.mu.Unlock()
}

// SaveNow persists the current data immediately. A failed save is logged
// and skipped; losing the cache only costs a re-login.
func (a *Autosaver) SaveNow() {
	a.mu.Lock()
	data := a.current
	a.dirty = false
	a.mu.Unlock()

	if err := a.store.Save(data); err != nil {
		log.Printf("cache: autosave failed: %v", err)
		return
	}
	a.signal()
}

// Clear wipes the stored snapshot.
func (a *Autosaver) Clear() {
	if err := a.store.Clear(); err != nil {
		log.Printf("cache: clear failed: %v", err)
		return
	}
	a.signal()
}

// Start runs the periodic flush loop until Stop or ctx cancellation.
func (a *Autosaver) Start(ctx context.Context) {
	a.mu.Lock()
	a.started = true
	a.mu.Unlock()
	go func() {
		defer close(a.done)
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.mu.Lock()
				dirty := a.dirty
				a.mu.Unlock()
				if dirty {
					a.SaveNow()
				}
			case <-ctx.Done():
				return
			case <-a.stop:
				return
			}
		}
	}()
}

// Stop halts the flush loop, flushing once more if needed.
func (a *Autosaver) Stop() {
	a.stopOnce.Do(func() {
		close(a.stop)
		a.mu.Lock()
		started := a.started
		a.mu.Unlock()
		if started {
			<-a.done
		}
		a.mu.Lock()
		dirty := a.dirty
		a.mu.Unlock()
		if dirty {
			a.SaveNow()
		}
	})
}

func (a *Autosaver) signal() {
	select {
	case a.notify <- struct{}{}:
	default:
	}
}
