package appstate

import "sync"

// Store owns one State and serializes transitions. It is constructed
// explicitly and passed down, never a package global, so each test gets
// a fresh one.
type Store struct {
	mu    sync.Mutex
	state State
}

// NewStore starts from the initial snapshot.
func NewStore() *Store {
	return &Store{state: Initial()}
}

// Dispatch applies an action and returns the resulting snapshot.
func (s *Store) Dispatch(action Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reduce(s.state, action)
	return s.state
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
