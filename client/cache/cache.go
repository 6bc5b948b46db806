package cache

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"time"

	"anonchat/internal/models"
)

// TTL is how long a saved snapshot stays readable.
const TTL = 24 * time.Hour

// UserData is the cached session payload.
type UserData struct {
	CurrentUser   *models.Profile       `json:"currentUser,omitempty"`
	ChatPartners  []models.Profile      `json:"chatPartners,omitempty"`
	PrivateChats  []models.ChatView     `json:"privateChats,omitempty"`
	Notifications []models.Notification `json:"notifications,omitempty"`
	UsedUsernames []string              `json:"usedUsernames,omitempty"`
	SessionData   map[string]string     `json:"sessionData,omitempty"`
}

// Snapshot is the durable envelope around UserData: the payload plus the
// write time and the hard expiry.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserData  UserData  `json:"userData"`
}

// Store persists one snapshot to a single file. The file is a cache of
// server-owned state, never a source of truth: an expired or corrupt file
// is deleted and treated as absent.
type Store struct {
	path string
	now  func() time.Time
}

// NewStore binds a store to a file path.
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Save writes data with a fresh timestamp and expiry, atomically.
func (s *Store) Save(data UserData) error {
	now := s.now()
	snap := Snapshot{
		Timestamp: now,
		ExpiresAt: now.Add(TTL),
		UserData:  data,
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Load returns the saved snapshot, or nil when nothing usable is stored.
// Expired and corrupt files are deleted eagerly.
func (s *Store) Load() (*Snapshot, error) {
	payload, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		log.Printf("cache: corrupt snapshot, clearing: %v", err)
		_ = s.Clear()
		return nil, nil
	}
	if s.now().After(snap.ExpiresAt) {
		_ = s.Clear()
		return nil, nil
	}
	return &snap, nil
}

// Clear deletes the snapshot file unconditionally.
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
