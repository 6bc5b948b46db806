package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anonchat/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "session.json"))
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)

	data := UserData{
		CurrentUser:   &models.Profile{ID: "u1", Username: "ghost_42"},
		UsedUsernames: []string{"ghost_42"},
		SessionData:   map[string]string{"theme": "dark"},
	}
	require.NoError(t, store.Save(data))

	snap, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "ghost_42", snap.UserData.CurrentUser.Username)
	assert.Equal(t, []string{"ghost_42"}, snap.UserData.UsedUsernames)
	assert.WithinDuration(t, snap.Timestamp.Add(TTL), snap.ExpiresAt, time.Second)
}

func TestLoadAfterExpiryDeletesFile(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(UserData{UsedUsernames: []string{"ghost_42"}}))

	// Jump the clock past the expiry.
	store.now = func() time.Time { return time.Now().Add(TTL + time.Second) }

	snap, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, snap)

	_, statErr := os.Stat(store.path)
	assert.True(t, os.IsNotExist(statErr), "expired file must be removed")
}

func TestLoadMissingFileReturnsNil(t *testing.T) {
	store := newTestStore(t)

	snap, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestLoadCorruptFileDeletesAndReturnsNil(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.WriteFile(store.path, []byte("{not json"), 0o600))

	snap, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, snap)

	_, statErr := os.Stat(store.path)
	assert.True(t, os.IsNotExist(statErr), "corrupt file must be removed")
}

func TestClearIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(UserData{}))
	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())
}

func TestAutosaverSaveNowNotifies(t *testing.T) {
	store := newTestStore(t)
	saver := NewAutosaver(store, time.Hour)

	saver.Update(UserData{UsedUsernames: []string{"ghost_42"}})
	saver.SaveNow()

	select {
	case <-saver.Notify():
	default:
		t.Fatal("expected a notification after SaveNow")
	}

	snap, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, []string{"ghost_42"}, snap.UserData.UsedUsernames)
}

func TestAutosaverFlushesPeriodically(t *testing.T) {
	store := newTestStore(t)
	saver := NewAutosaver(store, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	saver.Start(ctx)
	defer saver.Stop()

	saver.Update(UserData{UsedUsernames: []string{"ghost_42"}})

	select {
	case <-saver.Notify():
	case <-time.After(2 * time.Second):
		t.Fatal("expected periodic flush")
	}

	snap, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, snap)
}

func TestAutosaverStopFlushesDirtyData(t *testing.T) {
	store := newTestStore(t)
	saver := NewAutosaver(store, time.Hour)

	saver.Update(UserData{UsedUsernames: []string{"ghost_42"}})
	saver.Stop()

	snap, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, snap)
}
