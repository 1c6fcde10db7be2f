package selection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/meetfinder/internal/logging"
)

func TestStore_CreateGetDelete(t *testing.T) {
	store := NewStore(time.Hour, logging.Discard())
	defer store.Stop()

	id, sel := store.Create("alice", testResult())
	require.NotEmpty(t, id)
	assert.Equal(t, 1, store.Len())

	got, err := store.Get("alice", id)
	require.NoError(t, err)
	assert.Same(t, sel, got)

	_, err = store.Get("mallory", id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.False(t, store.Delete("mallory", id))

	assert.True(t, store.Delete("alice", id))
	_, err = store.Get("alice", id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Zero(t, store.Len())
}

func TestStore_Expiry(t *testing.T) {
	store := NewStore(time.Hour, logging.Discard())
	defer store.Stop()

	now := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	expiring, _ := store.Create("alice", testResult())
	kept, _ := store.Create("alice", testResult())

	now = now.Add(50 * time.Minute)
	_, err := store.Get("alice", kept)
	require.NoError(t, err)

	now = now.Add(20 * time.Minute)
	assert.Equal(t, 1, store.Sweep())

	_, err = store.Get("alice", expiring)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.Get("alice", kept)
	assert.NoError(t, err)
}

func TestStore_UniqueIDs(t *testing.T) {
	store := NewStore(0, nil)
	defer store.Stop()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id, _ := store.Create("alice", testResult())
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestStore_StopIsIdempotent(t *testing.T) {
	store := NewStore(time.Minute, nil)
	store.Stop()
	store.Stop()
}

func TestStore_OnRemove(t *testing.T) {
	store := NewStore(time.Hour, logging.Discard())
	defer store.Stop()

	now := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	removed := 0
	store.OnRemove(func(n int) { removed += n })

	id, _ := store.Create("alice", testResult())
	store.Create("alice", testResult())
	store.Create("bob", testResult())

	assert.True(t, store.Delete("alice", id))
	assert.Equal(t, 1, removed)

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 2, store.Sweep())
	assert.Equal(t, 3, removed)
	assert.Zero(t, store.Sweep())
	assert.Equal(t, 3, removed)
}

type recordingLogger struct {
	debug []string
}

func (r *recordingLogger) Debug(msg string, _ ...any) { r.debug = append(r.debug, msg) }
func (r *recordingLogger) Info(string, ...any)        {}
func (r *recordingLogger) Warn(string, ...any)        {}
func (r *recordingLogger) Error(string, ...any)       {}

func TestStore_LogsThroughLogger(t *testing.T) {
	rec := &recordingLogger{}
	store := NewStore(time.Hour, rec)
	defer store.Stop()

	store.Create("alice", testResult())
	assert.Equal(t, []string{"selection session created"}, rec.debug)
}
