package duo

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(10*time.Minute, 25, zerolog.Nop())
}

func TestCreateAllocatesUniqueCodes(t *testing.T) {
	store := newTestStore(t)
	seen := make(map[string]bool)

	for i := 0; i < 200; i++ {
		room, err := store.Create(uuid.New(), "host")
		require.NoError(t, err)
		assert.Len(t, room.Code, 4)
		assert.False(t, seen[room.Code], "code %s allocated twice", room.Code)
		seen[room.Code] = true
		assert.Equal(t, StatusWaiting, room.Status)
	}
	assert.Equal(t, 200, store.Len())
}

func TestCreateFailsClosedWhenCodeSpaceExhausted(t *testing.T) {
	store := newTestStore(t)

	created := 0
	var lastErr error
	for i := 0; i <= 9000; i++ {
		if _, err := store.Create(uuid.New(), "host"); err != nil {
			lastErr = err
			break
		}
		created++
	}

	require.Error(t, lastErr)
	assert.ErrorIs(t, lastErr, ErrCodeExhausted)
	assert.LessOrEqual(t, created, 9000)
}

func TestSnapshotReturnsIsolatedCopy(t *testing.T) {
	store := newTestStore(t)
	room, err := store.Create(uuid.New(), "host")
	require.NoError(t, err)

	snap, err := store.Snapshot(room.Code)
	require.NoError(t, err)

	snap.HostScore = 42
	snap.HostAnswers["q1"] = Answer{Correct: true}
	snap.Status = StatusFinished

	fresh, err := store.Snapshot(room.Code)
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.HostScore)
	assert.Empty(t, fresh.HostAnswers)
	assert.Equal(t, StatusWaiting, fresh.Status)
}

func TestSnapshotUnknownCode(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Snapshot("0000")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestUpdateCommitsAndBumpsVersion(t *testing.T) {
	store := newTestStore(t)
	room, err := store.Create(uuid.New(), "host")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), room.Version)

	updated, err := store.Update(room.Code, func(r *Room) error {
		r.HostScore = 3
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), updated.Version)
	assert.Equal(t, 3, updated.HostScore)

	boom := errors.New("boom")
	_, err = store.Update(room.Code, func(r *Room) error {
		r.HostScore = 99
		return boom
	})
	assert.ErrorIs(t, err, boom)

	snap, err := store.Snapshot(room.Code)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), snap.Version, "failed update must not bump version")
	assert.Equal(t, 3, snap.HostScore, "failed update must not persist")
}

func TestConcurrentUpdatesSerialize(t *testing.T) {
	store := newTestStore(t)
	room, err := store.Create(uuid.New(), "host")
	require.NoError(t, err)

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := store.Update(room.Code, func(r *Room) error {
				r.HostScore++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := store.Snapshot(room.Code)
	require.NoError(t, err)
	assert.Equal(t, workers, snap.HostScore)
	assert.Equal(t, uint64(workers), snap.Version)
}

func TestSweepRemovesOnlyIdleWaitingRooms(t *testing.T) {
	store := NewStore(10*time.Minute, 25, zerolog.Nop())

	idle, err := store.Create(uuid.New(), "idle-host")
	require.NoError(t, err)
	fresh, err := store.Create(uuid.New(), "fresh-host")
	require.NoError(t, err)
	active, err := store.Create(uuid.New(), "active-host")
	require.NoError(t, err)

	old := time.Now().Add(-30 * time.Minute)
	_, err = store.Update(idle.Code, func(r *Room) error {
		r.CreatedAt = old
		return nil
	})
	require.NoError(t, err)
	_, err = store.Update(active.Code, func(r *Room) error {
		r.CreatedAt = old
		r.Status = StatusInProgress
		return nil
	})
	require.NoError(t, err)

	swept := store.Sweep(time.Now())
	assert.Equal(t, 1, swept)

	_, err = store.Snapshot(idle.Code)
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = store.Snapshot(fresh.Code)
	assert.NoError(t, err)
	_, err = store.Snapshot(active.Code)
	assert.NoError(t, err, "abandoned in-flight matches are not reaped")
}

func TestUpdateAfterSweepReportsNotFound(t *testing.T) {
	store := NewStore(time.Minute, 25, zerolog.Nop())
	room, err := store.Create(uuid.New(), "host")
	require.NoError(t, err)

	_, err = store.Update(room.Code, func(r *Room) error {
		r.CreatedAt = time.Now().Add(-time.Hour)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, store.Sweep(time.Now()))

	_, err = store.Update(room.Code, func(r *Room) error { return nil })
	assert.ErrorIs(t, err, ErrRoomNotFound)
}
