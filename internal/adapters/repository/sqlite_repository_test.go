package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/domain"
)

func openTestSQLite(t *testing.T) *SQLiteSessionRepository {
	t.Helper()
	db, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "kanso.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLiteSessionRepository(db)
}

func TestSQLiteSessionRepository(t *testing.T) {
	ctx := context.Background()
	repo := openTestSQLite(t)

	now := time.Date(2026, 6, 1, 12, 0, 0, 500, time.UTC)
	records := []*domain.SessionRecord{
		domain.NewSessionRecord("local", domain.ActivityFocus, 1500, now.AddDate(0, 0, -2)),
		domain.NewSessionRecord("local", domain.ActivityBreathe, 60, now),
		domain.NewSessionRecord("local", domain.ActivityRest, 300, now.AddDate(-2, 0, 0)),
		domain.NewSessionRecord("other", domain.ActivityFocus, 60, now),
	}
	for _, r := range records {
		require.NoError(t, repo.Append(ctx, r))
	}

	list, err := repo.ListByUserID(ctx, "local", now.AddDate(0, 0, -30))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, records[0].ID, list[0].ID)
	assert.True(t, list[1].Timestamp.Equal(now), "nanoseconds survive the round trip")
	assert.Equal(t, domain.ActivityBreathe, list[1].Activity)

	n, err := repo.PruneBefore(ctx, "local", now.AddDate(0, 0, -domain.HistoryRetentionDays))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	all, err := repo.ListByUserID(ctx, "local", time.Time{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSQLiteKV(t *testing.T) {
	ctx := context.Background()
	repo := openTestSQLite(t)
	kv := NewSQLiteKV(repo.db)

	_, ok, err := kv.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, "k", "v1"))
	require.NoError(t, kv.Set(ctx, "k", "v2"))

	v, ok, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", v)
}

type mapKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newMapKV() *mapKV { return &mapKV{data: map[string]string{}} }

func (m *mapKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func TestKVCounterStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Round trips every family", func(t *testing.T) {
		store := NewKVCounterStore(newMapKV())

		focus := domain.FocusStats{FocusSessionsCompleted: 3, TotalFocusTimeSeconds: 4500, ShortBreaksCompleted: 2}
		require.NoError(t, store.SaveFocusStats(ctx, "u1", focus))
		got, err := store.GetFocusStats(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, focus, got)

		require.NoError(t, store.SaveBreatheStats(ctx, "u1", domain.BreatheStats{SessionsCompleted: 1}))
		breathe, _ := store.GetBreatheStats(ctx, "u1")
		assert.Equal(t, 1, breathe.SessionsCompleted)

		require.NoError(t, store.SaveSleepStats(ctx, "u1", domain.SleepStats{NightsLogged: 4}))
		sleep, _ := store.GetSleepStats(ctx, "u1")
		assert.Equal(t, 4, sleep.NightsLogged)

		at := time.Date(2026, 1, 2, 3, 4, 5, 6, time.FixedZone("CET", 3600))
		require.NoError(t, store.SetLastActivity(ctx, "u1", at))
		last, _ := store.GetLastActivity(ctx, "u1")
		assert.True(t, last.Equal(at))

		other, _ := store.GetFocusStats(ctx, "u2")
		assert.Equal(t, domain.FocusStats{}, other)
	})

	t.Run("Corrupt blobs read as defaults", func(t *testing.T) {
		kv := newMapKV()
		store := NewKVCounterStore(kv)

		kv.data[counterKey("u1", "focus")] = "{not json"
		kv.data[counterKey("u1", "streak")] = `["wrong shape"]`
		kv.data[counterKey("u1", "last_activity")] = "yesterday-ish"

		focus, err := store.GetFocusStats(ctx, "u1")
		assert.NoError(t, err)
		assert.Equal(t, domain.FocusStats{}, focus)

		snap, err := store.GetStreakSnapshot(ctx, "u1")
		assert.NoError(t, err)
		assert.Equal(t, domain.StreakSnapshot{}, snap)

		last, err := store.GetLastActivity(ctx, "u1")
		assert.NoError(t, err)
		assert.True(t, last.IsZero())
	})
}
