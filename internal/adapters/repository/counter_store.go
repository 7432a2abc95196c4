package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/domain"
)

// KV is the blob storage behind KVCounterStore. Get reports ok=false for a
// missing key.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// KVCounterStore keeps each counter family as one JSON blob and the last
// activity as an ISO-8601 string. Blobs that fail to decode read as the zero
// value.
type KVCounterStore struct {
	kv KV
}

func NewKVCounterStore(kv KV) *KVCounterStore {
	return &KVCounterStore{kv: kv}
}

func counterKey(userID, name string) string {
	return fmt.Sprintf("stats:%s:%s", userID, name)
}

func loadBlob[T any](ctx context.Context, kv KV, key string) (T, error) {
	var v T
	raw, ok, err := kv.Get(ctx, key)
	if err != nil || !ok {
		return v, err
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		log.Printf("[CACHE] Corrupt blob at %s, using defaults: %v", key, err)
		var zero T
		return zero, nil
	}
	return v, nil
}

func saveBlob[T any](ctx context.Context, kv KV, key string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return kv.Set(ctx, key, string(data))
}

func (s *KVCounterStore) GetFocusStats(ctx context.Context, userID string) (domain.FocusStats, error) {
	return loadBlob[domain.FocusStats](ctx, s.kv, counterKey(userID, "focus"))
}

func (s *KVCounterStore) SaveFocusStats(ctx context.Context, userID string, stats domain.FocusStats) error {
	return saveBlob(ctx, s.kv, counterKey(userID, "focus"), stats)
}

func (s *KVCounterStore) GetBreatheStats(ctx context.Context, userID string) (domain.BreatheStats, error) {
	return loadBlob[domain.BreatheStats](ctx, s.kv, counterKey(userID, "breathe"))
}

func (s *KVCounterStore) SaveBreatheStats(ctx context.Context, userID string, stats domain.BreatheStats) error {
	return saveBlob(ctx, s.kv, counterKey(userID, "breathe"), stats)
}

func (s *KVCounterStore) GetSleepStats(ctx context.Context, userID string) (domain.SleepStats, error) {
	return loadBlob[domain.SleepStats](ctx, s.kv, counterKey(userID, "sleep"))
}

func (s *KVCounterStore) SaveSleepStats(ctx context.Context, userID string, stats domain.SleepStats) error {
	return saveBlob(ctx, s.kv, counterKey(userID, "sleep"), stats)
}

func (s *KVCounterStore) GetStreakSnapshot(ctx context.Context, userID string) (domain.StreakSnapshot, error) {
	return loadBlob[domain.StreakSnapshot](ctx, s.kv, counterKey(userID, "streak"))
}

func (s *KVCounterStore) SaveStreakSnapshot(ctx context.Context, userID string, snap domain.StreakSnapshot) error {
	return saveBlob(ctx, s.kv, counterKey(userID, "streak"), snap)
}

func (s *KVCounterStore) GetLastActivity(ctx context.Context, userID string) (time.Time, error) {
	key := counterKey(userID, "last_activity")
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil || !ok {
		return time.Time{}, err
	}
	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		log.Printf("[CACHE] Corrupt timestamp at %s, treating as never active: %v", key, err)
		return time.Time{}, nil
	}
	return at, nil
}

func (s *KVCounterStore) SetLastActivity(ctx context.Context, userID string, at time.Time) error {
	return s.kv.Set(ctx, counterKey(userID, "last_activity"), at.UTC().Format(time.RFC3339Nano))
}
