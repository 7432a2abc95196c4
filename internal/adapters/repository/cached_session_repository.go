package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/domain"
)

var _ domain.SessionRepository = (*CachedSessionRepository)(nil)

// CachedSessionRepository keeps each user's full history in Redis. Every
// stats query reads the whole history, writes are rare.
type CachedSessionRepository struct {
	next  domain.SessionRepository
	cache *redis.Client
	ttl   time.Duration
}

func NewCachedSessionRepository(next domain.SessionRepository, cache *redis.Client) *CachedSessionRepository {
	return &CachedSessionRepository{
		next:  next,
		cache: cache,
		ttl:   30 * time.Minute,
	}
}

func (r *CachedSessionRepository) cacheKey(userID string) string {
	return fmt.Sprintf("sessions:%s", userID)
}

func (r *CachedSessionRepository) invalidate(ctx context.Context, userID string) {
	if err := r.cache.Del(ctx, r.cacheKey(userID)).Err(); err != nil {
		log.Printf("[CACHE] Failed to invalidate for user %s: %v", userID, err)
	}
}

func (r *CachedSessionRepository) ListByUserID(ctx context.Context, userID string, since time.Time) ([]*domain.SessionRecord, error) {
	key := r.cacheKey(userID)

	val, err := r.cache.Get(ctx, key).Result()
	if err == nil {
		var records []*domain.SessionRecord
		if err := json.Unmarshal([]byte(val), &records); err == nil {
			return filterSince(records, since), nil
		}

		log.Printf("[CACHE] Corrupted history for user %s, cleaning up key", userID)
		r.cache.Del(ctx, key)
	} else if err != redis.Nil {
		log.Printf("[CACHE] Redis read error: %v", err)
	}

	records, err := r.next.ListByUserID(ctx, userID, time.Time{})
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(records); err == nil {
		if setErr := r.cache.Set(ctx, key, data, r.ttl).Err(); setErr != nil {
			log.Printf("[CACHE] Redis set error: %v", setErr)
		}
	}

	return filterSince(records, since), nil
}

func filterSince(records []*domain.SessionRecord, since time.Time) []*domain.SessionRecord {
	out := make([]*domain.SessionRecord, 0, len(records))
	for _, rec := range records {
		if !rec.Timestamp.Before(since) {
			out = append(out, rec)
		}
	}
	return out
}

func (r *CachedSessionRepository) Append(ctx context.Context, record *domain.SessionRecord) error {
	if err := r.next.Append(ctx, record); err != nil {
		return err
	}
	r.invalidate(ctx, record.UserID)
	return nil
}

func (r *CachedSessionRepository) PruneBefore(ctx context.Context, userID string, cutoff time.Time) (int64, error) {
	n, err := r.next.PruneBefore(ctx, userID, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.invalidate(ctx, userID)
	}
	return n, nil
}
