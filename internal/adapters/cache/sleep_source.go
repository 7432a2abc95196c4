package cache

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/domain"
)

var _ domain.SleepSource = (*RedisSleepSource)(nil)

const (
	consentGranted = "granted"
	consentDenied  = "denied"
)

// RedisSleepSource serves samples uploaded by the user's device. Consent and
// change notifications live in Redis, the samples in the repository.
type RedisSleepSource struct {
	rdb     *redis.Client
	samples domain.SleepSampleRepository
}

func NewRedisSleepSource(rdb *redis.Client, samples domain.SleepSampleRepository) *RedisSleepSource {
	return &RedisSleepSource{rdb: rdb, samples: samples}
}

func consentKey(userID string) string {
	return fmt.Sprintf("sleep:consent:%s", userID)
}

func changesChannel(userID string) string {
	return fmt.Sprintf("sleep:changes:%s", userID)
}

// SetConsent records the user's answer to the health data prompt.
func (s *RedisSleepSource) SetConsent(ctx context.Context, userID string, granted bool) error {
	value := consentDenied
	if granted {
		value = consentGranted
	}
	if err := s.rdb.Set(ctx, consentKey(userID), value, 0).Err(); err != nil {
		return fmt.Errorf("cache: store sleep consent failed: %w", err)
	}
	return nil
}

func (s *RedisSleepSource) RequestAuthorization(ctx context.Context, userID string) error {
	val, err := s.rdb.Get(ctx, consentKey(userID)).Result()
	if err == redis.Nil {
		return domain.ErrSleepAccessDenied
	}
	if err != nil {
		return fmt.Errorf("cache: read sleep consent failed: %w", err)
	}
	if val != consentGranted {
		return domain.ErrSleepAccessDenied
	}
	return nil
}

func (s *RedisSleepSource) FetchSamples(ctx context.Context, userID string, start, end time.Time) ([]domain.SleepSample, error) {
	if err := s.RequestAuthorization(ctx, userID); err != nil {
		return nil, err
	}
	return s.samples.ListByUserIDAndRange(ctx, userID, start, end)
}

// Ingest stores uploaded samples and notifies observers.
func (s *RedisSleepSource) Ingest(ctx context.Context, userID string, samples []domain.SleepSample) error {
	if err := s.RequestAuthorization(ctx, userID); err != nil {
		return err
	}
	if err := s.samples.InsertBatch(ctx, samples); err != nil {
		return err
	}
	if err := s.rdb.Publish(ctx, changesChannel(userID), strconv.Itoa(len(samples))).Err(); err != nil {
		log.Printf("[CACHE] Failed to publish sleep change for %s: %v", userID, err)
	}
	return nil
}

func (s *RedisSleepSource) ObserveChanges(ctx context.Context, userID string, onChange func()) error {
	sub := s.rdb.Subscribe(ctx, changesChannel(userID))
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("cache: subscribe to sleep changes failed: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-ch:
			if !ok {
				return nil
			}
			onChange()
		}
	}
}
