package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/workers"
)

const (
	DefaultSleepWindowDays = 7
	MaxSleepWindowDays     = 90
)

// SleepSampleSink accepts samples uploaded by a device.
type SleepSampleSink interface {
	Ingest(ctx context.Context, userID string, samples []domain.SleepSample) error
}

type sleepResult struct {
	generation uint64
	summaries  []domain.SleepDaySummary
}

// SleepService turns raw stage intervals into per-night summaries. Refreshes
// may overlap; the result of the most recently started refresh wins.
type SleepService struct {
	source     domain.SleepSource
	sink       SleepSampleSink
	users      workers.UserFinder
	defaultLoc *time.Location
	now        func() time.Time

	mu         sync.Mutex
	generation map[string]uint64
	latest     map[string]sleepResult
}

func NewSleepService(source domain.SleepSource, sink SleepSampleSink, users workers.UserFinder, defaultLoc *time.Location) *SleepService {
	if defaultLoc == nil {
		defaultLoc = time.UTC
	}
	return &SleepService{
		source:     source,
		sink:       sink,
		users:      users,
		defaultLoc: defaultLoc,
		now:        time.Now,
		generation: make(map[string]uint64),
		latest:     make(map[string]sleepResult),
	}
}

func (s *SleepService) WithClock(now func() time.Time) *SleepService {
	s.now = now
	return s
}

func (s *SleepService) location(ctx context.Context, userID string) *time.Location {
	if s.users == nil {
		return s.defaultLoc
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil || u.Timezone == "" {
		return s.defaultLoc
	}
	return u.Location()
}

func (s *SleepService) Authorize(ctx context.Context, userID string) error {
	if err := s.source.RequestAuthorization(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrSleepAccessDenied) {
			return domain.ErrSleepAccessDenied
		}
		return fmt.Errorf("sleep service: authorization failed: %w", err)
	}
	return nil
}

// Upload validates and stores device samples for userID.
func (s *SleepService) Upload(ctx context.Context, userID string, samples []domain.SleepSample) (int, error) {
	if s.sink == nil {
		return 0, errors.New("sleep service: uploads not supported")
	}
	if len(samples) == 0 {
		return 0, nil
	}

	batch := make([]domain.SleepSample, 0, len(samples))
	for _, sample := range samples {
		if err := sample.Validate(); err != nil {
			return 0, err
		}
		sample.UserID = userID
		if sample.ID == "" {
			sample.ID = uuid.NewString()
		}
		sample.StartTime = sample.StartTime.UTC()
		sample.EndTime = sample.EndTime.UTC()
		batch = append(batch, sample)
	}

	if err := s.sink.Ingest(ctx, userID, batch); err != nil {
		return 0, fmt.Errorf("sleep service: failed to store samples: %w", err)
	}
	return len(batch), nil
}

// Refresh fetches the last days nights and aggregates them. Access denial is
// returned as domain.ErrSleepAccessDenied and is not retried.
func (s *SleepService) Refresh(ctx context.Context, userID string, days int) ([]domain.SleepDaySummary, error) {
	if days <= 0 {
		days = DefaultSleepWindowDays
	}
	if days > MaxSleepWindowDays {
		return nil, domain.ErrInvalidSleepWindow
	}

	s.mu.Lock()
	s.generation[userID]++
	gen := s.generation[userID]
	s.mu.Unlock()

	if err := s.Authorize(ctx, userID); err != nil {
		return nil, err
	}

	end := s.now()
	start := end.AddDate(0, 0, -days)
	samples, err := s.source.FetchSamples(ctx, userID, start, end)
	if err != nil {
		if errors.Is(err, domain.ErrSleepAccessDenied) {
			return nil, domain.ErrSleepAccessDenied
		}
		return nil, fmt.Errorf("sleep service: fetch failed: %w", err)
	}

	summaries := domain.AggregateSleep(samples, s.location(ctx, userID))

	s.mu.Lock()
	if cur, ok := s.latest[userID]; !ok || gen > cur.generation {
		s.latest[userID] = sleepResult{generation: gen, summaries: summaries}
	}
	s.mu.Unlock()

	return summaries, nil
}

// Latest returns the summaries of the newest completed refresh.
func (s *SleepService) Latest(userID string) ([]domain.SleepDaySummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.latest[userID]
	return r.summaries, ok
}

// Watch refreshes the default window on every change notification until ctx
// is done. onRefresh, when set, receives each successful result.
func (s *SleepService) Watch(ctx context.Context, userID string, onRefresh func([]domain.SleepDaySummary)) error {
	return s.source.ObserveChanges(ctx, userID, func() {
		summaries, err := s.Refresh(ctx, userID, DefaultSleepWindowDays)
		if err != nil {
			log.Printf("[SLEEP] Refresh after change failed for %s: %v", userID, err)
			return
		}
		if onRefresh != nil {
			onRefresh(summaries)
		}
	})
}
