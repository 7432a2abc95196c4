package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/workers"
)

// StatsService owns the session history and the aggregate counters of every
// user. It also serves as the timer engines' Recorder.
type StatsService struct {
	sessions   domain.SessionRepository
	counters   domain.CounterStore
	users      workers.UserFinder
	worker     *workers.StreakWorker
	defaultLoc *time.Location
	now        func() time.Time

	// serializes counter read-modify-write cycles
	mu sync.Mutex
}

func NewStatsService(sessions domain.SessionRepository, counters domain.CounterStore, users workers.UserFinder, worker *workers.StreakWorker, defaultLoc *time.Location) *StatsService {
	if defaultLoc == nil {
		defaultLoc = time.UTC
	}
	return &StatsService{
		sessions:   sessions,
		counters:   counters,
		users:      users,
		worker:     worker,
		defaultLoc: defaultLoc,
		now:        time.Now,
	}
}

// WithClock replaces the wall clock, for tests and replays.
func (s *StatsService) WithClock(now func() time.Time) *StatsService {
	s.now = now
	return s
}

// RecordSession appends one record, prunes history past the retention window
// and marks the user active.
func (s *StatsService) RecordSession(ctx context.Context, userID string, activity domain.ActivityType, seconds int) (*domain.SessionRecord, error) {
	now := s.now()
	record := domain.NewSessionRecord(userID, activity, seconds, now)
	if err := record.Validate(); err != nil {
		return nil, err
	}

	if err := s.sessions.Append(ctx, record); err != nil {
		return nil, fmt.Errorf("stats service: failed to append session: %w", err)
	}

	cutoff := now.AddDate(0, 0, -domain.HistoryRetentionDays)
	if n, err := s.sessions.PruneBefore(ctx, userID, cutoff); err != nil {
		log.Printf("[STATS] Failed to prune history for %s: %v", userID, err)
	} else if n > 0 {
		log.Printf("[STATS] Pruned %d expired records for %s", n, userID)
	}

	if err := s.counters.SetLastActivity(ctx, userID, now); err != nil {
		log.Printf("[STATS] Failed to store last activity for %s: %v", userID, err)
	}

	s.worker.Enqueue(userID)
	return record, nil
}

// RecordActivity applies a measured stretch of activity: the time counters
// always move, while the completion counters and the history only change when
// the stretch reached the completion threshold. A completed stretch is
// appended to the history before any counter is saved, so a failed append
// leaves the counters untouched.
func (s *StatsService) RecordActivity(ctx context.Context, in domain.ActivityInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	seconds := in.Seconds()

	s.mu.Lock()
	defer s.mu.Unlock()

	completed, save, err := s.tally(ctx, in, seconds)
	if err != nil {
		return err
	}
	if completed {
		if _, err := s.RecordSession(ctx, in.UserID, in.Activity, seconds); err != nil {
			return err
		}
	}
	if err := save(ctx); err != nil {
		return fmt.Errorf("stats service: failed to save %s counters: %w", in.Activity, err)
	}
	return nil
}

// tally loads the counters touched by in and applies seconds to them. The
// returned save persists the result. Callers hold s.mu.
func (s *StatsService) tally(ctx context.Context, in domain.ActivityInput, seconds int) (bool, func(context.Context) error, error) {
	switch in.Activity {
	case domain.ActivityFocus, domain.ActivityRest:
		stats, err := s.counters.GetFocusStats(ctx, in.UserID)
		if err != nil {
			return false, nil, err
		}
		var completed bool
		if in.Activity == domain.ActivityFocus {
			completed = stats.AddFocus(seconds)
		} else {
			completed = stats.AddRest(seconds, in.Break)
		}
		return completed, func(ctx context.Context) error {
			return s.counters.SaveFocusStats(ctx, in.UserID, stats)
		}, nil

	case domain.ActivityBreathe:
		stats, err := s.counters.GetBreatheStats(ctx, in.UserID)
		if err != nil {
			return false, nil, err
		}
		completed := stats.Add(seconds)
		return completed, func(ctx context.Context) error {
			return s.counters.SaveBreatheStats(ctx, in.UserID, stats)
		}, nil

	case domain.ActivitySleep:
		stats, err := s.counters.GetSleepStats(ctx, in.UserID)
		if err != nil {
			return false, nil, err
		}
		completed := stats.Add(seconds)
		return completed, func(ctx context.Context) error {
			return s.counters.SaveSleepStats(ctx, in.UserID, stats)
		}, nil
	}
	return false, nil, domain.ErrInvalidActivity
}

func (s *StatsService) location(ctx context.Context, userID string) *time.Location {
	if s.users == nil {
		return s.defaultLoc
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil || u.Timezone == "" {
		return s.defaultLoc
	}
	return u.Location()
}

// History returns the user's records from the last days days, oldest first.
// Zero or negative days means the whole retained history.
func (s *StatsService) History(ctx context.Context, userID string, days int) ([]*domain.SessionRecord, error) {
	if days <= 0 || days > domain.HistoryRetentionDays {
		days = domain.HistoryRetentionDays
	}
	return s.sessions.ListByUserID(ctx, userID, s.now().AddDate(0, 0, -days))
}

func (s *StatsService) CurrentStreak(ctx context.Context, userID string) (int, error) {
	records, err := s.History(ctx, userID, 0)
	if err != nil {
		return 0, err
	}
	loc := s.location(ctx, userID)
	return domain.CurrentStreak(domain.ActiveDays(records, loc), domain.CivilDay(s.now(), loc)), nil
}

func (s *StatsService) LongestStreak(ctx context.Context, userID string) (int, error) {
	records, err := s.History(ctx, userID, 0)
	if err != nil {
		return 0, err
	}
	return domain.LongestStreak(domain.ActiveDays(records, s.location(ctx, userID))), nil
}

func (s *StatsService) FavoriteActivity(ctx context.Context, userID string) (string, error) {
	records, err := s.History(ctx, userID, 0)
	if err != nil {
		return "", err
	}
	return domain.FavoriteActivity(records), nil
}

func (s *StatsService) TotalActiveDays(ctx context.Context, userID string) (int, error) {
	records, err := s.History(ctx, userID, 0)
	if err != nil {
		return 0, err
	}
	return len(domain.ActiveDays(records, s.location(ctx, userID))), nil
}

// SessionsThisWeek counts records from the trailing seven days.
func (s *StatsService) SessionsThisWeek(ctx context.Context, userID string) (int, error) {
	records, err := s.History(ctx, userID, 7)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// AverageSessionDuration is the mean duration in seconds of the stored
// records, or 0 without history.
func (s *StatsService) AverageSessionDuration(ctx context.Context, userID string) (float64, error) {
	records, err := s.History(ctx, userID, 0)
	if err != nil {
		return 0, err
	}
	return averageSeconds(records), nil
}

func averageSeconds(records []*domain.SessionRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	total := 0
	for _, r := range records {
		total += r.DurationSeconds
	}
	return float64(total) / float64(len(records))
}

// Summary computes every statistic from a single history read.
func (s *StatsService) Summary(ctx context.Context, userID string) (*domain.StatsSummary, error) {
	now := s.now()
	records, err := s.History(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	loc := s.location(ctx, userID)
	days := domain.ActiveDays(records, loc)

	weekAgo := now.AddDate(0, 0, -7)
	thisWeek := 0
	for _, r := range records {
		if !r.Timestamp.Before(weekAgo) {
			thisWeek++
		}
	}

	summary := &domain.StatsSummary{
		CurrentStreak:          domain.CurrentStreak(days, domain.CivilDay(now, loc)),
		LongestStreak:          domain.LongestStreak(days),
		FavoriteActivity:       domain.FavoriteActivity(records),
		TotalActiveDays:        len(days),
		SessionsThisWeek:       thisWeek,
		TotalSessions:          len(records),
		AverageSessionDuration: averageSeconds(records),
	}

	if summary.Focus, err = s.counters.GetFocusStats(ctx, userID); err != nil {
		return nil, err
	}
	if summary.Breathe, err = s.counters.GetBreatheStats(ctx, userID); err != nil {
		return nil, err
	}
	if summary.Sleep, err = s.counters.GetSleepStats(ctx, userID); err != nil {
		return nil, err
	}

	last, err := s.counters.GetLastActivity(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !last.IsZero() {
		summary.LastActivity = &last
	}
	return summary, nil
}

// Engagement uses the cached streak snapshot and recomputes it when it was
// not computed today.
func (s *StatsService) Engagement(ctx context.Context, userID string) (*domain.Engagement, error) {
	now := s.now()
	loc := s.location(ctx, userID)

	last, err := s.counters.GetLastActivity(ctx, userID)
	if err != nil {
		return nil, err
	}

	snap, err := s.counters.GetStreakSnapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	if snap.ComputedAt.IsZero() || !domain.CivilDay(snap.ComputedAt, loc).Equal(domain.CivilDay(now, loc)) {
		current, err := s.CurrentStreak(ctx, userID)
		if err != nil {
			return nil, err
		}
		snap.Current = current
	}

	e := domain.EngagementMessage(last, snap, now, loc)
	return &e, nil
}
