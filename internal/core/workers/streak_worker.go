package workers

import (
	"context"
	"log"
	"time"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/domain"
)

type SessionLister interface {
	ListByUserID(ctx context.Context, userID string, since time.Time) ([]*domain.SessionRecord, error)
}

type SnapshotStore interface {
	GetStreakSnapshot(ctx context.Context, userID string) (domain.StreakSnapshot, error)
	SaveStreakSnapshot(ctx context.Context, userID string, snap domain.StreakSnapshot) error
}

type UserFinder interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

type StreakJob struct {
	UserID string
}

// StreakWorker recomputes a user's streak snapshot off the request path. The
// snapshot feeds the engagement nudge; the stats summary always computes
// streaks from history.
type StreakWorker struct {
	sessions   SessionLister
	snapshots  SnapshotStore
	users      UserFinder
	defaultLoc *time.Location
	now        func() time.Time
	jobs       chan StreakJob
}

func NewStreakWorker(sessions SessionLister, snapshots SnapshotStore, users UserFinder, defaultLoc *time.Location) *StreakWorker {
	if defaultLoc == nil {
		defaultLoc = time.UTC
	}
	return &StreakWorker{
		sessions:   sessions,
		snapshots:  snapshots,
		users:      users,
		defaultLoc: defaultLoc,
		now:        time.Now,
		jobs:       make(chan StreakJob, 100),
	}
}

// WithClock replaces the wall clock used to pick "today".
func (w *StreakWorker) WithClock(now func() time.Time) *StreakWorker {
	w.now = now
	return w
}

func (w *StreakWorker) Start(ctx context.Context) {
	go func() {
		log.Println("Streak Worker started in background...")
		for {
			select {
			case job := <-w.jobs:
				w.processJob(ctx, job)
			case <-ctx.Done():
				log.Println("Streak Worker shutting down...")
				return
			}
		}
	}()
}

func (w *StreakWorker) Enqueue(userID string) {
	if w == nil {
		return
	}
	select {
	case w.jobs <- StreakJob{UserID: userID}:
	default:
		log.Printf("Streak Worker queue full! Dropping job for user %s", userID)
	}
}

func (w *StreakWorker) location(ctx context.Context, userID string) *time.Location {
	if w.users == nil {
		return w.defaultLoc
	}
	u, err := w.users.GetByID(ctx, userID)
	if err != nil || u.Timezone == "" {
		return w.defaultLoc
	}
	return u.Location()
}

// Recompute builds a fresh snapshot and stores it when it differs from the
// cached one.
func (w *StreakWorker) Recompute(ctx context.Context, userID string) (domain.StreakSnapshot, error) {
	now := w.now()
	records, err := w.sessions.ListByUserID(ctx, userID, now.AddDate(0, 0, -domain.HistoryRetentionDays))
	if err != nil {
		return domain.StreakSnapshot{}, err
	}

	loc := w.location(ctx, userID)
	days := domain.ActiveDays(records, loc)
	snap := domain.StreakSnapshot{
		Current:    domain.CurrentStreak(days, domain.CivilDay(now, loc)),
		Longest:    domain.LongestStreak(days),
		ComputedAt: now.UTC(),
	}

	old, err := w.snapshots.GetStreakSnapshot(ctx, userID)
	if err == nil && old.Current == snap.Current && old.Longest == snap.Longest {
		return old, nil
	}

	if err := w.snapshots.SaveStreakSnapshot(ctx, userID, snap); err != nil {
		return snap, err
	}
	log.Printf("Streak updated for %s: Current=%d, Longest=%d", userID, snap.Current, snap.Longest)
	return snap, nil
}

func (w *StreakWorker) processJob(ctx context.Context, job StreakJob) {
	if _, err := w.Recompute(ctx, job.UserID); err != nil {
		log.Printf("Worker Error recomputing streak for %s: %v", job.UserID, err)
	}
}
