package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrSessionNotFound = errors.New("session record not found")
)

type SessionRepository interface {
	// Append persists a new record at the end of the user's history.
	Append(ctx context.Context, record *SessionRecord) error

	// PruneBefore removes the user's records older than cutoff and reports how many were dropped.
	PruneBefore(ctx context.Context, userID string, cutoff time.Time) (int64, error)

	// ListByUserID returns the user's records recorded at or after since, oldest first.
	ListByUserID(ctx context.Context, userID string, since time.Time) ([]*SessionRecord, error)
}

type CounterStore interface {
	GetFocusStats(ctx context.Context, userID string) (FocusStats, error)
	SaveFocusStats(ctx context.Context, userID string, stats FocusStats) error

	GetBreatheStats(ctx context.Context, userID string) (BreatheStats, error)
	SaveBreatheStats(ctx context.Context, userID string, stats BreatheStats) error

	GetSleepStats(ctx context.Context, userID string) (SleepStats, error)
	SaveSleepStats(ctx context.Context, userID string, stats SleepStats) error

	// GetLastActivity returns the zero time when the user never recorded anything.
	GetLastActivity(ctx context.Context, userID string) (time.Time, error)
	SetLastActivity(ctx context.Context, userID string, at time.Time) error

	GetStreakSnapshot(ctx context.Context, userID string) (StreakSnapshot, error)
	SaveStreakSnapshot(ctx context.Context, userID string, snap StreakSnapshot) error
}
