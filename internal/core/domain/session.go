package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidActivity = errors.New("invalid activity type (must be breathe, focus, rest, or sleep)")
	ErrInvalidDuration = errors.New("duration cannot be negative")
	ErrInvalidSession  = errors.New("invalid session record data")
	ErrUnauthorized    = errors.New("unauthorized")
)

type ActivityType string

const (
	ActivityBreathe ActivityType = "breathe"
	ActivityFocus   ActivityType = "focus"
	ActivityRest    ActivityType = "rest"
	ActivitySleep   ActivityType = "sleep"
)

const (
	// MinCompletedSessionSeconds is the shortest session that counts as completed.
	MinCompletedSessionSeconds = 30
	HistoryRetentionDays       = 365
)

func (a ActivityType) Valid() bool {
	switch a {
	case ActivityBreathe, ActivityFocus, ActivityRest, ActivitySleep:
		return true
	}
	return false
}

func (a ActivityType) DisplayName() string {
	switch a {
	case ActivityBreathe:
		return "Breathe"
	case ActivityFocus:
		return "Focus"
	case ActivityRest:
		return "Rest"
	case ActivitySleep:
		return "Sleep"
	}
	return "Unknown"
}

func ParseActivityType(s string) (ActivityType, error) {
	a := ActivityType(strings.ToLower(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", ErrInvalidActivity
	}
	return a, nil
}

type BreakKind string

const (
	BreakNone  BreakKind = ""
	BreakShort BreakKind = "short"
	BreakLong  BreakKind = "long"
)

// SessionRecord is immutable once appended to a user's history.
type SessionRecord struct {
	ID              string       `json:"id" db:"id" yaml:"id"`
	UserID          string       `json:"user_id" db:"user_id" yaml:"user_id"`
	Timestamp       time.Time    `json:"timestamp" db:"recorded_at" yaml:"timestamp"`
	Activity        ActivityType `json:"activity" db:"activity" yaml:"activity"`
	DurationSeconds int          `json:"duration_seconds" db:"duration_seconds" yaml:"duration_seconds"`
}

func NewSessionRecord(userID string, activity ActivityType, seconds int, at time.Time) *SessionRecord {
	return &SessionRecord{
		ID:              uuid.NewString(),
		UserID:          userID,
		Timestamp:       at.UTC(),
		Activity:        activity,
		DurationSeconds: seconds,
	}
}

func (r *SessionRecord) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return errors.New("user_id is required")
	}
	if !r.Activity.Valid() {
		return ErrInvalidActivity
	}
	if r.DurationSeconds < 0 {
		return ErrInvalidDuration
	}
	if r.Timestamp.IsZero() {
		return errors.New("timestamp is required")
	}
	return nil
}

// ActivityInput describes a measured stretch of activity that ended. Break is
// only meaningful for ActivityRest.
type ActivityInput struct {
	UserID   string
	Activity ActivityType
	Duration time.Duration
	Break    BreakKind
}

// Seconds truncates the measured duration to whole seconds, so a stretch
// only reaches the completion threshold once it has fully elapsed.
func (in ActivityInput) Seconds() int {
	if in.Duration <= 0 {
		return 0
	}
	return int(in.Duration / time.Second)
}

func (in ActivityInput) Validate() error {
	if strings.TrimSpace(in.UserID) == "" {
		return errors.New("user_id is required")
	}
	if !in.Activity.Valid() {
		return ErrInvalidActivity
	}
	if in.Duration < 0 {
		return ErrInvalidDuration
	}
	return nil
}
