package domain

import (
	"context"
	"errors"
	"sort"
	"time"
)

var (
	ErrSleepAccessDenied  = errors.New("sleep data access not authorized")
	ErrInvalidSleepSample = errors.New("invalid sleep sample (end must be after start)")
	ErrInvalidSleepWindow = errors.New("invalid sleep window")
)

type SleepStage string

const (
	StageAwake   SleepStage = "awake"
	StageCore    SleepStage = "core"
	StageDeep    SleepStage = "deep"
	StageREM     SleepStage = "rem"
	StageUnknown SleepStage = "unknown"
)

// Raw stage codes as reported by the health data source.
const (
	StageCodeInBed             = 0
	StageCodeAsleepUnspecified = 1
	StageCodeAwake             = 2
	StageCodeAsleepCore        = 3
	StageCodeAsleepDeep        = 4
	StageCodeAsleepREM         = 5
)

// StageFromCode folds the legacy in-bed code into awake; anything unrecognized is unknown.
func StageFromCode(code int) SleepStage {
	switch code {
	case StageCodeInBed, StageCodeAwake:
		return StageAwake
	case StageCodeAsleepCore:
		return StageCore
	case StageCodeAsleepDeep:
		return StageDeep
	case StageCodeAsleepREM:
		return StageREM
	}
	return StageUnknown
}

type SleepSample struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	StartTime time.Time `json:"start_time" db:"start_time"`
	EndTime   time.Time `json:"end_time" db:"end_time"`
	StageCode int       `json:"stage_code" db:"stage_code"`
}

func (s SleepSample) Validate() error {
	if s.StartTime.IsZero() || s.EndTime.IsZero() || !s.EndTime.After(s.StartTime) {
		return ErrInvalidSleepSample
	}
	return nil
}

type SleepDaySummary struct {
	Day          string                 `json:"day"`
	TotalSeconds float64                `json:"total_seconds"`
	StageSeconds map[SleepStage]float64 `json:"stage_seconds"`
}

// AggregateSleep attributes every interval to the calendar day (in loc) of its
// end time and returns one summary per day, most recent first.
func AggregateSleep(samples []SleepSample, loc *time.Location) []SleepDaySummary {
	byDay := make(map[time.Time]*SleepDaySummary)

	for _, s := range samples {
		if s.Validate() != nil {
			continue
		}
		day := CivilDay(s.EndTime, loc)
		summary, ok := byDay[day]
		if !ok {
			summary = &SleepDaySummary{
				Day:          day.Format("2006-01-02"),
				StageSeconds: make(map[SleepStage]float64),
			}
			byDay[day] = summary
		}
		secs := s.EndTime.Sub(s.StartTime).Seconds()
		summary.TotalSeconds += secs
		summary.StageSeconds[StageFromCode(s.StageCode)] += secs
	}

	days := make([]time.Time, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].After(days[j])
	})

	out := make([]SleepDaySummary, 0, len(days))
	for _, d := range days {
		out = append(out, *byDay[d])
	}
	return out
}

// SleepSource is the external health data provider.
type SleepSource interface {
	RequestAuthorization(ctx context.Context, userID string) error
	FetchSamples(ctx context.Context, userID string, start, end time.Time) ([]SleepSample, error)

	// ObserveChanges invokes onChange, possibly concurrently with an in-flight fetch,
	// whenever the user's samples change. It returns once ctx is done.
	ObserveChanges(ctx context.Context, userID string, onChange func()) error
}

type SleepSampleRepository interface {
	InsertBatch(ctx context.Context, samples []SleepSample) error

	// ListByUserIDAndRange returns samples ending within [start, end], ordered by start time.
	ListByUserIDAndRange(ctx context.Context, userID string, start, end time.Time) ([]SleepSample, error)
}
