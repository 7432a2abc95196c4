package domain

import "time"

type StatsSummary struct {
	CurrentStreak          int          `json:"current_streak" yaml:"current_streak"`
	LongestStreak          int          `json:"longest_streak" yaml:"longest_streak"`
	FavoriteActivity       string       `json:"favorite_activity" yaml:"favorite_activity"`
	TotalActiveDays        int          `json:"total_active_days" yaml:"total_active_days"`
	SessionsThisWeek       int          `json:"sessions_this_week" yaml:"sessions_this_week"`
	TotalSessions          int          `json:"total_sessions" yaml:"total_sessions"`
	AverageSessionDuration float64      `json:"average_session_duration_seconds" yaml:"average_session_duration_seconds"`
	Focus                  FocusStats   `json:"focus" yaml:"focus"`
	Breathe                BreatheStats `json:"breathe" yaml:"breathe"`
	Sleep                  SleepStats   `json:"sleep" yaml:"sleep"`
	LastActivity           *time.Time   `json:"last_activity,omitempty" yaml:"last_activity,omitempty"`
}

type Engagement struct {
	LastActivity  *time.Time `json:"last_activity,omitempty"`
	DaysInactive  int        `json:"days_inactive"`
	CurrentStreak int        `json:"current_streak"`
	Message       string     `json:"message"`
}

// EngagementMessage picks a nudge based on how long the user has been away
// and the cached streak.
func EngagementMessage(last time.Time, snap StreakSnapshot, now time.Time, loc *time.Location) Engagement {
	e := Engagement{CurrentStreak: snap.Current}
	if last.IsZero() {
		e.Message = "Welcome! Start with a one minute breathing session."
		return e
	}

	lastCopy := last
	e.LastActivity = &lastCopy
	e.DaysInactive = int(CivilDay(now, loc).Sub(CivilDay(last, loc)).Hours() / 24)

	switch {
	case e.DaysInactive == 0 && snap.Current > 1:
		e.Message = "Keep it up! Your streak is alive."
	case e.DaysInactive == 0:
		e.Message = "Nice work today."
	case e.DaysInactive == 1:
		e.Message = "A short session today keeps your streak going."
	case e.DaysInactive < 7:
		e.Message = "It's been a few days. Take a breath with us."
	default:
		e.Message = "We missed you. Ease back in with a short session."
	}
	return e
}
