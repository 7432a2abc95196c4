package domain

import "time"

// FocusStats mixes two kinds of counters: the Total*TimeSeconds fields take
// every measured second, the others only move for completed sessions.
type FocusStats struct {
	FocusSessionsCompleted     int `json:"focus_sessions_completed" yaml:"focus_sessions_completed"`
	TotalFocusTimeSeconds      int `json:"total_focus_time_seconds" yaml:"total_focus_time_seconds"`
	TotalRestTimeSeconds       int `json:"total_rest_time_seconds" yaml:"total_rest_time_seconds"`
	RestSessionsCompleted      int `json:"rest_sessions_completed" yaml:"rest_sessions_completed"`
	LongestFocusSessionSeconds int `json:"longest_focus_session_seconds" yaml:"longest_focus_session_seconds"`
	ShortBreaksCompleted       int `json:"short_breaks_completed" yaml:"short_breaks_completed"`
	LongBreaksCompleted        int `json:"long_breaks_completed" yaml:"long_breaks_completed"`
}

func isCompleted(seconds int) bool {
	return seconds >= MinCompletedSessionSeconds
}

// AddFocus accumulates focus time and reports whether the session counted as completed.
func (s *FocusStats) AddFocus(seconds int) bool {
	s.TotalFocusTimeSeconds += seconds
	if !isCompleted(seconds) {
		return false
	}
	s.FocusSessionsCompleted++
	if seconds > s.LongestFocusSessionSeconds {
		s.LongestFocusSessionSeconds = seconds
	}
	return true
}

func (s *FocusStats) AddRest(seconds int, kind BreakKind) bool {
	s.TotalRestTimeSeconds += seconds
	if !isCompleted(seconds) {
		return false
	}
	s.RestSessionsCompleted++
	switch kind {
	case BreakShort:
		s.ShortBreaksCompleted++
	case BreakLong:
		s.LongBreaksCompleted++
	}
	return true
}

type BreatheStats struct {
	SessionsCompleted     int `json:"sessions_completed" yaml:"sessions_completed"`
	TotalSeconds          int `json:"total_seconds" yaml:"total_seconds"`
	LongestSessionSeconds int `json:"longest_session_seconds" yaml:"longest_session_seconds"`
}

func (s *BreatheStats) Add(seconds int) bool {
	s.TotalSeconds += seconds
	if !isCompleted(seconds) {
		return false
	}
	s.SessionsCompleted++
	if seconds > s.LongestSessionSeconds {
		s.LongestSessionSeconds = seconds
	}
	return true
}

type SleepStats struct {
	NightsLogged int `json:"nights_logged" yaml:"nights_logged"`
	TotalSeconds int `json:"total_seconds" yaml:"total_seconds"`
}

func (s *SleepStats) Add(seconds int) bool {
	s.TotalSeconds += seconds
	if !isCompleted(seconds) {
		return false
	}
	s.NightsLogged++
	return true
}

type StreakSnapshot struct {
	Current    int       `json:"current"`
	Longest    int       `json:"longest"`
	ComputedAt time.Time `json:"computed_at"`
}
