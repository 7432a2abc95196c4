package domain

import (
	"sort"
	"time"
)

const (
	FavoriteNone     = "None yet"
	FavoriteBalanced = "Balanced"

	maxStreakWalkDays = 365
)

// CivilDay returns the calendar day of t in loc, encoded as midnight UTC so
// that day arithmetic is not affected by DST changes in loc.
func CivilDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ActiveDays(records []*SessionRecord, loc *time.Location) map[time.Time]bool {
	days := make(map[time.Time]bool, len(records))
	for _, r := range records {
		days[CivilDay(r.Timestamp, loc)] = true
	}
	return days
}

// CurrentStreak counts consecutive active days ending today, or ending
// yesterday when nothing was logged today yet.
func CurrentStreak(days map[time.Time]bool, today time.Time) int {
	cursor := today
	if !days[cursor] {
		cursor = cursor.AddDate(0, 0, -1)
		if !days[cursor] {
			return 0
		}
	}

	streak := 0
	for i := 0; i < maxStreakWalkDays && days[cursor]; i++ {
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return streak
}

func LongestStreak(days map[time.Time]bool) int {
	if len(days) == 0 {
		return 0
	}

	sorted := make([]time.Time, 0, len(days))
	for d := range days {
		sorted = append(sorted, d)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Before(sorted[j])
	})

	longest := 1
	temp := 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].AddDate(0, 0, 1).Equal(sorted[i]) {
			temp++
		} else {
			temp = 1
		}
		if temp > longest {
			longest = temp
		}
	}
	return longest
}

// FavoriteActivity tallies breathe, focus and sleep records. Rest is not a
// candidate.
func FavoriteActivity(records []*SessionRecord) string {
	candidates := []ActivityType{ActivityBreathe, ActivityFocus, ActivitySleep}
	counts := make(map[ActivityType]int, len(candidates))
	for _, r := range records {
		counts[r.Activity]++
	}

	best := 0
	var winners []ActivityType
	for _, a := range candidates {
		c := counts[a]
		switch {
		case c > best:
			best = c
			winners = []ActivityType{a}
		case c == best && c > 0:
			winners = append(winners, a)
		}
	}

	switch {
	case best == 0:
		return FavoriteNone
	case len(winners) > 1:
		return FavoriteBalanced
	}
	return winners[0].DisplayName()
}
