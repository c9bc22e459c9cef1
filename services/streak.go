package services

import "time"

// StreakState is the slice of UserStats the streak transition reads
type StreakState struct {
	CurrentStreak     int
	LongestStreak     int
	LastPracticeDate  *time.Time
	StreakShieldCount int
}

type StreakAction string

const (
	StreakStarted   StreakAction = "started"    // first practice ever
	StreakSameDay   StreakAction = "same_day"   // already counted today
	StreakContinued StreakAction = "continued"  // practiced yesterday
	StreakShielded  StreakAction = "shielded"   // gap covered by a shield
	StreakReset     StreakAction = "reset"      // gap, no shield left
	StreakAnomaly   StreakAction = "future_day" // last practice is after today
)

// StreakResult is returned by UpdateStreak
type StreakResult struct {
	Action            StreakAction `json:"action"`
	CurrentStreak     int          `json:"current_streak"`
	LongestStreak     int          `json:"longest_streak"`
	StreakShieldCount int          `json:"streak_shield_count"`
	ShieldUsed        bool         `json:"shield_used"`
	Changed           bool         `json:"changed"`
}

// NextStreak applies one practice day to s. today is a calendar date.
func NextStreak(s StreakState, today time.Time) (StreakState, StreakResult) {
	today = CivilDate(today)
	next := s
	res := StreakResult{}

	if s.LastPracticeDate == nil {
		res.Action = StreakStarted
		next.CurrentStreak = 1
	} else {
		switch gap := daysBetween(s.LastPracticeDate.UTC(), today); {
		case gap == 0:
			res.Action = StreakSameDay
		case gap < 0:
			res.Action = StreakAnomaly
		case gap == 1:
			res.Action = StreakContinued
			next.CurrentStreak++
		case s.StreakShieldCount > 0:
			res.Action = StreakShielded
			next.CurrentStreak++
			next.StreakShieldCount--
			res.ShieldUsed = true
		default:
			res.Action = StreakReset
			next.CurrentStreak = 1
		}
	}

	if res.Action != StreakSameDay && res.Action != StreakAnomaly {
		res.Changed = true
		if next.CurrentStreak > next.LongestStreak {
			next.LongestStreak = next.CurrentStreak
		}
		next.LastPracticeDate = &today
	}

	res.CurrentStreak = next.CurrentStreak
	res.LongestStreak = next.LongestStreak
	res.StreakShieldCount = next.StreakShieldCount
	return next, res
}
