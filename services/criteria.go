package services

import (
	"sort"
	"time"

	"practice-hub/models"
)

const (
	// LongSessionMinutes is what long_session_count treats as a long session
	LongSessionMinutes = 30

	comebackMinSessions = 3
	comebackScanLimit   = 10
	comebackGap         = 7 * 24 * time.Hour
	comebackWindow      = 7 * 24 * time.Hour
	comebackRequired    = 3

	timeOfDayRequired = 10
)

// badgeInput is the snapshot a badge is judged against. Sessions are newest first.
type badgeInput struct {
	stats    *models.UserStats
	sessions []models.PracticeSession
	loc      *time.Location
}

// meetsCriteria reports eligibility; known is false for criteria types the evaluator does not handle.
func meetsCriteria(b models.Badge, in badgeInput) (eligible, known bool) {
	v := b.CriteriaValue
	switch b.CriteriaType {
	case models.CriteriaTotalXP:
		return float64(in.stats.TotalXP) >= v, true
	case models.CriteriaLevelReached:
		return float64(in.stats.CurrentLevel) >= v, true
	case models.CriteriaPracticeSessions:
		return float64(in.stats.TotalSessions) >= v, true
	case models.CriteriaTotalTime, models.CriteriaLongSession:
		for _, s := range in.sessions {
			if s.DurationMinutes >= v {
				return true, true
			}
		}
		return false, true
	case models.CriteriaImprovementCount:
		n := countSessions(in.sessions, func(s models.PracticeSession) bool { return s.ImprovementDetected })
		return float64(n) >= v, true
	case models.CriteriaStreak:
		return float64(in.stats.CurrentStreak) >= v, true
	case models.CriteriaLongSessionCount:
		n := countSessions(in.sessions, func(s models.PracticeSession) bool { return s.DurationMinutes >= LongSessionMinutes })
		return float64(n) >= v, true
	case models.CriteriaComeback:
		return qualifiesForComeback(in.sessions), true
	case models.CriteriaTimeOfDay:
		return qualifiesForTimeOfDay(in.sessions, int(v), in.loc), true
	}
	return false, false
}

func countSessions(sessions []models.PracticeSession, match func(models.PracticeSession) bool) int {
	n := 0
	for _, s := range sessions {
		if match(s) {
			n++
		}
	}
	return n
}

// qualifiesForComeback looks for the most recent gap of at least a week among the
// last ten sessions and requires three sessions within the week after it.
func qualifiesForComeback(sessions []models.PracticeSession) bool {
	if len(sessions) < comebackMinSessions {
		return false
	}

	recent := make([]models.PracticeSession, len(sessions))
	copy(recent, sessions)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].CreatedAt.After(recent[j].CreatedAt)
	})
	if len(recent) > comebackScanLimit {
		recent = recent[:comebackScanLimit]
	}

	for i := 0; i+1 < len(recent); i++ {
		if recent[i].CreatedAt.Sub(recent[i+1].CreatedAt) < comebackGap {
			continue
		}
		windowEnd := recent[i].CreatedAt.Add(comebackWindow)
		inWindow := countSessions(recent[:i+1], func(s models.PracticeSession) bool {
			return !s.CreatedAt.After(windowEnd)
		})
		return inWindow >= comebackRequired
	}
	return false
}

func isEarlyBirdHour(h int) bool { return h >= 5 && h < 8 }
func isNightOwlHour(h int) bool  { return h >= 22 || h < 6 }

func qualifiesForTimeOfDay(sessions []models.PracticeSession, slot int, loc *time.Location) bool {
	var match func(int) bool
	switch slot {
	case models.TimeOfDayEarlyBird:
		match = isEarlyBirdHour
	case models.TimeOfDayNightOwl:
		match = isNightOwlHour
	default:
		return false
	}
	if loc == nil {
		loc = time.UTC
	}
	n := countSessions(sessions, func(s models.PracticeSession) bool {
		return match(s.CreatedAt.In(loc).Hour())
	})
	return n >= timeOfDayRequired
}
