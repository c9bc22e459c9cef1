package models

import (
	"strings"
	"time"

	"github.com/gosimple/slug"
)

// CriteriaType selects the predicate used to decide badge eligibility
type CriteriaType string

const (
	CriteriaTotalXP          CriteriaType = "total_xp"
	CriteriaLevelReached     CriteriaType = "level_reached"
	CriteriaPracticeSessions CriteriaType = "practice_sessions"
	CriteriaTotalTime        CriteriaType = "total_time"
	CriteriaLongSession      CriteriaType = "long_session"
	CriteriaImprovementCount CriteriaType = "improvement_count"
	CriteriaStreak           CriteriaType = "streak"
	CriteriaLongSessionCount CriteriaType = "long_session_count"
	CriteriaComeback         CriteriaType = "comeback"
	CriteriaTimeOfDay        CriteriaType = "time_of_day"
)

// Time-of-day criteria values
const (
	TimeOfDayEarlyBird = 1
	TimeOfDayNightOwl  = 2
)

// Valid reports whether c is a known criteria type
func (c CriteriaType) Valid() bool {
	switch c {
	case CriteriaTotalXP, CriteriaLevelReached, CriteriaPracticeSessions,
		CriteriaTotalTime, CriteriaLongSession, CriteriaImprovementCount,
		CriteriaStreak, CriteriaLongSessionCount, CriteriaComeback, CriteriaTimeOfDay:
		return true
	}
	return false
}

// NeedsSessions reports whether evaluating c requires the session history
func (c CriteriaType) NeedsSessions() bool {
	switch c {
	case CriteriaTotalTime, CriteriaLongSession, CriteriaImprovementCount,
		CriteriaLongSessionCount, CriteriaComeback, CriteriaTimeOfDay:
		return true
	}
	return false
}

// Badge: catalog entry (admin-managed, seeded from DefaultBadges)
type Badge struct {
	ID            string       `gorm:"primaryKey;type:uuid" json:"id"`
	BadgeKey      string       `gorm:"uniqueIndex;not null" json:"badge_key"` // e.g., "first_steps", "night_owl"
	Name          string       `gorm:"not null" json:"name"`
	Description   string       `json:"description"`
	CriteriaType  CriteriaType `gorm:"type:varchar(32);not null" json:"criteria_type"`
	CriteriaValue float64      `json:"criteria_value"`
	XPReward      int64        `gorm:"default:0" json:"xp_reward"`
	GemReward     int64        `gorm:"default:0" json:"gem_reward"`
	IsActive      bool         `gorm:"default:true" json:"is_active"`
	SortOrder     int          `gorm:"default:0" json:"sort_order"`

	// CRM notification metadata
	NotifyEnabled bool   `gorm:"default:false" json:"notify_enabled"`
	NotifyEvent   string `json:"notify_event,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// UserBadge: awarded instance. The composite unique index makes awarding idempotent.
type UserBadge struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"uniqueIndex:idx_user_badges_user_badge,priority:1;not null" json:"user_id"`
	BadgeKey  string    `gorm:"uniqueIndex:idx_user_badges_user_badge,priority:2;not null" json:"badge_key"`
	AwardedAt time.Time `gorm:"autoCreateTime" json:"awarded_at"`
}

// BadgeKeyFromName derives a stable badge key, e.g. "Early Bird" -> "early_bird"
func BadgeKeyFromName(name string) string {
	return strings.ReplaceAll(slug.Make(name), "-", "_")
}

// DefaultBadges is the catalog seeded on first start
var DefaultBadges = []Badge{
	{Name: "First Steps", Description: "Completed your first practice session", CriteriaType: CriteriaPracticeSessions, CriteriaValue: 1, XPReward: 10, GemReward: 5},
	{Name: "Dedicated", Description: "Completed 25 practice sessions", CriteriaType: CriteriaPracticeSessions, CriteriaValue: 25, XPReward: 50, GemReward: 20},
	{Name: "XP Hunter", Description: "Earned 500 XP", CriteriaType: CriteriaTotalXP, CriteriaValue: 500, XPReward: 25, GemReward: 10},
	{Name: "XP Master", Description: "Earned 5000 XP", CriteriaType: CriteriaTotalXP, CriteriaValue: 5000, XPReward: 100, GemReward: 50, NotifyEnabled: true, NotifyEvent: "xp_master"},
	{Name: "Level 5", Description: "Reached level 5", CriteriaType: CriteriaLevelReached, CriteriaValue: 5, XPReward: 50, GemReward: 25},
	{Name: "Week Warrior", Description: "Practiced 7 days in a row", CriteriaType: CriteriaStreak, CriteriaValue: 7, XPReward: 70, GemReward: 30, NotifyEnabled: true, NotifyEvent: "streak_7"},
	{Name: "Marathon", Description: "Practiced for 60 minutes in one session", CriteriaType: CriteriaLongSession, CriteriaValue: 60, XPReward: 40, GemReward: 15},
	{Name: "Deep Focus", Description: "Completed 10 sessions of 30 minutes or more", CriteriaType: CriteriaLongSessionCount, CriteriaValue: 10, XPReward: 60, GemReward: 25},
	{Name: "Getting Better", Description: "Showed improvement in 5 sessions", CriteriaType: CriteriaImprovementCount, CriteriaValue: 5, XPReward: 40, GemReward: 20},
	{Name: "Comeback Kid", Description: "Came back after a break and practiced 3 times in a week", CriteriaType: CriteriaComeback, CriteriaValue: 1, XPReward: 50, GemReward: 25},
	{Name: "Early Bird", Description: "Practiced 10 times between 5am and 8am", CriteriaType: CriteriaTimeOfDay, CriteriaValue: TimeOfDayEarlyBird, XPReward: 30, GemReward: 15},
	{Name: "Night Owl", Description: "Practiced 10 times between 10pm and 6am", CriteriaType: CriteriaTimeOfDay, CriteriaValue: TimeOfDayNightOwl, XPReward: 30, GemReward: 15},
}
