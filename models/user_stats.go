package models

import (
	"time"

	"gorm.io/gorm"
)

// UserStats tracks gamified progression for each user (denormalized for performance).
// CurrentLevel is only advanced by an explicit level check, so it may lag TotalXP.
type UserStats struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"uniqueIndex;not null" json:"user_id"`

	// Core progression
	TotalXP       int64 `json:"total_xp" gorm:"default:0"`
	CurrentLevel  int   `json:"current_level" gorm:"default:1"`
	TotalSessions int64 `json:"total_sessions" gorm:"default:0"`

	// Streaks
	CurrentStreak     int        `json:"current_streak" gorm:"default:0"`
	LongestStreak     int        `json:"longest_streak" gorm:"default:0"`
	LastPracticeDate  *time.Time `json:"last_practice_date,omitempty"` // civil date, stored as UTC midnight
	StreakShieldCount int        `json:"streak_shield_count" gorm:"default:0"`

	// Rewards
	GemsBalance  int64 `json:"gems_balance" gorm:"default:0"`
	BadgesEarned int   `json:"badges_earned" gorm:"default:0"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
