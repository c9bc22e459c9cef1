package models

import "time"

// PracticeSession is one recorded practice session. Rows are append-only.
type PracticeSession struct {
	ID                  string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID              string    `gorm:"index:idx_practice_sessions_user_created,priority:1;not null" json:"user_id"`
	DurationMinutes     float64   `gorm:"not null" json:"duration_minutes"`
	SentimentScore      int       `json:"sentiment_score"` // 1-5
	ImprovementDetected bool      `gorm:"default:false" json:"improvement_detected"`
	CreatedAt           time.Time `gorm:"index:idx_practice_sessions_user_created,priority:2" json:"created_at"`
}
