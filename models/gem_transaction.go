package models

import "time"

// GemDirection tells whether gems entered or left a balance
type GemDirection string

const (
	GemDirectionEarned GemDirection = "earned"
	GemDirectionSpent  GemDirection = "spent"
)

// GemTransaction is an append-only ledger row. UserStats.GemsBalance caches the running total.
type GemTransaction struct {
	ID          string       `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string       `gorm:"index;not null" json:"user_id"`
	Direction   GemDirection `gorm:"type:varchar(16);not null" json:"direction"`
	Amount      int64        `gorm:"not null" json:"amount"`
	Reference   string       `gorm:"type:varchar(128);index" json:"reference"` // e.g. badge_first_session, streak_shield
	Description string       `gorm:"type:text" json:"description"`
	CreatedAt   time.Time    `gorm:"autoCreateTime" json:"created_at"`
}

// Signed returns the amount as it applies to a balance.
func (t GemTransaction) Signed() int64 {
	if t.Direction == GemDirectionSpent {
		return -t.Amount
	}
	return t.Amount
}
