package services

import (
	"context"
	"errors"

	"practice-hub/models"
)

var (
	ErrStatsNotFound      = errors.New("user stats not found")
	ErrNegativeXP         = errors.New("xp amount must not be negative")
	ErrInsufficientGems   = errors.New("insufficient gems")
	ErrShieldLimitReached = errors.New("streak shield limit reached")
)

// StatsStore persists one UserStats row per user
type StatsStore interface {
	GetUserStats(ctx context.Context, userID string) (*models.UserStats, error)
	CreateUserStats(ctx context.Context, userID string) (*models.UserStats, error)
	// UpdateUserStats writes a partial set of columns; ErrStatsNotFound if the row is missing.
	UpdateUserStats(ctx context.Context, userID string, fields map[string]interface{}) error
	// GemBalances returns the cached gems_balance of every user
	GemBalances(ctx context.Context) (map[string]int64, error)
}

// SessionStore reads practice history, newest first
type SessionStore interface {
	GetPracticeSessions(ctx context.Context, userID string, limit, offset int) ([]models.PracticeSession, error)
}

type BadgeCatalog interface {
	GetBadges(ctx context.Context, activeOnly bool) ([]models.Badge, error)
}

type BadgeAwardStore interface {
	GetUserBadges(ctx context.Context, userID string) ([]models.UserBadge, error)
	// AwardBadge inserts the award unless it exists. It reports false when the row was already there.
	AwardBadge(ctx context.Context, userID, badgeKey string) (bool, error)
}

type Ledger interface {
	RecordGemsTransaction(ctx context.Context, userID string, direction models.GemDirection, amount int64, reference, description string) error
	// ApplyGemChange updates stats and appends entry (if any) in one transaction
	ApplyGemChange(ctx context.Context, userID string, fields map[string]interface{}, entry *models.GemTransaction) error
	ListGemTransactions(ctx context.Context, userID string, limit, offset int) ([]models.GemTransaction, error)
	// LedgerTotals returns earned minus spent per user
	LedgerTotals(ctx context.Context) (map[string]int64, error)
}
