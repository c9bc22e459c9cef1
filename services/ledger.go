package services

import (
	"context"
	"fmt"
	"sort"

	"practice-hub/models"
)

// ShieldReference tags ledger rows for streak shield purchases
const ShieldReference = "streak_shield"

// PurchaseStreakShield trades ShieldGemCost gems for one streak shield
func (s *ProgressionService) PurchaseStreakShield(ctx context.Context, userID string) (*models.UserStats, error) {
	var out *models.UserStats
	err := s.withUserLock(ctx, userID, func() error {
		stats, err := s.stats.GetUserStats(ctx, userID)
		if err != nil {
			return err
		}
		if s.cfg.MaxStreakShields > 0 && stats.StreakShieldCount >= s.cfg.MaxStreakShields {
			return ErrShieldLimitReached
		}
		cost := s.cfg.ShieldGemCost
		if stats.GemsBalance < cost {
			return ErrInsufficientGems
		}

		var entry *models.GemTransaction
		if cost > 0 {
			entry = &models.GemTransaction{
				Direction:   models.GemDirectionSpent,
				Amount:      cost,
				Reference:   ShieldReference,
				Description: "Purchased a streak shield",
			}
		}
		if err := s.ledger.ApplyGemChange(ctx, userID, map[string]interface{}{
			"gems_balance":        stats.GemsBalance - cost,
			"streak_shield_count": stats.StreakShieldCount + 1,
		}, entry); err != nil {
			return fmt.Errorf("purchase shield for %s: %w", userID, err)
		}
		stats.GemsBalance -= cost
		stats.StreakShieldCount++
		out = stats
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("🛡️ streak shield purchased", "user_id", userID, "shields", out.StreakShieldCount, "gems_balance", out.GemsBalance)
	return out, nil
}

// NormalizePage clamps a 1-based page and a page size to what GemTransactions serves
func NormalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	return page, size
}

// GemTransactions lists the user's ledger, newest first
func (s *ProgressionService) GemTransactions(ctx context.Context, userID string, page, size int) ([]models.GemTransaction, error) {
	page, size = NormalizePage(page, size)
	return s.ledger.ListGemTransactions(ctx, userID, size, (page-1)*size)
}

// LedgerDrift is a user whose cached balance disagrees with the ledger
type LedgerDrift struct {
	UserID        string `json:"user_id"`
	CachedBalance int64  `json:"cached_balance"`
	LedgerBalance int64  `json:"ledger_balance"`
}

// ReconcileLedger compares every cached gems_balance with earned minus spent in the ledger
func (s *ProgressionService) ReconcileLedger(ctx context.Context) ([]LedgerDrift, error) {
	balances, err := s.stats.GemBalances(ctx)
	if err != nil {
		return nil, fmt.Errorf("load gem balances: %w", err)
	}
	totals, err := s.ledger.LedgerTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger totals: %w", err)
	}

	drifts := []LedgerDrift{}
	for userID, cached := range balances {
		if ledger := totals[userID]; ledger != cached {
			drifts = append(drifts, LedgerDrift{UserID: userID, CachedBalance: cached, LedgerBalance: ledger})
		}
	}
	// ledger rows for users without a stats row
	for userID, ledger := range totals {
		if _, ok := balances[userID]; !ok && ledger != 0 {
			drifts = append(drifts, LedgerDrift{UserID: userID, LedgerBalance: ledger})
		}
	}
	sort.Slice(drifts, func(i, j int) bool { return drifts[i].UserID < drifts[j].UserID })
	return drifts, nil
}
