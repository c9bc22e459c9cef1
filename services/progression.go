package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"practice-hub/models"
	"practice-hub/utils"
)

// ProgressionConfig holds the tunables of the engine
type ProgressionConfig struct {
	SessionPageSize  int
	ShieldGemCost    int64
	MaxStreakShields int
	NotifyTimeout    time.Duration
}

var DefaultProgressionConfig = ProgressionConfig{
	SessionPageSize:  100,
	ShieldGemCost:    50,
	MaxStreakShields: 3,
	NotifyTimeout:    15 * time.Second,
}

// Dependencies wires the engine to its collaborators. Notifier and Locker are optional.
type Dependencies struct {
	Stats    StatsStore
	Sessions SessionStore
	Catalog  BadgeCatalog
	Awards   BadgeAwardStore
	Ledger   Ledger
	Notifier Notifier
	Locker   UserLocker
	Clock    Clock
	Logger   *utils.Logger
	Config   ProgressionConfig
}

// ProgressionService owns XP, levels, streaks, badges and gems for practice-hub users.
// Every mutating operation holds the user's lock for its whole read-modify-write cycle.
type ProgressionService struct {
	stats    StatsStore
	sessions SessionStore
	catalog  BadgeCatalog
	awards   BadgeAwardStore
	ledger   Ledger
	notifier Notifier
	locker   UserLocker
	clock    Clock
	log      *utils.Logger
	cfg      ProgressionConfig

	notifyWG sync.WaitGroup
}

func NewProgressionService(deps Dependencies) *ProgressionService {
	s := &ProgressionService{
		stats:    deps.Stats,
		sessions: deps.Sessions,
		catalog:  deps.Catalog,
		awards:   deps.Awards,
		ledger:   deps.Ledger,
		notifier: deps.Notifier,
		locker:   deps.Locker,
		clock:    deps.Clock,
		log:      deps.Logger,
		cfg:      deps.Config,
	}
	if s.notifier == nil {
		s.notifier = NoopNotifier{}
	}
	if s.locker == nil {
		s.locker = NewLocalLocker()
	}
	if s.clock == nil {
		s.clock = &SiteClock{loc: time.UTC}
	}
	if s.log == nil {
		s.log = utils.NewNopLogger()
	}
	s.log = s.log.With("service", "ProgressionService")
	if s.cfg.SessionPageSize <= 0 {
		s.cfg.SessionPageSize = DefaultProgressionConfig.SessionPageSize
	}
	if s.cfg.NotifyTimeout <= 0 {
		s.cfg.NotifyTimeout = DefaultProgressionConfig.NotifyTimeout
	}
	return s
}

// LevelUpResult is returned by CheckLevelUp
type LevelUpResult struct {
	LeveledUp bool `json:"leveled_up"`
	OldLevel  int  `json:"old_level"`
	NewLevel  int  `json:"new_level"`
}

// PracticeOutcome summarises everything one practice session changed
type PracticeOutcome struct {
	XPEarned  int64             `json:"xp_earned"`
	LevelUp   LevelUpResult     `json:"level_up"`
	Streak    StreakResult      `json:"streak"`
	NewBadges []models.Badge    `json:"new_badges"`
	Stats     *models.UserStats `json:"stats"`
}

func (s *ProgressionService) withUserLock(ctx context.Context, userID string, fn func() error) error {
	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return fmt.Errorf("lock user %s: %w", userID, err)
	}
	defer unlock()
	return fn()
}

// EnsureStatsRecord returns the user's stats, creating the row on first use (idempotent)
func (s *ProgressionService) EnsureStatsRecord(ctx context.Context, userID string) (*models.UserStats, error) {
	stats, err := s.stats.GetUserStats(ctx, userID)
	if errors.Is(err, ErrStatsNotFound) {
		s.log.Info("creating stats record", "user_id", userID)
		return s.stats.CreateUserStats(ctx, userID)
	}
	return stats, err
}

// AddXP adds amount to total_xp and counts one more session. Level is left to CheckLevelUp.
func (s *ProgressionService) AddXP(ctx context.Context, userID string, amount int64) (*models.UserStats, error) {
	var out *models.UserStats
	err := s.withUserLock(ctx, userID, func() error {
		var err error
		out, err = s.addXP(ctx, userID, amount)
		return err
	})
	return out, err
}

func (s *ProgressionService) addXP(ctx context.Context, userID string, amount int64) (*models.UserStats, error) {
	if amount < 0 {
		return nil, ErrNegativeXP
	}
	stats, err := s.EnsureStatsRecord(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats.TotalXP += amount
	stats.TotalSessions++
	if err := s.stats.UpdateUserStats(ctx, userID, map[string]interface{}{
		"total_xp":       stats.TotalXP,
		"total_sessions": stats.TotalSessions,
	}); err != nil {
		return nil, fmt.Errorf("add xp for %s: %w", userID, err)
	}
	s.log.Debug("xp awarded", "user_id", userID, "amount", amount, "total_xp", stats.TotalXP)
	return stats, nil
}

// CheckLevelUp recomputes the level from total_xp and stores it when it went up
func (s *ProgressionService) CheckLevelUp(ctx context.Context, userID string) (LevelUpResult, error) {
	var out LevelUpResult
	err := s.withUserLock(ctx, userID, func() error {
		var err error
		out, err = s.checkLevelUp(ctx, userID)
		return err
	})
	return out, err
}

func (s *ProgressionService) checkLevelUp(ctx context.Context, userID string) (LevelUpResult, error) {
	stats, err := s.stats.GetUserStats(ctx, userID)
	if err != nil {
		return LevelUpResult{}, err
	}
	newLevel := CalculateLevelFromXP(stats.TotalXP)
	if newLevel <= stats.CurrentLevel {
		return LevelUpResult{OldLevel: stats.CurrentLevel, NewLevel: stats.CurrentLevel}, nil
	}
	if err := s.stats.UpdateUserStats(ctx, userID, map[string]interface{}{
		"current_level": newLevel,
	}); err != nil {
		return LevelUpResult{}, fmt.Errorf("level up %s: %w", userID, err)
	}
	s.log.Info("level up", "user_id", userID, "old_level", stats.CurrentLevel, "new_level", newLevel)
	return LevelUpResult{LeveledUp: true, OldLevel: stats.CurrentLevel, NewLevel: newLevel}, nil
}

// UpdateStreak counts today as a practice day. A user without stats gets ErrStatsNotFound and no row.
func (s *ProgressionService) UpdateStreak(ctx context.Context, userID string, today time.Time) (StreakResult, error) {
	var out StreakResult
	err := s.withUserLock(ctx, userID, func() error {
		var err error
		out, err = s.updateStreak(ctx, userID, today)
		return err
	})
	return out, err
}

func (s *ProgressionService) updateStreak(ctx context.Context, userID string, today time.Time) (StreakResult, error) {
	stats, err := s.stats.GetUserStats(ctx, userID)
	if err != nil {
		return StreakResult{}, err
	}

	next, res := NextStreak(StreakState{
		CurrentStreak:     stats.CurrentStreak,
		LongestStreak:     stats.LongestStreak,
		LastPracticeDate:  stats.LastPracticeDate,
		StreakShieldCount: stats.StreakShieldCount,
	}, today)

	switch res.Action {
	case StreakSameDay:
		return res, nil
	case StreakAnomaly:
		s.log.Warn("last practice date is after today, streak left unchanged",
			"user_id", userID, "last_practice_date", stats.LastPracticeDate, "today", CivilDate(today))
		return res, nil
	}

	if err := s.stats.UpdateUserStats(ctx, userID, map[string]interface{}{
		"current_streak":      next.CurrentStreak,
		"longest_streak":      next.LongestStreak,
		"last_practice_date":  *next.LastPracticeDate,
		"streak_shield_count": next.StreakShieldCount,
	}); err != nil {
		return StreakResult{}, fmt.Errorf("update streak for %s: %w", userID, err)
	}
	if res.ShieldUsed {
		s.log.Info("streak shield consumed", "user_id", userID, "streak", next.CurrentStreak, "shields_left", next.StreakShieldCount)
	}
	return res, nil
}

// ProcessPracticeSession runs the full award flow for a session that has already been recorded
func (s *ProgressionService) ProcessPracticeSession(ctx context.Context, userID string, session models.PracticeSession) (*PracticeOutcome, error) {
	var out *PracticeOutcome
	err := s.withUserLock(ctx, userID, func() error {
		xp := CalculateXP(session.DurationMinutes, session.SentimentScore, session.ImprovementDetected)
		if _, err := s.addXP(ctx, userID, xp); err != nil {
			return err
		}
		levelUp, err := s.checkLevelUp(ctx, userID)
		if err != nil {
			return err
		}
		streak, err := s.updateStreak(ctx, userID, Today(s.clock))
		if err != nil {
			return err
		}
		badges, err := s.checkAndAwardBadges(ctx, userID)
		if err != nil {
			return err
		}
		// badge rewards may carry the user over the next level
		if len(badges) > 0 {
			again, err := s.checkLevelUp(ctx, userID)
			if err != nil {
				return err
			}
			if again.LeveledUp {
				if !levelUp.LeveledUp {
					levelUp.OldLevel = again.OldLevel
				}
				levelUp.LeveledUp = true
				levelUp.NewLevel = again.NewLevel
			}
		}
		stats, err := s.stats.GetUserStats(ctx, userID)
		if err != nil {
			return err
		}
		out = &PracticeOutcome{
			XPEarned:  xp,
			LevelUp:   levelUp,
			Streak:    streak,
			NewBadges: badges,
			Stats:     stats,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("practice session processed",
		"user_id", userID, "xp", out.XPEarned, "level", out.Stats.CurrentLevel,
		"streak", out.Streak.CurrentStreak, "new_badges", len(out.NewBadges))
	return out, nil
}

// Drain waits for in-flight badge notifications
func (s *ProgressionService) Drain() {
	s.notifyWG.Wait()
}
