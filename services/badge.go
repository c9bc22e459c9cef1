package services

import (
	"context"
	"fmt"
	"time"

	"practice-hub/models"
)

// CheckAndAwardBadges evaluates every active badge the user has not earned yet and awards the
// eligible ones. Rewards are applied to the working snapshot as they land, so one pass cascades.
func (s *ProgressionService) CheckAndAwardBadges(ctx context.Context, userID string) ([]models.Badge, error) {
	var out []models.Badge
	err := s.withUserLock(ctx, userID, func() error {
		var err error
		out, err = s.checkAndAwardBadges(ctx, userID)
		return err
	})
	return out, err
}

func (s *ProgressionService) checkAndAwardBadges(ctx context.Context, userID string) ([]models.Badge, error) {
	stats, err := s.stats.GetUserStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	earnedRows, err := s.awards.GetUserBadges(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load earned badges for %s: %w", userID, err)
	}
	earned := make(map[string]struct{}, len(earnedRows))
	for _, ub := range earnedRows {
		earned[ub.BadgeKey] = struct{}{}
	}

	catalog, err := s.catalog.GetBadges(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("load badge catalog: %w", err)
	}

	in := badgeInput{stats: stats, loc: s.clock.Location()}
	sessionsLoaded := false
	awarded := []models.Badge{}
	skip := make(map[string]struct{}) // unknown criteria or a failed award, not retried this call

	// rewards can make a badge earlier in the catalog eligible, so repeat until a pass awards nothing
	for progressed := true; progressed; {
		progressed = false
		for _, badge := range catalog {
			if _, ok := earned[badge.BadgeKey]; ok {
				continue
			}
			if _, ok := skip[badge.BadgeKey]; ok {
				continue
			}

			if badge.CriteriaType.NeedsSessions() && !sessionsLoaded {
				in.sessions, err = s.loadAllSessions(ctx, userID)
				if err != nil {
					return nil, err
				}
				sessionsLoaded = true
			}

			eligible, known := meetsCriteria(badge, in)
			if !known {
				s.log.Warn("unknown badge criteria type", "badge_key", badge.BadgeKey, "criteria_type", badge.CriteriaType)
				skip[badge.BadgeKey] = struct{}{}
				continue
			}
			if !eligible {
				continue
			}

			if s.awardBadge(ctx, in.stats, badge) {
				earned[badge.BadgeKey] = struct{}{}
				awarded = append(awarded, badge)
				progressed = true
			} else {
				skip[badge.BadgeKey] = struct{}{}
			}
		}
	}
	return awarded, nil
}

// awardBadge inserts the award and applies its rewards. It reports whether this call awarded it.
func (s *ProgressionService) awardBadge(ctx context.Context, stats *models.UserStats, badge models.Badge) bool {
	userID := stats.UserID
	inserted, err := s.awards.AwardBadge(ctx, userID, badge.BadgeKey)
	if err != nil {
		s.log.Error("failed to record badge award", "user_id", userID, "badge_key", badge.BadgeKey, "error", err)
		return false
	}
	if !inserted {
		// someone else awarded it between our read and the insert
		s.log.Debug("badge already awarded", "user_id", userID, "badge_key", badge.BadgeKey)
		return false
	}

	s.applyBadgeRewards(ctx, stats, badge)
	s.log.Info("🎖️ badge awarded", "user_id", userID, "badge_key", badge.BadgeKey,
		"xp_reward", badge.XPReward, "gem_reward", badge.GemReward)

	if badge.NotifyEnabled {
		s.notifyAsync(userID, badge)
	}
	return true
}

// applyBadgeRewards writes the badge's XP and gems, with the ledger row, and updates stats in place.
// A failed write leaves the snapshot as it was so later badges are judged on stored values.
func (s *ProgressionService) applyBadgeRewards(ctx context.Context, stats *models.UserStats, badge models.Badge) {
	totalXP := stats.TotalXP + badge.XPReward
	gems := stats.GemsBalance + badge.GemReward
	badgesEarned := stats.BadgesEarned + 1

	var entry *models.GemTransaction
	if badge.GemReward > 0 {
		entry = &models.GemTransaction{
			Direction:   models.GemDirectionEarned,
			Amount:      badge.GemReward,
			Reference:   "badge_" + badge.BadgeKey,
			Description: fmt.Sprintf("Badge earned: %s", badge.Name),
		}
	}
	if err := s.ledger.ApplyGemChange(ctx, stats.UserID, map[string]interface{}{
		"total_xp":      totalXP,
		"gems_balance":  gems,
		"badges_earned": badgesEarned,
	}, entry); err != nil {
		s.log.Error("failed to apply badge rewards", "user_id", stats.UserID, "badge_key", badge.BadgeKey, "error", err)
		return
	}
	stats.TotalXP = totalXP
	stats.GemsBalance = gems
	stats.BadgesEarned = badgesEarned
}

// loadAllSessions pages through the whole practice history, newest first
func (s *ProgressionService) loadAllSessions(ctx context.Context, userID string) ([]models.PracticeSession, error) {
	var all []models.PracticeSession
	pageSize := s.cfg.SessionPageSize
	for offset := 0; ; offset += pageSize {
		page, err := s.sessions.GetPracticeSessions(ctx, userID, pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("load practice sessions for %s: %w", userID, err)
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
	}
}

func (s *ProgressionService) notifyAsync(userID string, badge models.Badge) {
	s.notifyWG.Add(1)
	go func() {
		defer s.notifyWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.NotifyTimeout)
		defer cancel()
		if err := s.notifier.NotifyBadgeEarned(ctx, userID, badge); err != nil {
			s.log.Warn("badge notification failed", "user_id", userID, "badge_key", badge.BadgeKey, "error", err)
		}
	}()
}

// EarnedBadge is a catalog badge together with when the user got it
type EarnedBadge struct {
	models.Badge
	AwardedAt time.Time `json:"awarded_at"`
}

// EarnedBadges lists the user's badges in award order
func (s *ProgressionService) EarnedBadges(ctx context.Context, userID string) ([]EarnedBadge, error) {
	rows, err := s.awards.GetUserBadges(ctx, userID)
	if err != nil {
		return nil, err
	}
	catalog, err := s.catalog.GetBadges(ctx, false)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]models.Badge, len(catalog))
	for _, b := range catalog {
		byKey[b.BadgeKey] = b
	}

	out := make([]EarnedBadge, 0, len(rows))
	for _, ub := range rows {
		b, ok := byKey[ub.BadgeKey]
		if !ok {
			// award outlived its catalog entry
			b = models.Badge{BadgeKey: ub.BadgeKey, Name: ub.BadgeKey}
		}
		out = append(out, EarnedBadge{Badge: b, AwardedAt: ub.AwardedAt})
	}
	return out, nil
}
