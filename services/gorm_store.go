package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"practice-hub/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements every store the engine consumes on top of one *gorm.DB
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

type txKey struct{}

// conn returns the transaction carried by ctx, or the pool
func (s *GormStore) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return s.DB.WithContext(ctx)
}

// InTx runs fn in one transaction. Store calls made with the ctx passed to fn join it;
// when ctx already carries a transaction a savepoint is used instead.
func (s *GormStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// AutoMigrate creates or updates the progression tables
func (s *GormStore) AutoMigrate() error {
	return s.DB.AutoMigrate(
		&models.UserStats{},
		&models.PracticeSession{},
		&models.Badge{},
		&models.UserBadge{},
		&models.GemTransaction{},
	)
}

func (s *GormStore) GetUserStats(ctx context.Context, userID string) (*models.UserStats, error) {
	var stats models.UserStats
	err := s.conn(ctx).Where("user_id = ?", userID).First(&stats).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrStatsNotFound
	}
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// CreateUserStats inserts a fresh row (level 1, everything else zero).
// A concurrent insert for the same user is tolerated and the stored row returned.
func (s *GormStore) CreateUserStats(ctx context.Context, userID string) (*models.UserStats, error) {
	stats := models.UserStats{
		ID:           uuid.NewString(),
		UserID:       userID,
		CurrentLevel: 1,
	}
	err := s.conn(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&stats).Error
	if err != nil {
		return nil, err
	}
	return s.GetUserStats(ctx, userID)
}

func (s *GormStore) UpdateUserStats(ctx context.Context, userID string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	res := s.conn(ctx).
		Model(&models.UserStats{}).
		Where("user_id = ?", userID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatsNotFound
	}
	return nil
}

func (s *GormStore) GemBalances(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		UserID      string
		GemsBalance int64
	}
	if err := s.conn(ctx).
		Model(&models.UserStats{}).
		Select("user_id, gems_balance").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.UserID] = r.GemsBalance
	}
	return out, nil
}

// RecordPracticeSession stores a session submitted by the client
func (s *GormStore) RecordPracticeSession(ctx context.Context, session *models.PracticeSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	session.CreatedAt = session.CreatedAt.UTC()
	return s.conn(ctx).Create(session).Error
}

func (s *GormStore) GetPracticeSessions(ctx context.Context, userID string, limit, offset int) ([]models.PracticeSession, error) {
	var sessions []models.PracticeSession
	err := s.conn(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&sessions).Error
	return sessions, err
}

func (s *GormStore) GetBadges(ctx context.Context, activeOnly bool) ([]models.Badge, error) {
	var badges []models.Badge
	q := s.conn(ctx).Order("sort_order ASC").Order("badge_key ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	err := q.Find(&badges).Error
	return badges, err
}

// SeedBadges inserts catalog entries whose badge_key is not present yet
func (s *GormStore) SeedBadges(ctx context.Context, badges []models.Badge) error {
	for i, b := range badges {
		if b.BadgeKey == "" {
			b.BadgeKey = models.BadgeKeyFromName(b.Name)
		}
		b.ID = uuid.NewString()
		b.IsActive = true
		if b.SortOrder == 0 {
			b.SortOrder = i + 1
		}
		if err := s.conn(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "badge_key"}}, DoNothing: true}).
			Create(&b).Error; err != nil {
			return fmt.Errorf("seed badge %s: %w", b.BadgeKey, err)
		}
	}
	return nil
}

func (s *GormStore) GetUserBadges(ctx context.Context, userID string) ([]models.UserBadge, error) {
	var badges []models.UserBadge
	err := s.conn(ctx).
		Where("user_id = ?", userID).
		Order("awarded_at ASC").
		Find(&badges).Error
	return badges, err
}

// AwardBadge runs in its own savepoint so a failed insert does not abort an enclosing transaction
func (s *GormStore) AwardBadge(ctx context.Context, userID, badgeKey string) (bool, error) {
	ub := models.UserBadge{
		ID:       uuid.NewString(),
		UserID:   userID,
		BadgeKey: badgeKey,
	}
	var inserted bool
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "badge_key"}},
			DoNothing: true,
		}).Create(&ub)
		if res.Error != nil {
			return res.Error
		}
		inserted = res.RowsAffected == 1
		return nil
	})
	return inserted, err
}

func (s *GormStore) RecordGemsTransaction(ctx context.Context, userID string, direction models.GemDirection, amount int64, reference, description string) error {
	tx := models.GemTransaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Direction:   direction,
		Amount:      amount,
		Reference:   reference,
		Description: description,
	}
	return s.conn(ctx).Create(&tx).Error
}

// ApplyGemChange writes fields to the user's stats row and appends entry to the ledger atomically.
// A nil entry only writes the stats.
func (s *GormStore) ApplyGemChange(ctx context.Context, userID string, fields map[string]interface{}, entry *models.GemTransaction) error {
	return s.InTx(ctx, func(ctx context.Context) error {
		if err := s.UpdateUserStats(ctx, userID, fields); err != nil {
			return err
		}
		if entry == nil {
			return nil
		}
		return s.RecordGemsTransaction(ctx, userID, entry.Direction, entry.Amount, entry.Reference, entry.Description)
	})
}

func (s *GormStore) ListGemTransactions(ctx context.Context, userID string, limit, offset int) ([]models.GemTransaction, error) {
	var txs []models.GemTransaction
	err := s.conn(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&txs).Error
	return txs, err
}

func (s *GormStore) LedgerTotals(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		UserID string
		Total  int64
	}
	err := s.conn(ctx).
		Model(&models.GemTransaction{}).
		Select("user_id, SUM(CASE WHEN direction = ? THEN -amount ELSE amount END) AS total", models.GemDirectionSpent).
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.UserID] = r.Total
	}
	return out, nil
}
