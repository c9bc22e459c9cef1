package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"practice-hub/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time           { return c.now }
func (c fixedClock) Location() *time.Location { return c.now.Location() }

// recordingNotifier remembers every badge it was told about
type recordingNotifier struct {
	mu     sync.Mutex
	badges []string
	err    error
}

func (n *recordingNotifier) NotifyBadgeEarned(_ context.Context, _ string, b models.Badge) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.badges = append(n.badges, b.BadgeKey)
	return n.err
}

func (n *recordingNotifier) keys() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.badges...)
}

type testEnv struct {
	ctx      context.Context
	store    *GormStore
	svc      *ProgressionService
	notifier *recordingNotifier
	now      time.Time
}

var testNow = time.Date(2026, 3, 10, 18, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "practice.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	store := NewGormStore(db)
	if err := store.AutoMigrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func newTestEnv(t *testing.T, deps ...func(*Dependencies)) *testEnv {
	t.Helper()
	store := newTestStore(t)
	notifier := &recordingNotifier{}
	d := Dependencies{
		Stats:    store,
		Sessions: store,
		Catalog:  store,
		Awards:   store,
		Ledger:   store,
		Notifier: notifier,
		Clock:    fixedClock{now: testNow},
		Config:   DefaultProgressionConfig,
	}
	for _, fn := range deps {
		fn(&d)
	}
	return &testEnv{
		ctx:      context.Background(),
		store:    store,
		svc:      NewProgressionService(d),
		notifier: notifier,
		now:      testNow,
	}
}

// seedBadges adds badges to the catalog in the given order
func (e *testEnv) seedBadges(t *testing.T, badges ...models.Badge) {
	t.Helper()
	if err := e.store.SeedBadges(e.ctx, badges); err != nil {
		t.Fatalf("seed badges: %v", err)
	}
}

func (e *testEnv) setStats(t *testing.T, userID string, fields map[string]interface{}) *models.UserStats {
	t.Helper()
	if _, err := e.svc.EnsureStatsRecord(e.ctx, userID); err != nil {
		t.Fatalf("ensure stats: %v", err)
	}
	if err := e.store.UpdateUserStats(e.ctx, userID, fields); err != nil {
		t.Fatalf("update stats: %v", err)
	}
	return e.stats(t, userID)
}

func (e *testEnv) stats(t *testing.T, userID string) *models.UserStats {
	t.Helper()
	stats, err := e.store.GetUserStats(e.ctx, userID)
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	return stats
}

func (e *testEnv) addSession(t *testing.T, userID string, at time.Time, minutes float64, improved bool) {
	t.Helper()
	s := &models.PracticeSession{
		UserID:              userID,
		DurationMinutes:     minutes,
		SentimentScore:      3,
		ImprovementDetected: improved,
		CreatedAt:           at,
	}
	if err := e.store.RecordPracticeSession(e.ctx, s); err != nil {
		t.Fatalf("record session: %v", err)
	}
}

// failCreates makes every insert of the named model fail on this store
func failCreates(t *testing.T, store *GormStore, model string) {
	t.Helper()
	err := store.DB.Callback().Create().Before("gorm:create").Register("test:fail_create_"+model, func(db *gorm.DB) {
		if db.Statement.Schema != nil && db.Statement.Schema.Name == model {
			_ = db.AddError(errors.New(model + " insert failed"))
		}
	})
	if err != nil {
		t.Fatalf("register failing callback: %v", err)
	}
}

func badgeKeys(badges []models.Badge) []string {
	keys := make([]string, 0, len(badges))
	for _, b := range badges {
		keys = append(keys, b.BadgeKey)
	}
	return keys
}
