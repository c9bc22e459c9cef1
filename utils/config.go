// utils/config.go
package utils

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything main needs to wire the service
type Config struct {
	DatabaseURL  string
	Port         string
	ServiceToken string // shared secret the gateway sends as Bearer token
	LogMode      string

	SiteTimezone string

	RedisURL string // optional; enables the distributed per-user lock

	CRMWebhookURL   string // optional; badge notifications
	CRMWebhookToken string

	ShieldGemCost    int64
	MaxStreakShields int
	SessionPageSize  int

	LedgerAuditInterval time.Duration

	R2 R2Config
}

// LoadConfig reads .env (if present) then the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	cfg := &Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		Port:            getEnv("PORT", "5200"),
		ServiceToken:    os.Getenv("GAME_SERVICE_TOKEN"),
		LogMode:         getEnv("LOG_MODE", "dev"),
		SiteTimezone:    getEnv("SITE_TIMEZONE", "UTC"),
		RedisURL:        os.Getenv("REDIS_URL"),
		CRMWebhookURL:   os.Getenv("CRM_WEBHOOK_URL"),
		CRMWebhookToken: os.Getenv("CRM_WEBHOOK_TOKEN"),
		R2: R2Config{
			AccountID:       os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			AccessKeySecret: os.Getenv("R2_ACCESS_KEY_SECRET"),
			Bucket:          os.Getenv("R2_BUCKET_NAME"),
		},
	}

	var err error
	if cfg.ShieldGemCost, err = getEnvInt64("SHIELD_GEM_COST", 50); err != nil {
		return nil, err
	}
	maxShields, err := getEnvInt64("MAX_STREAK_SHIELDS", 3)
	if err != nil {
		return nil, err
	}
	cfg.MaxStreakShields = int(maxShields)
	pageSize, err := getEnvInt64("SESSION_PAGE_SIZE", 100)
	if err != nil {
		return nil, err
	}
	cfg.SessionPageSize = int(pageSize)
	if cfg.LedgerAuditInterval, err = getEnvDuration("LEDGER_AUDIT_INTERVAL", time.Hour); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if c.ServiceToken == "" {
		return fmt.Errorf("GAME_SERVICE_TOKEN environment variable not set")
	}
	if _, err := time.LoadLocation(c.SiteTimezone); err != nil {
		return fmt.Errorf("invalid SITE_TIMEZONE %q: %w", c.SiteTimezone, err)
	}
	if c.ShieldGemCost < 0 {
		return fmt.Errorf("SHIELD_GEM_COST must not be negative")
	}
	if c.SessionPageSize <= 0 {
		return fmt.Errorf("SESSION_PAGE_SIZE must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) (int64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
