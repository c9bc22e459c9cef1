package utils

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/practice")
	t.Setenv("GAME_SERVICE_TOKEN", "secret")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequired(t)
	for _, k := range []string{"PORT", "LOG_MODE", "SITE_TIMEZONE", "SHIELD_GEM_COST", "MAX_STREAK_SHIELDS", "SESSION_PAGE_SIZE", "LEDGER_AUDIT_INTERVAL", "REDIS_URL", "R2_BUCKET_NAME"} {
		t.Setenv(k, "")
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "5200" || cfg.LogMode != "dev" || cfg.SiteTimezone != "UTC" {
		t.Fatalf("defaults = port %s mode %s tz %s", cfg.Port, cfg.LogMode, cfg.SiteTimezone)
	}
	if cfg.ShieldGemCost != 50 || cfg.MaxStreakShields != 3 || cfg.SessionPageSize != 100 {
		t.Fatalf("engine defaults = %d/%d/%d", cfg.ShieldGemCost, cfg.MaxStreakShields, cfg.SessionPageSize)
	}
	if cfg.LedgerAuditInterval != time.Hour {
		t.Fatalf("audit interval = %s", cfg.LedgerAuditInterval)
	}
	if cfg.R2.Enabled() {
		t.Fatal("R2 enabled without credentials")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SITE_TIMEZONE", "America/New_York")
	t.Setenv("SHIELD_GEM_COST", "75")
	t.Setenv("LEDGER_AUDIT_INTERVAL", "15m")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.SiteTimezone != "America/New_York" || cfg.ShieldGemCost != 75 || cfg.LedgerAuditInterval != 15*time.Minute {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"no database", map[string]string{"DATABASE_URL": ""}, "DATABASE_URL"},
		{"no token", map[string]string{"GAME_SERVICE_TOKEN": ""}, "GAME_SERVICE_TOKEN"},
		{"bad timezone", map[string]string{"SITE_TIMEZONE": "Mars/Olympus"}, "SITE_TIMEZONE"},
		{"bad cost", map[string]string{"SHIELD_GEM_COST": "lots"}, "SHIELD_GEM_COST"},
		{"negative cost", map[string]string{"SHIELD_GEM_COST": "-1"}, "SHIELD_GEM_COST"},
		{"zero page", map[string]string{"SESSION_PAGE_SIZE": "0"}, "SESSION_PAGE_SIZE"},
		{"bad interval", map[string]string{"LEDGER_AUDIT_INTERVAL": "hourly"}, "LEDGER_AUDIT_INTERVAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want mention of %s", err, tt.want)
			}
		})
	}
}
