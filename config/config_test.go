package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_IDS", "1,42")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxDuration != 600 {
		t.Errorf("MaxDuration = %d, want 600", cfg.MaxDuration)
	}
	if cfg.MaxFileSize != 45*1024*1024 {
		t.Errorf("MaxFileSize = %d, want 45MB", cfg.MaxFileSize)
	}
	if cfg.QueryCacheTTL != 2*time.Minute || cfg.SearchSessionTTL != 5*time.Minute {
		t.Errorf("unexpected TTLs: query=%v session=%v", cfg.QueryCacheTTL, cfg.SearchSessionTTL)
	}
	if cfg.FileIDTTL != 30*24*time.Hour {
		t.Errorf("FileIDTTL = %v, want 30 days", cfg.FileIDTTL)
	}
	if got := strings.Join(cfg.HouseChannels, ","); got != "tequila,fullmoon" {
		t.Errorf("HouseChannels = %q", got)
	}
	if !cfg.IsAdmin(42) || cfg.IsAdmin(7) {
		t.Errorf("IsAdmin mismatch for %v", cfg.AdminIDs)
	}
}

func TestLoadRejectsUnknownBitrate(t *testing.T) {
	t.Setenv("DEFAULT_BITRATE", "256")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for bitrate outside tiers")
	}
}

func TestYandexTokenList(t *testing.T) {
	cfg := &Config{
		YandexTokens: []string{"a", " b ", "", "a"},
		YandexToken:  "c",
	}
	got := cfg.YandexTokenList()
	if strings.Join(got, ",") != "a,b,c" {
		t.Fatalf("YandexTokenList = %v", got)
	}
}

func TestMySQLDSN(t *testing.T) {
	cfg := &Config{DBUser: "bot", DBPassword: "pw", DBHost: "db", DBPort: "3306", DBName: "music"}
	dsn := cfg.MySQLDSN()
	if !strings.HasPrefix(dsn, "bot:pw@tcp(db:3306)/music?") {
		t.Fatalf("unexpected dsn %q", dsn)
	}
	if !strings.Contains(dsn, "parseTime=true") {
		t.Fatalf("dsn missing parseTime: %q", dsn)
	}
}
