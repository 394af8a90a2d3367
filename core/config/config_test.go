package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeDefaults(t *testing.T) {
	cfg := &Config{
		Telegram:  TelegramConfig{Token: "123:abc", RunMode: "Polling"},
		RateLimit: RateLimitConfig{ExcludeUpdates: []string{" Callback ", ""}},
	}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run mode = %q", cfg.Telegram.RunMode)
	}
	if len(cfg.RateLimit.ExcludeUpdates) != 1 || cfg.RateLimit.ExcludeUpdates[0] != UpdateCallback {
		t.Fatalf("exclude updates = %v", cfg.RateLimit.ExcludeUpdates)
	}
}

func TestNormalizeRejectsInvalid(t *testing.T) {
	cases := map[string]Config{
		"missing token":   {},
		"negative admin":  {Telegram: TelegramConfig{Token: "t", AdminID: -1}},
		"webhook w/o url": {Telegram: TelegramConfig{Token: "t", RunMode: RunModeWebhook}},
		"bad mode":        {Telegram: TelegramConfig{Token: "t", RunMode: "carrier-pigeon"}},
		"bad exclude":     {Telegram: TelegramConfig{Token: "t"}, RateLimit: RateLimitConfig{ExcludeUpdates: []string{"inline"}}},
	}
	for name, cfg := range cases {
		cfg := cfg
		if err := Normalize(&cfg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadOverlaysEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "telegram:\n  token: from-file\n  admin_id: 10\nlogging:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("BOT_TOKEN", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "from-env" {
		t.Fatalf("token = %q, env should win", cfg.Telegram.Token)
	}
	if cfg.Telegram.AdminID != 10 {
		t.Fatalf("admin id = %d", cfg.Telegram.AdminID)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("log level = %q", cfg.Logging.Level)
	}
}
