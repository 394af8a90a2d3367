package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
  admin_id: 77
event:
  mode: Pre-Release
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Event.Mode != ModePreRelease || cfg.Release() {
		t.Fatalf("mode = %q", cfg.Event.Mode)
	}
	if cfg.Event.QuestionsChatID != 77 {
		t.Fatalf("questions chat = %d, want moderator", cfg.Event.QuestionsChatID)
	}
	if cfg.Storage.Driver != "memory" || cfg.Sessions.Backend != SessionsMemory {
		t.Fatalf("storage=%q sessions=%q", cfg.Storage.Driver, cfg.Sessions.Backend)
	}
	if cfg.CoreConfig().Telegram.Token != "123:abc" || cfg.CoreConfig().Telegram.RunMode != "longpoll" {
		t.Fatalf("core config = %+v", cfg.CoreConfig().Telegram)
	}
	if cfg.Location().String() != "Europe/Moscow" || cfg.SessionTTL() != 0 {
		t.Fatalf("location=%s ttl=%s", cfg.Location(), cfg.SessionTTL())
	}
}

func TestLoadEnvOverlay(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "from-file"
sessions:
  ttl_seconds: 60
`)
	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("EVENT_MODE", "release")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "from-env" || !cfg.Release() {
		t.Fatalf("token=%q mode=%q", cfg.Telegram.Token, cfg.Event.Mode)
	}
	if cfg.SessionTTL() != time.Minute {
		t.Fatalf("ttl = %s", cfg.SessionTTL())
	}
}

func TestNormalizeRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"bad mode":       "event:\n  mode: beta\n",
		"bad driver":     "storage:\n  driver: sqlite\n",
		"redis w/o addr": "sessions:\n  backend: redis\n",
		"mongo w/o uri":  "storage:\n  driver: mongo\n",
		"pg w/o host":    "storage:\n  driver: postgres\n",
		"events w/o url": "events:\n  enabled: true\n",
		"bad timezone":   "event:\n  timezone: Mars/Olympus\n",
	}
	for name, body := range cases {
		path := writeConfig(t, "telegram:\n  token: \"t\"\n"+body)
		if _, err := Load(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
