package content

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultContentIsValid(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if len(c.Timings) != 4 || len(c.Transfers) != 4 {
		t.Fatalf("timings=%d transfers=%d", len(c.Timings), len(c.Transfers))
	}
	first, ok := c.Transfer(1)
	if !ok || !first.Lookup {
		t.Fatalf("first transfer = %+v, want lookup section", first)
	}
	if _, ok := c.Timing(0); ok {
		t.Fatalf("Timing(0) found")
	}
	if _, ok := c.Timing(5); ok {
		t.Fatalf("Timing(5) found")
	}
	if !strings.Contains(c.Texts.QuestionForward, "%s") {
		t.Fatalf("question template lost its placeholder")
	}
}

func TestLoadOverride(t *testing.T) {
	raw := strings.Replace(string(defaultContent), `main_menu: "Выберите раздел: "`, `main_menu: "Menu"`, 1)
	path := filepath.Join(t.TempDir(), "content.yaml")
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Texts.MainMenu != "Menu" {
		t.Fatalf("main menu = %q", c.Texts.MainMenu)
	}
}

func TestParseRejectsIncomplete(t *testing.T) {
	if _, err := Parse([]byte("contacts: x\n")); err == nil {
		t.Fatalf("content without texts accepted")
	}
	bad := "texts: {}\ncontacts: x\ntransfers:\n  - label: day\n"
	if _, err := Parse([]byte(bad)); err == nil {
		t.Fatalf("section without text accepted")
	}
}
