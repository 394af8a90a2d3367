package database

import (
	"testing"
	"testing/fstest"
)

func TestListMigrationFilesSkipsDownAndDirs(t *testing.T) {
	src := fstest.MapFS{
		"000002_roster.up.sql":   {Data: []byte("select 1;")},
		"000001_init.up.sql":     {Data: []byte("select 1;")},
		"000001_init.down.sql":   {Data: []byte("select 1;")},
		"nested/000009_x.up.sql": {Data: []byte("select 1;")},
	}
	files := listMigrationFiles(src)
	if len(files) != 2 {
		t.Fatalf("expected 2 up files, got %v", files)
	}
	if files[0] != "000001_init.up.sql" || files[1] != "000002_roster.up.sql" {
		t.Fatalf("unexpected order: %v", files)
	}
}

func TestCountApplied(t *testing.T) {
	files := []string{"000001_init.up.sql", "000002_roster.up.sql", "000003_notifications.up.sql"}
	if got := countApplied(files, 1, 3); got != 2 {
		t.Fatalf("countApplied(1,3) = %d, want 2", got)
	}
	if got := countApplied(files, 3, 3); got != 0 {
		t.Fatalf("countApplied(3,3) = %d, want 0", got)
	}
	applied := selectApplied(files, 0, 1)
	if len(applied) != 1 || applied[0] != "000001_init.up.sql" {
		t.Fatalf("selectApplied(0,1) = %v", applied)
	}
}

func TestConfigDSNDefaultsSSLMode(t *testing.T) {
	cfg := Config{Host: "db", Port: "5432", User: "bot", Password: "secret", Name: "event"}
	if got := cfg.URL(); got != "postgres://bot:secret@db:5432/event?sslmode=disable" {
		t.Fatalf("URL = %q", got)
	}
	if got := cfg.DSN(); got != "user=bot password=secret host=db port=5432 dbname=event sslmode=disable" {
		t.Fatalf("DSN = %q", got)
	}
}
