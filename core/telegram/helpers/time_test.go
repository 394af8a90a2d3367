package helpers

import (
	"testing"
	"time"
)

func TestParseFlexibleDate(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	now := time.Date(2026, time.April, 1, 12, 0, 0, 0, loc)

	cases := map[string]string{
		"2026-04-09": "2026-04-09",
		"09.04.2026": "2026-04-09",
		"9.4":        "2026-04-09",
		" 2026-4-9 ": "2026-04-09",
	}
	for in, want := range cases {
		got, ok := ParseFlexibleDate(in, now, loc)
		if !ok {
			t.Fatalf("ParseFlexibleDate(%q) failed", in)
		}
		if got.Format("2006-01-02") != want {
			t.Fatalf("ParseFlexibleDate(%q) = %s, want %s", in, got.Format("2006-01-02"), want)
		}
		if got.Location() != loc {
			t.Fatalf("ParseFlexibleDate(%q) location = %v", in, got.Location())
		}
	}
	if _, ok := ParseFlexibleDate("tomorrow", now, loc); ok {
		t.Fatal("expected failure for free text")
	}
}
