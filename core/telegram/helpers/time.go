package helpers

import (
	"strings"
	"time"
)

var flexibleDateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"02.01.2006",
	"2.1.2006",
	"02.01",
	"2.1",
}

// ParseFlexibleDate tries several common date formats typed by moderators.
// Day.month inputs without a year take the year of now. The result is in loc.
func ParseFlexibleDate(input string, now time.Time, loc *time.Location) (time.Time, bool) {
	s := strings.TrimSpace(input)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range flexibleDateLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err != nil {
			continue
		}
		if !strings.Contains(layout, "2006") {
			t = time.Date(now.In(loc).Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
		}
		return t, true
	}
	return time.Time{}, false
}
