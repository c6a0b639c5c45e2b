package extract

import (
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/compliance-radar/internal/model"
)

// dateLayouts are tried in order; the first that parses wins.
// Day and month accept one or two digits. Two-digit years map 69-99 to
// 19xx and 00-68 to 20xx.
var dateLayouts = []string{
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
	"2/1/06",
	"2-1-06",
	"2.1.06",
	"2006-1-2",
}

// DateLayouts returns the recognized layouts in priority order
func DateLayouts() []string {
	out := make([]string, len(dateLayouts))
	copy(out, dateLayouts)
	return out
}

// ParseDate parses a single date-like string. Invalid calendar dates
// (e.g. 31/02/2024) and year 0000 are rejected.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.Year() < 1 {
			return time.Time{}, false
		}
		return model.Day(t), true
	}
	return time.Time{}, false
}

// ParseDates normalizes raw date strings into a set of calendar dates,
// returned ascending without duplicates. Unparsable strings are dropped.
func ParseDates(raw []string) []time.Time {
	seen := make(map[time.Time]bool)
	dates := make([]time.Time, 0, len(raw))

	for _, s := range raw {
		d, ok := ParseDate(s)
		if !ok || seen[d] {
			continue
		}
		seen[d] = true
		dates = append(dates, d)
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}
