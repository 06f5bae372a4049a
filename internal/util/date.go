package util

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"datatalk-backend/internal/model"
)

// DayLayout is the canonical day format used by date filters.
const DayLayout = "2006-01-02"

// Matches "Jan-24", "Jan 2024", "Jan/24" and "Jan24".
var monthYearRegex = regexp.MustCompile(`^([A-Za-z]{3})[\s\-/]?(\d{2}|\d{4})$`)

var monthAbbreviations = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// ParseDate interprets a cell as a date. Month-year shorthand is tried before
// general date strings so "Apr 24" means April 2024 rather than the 24th.
// Numbers and purely numeric strings are never dates.
func ParseDate(v model.Value) (time.Time, bool) {
	if t, ok := v.Time(); ok {
		return t, !t.IsZero()
	}
	s, ok := v.Raw()
	if !ok {
		return time.Time{}, false
	}
	return ParseDateString(s)
}

func ParseDateString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || IsNumericString(s) {
		return time.Time{}, false
	}
	if t, ok := parseMonthYear(s); ok {
		return t, true
	}
	t, err := dateparse.ParseIn(s, time.Local)
	// Fragments like "1/2" parse without a year and land in year 0.
	if err != nil || t.Year() < 1 {
		return time.Time{}, false
	}
	return t, true
}

func parseMonthYear(s string) (time.Time, bool) {
	m := monthYearRegex.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	month, ok := monthAbbreviations[strings.ToLower(m[1])]
	if !ok {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(m[2])
	if err != nil {
		return time.Time{}, false
	}
	if len(m[2]) == 2 {
		if year <= 30 {
			year += 2000
		} else {
			year += 1900
		}
	}
	return time.Date(year, month, 1, 0, 0, 0, 0, time.Local), true
}

// CompareChronological orders two x-axis values: by timestamp when both parse
// as dates, otherwise by their string form.
func CompareChronological(a, b model.Value) int {
	ta, okA := ParseDate(a)
	tb, okB := ParseDate(b)
	if okA && okB {
		switch {
		case ta.Before(tb):
			return -1
		case ta.After(tb):
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a.String(), b.String())
}

// FormatDay renders t as a local calendar day.
func FormatDay(t time.Time) string {
	return t.In(time.Local).Format(DayLayout)
}

// StartOfDay is local midnight of the given day.
func StartOfDay(t time.Time) time.Time {
	t = t.In(time.Local)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}

// EndOfDay is 23:59:59.999 local time of the given day.
func EndOfDay(t time.Time) time.Time {
	t = t.In(time.Local)
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), time.Local)
}
