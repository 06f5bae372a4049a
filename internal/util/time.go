package util

import (
	"fmt"
	"strconv"
	"time"
)

// ParseTimeFlexible accepts RFC 3339 timestamps, plain dates (YYYY-MM-DD) and
// epoch milliseconds. Results are in UTC.
func ParseTimeFlexible(timeStr string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, timeStr); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(DayLayout, timeStr); err == nil {
		return t.UTC(), nil
	}
	if ms, err := strconv.ParseInt(timeStr, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid time format: %s", timeStr)
}
