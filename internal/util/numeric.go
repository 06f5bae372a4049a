package util

import (
	"math"
	"strconv"
	"strings"

	"datatalk-backend/internal/model"
)

var numericStripper = strings.NewReplacer("%", "", ",", "")

// ToNumber coerces a cell to a float. Percent signs and thousands separators are
// stripped first. Blank or non-numeric cells report false; callers must drop
// them rather than treat them as zero.
func ToNumber(v model.Value) (float64, bool) {
	if f, ok := v.Float(); ok {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	s, ok := v.Raw()
	if !ok {
		return 0, false
	}
	s = strings.TrimSpace(numericStripper.Replace(s))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// IsNumericString reports strings that ToNumber would accept.
func IsNumericString(s string) bool {
	_, ok := ToNumber(model.String(s))
	return ok
}
