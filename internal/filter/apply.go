package filter

import (
	"strings"
	"time"

	"datatalk-backend/internal/model"
	"datatalk-backend/internal/util"
)

// Apply returns the rows that satisfy every active selection. Rows are not
// copied.
func Apply(rows []model.Row, active model.ActiveFilterSelection) []model.Row {
	if len(active) == 0 {
		return rows
	}
	matchers := make([]func(model.Row) bool, 0, len(active))
	for key, sel := range active {
		if m := compile(key, sel); m != nil {
			matchers = append(matchers, m)
		}
	}

	out := make([]model.Row, 0, len(rows))
rowLoop:
	for _, row := range rows {
		for _, match := range matchers {
			if !match(row) {
				continue rowLoop
			}
		}
		out = append(out, row)
	}
	return out
}

// compile returns nil for selections that constrain nothing.
func compile(key string, sel model.FilterSelection) func(model.Row) bool {
	switch sel.Type {
	case model.FilterCategorical:
		if len(sel.Values) == 0 {
			return nil
		}
		allowed := make(map[string]bool, len(sel.Values))
		for _, v := range sel.Values {
			allowed[strings.TrimSpace(v)] = true
		}
		return func(row model.Row) bool {
			return allowed[strings.TrimSpace(row[key].String())]
		}

	case model.FilterDate:
		var from, to time.Time
		if t, ok := util.ParseDateString(sel.Start); ok {
			from = util.StartOfDay(t)
		}
		if t, ok := util.ParseDateString(sel.End); ok {
			to = util.EndOfDay(t)
		}
		if from.IsZero() && to.IsZero() {
			return nil
		}
		return func(row model.Row) bool {
			t, ok := util.ParseDate(row[key])
			if !ok {
				return false
			}
			if !from.IsZero() && t.Before(from) {
				return false
			}
			if !to.IsZero() && t.After(to) {
				return false
			}
			return true
		}

	case model.FilterNumeric:
		if sel.Min == nil && sel.Max == nil {
			return nil
		}
		return func(row model.Row) bool {
			f, ok := util.ToNumber(row[key])
			if !ok {
				return false
			}
			if sel.Min != nil && f < *sel.Min {
				return false
			}
			if sel.Max != nil && f > *sel.Max {
				return false
			}
			return true
		}
	}
	return nil
}
