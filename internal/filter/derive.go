// Package filter derives per-column filter definitions from a dataset and
// applies the client's active selections back to the rows.
package filter

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"datatalk-backend/internal/column"
	"datatalk-backend/internal/model"
	"datatalk-backend/internal/util"
)

const (
	MaxCategoricalOptions = 200
	MinDateVariety        = 3
	DateRatioThreshold    = 0.70
	AmbiguousDateRatio    = 0.35
	// Above this many options, a categorical column whose every option parses
	// as a date is treated as a failed date column.
	MaxDateLikeOptions = 5

	// Reserved for outlier trimming of numeric and date ranges. Derive does not
	// trim.
	OutlierTrimFraction = 0.01
	MinSamplesForTrim   = 50
	OutlierGapMs        = int64(365 * 24 * time.Hour / time.Millisecond)
)

// Options force columns to a filter kind or exclude them. Names are matched
// after normalization, so "Order Date" and "order_date" are the same column.
type Options struct {
	Categorical []string `json:"categorical,omitempty" yaml:"categorical,omitempty"`
	Numeric     []string `json:"numeric,omitempty" yaml:"numeric,omitempty"`
	Date        []string `json:"date,omitempty" yaml:"date,omitempty"`
	Exclude     []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
}

type nameSet map[string]bool

func newNameSet(names []string) nameSet {
	s := make(nameSet, len(names))
	for _, n := range names {
		if k := column.Normalize(n); k != "" {
			s[k] = true
		}
	}
	return s
}

func (s nameSet) has(name string) bool { return s[column.Normalize(name)] }

// columnStats is accumulated in a single pass over the rows.
type columnStats struct {
	nonEmpty    int
	stringCount int
	dateCount   int

	stringFreq  map[string]int
	stringOrder []string
	overflow    bool

	dateFreq map[int64]int
	dateMin  time.Time
	dateMax  time.Time

	numericCount int
	numMin       float64
	numMax       float64
}

func newColumnStats() *columnStats {
	return &columnStats{
		stringFreq: make(map[string]int),
		dateFreq:   make(map[int64]int),
		numMin:     math.Inf(1),
		numMax:     math.Inf(-1),
	}
}

func (s *columnStats) observe(v model.Value) {
	if v.IsEmpty() {
		return
	}
	s.nonEmpty++

	if raw, ok := v.Raw(); ok {
		s.stringCount++
		raw = strings.TrimSpace(raw)
		if _, seen := s.stringFreq[raw]; seen {
			s.stringFreq[raw]++
		} else if len(s.stringFreq) < MaxCategoricalOptions {
			s.stringFreq[raw] = 1
			s.stringOrder = append(s.stringOrder, raw)
		} else {
			s.overflow = true
		}
	}

	if t, ok := util.ParseDate(v); ok {
		s.dateCount++
		s.dateFreq[t.UnixMilli()]++
		if s.dateMin.IsZero() || t.Before(s.dateMin) {
			s.dateMin = t
		}
		if s.dateMax.IsZero() || t.After(s.dateMax) {
			s.dateMax = t
		}
	}

	if f, ok := util.ToNumber(v); ok {
		s.numericCount++
		s.numMin = math.Min(s.numMin, f)
		s.numMax = math.Max(s.numMax, f)
	}
}

func (s *columnStats) dateRatio() float64 {
	if s.nonEmpty == 0 {
		return 0
	}
	return float64(s.dateCount) / float64(s.nonEmpty)
}

// Derive scans the table once and returns filter definitions ordered by label.
// A column can yield both a numeric and a categorical definition.
func Derive(table model.Table, opts Options) []model.FilterDefinition {
	forcedCategorical := newNameSet(opts.Categorical)
	forcedNumeric := newNameSet(opts.Numeric)
	forcedDate := newNameSet(opts.Date)
	excluded := newNameSet(opts.Exclude)

	columns := make([]string, 0)
	stats := make(map[string]*columnStats)
	for _, name := range table.ColumnNames() {
		if excluded.has(name) {
			continue
		}
		columns = append(columns, name)
		stats[name] = newColumnStats()
	}

	for _, row := range table.Rows {
		for _, name := range columns {
			stats[name].observe(row[name])
		}
	}

	defs := make([]model.FilterDefinition, 0)
	for _, name := range columns {
		defs = append(defs, classify(name, stats[name], forcedCategorical.has(name), forcedNumeric.has(name), forcedDate.has(name))...)
	}
	sortByLabel(defs)
	return defs
}

func classify(name string, s *columnStats, forceCategorical, forceNumeric, forceDate bool) []model.FilterDefinition {
	label := Humanize(name)

	if forceDate {
		if s.dateCount == 0 {
			return nil
		}
		return []model.FilterDefinition{dateDefinition(name, label, s)}
	}

	if !forceCategorical && !forceNumeric {
		if s.dateRatio() >= DateRatioThreshold && len(s.dateFreq) >= MinDateVariety && !s.dateMin.Equal(s.dateMax) {
			return []model.FilterDefinition{dateDefinition(name, label, s)}
		}
	}

	var defs []model.FilterDefinition
	if !forceCategorical && s.numericCount >= 2 && (forceNumeric || s.numMin != s.numMax) {
		defs = append(defs, model.FilterDefinition{
			Key:          name,
			Label:        label,
			Type:         model.FilterNumeric,
			NumericRange: &model.NumericRange{Min: s.numMin, Max: s.numMax},
		})
	}

	if !forceNumeric && categoricalAllowed(s, forceCategorical) {
		defs = append(defs, model.FilterDefinition{
			Key:     name,
			Label:   label,
			Type:    model.FilterCategorical,
			Options: options(s),
		})
	}
	return defs
}

func categoricalAllowed(s *columnStats, forced bool) bool {
	if s.stringCount == 0 || s.overflow || len(s.stringFreq) == 0 {
		return false
	}
	if forced {
		return true
	}
	if r := s.dateRatio(); r > AmbiguousDateRatio && r < DateRatioThreshold {
		return false
	}
	if len(s.stringFreq) > MaxDateLikeOptions {
		for _, v := range s.stringOrder {
			if _, ok := util.ParseDateString(v); !ok {
				return true
			}
		}
		return false
	}
	return true
}

func dateDefinition(name, label string, s *columnStats) model.FilterDefinition {
	return model.FilterDefinition{
		Key:   name,
		Label: label,
		Type:  model.FilterDate,
		DateRange: &model.DateRange{
			Min: util.FormatDay(s.dateMin),
			Max: util.FormatDay(s.dateMax),
		},
	}
}

// options orders by frequency, then value, so the output is stable.
func options(s *columnStats) []model.FilterOption {
	out := make([]model.FilterOption, 0, len(s.stringOrder))
	for _, v := range s.stringOrder {
		out = append(out, model.FilterOption{Value: v, Count: s.stringFreq[v]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}

func sortByLabel(defs []model.FilterDefinition) {
	c := collate.New(language.English, collate.IgnoreCase)
	sort.SliceStable(defs, func(i, j int) bool {
		return c.CompareString(defs[i].Label, defs[j].Label) < 0
	})
}

// Humanize turns a column key such as "order_date" or "unitPrice" into a
// display label ("Order Date", "Unit Price").
func Humanize(key string) string {
	var words []string
	var current []rune
	flush := func() {
		if len(current) > 0 {
			words = append(words, string(current))
			current = current[:0]
		}
	}
	runes := []rune(strings.TrimSpace(key))
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || unicode.IsSpace(r):
			flush()
		case unicode.IsUpper(r) && i > 0 && unicode.IsLower(runes[i-1]):
			flush()
			current = append(current, r)
		default:
			current = append(current, r)
		}
	}
	flush()

	for i, w := range words {
		rs := []rune(w)
		rs[0] = unicode.ToUpper(rs[0])
		words[i] = string(rs)
	}
	if len(words) == 0 {
		return key
	}
	return strings.Join(words, " ")
}
