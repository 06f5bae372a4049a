// Package dataset infers column types and statistics for uploaded tables.
package dataset

import (
	"datatalk-backend/internal/model"
	"datatalk-backend/internal/util"
)

const (
	// TypeRatio is the share of non-empty cells that must coerce for a column
	// to be typed as number or date.
	TypeRatio   = 0.70
	sampleLimit = 5
)

// Summarize infers per-column types in one pass. Numeric wins over date when a
// column qualifies as both.
func Summarize(table model.Table) model.DataSummary {
	names := table.ColumnNames()

	type acc struct {
		nonEmpty int
		numeric  int
		dates    int
		distinct map[string]struct{}
		samples  []model.Value
	}
	accs := make([]*acc, len(names))
	for i := range names {
		accs[i] = &acc{distinct: make(map[string]struct{})}
	}

	for _, row := range table.Rows {
		for i, name := range names {
			v := row[name]
			if v.IsEmpty() {
				continue
			}
			a := accs[i]
			a.nonEmpty++
			if _, ok := util.ToNumber(v); ok {
				a.numeric++
			} else if _, ok := util.ParseDate(v); ok {
				a.dates++
			}
			key := v.String()
			if _, seen := a.distinct[key]; !seen {
				a.distinct[key] = struct{}{}
				if len(a.samples) < sampleLimit {
					a.samples = append(a.samples, v)
				}
			}
		}
	}

	summary := model.DataSummary{
		RowCount:       len(table.Rows),
		ColumnCount:    len(names),
		Columns:        make([]model.ColumnInfo, 0, len(names)),
		NumericColumns: make([]string, 0),
		DateColumns:    make([]string, 0),
	}
	for i, name := range names {
		a := accs[i]
		info := model.ColumnInfo{
			Name:         name,
			Type:         model.ColumnString,
			NonEmpty:     a.nonEmpty,
			Distinct:     len(a.distinct),
			SampleValues: a.samples,
		}
		if a.nonEmpty > 0 {
			switch {
			case ratio(a.numeric, a.nonEmpty) >= TypeRatio:
				info.Type = model.ColumnNumber
				summary.NumericColumns = append(summary.NumericColumns, name)
			case ratio(a.dates, a.nonEmpty) >= TypeRatio:
				info.Type = model.ColumnDate
				summary.DateColumns = append(summary.DateColumns, name)
			}
		}
		summary.Columns = append(summary.Columns, info)
	}
	return summary
}

func ratio(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

// Column returns the info for name, if present.
func Column(summary model.DataSummary, name string) (model.ColumnInfo, bool) {
	for _, c := range summary.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return model.ColumnInfo{}, false
}
