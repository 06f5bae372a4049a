package model

import "sort"

// Row maps column name to cell value.
type Row map[string]Value

// Table is an uploaded dataset. Columns keeps the original column order, which
// matters for column resolution where the first matching column wins.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// ColumnNames returns Columns, or the sorted union of row keys when no order was supplied.
func (t Table) ColumnNames() []string {
	if len(t.Columns) > 0 {
		return t.Columns
	}
	seen := make(map[string]bool)
	names := make([]string, 0)
	for _, row := range t.Rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}
	sort.Strings(names)
	return names
}

type ColumnType string

const (
	ColumnNumber ColumnType = "number"
	ColumnDate   ColumnType = "date"
	ColumnString ColumnType = "string"
)

type ColumnInfo struct {
	Name         string     `json:"name"`
	Type         ColumnType `json:"type"`
	NonEmpty     int        `json:"nonEmpty"`
	Distinct     int        `json:"distinct"`
	SampleValues []Value    `json:"sampleValues,omitempty"`
}

// DataSummary describes a dataset for classification, prompting and suggestions.
type DataSummary struct {
	RowCount       int          `json:"rowCount"`
	ColumnCount    int          `json:"columnCount"`
	Columns        []ColumnInfo `json:"columns"`
	NumericColumns []string     `json:"numericColumns"`
	DateColumns    []string     `json:"dateColumns"`
}

// CategoricalColumns lists string-typed columns in summary order.
func (s DataSummary) CategoricalColumns() []string {
	out := make([]string, 0)
	for _, c := range s.Columns {
		if c.Type == ColumnString {
			out = append(out, c.Name)
		}
	}
	return out
}
