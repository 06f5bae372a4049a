package handler

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"datatalk-backend/internal/column"
	"datatalk-backend/internal/model"
)

const topDistinctValues = 5

// dataOpsHandler answers structural questions straight from the table.
type dataOpsHandler struct{}

func NewDataOpsHandler() Handler {
	return &dataOpsHandler{}
}

func (h *dataOpsHandler) Name() string { return "data_ops" }

func (h *dataOpsHandler) CanHandle(intent model.AnalysisIntent) bool {
	return intent.Type == model.IntentDataOps
}

func (h *dataOpsHandler) Handle(ctx context.Context, hctx *Context) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := strings.ToLower(hctx.Question)
	counting := containsAny(q, "how many", "number of", "count")

	switch {
	case containsAny(q, "missing", "null", "empty", "blank"):
		return missingValues(hctx), nil
	case containsAny(q, "distinct", "unique"):
		return distinctValues(hctx), nil
	case counting && strings.Contains(q, "row"):
		return &Response{Answer: fmt.Sprintf("The dataset has %d rows.", len(hctx.Table.Rows))}, nil
	case counting && strings.Contains(q, "column"):
		return &Response{Answer: fmt.Sprintf("The dataset has %d columns.", len(hctx.Table.ColumnNames()))}, nil
	default:
		return overview(hctx), nil
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func overview(hctx *Context) *Response {
	var b strings.Builder
	fmt.Fprintf(&b, "The dataset has %d rows and %d columns:\n", hctx.Summary.RowCount, hctx.Summary.ColumnCount)
	for _, c := range hctx.Summary.Columns {
		fmt.Fprintf(&b, "- %s (%s)\n", c.Name, c.Type)
	}
	insights := make([]string, 0, 2)
	if n := len(hctx.Summary.NumericColumns); n > 0 {
		insights = append(insights, fmt.Sprintf("%d numeric columns can be aggregated: %s", n, strings.Join(hctx.Summary.NumericColumns, ", ")))
	}
	if n := len(hctx.Summary.DateColumns); n > 0 {
		insights = append(insights, fmt.Sprintf("%d date columns support trends: %s", n, strings.Join(hctx.Summary.DateColumns, ", ")))
	}
	return &Response{Answer: strings.TrimSpace(b.String()), Insights: toInsights(insights)}
}

func missingValues(hctx *Context) *Response {
	rows := len(hctx.Table.Rows)
	type missing struct {
		name  string
		count int
	}
	found := make([]missing, 0)
	for _, name := range hctx.Table.ColumnNames() {
		n := 0
		for _, row := range hctx.Table.Rows {
			if row[name].IsEmpty() {
				n++
			}
		}
		if n > 0 {
			found = append(found, missing{name, n})
		}
	}
	if len(found) == 0 {
		return &Response{Answer: fmt.Sprintf("No missing values: all %d rows are complete.", rows)}
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].count > found[j].count })

	var b strings.Builder
	b.WriteString("Missing values per column:\n")
	for _, m := range found {
		fmt.Fprintf(&b, "- %s: %d of %d rows (%.1f%%)\n", m.name, m.count, rows, 100*float64(m.count)/float64(rows))
	}
	return &Response{
		Answer:   strings.TrimSpace(b.String()),
		Insights: toInsights([]string{fmt.Sprintf("%s has the most gaps", found[0].name)}),
	}
}

func distinctValues(hctx *Context) *Response {
	columns := hctx.Retrieved.MentionedColumns
	if len(columns) == 0 {
		columns = column.Mentioned(hctx.Question, hctx.Table.ColumnNames())
	}
	if len(columns) == 0 {
		var b strings.Builder
		b.WriteString("Distinct values per column:\n")
		for _, c := range hctx.Summary.Columns {
			fmt.Fprintf(&b, "- %s: %d\n", c.Name, c.Distinct)
		}
		return &Response{Answer: strings.TrimSpace(b.String())}
	}

	var b strings.Builder
	for _, name := range columns {
		counts := make(map[string]int)
		order := make([]string, 0)
		for _, row := range hctx.Table.Rows {
			v := row[name]
			if v.IsEmpty() {
				continue
			}
			key := v.String()
			if counts[key] == 0 {
				order = append(order, key)
			}
			counts[key]++
		}
		sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })

		fmt.Fprintf(&b, "%s has %d distinct values", name, len(order))
		if len(order) > 0 {
			top := order
			if len(top) > topDistinctValues {
				top = top[:topDistinctValues]
			}
			parts := make([]string, 0, len(top))
			for _, v := range top {
				parts = append(parts, fmt.Sprintf("%s (%d)", v, counts[v]))
			}
			fmt.Fprintf(&b, "; most common: %s", strings.Join(parts, ", "))
		}
		b.WriteString(".\n")
	}
	return &Response{Answer: strings.TrimSpace(b.String())}
}
