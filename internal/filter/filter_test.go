package filter

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datatalk-backend/internal/model"
)

func find(defs []model.FilterDefinition, key string, kind model.FilterKind) *model.FilterDefinition {
	for i := range defs {
		if defs[i].Key == key && defs[i].Type == kind {
			return &defs[i]
		}
	}
	return nil
}

func dateColumn(values ...string) model.Table {
	rows := make([]model.Row, 0, len(values))
	for _, v := range values {
		rows = append(rows, model.Row{"order_date": model.String(v)})
	}
	return model.Table{Columns: []string{"order_date"}, Rows: rows}
}

func TestDerive_DateVarietyBoundary(t *testing.T) {
	three := Derive(dateColumn("2024-01-01", "2024-01-02", "2024-01-03", "2024-01-01"), Options{})
	def := find(three, "order_date", model.FilterDate)
	require.NotNil(t, def)
	assert.Equal(t, "Order Date", def.Label)
	assert.Equal(t, &model.DateRange{Min: "2024-01-01", Max: "2024-01-03"}, def.DateRange)

	two := Derive(dateColumn("2024-01-01", "2024-01-02", "2024-01-02", "2024-01-01"), Options{})
	assert.Nil(t, find(two, "order_date", model.FilterDate))
}

func TestDerive_DateRatioThreshold(t *testing.T) {
	// 7 of 10 parse as dates: exactly at the threshold.
	table := dateColumn("2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05",
		"2024-01-06", "2024-01-07", "pending", "pending", "unknown")
	assert.NotNil(t, find(Derive(table, Options{}), "order_date", model.FilterDate))

	// 5 of 10: in the ambiguous band, so neither date nor categorical.
	table = dateColumn("2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05",
		"a", "b", "c", "d", "e")
	defs := Derive(table, Options{})
	assert.Empty(t, defs)
}

func TestDerive_CategoricalSuppression(t *testing.T) {
	mixed := func(dates ...string) model.Table {
		rows := make([]model.Row, 0, 12+len(dates))
		for i := 0; i < 12; i++ {
			rows = append(rows, model.Row{"order_date": model.Number(float64(100 + i))})
		}
		for _, d := range dates {
			rows = append(rows, model.Row{"order_date": model.String(d)})
		}
		return model.Table{Columns: []string{"order_date"}, Rows: rows}
	}
	ambiguous := dateColumn("2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05",
		"a", "b", "c", "d", "e")

	tests := []struct {
		name            string
		table           model.Table
		opts            Options
		wantCategorical bool
		wantOptions     int
	}{
		{
			name:            "six date-like options are suppressed",
			table:           mixed("2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05", "2024-01-06"),
			wantCategorical: false,
		},
		{
			name:            "five date-like options are kept",
			table:           mixed("2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"),
			wantCategorical: true,
			wantOptions:     5,
		},
		{
			name:            "forced categorical ignores the ambiguous band",
			table:           ambiguous,
			opts:            Options{Categorical: []string{"order_date"}},
			wantCategorical: true,
			wantOptions:     10,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defs := Derive(tt.table, tt.opts)
			cat := find(defs, "order_date", model.FilterCategorical)
			if !tt.wantCategorical {
				assert.Nil(t, cat)
				return
			}
			require.NotNil(t, cat)
			assert.Len(t, cat.Options, tt.wantOptions)
		})
	}
}

func TestDerive_ForcedDateUsesObservedRange(t *testing.T) {
	table := dateColumn("2024-03-01", "2024-03-01", "n/a")
	defs := Derive(table, Options{Date: []string{"Order Date"}})
	require.Len(t, defs, 1)
	assert.Equal(t, model.FilterDate, defs[0].Type)
	assert.Equal(t, "2024-03-01", defs[0].DateRange.Min)
	assert.Equal(t, "2024-03-01", defs[0].DateRange.Max)
}

func TestDerive_NumericAndCategoricalFromSameColumn(t *testing.T) {
	table := model.Table{
		Columns: []string{"rating"},
		Rows: []model.Row{
			{"rating": model.String("1")},
			{"rating": model.String("3")},
			{"rating": model.String("3")},
			{"rating": model.String("5")},
		},
	}
	defs := Derive(table, Options{})
	require.Len(t, defs, 2)

	num := find(defs, "rating", model.FilterNumeric)
	require.NotNil(t, num)
	assert.Equal(t, &model.NumericRange{Min: 1, Max: 5}, num.NumericRange)

	cat := find(defs, "rating", model.FilterCategorical)
	require.NotNil(t, cat)
	assert.Equal(t, []model.FilterOption{{"3", 2}, {"1", 1}, {"5", 1}}, cat.Options)
}

func TestDerive_NumericNeedsSpreadUnlessForced(t *testing.T) {
	table := model.Table{
		Columns: []string{"qty"},
		Rows:    []model.Row{{"qty": model.Number(4)}, {"qty": model.Number(4)}},
	}
	assert.Empty(t, Derive(table, Options{}))

	defs := Derive(table, Options{Numeric: []string{"qty"}})
	require.Len(t, defs, 1)
	assert.Equal(t, model.FilterNumeric, defs[0].Type)
}

func TestDerive_CategoricalLimits(t *testing.T) {
	rows := make([]model.Row, 0, 201)
	for i := 0; i < 201; i++ {
		rows = append(rows, model.Row{"sku": model.String(fmt.Sprintf("SKU-%03d", i))})
	}
	assert.Empty(t, Derive(model.Table{Columns: []string{"sku"}, Rows: rows}, Options{}))

	assert.NotEmpty(t, Derive(model.Table{Columns: []string{"sku"}, Rows: rows[:200]}, Options{}))
}

func TestDerive_ExcludeAndOrdering(t *testing.T) {
	table := model.Table{
		Columns: []string{"zone", "amount", "Area", "region"},
		Rows: []model.Row{
			{"zone": model.String("z1"), "amount": model.Number(1), "Area": model.String("x"), "region": model.String("north")},
			{"zone": model.String("z2"), "amount": model.Number(2), "Area": model.String("y"), "region": model.String("south")},
		},
	}
	defs := Derive(table, Options{Exclude: []string{"Region"}})

	var got []string
	for _, d := range defs {
		got = append(got, d.Label)
	}
	assert.Equal(t, []string{"Amount", "Area", "Zone"}, got)
}

func TestHumanize(t *testing.T) {
	tests := map[string]string{
		"order_date":    "Order Date",
		"unitPrice":     "Unit Price",
		"customer-name": "Customer Name",
		"Region":        "Region",
		"GDP":           "GDP",
	}
	for in, want := range tests {
		assert.Equal(t, want, Humanize(in), in)
	}
}

func TestApply_DateSelectionIsInclusive(t *testing.T) {
	rows := []model.Row{
		{"day": model.String("2024-01-04")},
		{"day": model.String("2024-01-05")},
		{"day": model.String("2024-01-05T23:30:00")},
		{"day": model.String("2024-01-06")},
	}
	got := Apply(rows, model.ActiveFilterSelection{
		"day": {Type: model.FilterDate, Start: "2024-01-05", End: "2024-01-05"},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "2024-01-05", got[0]["day"].String())
}

func TestApply_EmptyCategoricalIsNoConstraint(t *testing.T) {
	rows := []model.Row{{"region": model.String("North")}, {"region": model.String("South")}}

	got := Apply(rows, model.ActiveFilterSelection{"region": {Type: model.FilterCategorical}})
	assert.Len(t, got, 2)

	got = Apply(rows, model.ActiveFilterSelection{"region": {Type: model.FilterCategorical, Values: []string{"South"}}})
	require.Len(t, got, 1)
	assert.Equal(t, "South", got[0]["region"].String())
}

func TestApply_AllSelectionsMustMatch(t *testing.T) {
	lo, hi := 10.0, 20.0
	rows := []model.Row{
		{"region": model.String("North"), "sales": model.Number(15)},
		{"region": model.String("North"), "sales": model.String("25")},
		{"region": model.String("South"), "sales": model.Number(12)},
		{"region": model.String("North"), "sales": model.String("n/a")},
	}
	got := Apply(rows, model.ActiveFilterSelection{
		"region": {Type: model.FilterCategorical, Values: []string{"North"}},
		"sales":  {Type: model.FilterNumeric, Min: &lo, Max: &hi},
	})
	require.Len(t, got, 1)
	assert.Equal(t, model.Number(15), got[0]["sales"])
}
