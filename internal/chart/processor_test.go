package chart

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datatalk-backend/internal/model"
)

func tableOf(columns []string, rows ...model.Row) model.Table {
	return model.Table{Columns: columns, Rows: rows}
}

func numbers(t *testing.T, rows []model.Row, col string) []float64 {
	t.Helper()
	out := make([]float64, 0, len(rows))
	for _, row := range rows {
		f, ok := row[col].Float()
		require.True(t, ok, "column %s is not numeric in %v", col, row)
		out = append(out, f)
	}
	return out
}

func labels(rows []model.Row, col string) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row[col].String())
	}
	return out
}

func TestProcess_Preconditions(t *testing.T) {
	table := tableOf([]string{"region", "sales", "notes"},
		model.Row{"region": model.String("North"), "sales": model.Number(10), "notes": model.Null()},
		model.Row{"region": model.String("South"), "sales": model.Number(5), "notes": model.String(" ")},
	)

	tests := []struct {
		name  string
		table model.Table
		spec  model.ChartSpec
	}{
		{"empty rows", model.Table{Columns: []string{"region", "sales"}}, model.ChartSpec{Type: model.ChartBar, X: "region", Y: "sales"}},
		{"unknown x", table, model.ChartSpec{Type: model.ChartBar, X: "country", Y: "sales"}},
		{"unknown y", table, model.ChartSpec{Type: model.ChartBar, X: "region", Y: "profit"}},
		{"no valid y values", table, model.ChartSpec{Type: model.ChartBar, X: "region", Y: "notes"}},
		{"unsupported type", table, model.ChartSpec{Type: "radar", X: "region", Y: "sales"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := tt.spec
			got := Process(tt.table, &spec)
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestProcess_RewritesResolvedColumnNames(t *testing.T) {
	table := tableOf([]string{"Order Date", "total_revenue_usd", "Units Sold"},
		model.Row{"Order Date": model.String("2024-01-02"), "total_revenue_usd": model.Number(3), "Units Sold": model.Number(1)},
	)
	spec := &model.ChartSpec{Type: model.ChartLine, X: "order_date", Y: "Revenue", Y2: "units sold"}

	data := Process(table, spec)
	require.Len(t, data, 1)
	assert.Equal(t, "Order Date", spec.X)
	assert.Equal(t, "total_revenue_usd", spec.Y)
	assert.Equal(t, "Units Sold", spec.Y2)

	// Processing again with canonical names gives the same series.
	again := Process(table, spec)
	assert.Equal(t, data, again)
}

func TestProcess_UnresolvedY2IsDropped(t *testing.T) {
	table := tableOf([]string{"month", "sales"},
		model.Row{"month": model.String("Jan-24"), "sales": model.Number(1)},
	)
	spec := &model.ChartSpec{Type: model.ChartLine, X: "month", Y: "sales", Y2: "margin"}

	data := Process(table, spec)
	require.Len(t, data, 1)
	assert.Empty(t, spec.Y2)
}

func TestProcess_PieKeepsTotal(t *testing.T) {
	var rows []model.Row
	var total float64
	for i := 0; i < 40; i++ {
		v := float64(i%9) * 1.37
		total += v
		rows = append(rows, model.Row{
			"category": model.String(fmt.Sprintf("cat-%d", i%12)),
			"amount":   model.String(fmt.Sprintf("%.2f", v)),
		})
	}
	spec := &model.ChartSpec{Type: model.ChartPie, X: "category", Y: "amount"}

	data := Process(tableOf([]string{"category", "amount"}, rows...), spec)
	require.Len(t, data, PieTopSegments+1)

	var got float64
	for _, v := range numbers(t, data, "amount") {
		got += v
	}
	assert.InDelta(t, 0, (got-total)/total, 1e-9)
	assert.Equal(t, "Other 7 items", data[PieTopSegments]["category"].String())

	values := numbers(t, data[:PieTopSegments], "amount")
	for i := 1; i < len(values); i++ {
		assert.GreaterOrEqual(t, values[i-1], values[i])
	}
}

func TestProcess_PiePreAggregated(t *testing.T) {
	table := tableOf([]string{"segment", "share"},
		model.Row{"segment": model.String("A"), "share": model.String("20%")},
		model.Row{"segment": model.String("B"), "share": model.String("50%")},
		model.Row{"segment": model.String("C"), "share": model.String("n/a")},
		model.Row{"segment": model.String("D"), "share": model.String("30%")},
	)
	data := Process(table, &model.ChartSpec{Type: model.ChartPie, X: "segment", Y: "share"})

	assert.Equal(t, []string{"B", "D", "A"}, labels(data, "segment"))
	assert.Equal(t, []float64{50, 30, 20}, numbers(t, data, "share"))
}

func TestProcess_BarCorrelationOrder(t *testing.T) {
	table := model.Table{Rows: []model.Row{
		{"variable": model.String("B"), "correlation": model.Number(0.5)},
		{"variable": model.String("A"), "correlation": model.Number(-0.9)},
		{"variable": model.String("C"), "correlation": model.Number(0.1)},
	}}
	spec := &model.ChartSpec{Type: model.ChartBar, X: "feature", Y: "r"}

	data := Process(table, spec)
	assert.Equal(t, []string{"A", "B", "C"}, labels(data, "variable"))
	assert.Equal(t, []float64{-0.9, 0.5, 0.1}, numbers(t, data, "correlation"))
	assert.Equal(t, "variable", spec.X)
	assert.Equal(t, "correlation", spec.Y)
}

func TestProcess_BarTopTen(t *testing.T) {
	var rows []model.Row
	for i := 0; i < 15; i++ {
		rows = append(rows,
			model.Row{"store": model.String(fmt.Sprintf("s%02d", i)), "sales": model.Number(float64(i))},
			model.Row{"store": model.String(fmt.Sprintf("s%02d", i)), "sales": model.String("1,000")},
			model.Row{"store": model.String(fmt.Sprintf("s%02d", i)), "sales": model.String("missing")},
		)
	}
	data := Process(tableOf([]string{"store", "sales"}, rows...), &model.ChartSpec{Type: model.ChartBar, X: "store", Y: "sales"})

	require.Len(t, data, BarTopCategories)
	assert.Equal(t, "s14", data[0]["store"].String())
	assert.Equal(t, 1014.0, numbers(t, data, "sales")[0])
	assert.Equal(t, "s05", data[9]["store"].String())
}

func TestProcess_BarMeanAndCount(t *testing.T) {
	table := tableOf([]string{"team", "score"},
		model.Row{"team": model.String("red"), "score": model.Number(2)},
		model.Row{"team": model.String("red"), "score": model.Number(4)},
		model.Row{"team": model.String("red"), "score": model.String("dnf")},
		model.Row{"team": model.String("blue"), "score": model.Number(5)},
	)

	mean := Process(table, &model.ChartSpec{Type: model.ChartBar, X: "team", Y: "score", Aggregate: model.AggregateMean})
	assert.Equal(t, []string{"blue", "red"}, labels(mean, "team"))
	assert.Equal(t, []float64{5, 3}, numbers(t, mean, "score"))

	count := Process(table, &model.ChartSpec{Type: model.ChartBar, X: "team", Y: "score", Aggregate: model.AggregateCount})
	assert.Equal(t, []string{"red", "blue"}, labels(count, "team"))
	assert.Equal(t, []float64{3, 1}, numbers(t, count, "score"))
}

func TestProcess_ScatterSampling(t *testing.T) {
	rows := make([]model.Row, 0, 5000)
	for i := 0; i < 5000; i++ {
		rows = append(rows, model.Row{"x": model.Number(float64(i)), "y": model.Number(math.Sin(float64(i)))})
	}
	table := tableOf([]string{"x", "y"}, rows...)

	first := Process(table, &model.ChartSpec{Type: model.ChartScatter, X: "x", Y: "y"})
	second := Process(table, &model.ChartSpec{Type: model.ChartScatter, X: "x", Y: "y"})

	assert.LessOrEqual(t, len(first), MaxScatterPoints)
	assert.Len(t, first, MaxScatterPoints)
	assert.Empty(t, cmp.Diff(numbers(t, first, "x"), numbers(t, second, "x")))
	assert.Equal(t, 5.0, numbers(t, first, "x")[1])
}

func TestProcess_ScatterSamplingCoversWholeRange(t *testing.T) {
	for _, n := range []int{1001, 1500, 1999} {
		t.Run(fmt.Sprintf("%d points", n), func(t *testing.T) {
			rows := make([]model.Row, 0, n)
			for i := 0; i < n; i++ {
				rows = append(rows, model.Row{"x": model.Number(float64(i)), "y": model.Number(1)})
			}
			data := Process(tableOf([]string{"x", "y"}, rows...), &model.ChartSpec{Type: model.ChartScatter, X: "x", Y: "y"})

			require.Len(t, data, MaxScatterPoints)
			xs := numbers(t, data, "x")
			assert.Equal(t, 0.0, xs[0])
			assert.GreaterOrEqual(t, xs[len(xs)-1], float64(n-3))
			for i := 1; i < len(xs); i++ {
				assert.Greater(t, xs[i], xs[i-1])
			}
		})
	}
}

func TestProcess_ScatterDropsNonNumeric(t *testing.T) {
	table := tableOf([]string{"height", "weight"},
		model.Row{"height": model.String("180"), "weight": model.String("80")},
		model.Row{"height": model.String("tall"), "weight": model.String("70")},
		model.Row{"height": model.Number(170), "weight": model.Null()},
	)
	data := Process(table, &model.ChartSpec{Type: model.ChartScatter, X: "height", Y: "weight"})
	require.Len(t, data, 1)
	assert.Equal(t, []float64{180}, numbers(t, data, "height"))
}

func TestProcess_LineChronologicalWithY2(t *testing.T) {
	table := tableOf([]string{"month", "revenue", "cost"},
		model.Row{"month": model.String("Mar-24"), "revenue": model.Number(30), "cost": model.Number(3)},
		model.Row{"month": model.String("Jan-24"), "revenue": model.Number(10), "cost": model.Number(1)},
		model.Row{"month": model.String("Dec-23"), "revenue": model.Number(5), "cost": model.String("?")},
		model.Row{"month": model.String("Feb-24"), "revenue": model.String("20"), "cost": model.Number(2)},
	)
	spec := &model.ChartSpec{Type: model.ChartArea, X: "month", Y: "revenue", Y2: "cost"}

	data := Process(table, spec)
	assert.Equal(t, []string{"Jan-24", "Feb-24", "Mar-24"}, labels(data, "month"))
	assert.Equal(t, []float64{10, 20, 30}, numbers(t, data, "revenue"))
	assert.Equal(t, []float64{1, 2, 3}, numbers(t, data, "cost"))
}

func TestProcess_LineAggregated(t *testing.T) {
	table := tableOf([]string{"day", "orders"},
		model.Row{"day": model.String("2024-01-03"), "orders": model.Number(1)},
		model.Row{"day": model.String("2024-01-01"), "orders": model.Number(2)},
		model.Row{"day": model.String("2024-01-03"), "orders": model.Number(4)},
	)
	data := Process(table, &model.ChartSpec{Type: model.ChartLine, X: "day", Y: "orders", Aggregate: model.AggregateSum})

	want := []model.Row{
		{"day": model.String("2024-01-01"), "orders": model.Number(2)},
		{"day": model.String("2024-01-03"), "orders": model.Number(5)},
	}
	assert.Empty(t, cmp.Diff(want, data, cmp.AllowUnexported(model.Value{})))
}

func TestReduce_UnknownAggregateKeepsFirstValue(t *testing.T) {
	g := &group{values: []float64{7, 1}, size: 2}
	v, ok := reduce(g, "median")
	require.True(t, ok)
	assert.Equal(t, 7.0, v)

	_, ok = reduce(&group{size: 3, skipped: 3}, model.AggregateSum)
	assert.False(t, ok)
}

func TestProcessAll(t *testing.T) {
	table := tableOf([]string{"region", "sales"},
		model.Row{"region": model.String("North"), "sales": model.Number(10)},
		model.Row{"region": model.String("South"), "sales": model.Number(5)},
	)
	prefilled := &model.ChartSpec{Type: model.ChartBar, X: "a", Y: "b", Data: []model.Row{{"a": model.String("x"), "b": model.Number(1)}}}
	fresh := &model.ChartSpec{Type: model.ChartBar, X: "Region", Y: "SALES"}
	broken := &model.ChartSpec{Type: model.ChartBar, X: "country", Y: "sales"}

	out, err := ProcessAll(context.Background(), table, []*model.ChartSpec{prefilled, fresh, broken, nil})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Same(t, prefilled, out[0])
	assert.Same(t, fresh, out[1])
	assert.Equal(t, "region", fresh.X)
	assert.Len(t, fresh.Data, 2)
}

func TestProcessAll_Cancelled(t *testing.T) {
	table := tableOf([]string{"region", "sales"},
		model.Row{"region": model.String("North"), "sales": model.Number(10)},
	)
	spec := &model.ChartSpec{Type: model.ChartBar, X: "Region", Y: "sales"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := ProcessAll(ctx, table, []*model.ChartSpec{spec})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, out)
	assert.Equal(t, "Region", spec.X)
	assert.Nil(t, spec.Data)
}
