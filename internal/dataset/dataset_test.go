package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datatalk-backend/internal/model"
)

const salesCSV = `region,order_date,sales,notes
North,2024-01-01,"1,200",
South,2024-01-02,800,late
North,2024-01-03,950%,
East,Feb-24,n/a,
`

func TestReadCSV(t *testing.T) {
	table, err := ReadCSV(strings.NewReader(salesCSV))
	require.NoError(t, err)

	assert.Equal(t, []string{"region", "order_date", "sales", "notes"}, table.Columns)
	require.Len(t, table.Rows, 4)
	assert.Equal(t, model.String("1,200"), table.Rows[0]["sales"])
	assert.True(t, table.Rows[0]["notes"].IsNull())
}

func TestReadCSV_Empty(t *testing.T) {
	table, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, table.Rows)
}

func TestSummarize(t *testing.T) {
	table, err := ReadCSV(strings.NewReader(salesCSV))
	require.NoError(t, err)

	summary := Summarize(table)
	assert.Equal(t, 4, summary.RowCount)
	assert.Equal(t, 4, summary.ColumnCount)
	assert.Equal(t, []string{"sales"}, summary.NumericColumns)
	assert.Equal(t, []string{"order_date"}, summary.DateColumns)
	assert.Equal(t, []string{"region", "notes"}, summary.CategoricalColumns())

	region, ok := Column(summary, "region")
	require.True(t, ok)
	assert.Equal(t, 3, region.Distinct)
	assert.Equal(t, 4, region.NonEmpty)

	notes, ok := Column(summary, "notes")
	require.True(t, ok)
	assert.Equal(t, 1, notes.NonEmpty)
}

func TestCorrelations(t *testing.T) {
	table := model.Table{
		Columns: []string{"price", "units", "returns", "constant"},
		Rows: []model.Row{
			{"price": model.Number(1), "units": model.Number(10), "returns": model.Number(1), "constant": model.Number(5)},
			{"price": model.Number(2), "units": model.Number(8), "returns": model.Number(3), "constant": model.Number(5)},
			{"price": model.Number(3), "units": model.Number(6), "returns": model.Number(2), "constant": model.Number(5)},
			{"price": model.Number(4), "units": model.Number(4), "returns": model.Number(4), "constant": model.Number(5)},
		},
	}
	got := Correlations(table, "price", table.Columns)
	require.Len(t, got, 2)
	assert.Equal(t, "units", got[0].Variable)
	assert.InDelta(t, -1, got[0].R, 1e-9)
	assert.Equal(t, "returns", got[1].Variable)
	assert.InDelta(t, 0.8, got[1].R, 1e-9)
}
