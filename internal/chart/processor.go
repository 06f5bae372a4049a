// Package chart turns chart specifications plus loosely typed rows into
// render-ready series.
package chart

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"datatalk-backend/internal/column"
	"datatalk-backend/internal/model"
	"datatalk-backend/internal/util"
)

const (
	MaxScatterPoints = 1000
	PieTopSegments   = 5
	BarTopCategories = 10

	validationSampleSize = 100

	correlationVariableKey = "variable"
	correlationValueKey    = "correlation"
)

// Process computes the series for spec from table. It rewrites spec.X, spec.Y
// and spec.Y2 to the resolved column names. Any precondition failure yields an
// empty series and a logged reason; chart failures never abort a conversation.
func Process(table model.Table, spec *model.ChartSpec) []model.Row {
	empty := []model.Row{}
	if spec == nil {
		return empty
	}
	logger := log.With().Str("chart_type", string(spec.Type)).Str("x", spec.X).Str("y", spec.Y).Logger()

	rows := table.Rows
	if len(rows) == 0 {
		logger.Warn().Msg("Chart skipped: dataset has no rows")
		return empty
	}
	columns := table.ColumnNames()

	if spec.Type == model.ChartBar {
		if hasColumn(columns, correlationVariableKey) && hasColumn(columns, correlationValueKey) {
			spec.X, spec.Y = correlationVariableKey, correlationValueKey
			return correlationBars(rows, spec.X, spec.Y)
		}
	}

	x, ok := column.Resolve(spec.X, columns)
	if !ok {
		logger.Warn().Strs("columns", columns).Msg("Chart skipped: x column not found")
		return empty
	}
	y, ok := column.Resolve(spec.Y, columns)
	if !ok {
		logger.Warn().Strs("columns", columns).Msg("Chart skipped: y column not found")
		return empty
	}
	if spec.Y2 != "" {
		y2, ok := column.Resolve(spec.Y2, columns)
		if ok {
			spec.Y2 = y2
		} else {
			logger.Warn().Str("y2", spec.Y2).Msg("Secondary y column not found, dropping it")
			spec.Y2 = ""
		}
	}
	requestedX, requestedY := spec.X, spec.Y
	spec.X, spec.Y = x, y

	if !hasValidSample(rows, x) {
		logger.Warn().Str("resolved_x", x).Msg("Chart skipped: no valid values in x column")
		return empty
	}
	if !hasValidSample(rows, y) {
		logger.Warn().Str("resolved_y", y).Msg("Chart skipped: no valid values in y column")
		return empty
	}

	var series []model.Row
	switch spec.Type {
	case model.ChartScatter:
		series = scatterSeries(rows, x, y)
	case model.ChartPie:
		series = pieSeries(rows, x, y, defaultAggregate(spec.Aggregate))
	case model.ChartBar:
		if strings.EqualFold(requestedX, correlationVariableKey) && strings.EqualFold(requestedY, correlationValueKey) {
			series = correlationBars(rows, x, y)
		} else {
			series = barSeries(rows, x, y, defaultAggregate(spec.Aggregate))
		}
	case model.ChartLine, model.ChartArea:
		series = lineSeries(rows, x, y, spec.Y2, spec.Aggregate)
	default:
		logger.Warn().Msg("Chart skipped: unsupported chart type")
		return empty
	}

	log.Debug().
		Str("chart_type", string(spec.Type)).
		Str("x", x).
		Str("y", y).
		Int("input_rows", len(rows)).
		Int("points", len(series)).
		Msg("Processed chart data")
	return series
}

func defaultAggregate(fn model.AggregateFunc) model.AggregateFunc {
	if fn == "" {
		return model.AggregateSum
	}
	return fn
}

func hasColumn(columns []string, name string) bool {
	for _, c := range columns {
		if c == name {
			return true
		}
	}
	return false
}

// hasValidSample checks the leading rows for at least one non-empty value.
func hasValidSample(rows []model.Row, col string) bool {
	n := len(rows)
	if n > validationSampleSize {
		n = validationSampleSize
	}
	for _, row := range rows[:n] {
		if !row[col].IsEmpty() {
			return true
		}
	}
	return false
}

func scatterSeries(rows []model.Row, x, y string) []model.Row {
	points := make([]model.Row, 0, len(rows))
	for _, row := range rows {
		xf, okX := util.ToNumber(row[x])
		yf, okY := util.ToNumber(row[y])
		if !okX || !okY {
			continue
		}
		points = append(points, model.Row{x: model.Number(xf), y: model.Number(yf)})
	}
	if skipped := len(rows) - len(points); skipped > 0 {
		logSkipped(x+","+y, skipped)
	}
	return sampleEvery(points, MaxScatterPoints)
}

// sampleEvery keeps every Nth point with N = floor(len/limit), then caps the
// result at limit. The output depends only on the input.
func sampleEvery(points []model.Row, limit int) []model.Row {
	if len(points) <= limit {
		return points
	}
	// Picks are spread over the whole input; the first point is always kept.
	n := len(points)
	sampled := make([]model.Row, 0, limit)
	for i := 0; i < limit; i++ {
		sampled = append(sampled, points[i*n/limit])
	}
	return sampled
}

func pieSeries(rows []model.Row, x, y string, fn model.AggregateFunc) []model.Row {
	var points []aggregated
	if isPreAggregated(rows, x) {
		points = make([]aggregated, 0, len(rows))
		for _, row := range rows {
			f, ok := util.ToNumber(row[y])
			if !ok {
				continue
			}
			points = append(points, aggregated{key: row[x].String(), x: row[x], value: f})
		}
	} else {
		points = aggregateBy(rows, x, y, fn)
	}
	sortByValueDesc(points)

	if len(points) <= PieTopSegments {
		return toRows(points, x, y)
	}
	rest := points[PieTopSegments:]
	var otherTotal float64
	for _, p := range rest {
		otherTotal += p.value
	}
	out := toRows(points[:PieTopSegments], x, y)
	out = append(out, model.Row{
		x: model.String(fmt.Sprintf("Other %d items", len(rest))),
		y: model.Number(otherTotal),
	})
	return out
}

// isPreAggregated reports whether every row already has a distinct x value.
func isPreAggregated(rows []model.Row, x string) bool {
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		seen[row[x].String()] = struct{}{}
	}
	return len(seen) == len(rows)
}

func barSeries(rows []model.Row, x, y string, fn model.AggregateFunc) []model.Row {
	points := aggregateBy(rows, x, y, fn)
	sortByValueDesc(points)
	if len(points) > BarTopCategories {
		points = points[:BarTopCategories]
	}
	return toRows(points, x, y)
}

// correlationBars passes precomputed correlations through, strongest first by
// magnitude: a correlation of -0.9 outranks 0.5.
func correlationBars(rows []model.Row, x, y string) []model.Row {
	points := make([]aggregated, 0, len(rows))
	for _, row := range rows {
		f, ok := util.ToNumber(row[y])
		if !ok {
			continue
		}
		points = append(points, aggregated{key: row[x].String(), x: row[x], value: f})
	}
	sort.SliceStable(points, func(i, j int) bool {
		return math.Abs(points[i].value) > math.Abs(points[j].value)
	})
	return toRows(points, x, y)
}

func lineSeries(rows []model.Row, x, y, y2 string, fn model.AggregateFunc) []model.Row {
	var out []model.Row
	if fn != "" && fn != model.AggregateNone {
		points := aggregateBy(rows, x, y, fn)
		var secondary map[string]float64
		if y2 != "" {
			secondary = make(map[string]float64)
			for _, p := range aggregateBy(rows, x, y2, fn) {
				secondary[p.key] = p.value
			}
		}
		out = make([]model.Row, 0, len(points))
		for _, p := range points {
			row := model.Row{x: p.x, y: model.Number(p.value)}
			if y2 != "" {
				v, ok := secondary[p.key]
				if !ok {
					continue
				}
				row[y2] = model.Number(v)
			}
			out = append(out, row)
		}
	} else {
		out = make([]model.Row, 0, len(rows))
		skipped := 0
		for _, row := range rows {
			yf, ok := util.ToNumber(row[y])
			if !ok {
				skipped++
				continue
			}
			point := model.Row{x: row[x], y: model.Number(yf)}
			if y2 != "" {
				y2f, ok := util.ToNumber(row[y2])
				if !ok {
					skipped++
					continue
				}
				point[y2] = model.Number(y2f)
			}
			out = append(out, point)
		}
		if skipped > 0 {
			logSkipped(y, skipped)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return util.CompareChronological(out[i][x], out[j][x]) < 0
	})
	return out
}

func sortByValueDesc(points []aggregated) {
	sort.SliceStable(points, func(i, j int) bool { return points[i].value > points[j].value })
}

func toRows(points []aggregated, x, y string) []model.Row {
	out := make([]model.Row, 0, len(points))
	for _, p := range points {
		out = append(out, model.Row{x: p.x, y: model.Number(p.value)})
	}
	return out
}

func logSkipped(col string, count int) {
	log.Debug().Str("column", col).Int("skipped", count).Msg("Dropped non-numeric values while building chart")
}
