package chart

import (
	"datatalk-backend/internal/model"
	"datatalk-backend/internal/util"
)

// group collects the numeric values found under one grouping key.
type group struct {
	key     string
	first   model.Value
	values  []float64
	skipped int
	size    int
}

type aggregated struct {
	key   string
	x     model.Value
	value float64
}

// groupRows groups rows by the stringified value of groupCol, keeping first-seen
// order. Non-numeric values are counted in skipped, never stored as zero.
func groupRows(rows []model.Row, groupCol, valueCol string) []*group {
	index := make(map[string]*group)
	order := make([]*group, 0)
	for _, row := range rows {
		xv := row[groupCol]
		key := xv.String()
		g, ok := index[key]
		if !ok {
			g = &group{key: key, first: xv}
			index[key] = g
			order = append(order, g)
		}
		g.size++
		if f, ok := util.ToNumber(row[valueCol]); ok {
			g.values = append(g.values, f)
		} else {
			g.skipped++
		}
	}
	return order
}

// reduce applies fn to a group. Unknown functions keep the first value so newer
// aggregate kinds degrade gracefully. A group with nothing to reduce reports false.
func reduce(g *group, fn model.AggregateFunc) (float64, bool) {
	switch fn {
	case model.AggregateCount:
		return float64(g.size), true
	case model.AggregateSum:
		if len(g.values) == 0 {
			return 0, false
		}
		var total float64
		for _, v := range g.values {
			total += v
		}
		return total, true
	case model.AggregateMean:
		if len(g.values) == 0 {
			return 0, false
		}
		var total float64
		for _, v := range g.values {
			total += v
		}
		return total / float64(len(g.values)), true
	default:
		if len(g.values) == 0 {
			return 0, false
		}
		return g.values[0], true
	}
}

// aggregateBy groups rows by groupCol and reduces valueCol per group.
func aggregateBy(rows []model.Row, groupCol, valueCol string, fn model.AggregateFunc) []aggregated {
	groups := groupRows(rows, groupCol, valueCol)
	out := make([]aggregated, 0, len(groups))
	skipped := 0
	for _, g := range groups {
		skipped += g.skipped
		v, ok := reduce(g, fn)
		if !ok {
			continue
		}
		out = append(out, aggregated{key: g.key, x: g.first, value: v})
	}
	if skipped > 0 {
		logSkipped(valueCol, skipped)
	}
	return out
}
