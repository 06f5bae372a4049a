package dataset

import (
	"math"
	"sort"

	"datatalk-backend/internal/model"
	"datatalk-backend/internal/util"
)

// Correlation is the Pearson coefficient of one column against a target.
type Correlation struct {
	Variable string
	R        float64
	N        int
}

// Correlations computes the Pearson coefficient between target and each other
// column. Only rows where both cells are numeric count. Pairs with fewer than
// three such rows or zero variance are omitted. Results are ordered by |r|
// descending.
func Correlations(table model.Table, target string, columns []string) []Correlation {
	out := make([]Correlation, 0, len(columns))
	for _, col := range columns {
		if col == target {
			continue
		}
		var n, sx, sy, sxx, syy, sxy float64
		for _, row := range table.Rows {
			x, okX := util.ToNumber(row[col])
			y, okY := util.ToNumber(row[target])
			if !okX || !okY {
				continue
			}
			n++
			sx += x
			sy += y
			sxx += x * x
			syy += y * y
			sxy += x * y
		}
		if n < 3 {
			continue
		}
		cov := sxy - sx*sy/n
		vx := sxx - sx*sx/n
		vy := syy - sy*sy/n
		if vx <= 0 || vy <= 0 {
			continue
		}
		r := cov / math.Sqrt(vx*vy)
		if math.IsNaN(r) {
			continue
		}
		out = append(out, Correlation{Variable: col, R: math.Max(-1, math.Min(1, r)), N: int(n)})
	}
	sort.SliceStable(out, func(i, j int) bool { return math.Abs(out[i].R) > math.Abs(out[j].R) })
	return out
}
