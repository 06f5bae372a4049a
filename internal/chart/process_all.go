package chart

import (
	"context"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"datatalk-backend/internal/model"
)

// ProcessAll fills Data for every spec that arrived without it and returns the
// charts that ended up with a non-empty series. Specs are only updated once all
// of them are processed, so a cancelled call leaves its inputs untouched.
func ProcessAll(ctx context.Context, table model.Table, specs []*model.ChartSpec) ([]*model.ChartSpec, error) {
	processed := make([]model.ChartSpec, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		if spec == nil {
			continue
		}
		processed[i] = *spec
		if len(spec.Data) > 0 {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			processed[i].Data = Process(table, &processed[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]*model.ChartSpec, 0, len(specs))
	for i, spec := range specs {
		if spec == nil {
			continue
		}
		if len(processed[i].Data) == 0 {
			log.Warn().Str("chart_type", string(spec.Type)).Str("title", spec.Title).Msg("Dropping chart with empty series")
			continue
		}
		*spec = processed[i]
		out = append(out, spec)
	}
	return out, nil
}
