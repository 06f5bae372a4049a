package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"datatalk-backend/internal/chart"
	"datatalk-backend/internal/dataset"
	"datatalk-backend/internal/filter"
	"datatalk-backend/internal/model"
)

func newSummaryCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <csv>",
		Short: "Show inferred column types and sample values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := loadCSV(args[0])
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), root.output, dataset.Summarize(table))
		},
	}
}

func newFiltersCommand(root *rootOptions) *cobra.Command {
	var opts filter.Options
	cmd := &cobra.Command{
		Use:   "filters <csv>",
		Short: "Derive the filter definitions offered for a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := loadCSV(args[0])
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), root.output, filter.Derive(table, opts))
		},
	}
	cmd.Flags().StringSliceVar(&opts.Categorical, "categorical", nil, "columns forced to categorical filters")
	cmd.Flags().StringSliceVar(&opts.Numeric, "numeric", nil, "columns forced to numeric filters")
	cmd.Flags().StringSliceVar(&opts.Date, "date", nil, "columns forced to date filters")
	cmd.Flags().StringSliceVar(&opts.Exclude, "exclude", nil, "columns to leave out")
	return cmd
}

func newChartCommand(root *rootOptions) *cobra.Command {
	var (
		spec      model.ChartSpec
		chartType string
		aggregate string
	)
	cmd := &cobra.Command{
		Use:   "chart <csv>",
		Short: "Compute the series for a chart spec",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec.Type = model.ChartType(chartType)
			if !spec.Type.Valid() {
				return fmt.Errorf("unsupported chart type %q", chartType)
			}
			spec.Aggregate = model.AggregateFunc(aggregate)
			table, err := loadCSV(args[0])
			if err != nil {
				return err
			}
			spec.Data = chart.Process(table, &spec)
			if len(spec.Data) == 0 {
				return fmt.Errorf("chart has no data: check that %q and %q exist and hold plottable values", spec.X, spec.Y)
			}
			return write(cmd.OutOrStdout(), root.output, spec)
		},
	}
	cmd.Flags().StringVar(&chartType, "type", "bar", "chart type: line, bar, scatter, pie or area")
	cmd.Flags().StringVar(&spec.X, "x", "", "x column")
	cmd.Flags().StringVar(&spec.Y, "y", "", "y column")
	cmd.Flags().StringVar(&spec.Y2, "y2", "", "secondary y column (line charts)")
	cmd.Flags().StringVar(&aggregate, "aggregate", "", "aggregate: sum, mean, count or none")
	cmd.Flags().StringVar(&spec.Title, "title", "", "chart title")
	_ = cmd.MarkFlagRequired("x")
	_ = cmd.MarkFlagRequired("y")
	return cmd
}
