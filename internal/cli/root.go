// Package cli is the operator command line: it runs the dataset summary,
// filter derivation and chart processing on a local CSV file.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"datatalk-backend/internal/dataset"
	"datatalk-backend/internal/model"
)

type rootOptions struct {
	output string
}

func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "datatalk",
		Short:         "Inspect CSV datasets the way the chat backend sees them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "yaml", "output format: yaml or json")

	root.AddCommand(newSummaryCommand(opts), newFiltersCommand(opts), newChartCommand(opts))
	return root
}

func Execute() error {
	return NewRootCommand().Execute()
}

func loadCSV(path string) (model.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Table{}, err
	}
	defer f.Close()
	table, err := dataset.ReadCSV(f)
	if err != nil {
		return model.Table{}, fmt.Errorf("read %s: %w", path, err)
	}
	return table, nil
}

func write(w io.Writer, format string, v interface{}) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "":
		// Values marshal to JSON scalars; round-trip through JSON so YAML sees
		// plain maps instead of the unexported fields.
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic interface{}
		if err := json.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (want yaml or json)", format)
	}
}
