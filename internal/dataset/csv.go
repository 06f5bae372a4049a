package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"datatalk-backend/internal/model"
)

// ReadCSV loads a CSV stream into a table. The first record is the header.
// Cells stay strings; blank cells become null. Short records are padded with
// nulls and surplus cells are ignored.
func ReadCSV(r io.Reader) (model.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return model.Table{}, nil
		}
		return model.Table{}, fmt.Errorf("read header: %w", err)
	}
	columns := make([]string, 0, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		columns = append(columns, h)
	}

	table := model.Table{Columns: columns, Rows: make([]model.Row, 0)}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return model.Table{}, fmt.Errorf("read record %d: %w", line, err)
		}
		row := make(model.Row, len(columns))
		for i, name := range columns {
			if i < len(record) && strings.TrimSpace(record[i]) != "" {
				row[name] = model.String(record[i])
			} else {
				row[name] = model.Null()
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}
