package parser

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"ArticlesEvaluator/internal/loader"
	"ArticlesEvaluator/internal/table"
)

const utf8BOM = "\ufeff"

// CSVReader decodes comma-separated tables with a header row.
type CSVReader struct{}

var _ loader.Reader = CSVReader{}

// Name identifies the format inside the registry.
func (CSVReader) Name() string {
	return "csv"
}

// Read parses the whole document. Rows may have differing widths.
func (CSVReader) Read(_ context.Context, r io.Reader) (table.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return table.Table{}, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) == 0 {
		return table.Table{}, fmt.Errorf("csv has no header row")
	}

	header := rows[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	return table.Table{Header: header, Rows: rows[1:]}, nil
}
