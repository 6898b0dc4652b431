// Package table holds the bulk input/output surface: a header plus string rows.
package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"ArticlesEvaluator/internal/domain"
)

// Input column names.
const (
	ColumnTopic       = "Topic"
	ColumnThemes      = "Themes"
	ColumnObjectives  = "Objectives"
	ColumnKeyConcepts = "Key Concepts"
	ColumnArticle     = "Article"
	ColumnQuestions   = "Questions"
	ColumnFinal       = "Final_Evaluation"
)

// RequiredColumns must all be present before a batch may start.
var RequiredColumns = []string{ColumnTopic, ColumnThemes, ColumnObjectives, ColumnKeyConcepts, ColumnArticle, ColumnQuestions}

// ResultColumns are appended to the table, one per result slot.
func ResultColumns() []string {
	cols := make([]string, 0, domain.SlotCount)
	for i := 1; i <= domain.DimensionCount; i++ {
		cols = append(cols, fmt.Sprintf("Evaluation_%d", i))
	}
	return append(cols, ColumnFinal)
}

// MissingColumnsError lists required columns absent from the header.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("table must include these columns: %s (missing: %s)",
		strings.Join(RequiredColumns, ", "), strings.Join(e.Columns, ", "))
}

// Table is an ordered set of rows addressed by column name.
type Table struct {
	Header []string
	Rows   [][]string
}

// Len returns the number of data rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of name in the header or -1.
func (t Table) ColumnIndex(name string) int {
	for i, h := range t.Header {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	return -1
}

// Validate reports every missing required column.
func (t Table) Validate() error {
	var missing []string
	for _, col := range RequiredColumns {
		if t.ColumnIndex(col) < 0 {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Columns: missing}
	}
	return nil
}

// Records maps every row to an ArticleRecord. Short rows read as empty cells.
func (t Table) Records() ([]domain.ArticleRecord, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	idx := make(map[string]int, len(RequiredColumns))
	for _, col := range RequiredColumns {
		idx[col] = t.ColumnIndex(col)
	}

	out := make([]domain.ArticleRecord, len(t.Rows))
	for i, row := range t.Rows {
		cell := func(col string) string {
			if j := idx[col]; j < len(row) {
				return row[j]
			}
			return ""
		}
		out[i] = domain.ArticleRecord{
			Topic:       cell(ColumnTopic),
			Themes:      cell(ColumnThemes),
			Objectives:  cell(ColumnObjectives),
			KeyConcepts: cell(ColumnKeyConcepts),
			Article:     cell(ColumnArticle),
			Questions:   cell(ColumnQuestions),
		}
	}
	return out, nil
}

// Clone deep-copies the table.
func (t Table) Clone() Table {
	out := Table{Header: append([]string(nil), t.Header...), Rows: make([][]string, len(t.Rows))}
	for i, row := range t.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out
}

// WriteCSV serializes header and rows.
func (t Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}
