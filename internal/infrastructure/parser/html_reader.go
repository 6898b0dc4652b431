package parser

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ArticlesEvaluator/internal/loader"
	"ArticlesEvaluator/internal/table"
)

// HTMLReader extracts the first <table> of an HTML document, e.g. a spreadsheet export.
type HTMLReader struct{}

var _ loader.Reader = HTMLReader{}

// Name identifies the format inside the registry.
func (HTMLReader) Name() string {
	return "html"
}

// Read uses the first row of the table as header.
func (HTMLReader) Read(_ context.Context, r io.Reader) (table.Table, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return table.Table{}, fmt.Errorf("parse document: %w", err)
	}

	tbl := doc.Find("table").First()
	if tbl.Length() == 0 {
		return table.Table{}, fmt.Errorf("document has no <table>")
	}

	var result table.Table
	for _, tr := range directRows(tbl) {
		cells := tr.ChildrenFiltered("th, td").Map(func(_ int, cell *goquery.Selection) string {
			return strings.TrimSpace(cell.Text())
		})
		if result.Header == nil {
			result.Header = cells
			continue
		}
		result.Rows = append(result.Rows, cells)
	}

	if result.Header == nil {
		return table.Table{}, fmt.Errorf("table has no rows")
	}
	return result, nil
}

// directRows selects the rows owned by tbl, skipping rows of nested tables.
func directRows(tbl *goquery.Selection) []*goquery.Selection {
	var rows []*goquery.Selection
	tbl.Children().Each(func(_ int, child *goquery.Selection) {
		switch goquery.NodeName(child) {
		case "tr":
			rows = append(rows, child)
		case "thead", "tbody", "tfoot":
			child.ChildrenFiltered("tr").Each(func(_ int, tr *goquery.Selection) {
				rows = append(rows, tr)
			})
		}
	})
	return rows
}
