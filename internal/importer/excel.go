// Package importer parses bulk source registrations from Excel workbooks.
package importer

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Column indices for the import spreadsheet (0-based).
const (
	colIdentifier = 0 // Column A: URL, domain, t.me link, or @handle
	colName       = 1 // Column B: optional display name
	colEnabled    = 2 // Column C: optional enabled flag, defaults to true

	maxIdentifierLength = 2048
)

// SourceRow is a parsed row from the import spreadsheet.
type SourceRow struct {
	Row        int // Excel row number (1-based, for error reporting)
	Identifier string
	Name       string
	Enabled    bool
}

// ImportError reports a validation failure for a specific row.
type ImportError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// ValidateRow validates a single row and returns an error message or empty
// string.
func ValidateRow(row SourceRow) string {
	if strings.TrimSpace(row.Identifier) == "" {
		return "identifier is required"
	}
	if len(row.Identifier) > maxIdentifierLength {
		return "identifier is too long"
	}
	return ""
}

// ParseFile reads the first sheet of an xlsx workbook and returns the valid
// rows plus per-row validation errors. The header row is skipped. Only a
// workbook-level failure is returned as an error; bad rows never abort the
// import.
func ParseFile(r io.Reader) ([]SourceRow, []ImportError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, nil, fmt.Errorf("workbook has no sheets")
	}

	rawRows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("read rows: %w", err)
	}

	var rows []SourceRow
	var importErrors []ImportError

	for i, raw := range rawRows {
		rowNum := i + 1
		if rowNum == 1 {
			continue // header
		}
		if isEmptyRow(raw) {
			continue
		}

		row := SourceRow{
			Row:        rowNum,
			Identifier: strings.TrimSpace(cell(raw, colIdentifier)),
			Name:       strings.TrimSpace(cell(raw, colName)),
			Enabled:    parseEnabled(cell(raw, colEnabled)),
		}

		if msg := ValidateRow(row); msg != "" {
			importErrors = append(importErrors, ImportError{Row: rowNum, Error: msg})
			continue
		}

		rows = append(rows, row)
	}

	return rows, importErrors, nil
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return row[idx]
}

func isEmptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseEnabled treats an empty cell as enabled; anything else must look
// affirmative.
func parseEnabled(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return true
	}
	return s == "true" || s == "1" || s == "yes"
}

// TemplateHeaders are the column headers of the import template, in order.
var TemplateHeaders = []string{"Identifier", "Name", "Enabled"}

// WriteTemplate writes an empty import template workbook with a header row
// and one example row.
func WriteTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, header := range TemplateHeaders {
		cellName, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("header cell name: %w", err)
		}
		if err := f.SetCellValue(sheet, cellName, header); err != nil {
			return fmt.Errorf("set header: %w", err)
		}
	}

	example := []string{"https://t.me/channel_news_test", "Example Channel", "true"}
	for i, value := range example {
		cellName, err := excelize.CoordinatesToCellName(i+1, 2)
		if err != nil {
			return fmt.Errorf("example cell name: %w", err)
		}
		if err := f.SetCellValue(sheet, cellName, value); err != nil {
			return fmt.Errorf("set example: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
