package reader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	apperrors "statement-classifier/internal/errors"
	"statement-classifier/internal/models"

	"github.com/xuri/excelize/v2"
)

const utf8BOM = "\ufeff"

// Table is a header row plus the data rows keyed by header cell
type Table struct {
	Columns []string
	Rows    []models.RawRow
}

// ReadCSV parses a delimited export with a header row
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.FileUnreadable, fmt.Errorf("failed to parse csv: %w", err))
	}

	return FromRecords(records)
}

// ReadXLSX parses a workbook sheet with a header row; an empty sheet name selects the first sheet
func ReadXLSX(r io.Reader, sheet string) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.FileUnreadable, fmt.Errorf("failed to open workbook: %w", err))
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, apperrors.New(apperrors.FileUnreadable, apperrors.WithDetails("workbook has no sheets"))
		}
		sheet = sheets[0]
	}

	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.FileUnreadable, fmt.Errorf("failed to read sheet %q: %w", sheet, err))
	}

	return FromRecords(records)
}

// FromRecords builds a table from raw records whose first non-blank record is the header
func FromRecords(records [][]string) (*Table, error) {
	start := -1
	for i, rec := range records {
		if !isBlank(rec) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, apperrors.New(apperrors.FileUnreadable, apperrors.WithDetails("no header row"))
	}

	columns := NormalizeHeader(records[start])
	table := &Table{Columns: columns}

	for _, rec := range records[start+1:] {
		if isBlank(rec) {
			continue
		}
		row := make(models.RawRow, len(columns))
		for i, col := range columns {
			if col == "" {
				continue
			}
			if _, seen := row[col]; seen {
				continue
			}
			if i < len(rec) {
				row[col] = strings.TrimSpace(rec[i])
			} else {
				row[col] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// NormalizeHeader trims header cells and strips a leading byte order mark
func NormalizeHeader(header []string) []string {
	columns := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		columns[i] = strings.TrimSpace(h)
	}
	return columns
}

func isBlank(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// IsUnreadable reports whether err means the input had no usable content
func IsUnreadable(err error) bool {
	var e *apperrors.Error
	return errors.As(err, &e) && e.Code == apperrors.FileUnreadable
}
