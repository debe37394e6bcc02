// Package spreadsheet reads uploaded tabular files into a header row plus
// data rows. The import validator consumes the parsed table and does not
// care about the file format behind it.
package spreadsheet

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Table is a parsed rectangular upload. Row numbering follows the
// spreadsheet convention: the header is row 1, the first data row is
// row 2.
type Table struct {
	Headers []string
	Rows    [][]string
}

// RowNumber translates a zero-based data row index into the row number a
// user sees in the original file.
func (t *Table) RowNumber(dataIndex int) int {
	return dataIndex + 2
}

// ReadCSV parses a UTF-8 CSV stream. A leading byte-order mark is
// tolerated, header and cell whitespace is trimmed, and rows may have
// fewer fields than the header (missing cells read as empty).
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file: no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header row: %w", err)
	}

	headers := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		headers[i] = strings.TrimSpace(h)
	}

	var rows [][]string
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read data row %d: %w", len(rows)+2, err)
		}

		row := make([]string, len(headers))
		for i := range headers {
			if i < len(record) {
				row[i] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, row)
	}

	return &Table{Headers: headers, Rows: rows}, nil
}

// Cell returns the value at the given data row and column, or the empty
// string when either index is out of range.
func (t *Table) Cell(rowIndex, colIndex int) string {
	if rowIndex < 0 || rowIndex >= len(t.Rows) {
		return ""
	}
	if colIndex < 0 || colIndex >= len(t.Rows[rowIndex]) {
		return ""
	}
	return t.Rows[rowIndex][colIndex]
}

// FindColumn returns the index of the first header matching any of the
// given aliases, comparing case-insensitively after trimming. Returns -1
// when no alias is present.
func (t *Table) FindColumn(aliases ...string) int {
	for i, h := range t.Headers {
		for _, a := range aliases {
			if strings.EqualFold(h, a) {
				return i
			}
		}
	}
	return -1
}
