// Package table parses uploaded CSV files into an in-memory table and
// derives the preview shown on the dashboard.
package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/ycsa-dashboard/backend/internal/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseError describes why an upload could not be read as a table.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("error tokenizing data: %s (line %d)", e.Reason, e.Line)
	}
	return e.Reason
}

// Table is a parsed CSV file: a header row and string cells.
type Table struct {
	Header []string
	Rows   [][]string
	Size   int64 // bytes of the source file
}

// Parse reads CSV bytes with a header row. Rows shorter than the header are
// padded with empty cells; longer rows are an error.
func Parse(data []byte) (*Table, error) {
	body := bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &ParseError{Reason: "no columns to parse from file"}
	}

	r := csv.NewReader(bytes.NewReader(body))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, wrapCSVError(err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}

	t := &Table{Header: header, Size: int64(len(data))}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, wrapCSVError(err)
		}
		if isBlankRecord(rec) {
			continue
		}
		if len(rec) > len(header) {
			line, _ := r.FieldPos(0)
			return nil, &ParseError{
				Line:   line,
				Reason: fmt.Sprintf("expected %d fields, saw %d", len(header), len(rec)),
			}
		}
		for len(rec) < len(header) {
			rec = append(rec, "")
		}
		t.Rows = append(t.Rows, rec)
	}

	return t, nil
}

func wrapCSVError(err error) error {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return &ParseError{Line: perr.Line, Reason: perr.Err.Error()}
	}
	return &ParseError{Reason: err.Error()}
}

// isBlankRecord reports a whitespace-only line. Delimiter-only lines such
// as ",," are kept as rows of empty cells.
func isBlankRecord(rec []string) bool {
	return len(rec) == 1 && strings.TrimSpace(rec[0]) == ""
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int { return len(t.Rows) }

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int { return len(t.Header) }

// ColumnIndex returns the index of the named column or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Column returns a copy of all values in column i.
func (t *Table) Column(i int) []string {
	if i < 0 || i >= len(t.Header) {
		return nil
	}
	out := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out
}

// Head returns up to n leading rows.
func (t *Table) Head(n int) [][]string {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	return t.Rows[:n]
}

// SizeKB returns the byte size in kilobytes rounded to two decimals.
func SizeKB(size int64) float64 {
	return math.Round(float64(size)/1024*100) / 100
}

// Preview builds the dashboard preview of the table.
func (t *Table) Preview() *models.TablePreview {
	return &models.TablePreview{
		Rows:    t.NumRows(),
		Columns: t.NumColumns(),
		SizeKB:  SizeKB(t.Size),
		Header:  t.Header,
		Head:    t.Head(models.PreviewRowLimit),
	}
}
