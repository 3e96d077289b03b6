// Package dataset provides an in-memory tabular dataset loaded from CSV
// and partitioning of its rows by grouping columns.
package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
)

// Table is an immutable in-memory table of string cells with named columns.
type Table struct {
	columns []string
	rows    [][]string
	colIdx  map[string]int
}

// New builds a table from a header and rows. Every row must have exactly
// one cell per column.
func New(columns []string, rows [][]string) (*Table, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("table needs at least one column")
	}

	colIdx := make(map[string]int, len(columns))
	for i, name := range columns {
		if _, dup := colIdx[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		colIdx[name] = i
	}

	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(columns))
		}
	}

	return &Table{
		columns: columns,
		rows:    rows,
		colIdx:  colIdx,
	}, nil
}

// Load fetches a CSV document over HTTP and parses it into a table.
// The first record is treated as the header.
func Load(ctx context.Context, url string) (*Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build dataset request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch dataset %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch dataset %s: unexpected status %s", url, resp.Status)
	}

	table, err := Read(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", url, err)
	}
	return table, nil
}

// Read parses CSV from a reader into a table. Exposed separately from Load
// so tests and local files can bypass HTTP.
func Read(r io.Reader) (*Table, error) {
	csvr := csv.NewReader(r)
	csvr.LazyQuotes = true

	header, err := csvr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := make([]string, len(header))
	copy(columns, header)

	var rows [][]string
	for {
		record, err := csvr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		row := make([]string, len(record))
		copy(row, record)
		rows = append(rows, row)
	}

	return New(columns, rows)
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	return t.columns
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int {
	return len(t.rows)
}

// Row returns the i-th data row.
func (t *Table) Row(i int) []string {
	return t.rows[i]
}

// ColumnIndex returns the position of a named column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.colIdx[name]
	return i, ok
}

// encodeCSV writes a header plus rows as CSV.
func encodeCSV(columns []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(columns); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
