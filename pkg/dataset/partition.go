package dataset

import (
	"fmt"
	"strings"
)

// KeyValue is one grouping column paired with the value shared by every
// row of a partition.
type KeyValue struct {
	Column string
	Value  string
}

// Partition is the subset of a table's rows sharing one grouping-key tuple.
type Partition struct {
	// Keys holds the grouping columns and their values, in the order the
	// grouping columns were given to GroupBy.
	Keys []KeyValue

	columns []string
	rows    [][]string
}

// tupleSep separates grouping values inside the map key used during
// grouping. Unit Separator is not expected in CSV cell data.
const tupleSep = "\x1f"

// GroupBy splits the table into one partition per distinct combination of
// values across the given columns. Partitions are disjoint, cover every
// row, and are returned in first-seen order of their key tuples.
func (t *Table) GroupBy(columns ...string) ([]Partition, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("group by needs at least one column")
	}

	indices := make([]int, len(columns))
	for i, name := range columns {
		idx, ok := t.colIdx[name]
		if !ok {
			return nil, fmt.Errorf("grouping column %q not in table", name)
		}
		indices[i] = idx
	}

	var parts []Partition
	seen := make(map[string]int)

	for _, row := range t.rows {
		values := make([]string, len(indices))
		for i, idx := range indices {
			values[i] = row[idx]
		}
		tuple := strings.Join(values, tupleSep)

		pi, ok := seen[tuple]
		if !ok {
			keys := make([]KeyValue, len(columns))
			for i, name := range columns {
				keys[i] = KeyValue{Column: name, Value: values[i]}
			}
			pi = len(parts)
			seen[tuple] = pi
			parts = append(parts, Partition{
				Keys:    keys,
				columns: t.columns,
			})
		}
		parts[pi].rows = append(parts[pi].rows, row)
	}

	return parts, nil
}

// NumRows returns the number of rows in the partition.
func (p *Partition) NumRows() int {
	return len(p.rows)
}

// Row returns the i-th row of the partition.
func (p *Partition) Row(i int) []string {
	return p.rows[i]
}

// EncodeCSV serializes the partition as CSV with the full table header.
func (p *Partition) EncodeCSV() ([]byte, error) {
	return encodeCSV(p.columns, p.rows)
}
