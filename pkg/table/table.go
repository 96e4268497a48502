// Package table implements the tabular data model for ACS query results.
//
// A Table holds a header row and string-valued data rows, mirroring the
// array-of-arrays shape the Census API returns (element 0 = column names,
// elements 1..n = data rows). The package provides the operations the
// assembly pipeline needs: duplicate-column removal (keep-first), column
// renaming, key-based joining on geography columns, and CSV export.
package table

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// GeoColumns are the geography identifier columns the Census API attaches to
// every response. They key rows during joins and are deduplicated keep-first
// when per-indicator tables are merged.
var GeoColumns = []string{"NAME", "state", "county", "tract", "zip code tabulation area"}

// Table is an ordered set of named columns over string-valued rows.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Parse decodes a Census API data response: a JSON array whose first element
// is the header row and whose remaining elements are data rows. Numbers and
// nulls are converted to their string forms ("" for null).
func Parse(data []byte) (*Table, error) {
	var raw [][]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("decode response: empty array")
	}

	header := make([]string, len(raw[0]))
	for i, v := range raw[0] {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("decode response: header cell %d is not a string", i)
		}
		header[i] = s
	}

	rows := make([][]string, 0, len(raw)-1)
	for ri, rawRow := range raw[1:] {
		if len(rawRow) != len(header) {
			return nil, fmt.Errorf("decode response: row %d has %d cells, header has %d", ri+1, len(rawRow), len(header))
		}
		row := make([]string, len(rawRow))
		for ci, v := range rawRow {
			row[ci] = cellString(v)
		}
		rows = append(rows, row)
	}
	return &Table{Columns: header, Rows: rows}, nil
}

func cellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// DropDuplicateColumns returns a new table without repeated column names,
// keeping the first occurrence of each.
func (t *Table) DropDuplicateColumns() *Table {
	seen := make(map[string]bool, len(t.Columns))
	keep := make([]int, 0, len(t.Columns))
	for i, c := range t.Columns {
		if !seen[c] {
			seen[c] = true
			keep = append(keep, i)
		}
	}
	if len(keep) == len(t.Columns) {
		return t
	}

	out := &Table{Columns: make([]string, len(keep)), Rows: make([][]string, len(t.Rows))}
	for j, i := range keep {
		out.Columns[j] = t.Columns[i]
	}
	for ri, row := range t.Rows {
		newRow := make([]string, len(keep))
		for j, i := range keep {
			newRow[j] = row[i]
		}
		out.Rows[ri] = newRow
	}
	return out
}

// Rename returns a new table with column names replaced per the mapping.
// Columns absent from the mapping keep their names.
func (t *Table) Rename(mapping map[string]string) *Table {
	out := &Table{Columns: make([]string, len(t.Columns)), Rows: t.Rows}
	for i, c := range t.Columns {
		if renamed, ok := mapping[c]; ok {
			out.Columns[i] = renamed
		} else {
			out.Columns[i] = c
		}
	}
	return out
}

// geoKey builds a join key for a row from the table's geography columns.
// The cols argument lists column indices to include.
func geoKey(row []string, cols []int) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = row[c]
	}
	return strings.Join(parts, "\x1f")
}

// geoColumnIndices returns the indices of the geography columns present in t,
// in GeoColumns order.
func (t *Table) geoColumnIndices() []int {
	var idx []int
	for _, name := range GeoColumns {
		if i := t.ColumnIndex(name); i >= 0 {
			idx = append(idx, i)
		}
	}
	return idx
}

// Join merges per-indicator tables into one wide table. Rows are matched on
// the geography identifier columns shared by all tables (NAME plus FIPS/ZCTA
// id columns) rather than by position, so reordered API responses cannot
// silently misalign values. Row order follows the first table; rows missing
// from a later table leave its columns empty. Duplicate column names are
// dropped keep-first.
func Join(tables []*Table) (*Table, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("join: no tables")
	}

	base := tables[0].DropDuplicateColumns()
	out := &Table{Columns: append([]string(nil), base.Columns...), Rows: make([][]string, len(base.Rows))}
	for i, row := range base.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}

	for _, t := range tables[1:] {
		t = t.DropDuplicateColumns()

		keyNames := sharedGeoColumns(out, t)
		if len(keyNames) == 0 {
			return nil, fmt.Errorf("join: tables share no geography columns")
		}
		outKeyIdx := columnIndices(out, keyNames)
		tKeyIdx := columnIndices(t, keyNames)

		// Index the incoming table's rows by geography key.
		rowByKey := make(map[string][]string, len(t.Rows))
		for _, row := range t.Rows {
			rowByKey[geoKey(row, tKeyIdx)] = row
		}

		// Append only columns not already present (keep-first).
		var newCols []int
		for i, c := range t.Columns {
			if out.ColumnIndex(c) < 0 {
				newCols = append(newCols, i)
				out.Columns = append(out.Columns, c)
			}
		}

		for ri, row := range out.Rows {
			match := rowByKey[geoKey(row, outKeyIdx)]
			for _, ci := range newCols {
				if match != nil {
					out.Rows[ri] = append(out.Rows[ri], match[ci])
				} else {
					out.Rows[ri] = append(out.Rows[ri], "")
				}
			}
		}
	}
	return out, nil
}

func sharedGeoColumns(a, b *Table) []string {
	var names []string
	for _, name := range GeoColumns {
		if a.ColumnIndex(name) >= 0 && b.ColumnIndex(name) >= 0 {
			names = append(names, name)
		}
	}
	return names
}

func columnIndices(t *Table, names []string) []int {
	idx := make([]int, len(names))
	for i, name := range names {
		idx[i] = t.ColumnIndex(name)
	}
	return idx
}
