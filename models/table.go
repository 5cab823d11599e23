package models

import (
	"database/sql"
	"strconv"
)

// GeoKey is the canonical postal (ZIP / ZCTA) key every source is joined on.
type GeoKey uint32

func (k GeoKey) String() string {
	return strconv.FormatUint(uint64(k), 10)
}

// Cell is a single nullable table value. Valid == false means "missing".
type Cell = sql.NullString

// Str returns a present cell.
func Str(s string) Cell { return Cell{String: s, Valid: true} }

// Null returns a missing cell.
func Null() Cell { return Cell{} }

// OptStr maps an empty string to a missing cell.
func OptStr(s string) Cell {
	if s == "" {
		return Null()
	}
	return Str(s)
}

// KeyCell renders a GeoKey as a cell, or a missing cell when ok is false.
func KeyCell(k GeoKey, ok bool) Cell {
	if !ok {
		return Null()
	}
	return Str(k.String())
}

// Table is the generic in-memory representation every loader, the harvester
// and the statistics client produce. Rows keep source order.
type Table struct {
	Columns []string
	Rows    [][]Cell
}

// NewTable creates an empty table with the given columns.
func NewTable(columns ...string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols, Rows: make([][]Cell, 0)}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnIndex returns the position of the named column or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool {
	return t != nil && t.ColumnIndex(name) >= 0
}

// Append adds a row. Short rows are padded with missing cells and long rows
// are truncated to the table width.
func (t *Table) Append(row ...Cell) {
	r := make([]Cell, len(t.Columns))
	copy(r, row)
	t.Rows = append(t.Rows, r)
}

// AddColumn appends a column, filling existing rows with missing cells.
func (t *Table) AddColumn(name string) int {
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], Null())
	}
	return len(t.Columns) - 1
}

// Get returns the cell at row i of the named column.
func (t *Table) Get(i int, column string) Cell {
	idx := t.ColumnIndex(column)
	if idx < 0 || i < 0 || i >= len(t.Rows) {
		return Null()
	}
	return t.Rows[i][idx]
}

// Column returns a copy of the named column, or nil when it does not exist.
func (t *Table) Column(name string) []Cell {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil
	}
	out := make([]Cell, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[idx]
	}
	return out
}

// Clone deep-copies the table so callers can rename or rewrite it freely.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	c := NewTable(t.Columns...)
	c.Rows = make([][]Cell, len(t.Rows))
	for i, r := range t.Rows {
		row := make([]Cell, len(r))
		copy(row, r)
		c.Rows[i] = row
	}
	return c
}
