// Package tabular holds the in-memory table representation the interpreter
// and the reference backend exchange: an ordered column list plus ordered
// rows of values indexed by column position.
package tabular

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/quarry/internal/ir"
)

// Row is a single table row. Values align with Table.Columns by index.
type Row []ir.Value

// Table is an ordered collection of rows under a fixed column list.
type Table struct {
	Columns []string
	Rows    []Row
}

// New creates an empty table with the given columns.
func New(columns ...string) *Table {
	return &Table{Columns: slices.Clone(columns)}
}

// ColIndex returns the index of a column by name, or -1 if absent.
func (t *Table) ColIndex(name string) int {
	return slices.Index(t.Columns, name)
}

// AddRow appends a row. The value count must match the column count.
func (t *Table) AddRow(values ...ir.Value) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("row has %d values, table has %d columns", len(values), len(t.Columns))
	}
	t.Rows = append(t.Rows, Row(values))
	return nil
}

// MustAddRow is AddRow for fixture construction; it panics on arity mismatch.
func (t *Table) MustAddRow(values ...ir.Value) {
	if err := t.AddRow(values...); err != nil {
		panic(err)
	}
}

// Get returns the value at a row index and column name, or Null when the
// coordinates are out of range.
func (t *Table) Get(row int, col string) ir.Value {
	idx := t.ColIndex(col)
	if idx < 0 || row < 0 || row >= len(t.Rows) {
		return ir.Null{}
	}
	return t.Rows[row][idx]
}

// NumRows returns the row count.
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// Clone creates a deep copy of the table. The interpreter derives new
// tables from clones so the caller's snapshot is never mutated.
func (t *Table) Clone() *Table {
	out := &Table{
		Columns: slices.Clone(t.Columns),
		Rows:    make([]Row, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = slices.Clone(r)
	}
	return out
}

// RowMap returns one row as a column-name-to-value mapping.
func (t *Table) RowMap(row int) map[string]ir.Value {
	m := make(map[string]ir.Value, len(t.Columns))
	for i, c := range t.Columns {
		m[c] = t.Rows[row][i]
	}
	return m
}

// String renders a compact single-line form used in test failure output.
func (t *Table) String() string {
	if len(t.Rows) == 0 {
		return "[" + strings.Join(t.Columns, ", ") + "] (0 rows)"
	}
	var sb strings.Builder
	sb.WriteString("[ ")
	for i, r := range t.Rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("{")
		for j, v := range r {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(t.Columns[j])
			sb.WriteString(":")
			sb.WriteString(ir.Canonical(v))
		}
		sb.WriteString("}")
	}
	sb.WriteString(" ]")
	return sb.String()
}

// Pretty renders an aligned multi-line text table for CLI output.
func (t *Table) Pretty() string {
	widths := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		widths[i] = len(c)
	}
	cells := make([][]string, len(t.Rows))
	for ri, r := range t.Rows {
		cells[ri] = make([]string, len(r))
		for ci, v := range r {
			s := ir.Canonical(v)
			cells[ri][ci] = s
			if len(s) > widths[ci] {
				widths[ci] = len(s)
			}
		}
	}

	var sb strings.Builder
	for i, c := range t.Columns {
		if i > 0 {
			sb.WriteString("  ")
		}
		sb.WriteString(pad(c, widths[i]))
	}
	sb.WriteString("\n")
	for ri := range cells {
		for ci, s := range cells[ri] {
			if ci > 0 {
				sb.WriteString("  ")
			}
			sb.WriteString(pad(s, widths[ci]))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func pad(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}

// EqualRows reports whether two tables hold identical columns and rows in
// identical order.
func EqualRows(a, b *Table) bool {
	if !slices.Equal(a.Columns, b.Columns) || len(a.Rows) != len(b.Rows) {
		return false
	}
	for i := range a.Rows {
		if !rowEqual(a.Rows[i], b.Rows[i]) {
			return false
		}
	}
	return true
}

// EqualMultiset reports whether two tables hold identical columns and the
// same rows regardless of order. Used when comparing backends for plans
// whose row order is not part of the contract.
func EqualMultiset(a, b *Table) bool {
	if !slices.Equal(a.Columns, b.Columns) || len(a.Rows) != len(b.Rows) {
		return false
	}
	matched := make([]bool, len(b.Rows))
outer:
	for _, ra := range a.Rows {
		for j, rb := range b.Rows {
			if !matched[j] && rowEqual(ra, rb) {
				matched[j] = true
				continue outer
			}
		}
		return false
	}
	return true
}

func rowEqual(a, b Row) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !ir.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
