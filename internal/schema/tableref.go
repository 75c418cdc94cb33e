// Package schema tracks declared column names and provenance for table
// handles. A TableRef carries names only - never a connection, cursor, or
// dataset - so the same reference can be handed to any backend.
package schema

import (
	"fmt"
	"slices"
)

// TableRef identifies a source table: its name, the ordered set of declared
// column names, and whether it is a temporary/staged table.
type TableRef struct {
	Name    string
	Columns []string
	Staged  bool
}

// NewTableRef builds a TableRef, enforcing that column names are unique
// within the reference.
func NewTableRef(name string, columns []string) (TableRef, error) {
	return newRef(name, columns, false)
}

// NewStagedRef builds a TableRef marked as temporary/staged.
func NewStagedRef(name string, columns []string) (TableRef, error) {
	return newRef(name, columns, true)
}

func newRef(name string, columns []string, staged bool) (TableRef, error) {
	if name == "" {
		return TableRef{}, fmt.Errorf("table reference requires a name")
	}
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if c == "" {
			return TableRef{}, fmt.Errorf("table %q declares an empty column name", name)
		}
		if _, dup := seen[c]; dup {
			return TableRef{}, fmt.Errorf("table %q declares column %q twice", name, c)
		}
		seen[c] = struct{}{}
	}
	return TableRef{Name: name, Columns: slices.Clone(columns), Staged: staged}, nil
}

// HasColumn reports whether the reference declares the named column.
func (r TableRef) HasColumn(name string) bool {
	return slices.Contains(r.Columns, name)
}
