package plan

import (
	"slices"

	"github.com/roach88/quarry/internal/schema"
)

// Node represents one relational transformation step plus a reference to
// its upstream node.
//
// This is a sealed interface - only types in this package implement it.
// Nodes are immutable once constructed; composition always wraps, never
// mutates.
//
// Node types:
//   - Source: the table reference a chain is rooted at
//   - Extend: adds/overwrites a computed column, optionally windowed
//   - SelectRows: filters rows by a boolean predicate
//   - OrderBy: imposes ordering over named columns
//   - Materialize: terminal marker requesting persistence under a new name
type Node interface {
	// Kind returns the canonical node kind name used in plan text.
	Kind() string

	// Input returns the upstream node, or nil for a Source.
	Input() Node

	// OutputColumns returns the ordered column names this node produces.
	OutputColumns() []string

	node() // Marker method - seals interface to this package
}

// Source roots a chain at a table reference. It produces exactly the
// reference's declared columns.
type Source struct {
	Ref schema.TableRef
}

func (Source) node() {}

// Kind implements Node.
func (Source) Kind() string { return "table" }

// Input implements Node. A source has no upstream.
func (Source) Input() Node { return nil }

// OutputColumns implements Node.
func (s Source) OutputColumns() []string { return slices.Clone(s.Ref.Columns) }

// Extend adds or overwrites a named column computed from an expression over
// existing columns and, when ranking, a window specification.
type Extend struct {
	in     Node
	Column string
	Expr   Expr
	Window *WindowSpec
	out    []string
}

func (Extend) node() {}

// Kind implements Node.
func (Extend) Kind() string { return "extend" }

// Input implements Node.
func (e Extend) Input() Node { return e.in }

// OutputColumns implements Node: the upstream columns plus the extended
// column (appended when new, kept in place when overwritten).
func (e Extend) OutputColumns() []string { return slices.Clone(e.out) }

// SelectRows filters rows by a boolean predicate over existing columns.
type SelectRows struct {
	in   Node
	Pred Expr
}

func (SelectRows) node() {}

// Kind implements Node.
func (SelectRows) Kind() string { return "select_rows" }

// Input implements Node.
func (s SelectRows) Input() Node { return s.in }

// OutputColumns implements Node: filtering never changes the column set.
func (s SelectRows) OutputColumns() []string { return s.in.OutputColumns() }

// OrderBy imposes an ordering over a named sequence of columns, each
// ascending or descending.
type OrderBy struct {
	in      Node
	Columns []OrderColumn
}

func (OrderBy) node() {}

// Kind implements Node.
func (OrderBy) Kind() string { return "order_by" }

// Input implements Node.
func (o OrderBy) Input() Node { return o.in }

// OutputColumns implements Node: ordering never changes the column set.
func (o OrderBy) OutputColumns() []string { return o.in.OutputColumns() }

// Materialize is the terminal marker requesting persistence of the
// pipeline's result under a new table name. It executes nothing itself.
type Materialize struct {
	in        Node
	TableName string
}

func (Materialize) node() {}

// Kind implements Node.
func (Materialize) Kind() string { return "materialize" }

// Input implements Node.
func (m Materialize) Input() Node { return m.in }

// OutputColumns implements Node.
func (m Materialize) OutputColumns() []string { return m.in.OutputColumns() }
