package plan

import (
	"slices"

	"github.com/roach88/quarry/internal/schema"
)

// Pipeline is the transitive chain from a table reference through zero or
// more operator nodes. It holds no reference to any connection, cursor, or
// live dataset, so the same value is safe to reuse across backends and
// across time. Immutable once constructed; every builder operation returns
// a new Pipeline wrapping the previous one.
type Pipeline struct {
	node Node
}

// FromTable roots a pipeline at a table reference.
func FromTable(ref schema.TableRef) Pipeline {
	return Pipeline{node: Source{Ref: ref}}
}

// Node returns the terminal node of the chain.
func (p Pipeline) Node() Node {
	return p.node
}

// Nodes returns the chain in order, source first.
func (p Pipeline) Nodes() []Node {
	var out []Node
	for n := p.node; n != nil; n = n.Input() {
		out = append(out, n)
	}
	slices.Reverse(out)
	return out
}

// Len returns the number of nodes in the chain, source included.
func (p Pipeline) Len() int {
	n := 0
	for cur := p.node; cur != nil; cur = cur.Input() {
		n++
	}
	return n
}

// Source returns the table reference the chain is rooted at.
func (p Pipeline) Source() schema.TableRef {
	nodes := p.Nodes()
	return nodes[0].(Source).Ref
}

// OutputColumns returns the ordered column names the terminal node
// produces.
func (p Pipeline) OutputColumns() []string {
	return p.node.OutputColumns()
}

// Terminated reports whether the chain ends in a materialize node.
func (p Pipeline) Terminated() bool {
	_, ok := p.node.(Materialize)
	return ok
}

// Extend returns a new pipeline with a column computed from an expression
// over existing columns and, optionally, a window specification.
//
// Fails with UNKNOWN_COLUMN if the expression or window references a column
// absent from the upstream output set, and with COLUMN_KIND_MISMATCH if a
// window specification is supplied for a non-window expression (or a window
// function lacks one). Pure - nothing is executed.
func (p Pipeline) Extend(column string, e Expr, window *WindowSpec) (Pipeline, error) {
	pos := p.Len()
	if err := p.checkOpen(pos); err != nil {
		return Pipeline{}, err
	}
	if column == "" {
		return Pipeline{}, kindMismatch(pos, "extend requires a column name")
	}

	_, isRank := e.(WindowRank)
	switch {
	case window != nil && !isRank:
		return Pipeline{}, kindMismatch(pos, "window specification supplied for a non-window expression")
	case window == nil && containsRank(e):
		return Pipeline{}, kindMismatch(pos, "window function requires a window specification")
	}

	upstream := p.node.OutputColumns()
	for _, c := range ExprColumns(e) {
		if !slices.Contains(upstream, c) {
			return Pipeline{}, unknownColumn(pos, c)
		}
	}
	if window != nil {
		if len(window.OrderBy) == 0 {
			return Pipeline{}, &BuildError{
				Code:     ErrCodeEmptyOrdering,
				Message:  "window specification requires at least one order column",
				Position: pos,
			}
		}
		for _, c := range window.PartitionBy {
			if !slices.Contains(upstream, c) {
				return Pipeline{}, unknownColumn(pos, c)
			}
		}
		for _, oc := range window.OrderBy {
			if !slices.Contains(upstream, oc.Column) {
				return Pipeline{}, unknownColumn(pos, oc.Column)
			}
		}
	}

	out := slices.Clone(upstream)
	if !slices.Contains(out, column) {
		out = append(out, column)
	}
	return Pipeline{node: Extend{
		in:     p.node,
		Column: column,
		Expr:   e,
		Window: cloneWindow(window),
		out:    out,
	}}, nil
}

// SelectRows returns a new pipeline that keeps rows whose predicate
// evaluates true.
//
// Fails with UNKNOWN_COLUMN under the same rule as Extend.
func (p Pipeline) SelectRows(pred Expr) (Pipeline, error) {
	pos := p.Len()
	if err := p.checkOpen(pos); err != nil {
		return Pipeline{}, err
	}
	if containsRank(pred) {
		return Pipeline{}, kindMismatch(pos, "window function not allowed in a row predicate")
	}
	upstream := p.node.OutputColumns()
	for _, c := range ExprColumns(pred) {
		if !slices.Contains(upstream, c) {
			return Pipeline{}, unknownColumn(pos, c)
		}
	}
	return Pipeline{node: SelectRows{in: p.node, Pred: pred}}, nil
}

// OrderBy returns a new pipeline ordered by the given columns/directions.
//
// Fails with UNKNOWN_COLUMN for undeclared columns and EMPTY_ORDERING for
// an empty column sequence.
func (p Pipeline) OrderBy(columns ...OrderColumn) (Pipeline, error) {
	pos := p.Len()
	if err := p.checkOpen(pos); err != nil {
		return Pipeline{}, err
	}
	if len(columns) == 0 {
		return Pipeline{}, &BuildError{
			Code:     ErrCodeEmptyOrdering,
			Message:  "ordering requires at least one column",
			Position: pos,
		}
	}
	upstream := p.node.OutputColumns()
	for _, oc := range columns {
		if !slices.Contains(upstream, oc.Column) {
			return Pipeline{}, unknownColumn(pos, oc.Column)
		}
	}
	return Pipeline{node: OrderBy{in: p.node, Columns: slices.Clone(columns)}}, nil
}

// Materialize returns a new pipeline wrapped in a terminal node requesting
// persistence under newTableName. It does not itself execute anything.
func (p Pipeline) Materialize(newTableName string) (Pipeline, error) {
	pos := p.Len()
	if err := p.checkOpen(pos); err != nil {
		return Pipeline{}, err
	}
	if newTableName == "" {
		return Pipeline{}, kindMismatch(pos, "materialize requires a table name")
	}
	return Pipeline{node: Materialize{in: p.node, TableName: newTableName}}, nil
}

func (p Pipeline) checkOpen(pos int) error {
	if p.node == nil {
		return &BuildError{
			Code:     ErrCodePipelineTerminated,
			Message:  "pipeline has no source table",
			Position: pos,
		}
	}
	if p.Terminated() {
		return &BuildError{
			Code:     ErrCodePipelineTerminated,
			Message:  "cannot append operators after materialize",
			Position: pos,
		}
	}
	return nil
}

func cloneWindow(w *WindowSpec) *WindowSpec {
	if w == nil {
		return nil
	}
	return &WindowSpec{
		PartitionBy: slices.Clone(w.PartitionBy),
		OrderBy:     slices.Clone(w.OrderBy),
	}
}
