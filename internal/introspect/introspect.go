// Package introspect derives static facts from a pipeline without
// executing it: the columns it produces, the source columns it consumes,
// a canonical textual rendering, and diagram data for external renderers.
package introspect

import (
	"github.com/roach88/quarry/internal/plan"
)

// OutputColumns returns the ordered column names the terminal node
// produces. Pure function of the chain, no execution.
func OutputColumns(p plan.Pipeline) []string {
	return p.OutputColumns()
}

// ColumnsUsed returns, per source table name, the minimal set of declared
// columns actually read by any node in the chain. Columns shadowed by an
// extend before first use are charged to the extension, not the source.
//
// The result is ordered by the source's declared column order and never
// contains a column absent from the declared schema.
func ColumnsUsed(p plan.Pipeline) map[string][]string {
	src := p.Source()
	declared := map[string]struct{}{}
	for _, c := range src.Columns {
		declared[c] = struct{}{}
	}

	derived := map[string]struct{}{}
	used := map[string]struct{}{}
	mark := func(cols []string) {
		for _, c := range cols {
			if _, isDerived := derived[c]; isDerived {
				continue
			}
			if _, ok := declared[c]; ok {
				used[c] = struct{}{}
			}
		}
	}

	for _, n := range p.Nodes() {
		switch node := n.(type) {
		case plan.Extend:
			mark(plan.ExprColumns(node.Expr))
			if node.Window != nil {
				mark(node.Window.PartitionBy)
				for _, oc := range node.Window.OrderBy {
					mark([]string{oc.Column})
				}
			}
			derived[node.Column] = struct{}{}
		case plan.SelectRows:
			mark(plan.ExprColumns(node.Pred))
		case plan.OrderBy:
			for _, oc := range node.Columns {
				mark([]string{oc.Column})
			}
		}
	}

	ordered := make([]string, 0, len(used))
	for _, c := range src.Columns {
		if _, ok := used[c]; ok {
			ordered = append(ordered, c)
		}
	}
	return map[string][]string{src.Name: ordered}
}
