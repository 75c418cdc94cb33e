package introspect

import (
	"fmt"
	"strings"

	"github.com/roach88/quarry/internal/plan"
)

// Render produces the canonical textual description of a chain: one line
// per node in chain order, formatted as
//
//	<index>: <kind>(<parameters>) -> columns=[<names>]
//
// The output is byte-stable across runs for structurally identical
// pipelines, suitable for diffing and golden tests.
func Render(p plan.Pipeline) string {
	var sb strings.Builder
	for i, n := range p.Nodes() {
		fmt.Fprintf(&sb, "%d: %s(%s) -> columns=[%s]\n",
			i, n.Kind(), nodeParams(n), strings.Join(n.OutputColumns(), ", "))
	}
	return sb.String()
}

// nodeParams renders the kind-specific payload of one node.
func nodeParams(n plan.Node) string {
	switch node := n.(type) {
	case plan.Source:
		if node.Ref.Staged {
			return node.Ref.Name + ", staged"
		}
		return node.Ref.Name
	case plan.Extend:
		expr := plan.RenderExpr(node.Expr)
		if node.Window != nil {
			expr += " over (" + plan.RenderWindow(*node.Window) + ")"
		}
		return node.Column + " := " + expr
	case plan.SelectRows:
		return plan.RenderExpr(node.Pred)
	case plan.OrderBy:
		parts := make([]string, len(node.Columns))
		for i, oc := range node.Columns {
			parts[i] = oc.Column
			if oc.Dir == plan.Desc {
				parts[i] += " desc"
			}
		}
		return strings.Join(parts, ", ")
	case plan.Materialize:
		return node.TableName
	default:
		return ""
	}
}
