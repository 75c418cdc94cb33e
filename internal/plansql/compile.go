// Package plansql lowers a pipeline into a single SQL statement for a
// target dialect.
//
// The compiler walks the operator chain from the source outward, emitting
// each node as a nested subquery (SELECT ... FROM (<inner>) AS q<N>).
// Nesting is required because SQL cannot generally filter on a column
// generated at the same SELECT level: an extend followed by a row filter
// must appear as an outer WHERE over an inner windowed SELECT.
//
// Output is deterministic text for a given pipeline and config.
package plansql

import (
	"fmt"
	"strings"

	"github.com/roach88/quarry/internal/ir"
	"github.com/roach88/quarry/internal/plan"
)

// Compile lowers a pipeline into one SQL statement whose evaluation against
// the declared backend reproduces the pipeline's relational semantics.
func Compile(p plan.Pipeline, cfg Config) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	nodes := p.Nodes()
	if err := checkOrderingOutermost(nodes); err != nil {
		return "", err
	}

	var sql string
	for i, n := range nodes {
		switch node := n.(type) {
		case plan.Source:
			sql = "SELECT " + identList(node.OutputColumns(), cfg) +
				" FROM " + cfg.ident(node.Ref.Name)

		case plan.Extend:
			sel, err := extendSelectList(node, cfg, i)
			if err != nil {
				return "", err
			}
			sql = fmt.Sprintf("SELECT %s FROM (%s) AS q%d", sel, sql, i)

		case plan.SelectRows:
			pred, err := exprSQL(node.Pred, cfg, i)
			if err != nil {
				return "", err
			}
			sql = fmt.Sprintf("SELECT %s FROM (%s) AS q%d WHERE %s",
				identList(node.OutputColumns(), cfg), sql, i, pred)

		case plan.OrderBy:
			sql = fmt.Sprintf("SELECT %s FROM (%s) AS q%d ORDER BY %s",
				identList(node.OutputColumns(), cfg), sql, i, orderSQL(node.Columns, cfg))

		case plan.Materialize:
			sql = "CREATE TABLE " + cfg.ident(node.TableName) + " AS " + sql

		default:
			return "", &CompileError{
				Code:     ErrCodeUnsupportedExpression,
				Message:  fmt.Sprintf("unsupported node kind %q", n.Kind()),
				Position: i,
			}
		}
	}
	return sql, nil
}

// checkOrderingOutermost rejects chains where an order-by is wrapped by
// anything other than the terminal materialize marker, since SQL gives no
// ordering guarantee through further nesting.
func checkOrderingOutermost(nodes []plan.Node) error {
	for i, n := range nodes {
		if _, ok := n.(plan.OrderBy); !ok {
			continue
		}
		for _, above := range nodes[i+1:] {
			if _, isMat := above.(plan.Materialize); !isMat {
				return &CompileError{
					Code:     ErrCodeOrderingNotOutermost,
					Message:  "order-by must be the outermost non-terminal node",
					Position: i,
				}
			}
		}
	}
	return nil
}

// extendSelectList emits the select list of an extend node: every upstream
// column, with the extended column's expression replacing it in place on
// overwrite or appended when new.
func extendSelectList(node plan.Extend, cfg Config, pos int) (string, error) {
	expr, err := extendExprSQL(node, cfg, pos)
	if err != nil {
		return "", err
	}
	computed := expr + " AS " + cfg.ident(node.Column)

	parts := make([]string, 0, len(node.OutputColumns()))
	for _, c := range node.OutputColumns() {
		if c == node.Column {
			parts = append(parts, computed)
		} else {
			parts = append(parts, cfg.ident(c))
		}
	}
	return strings.Join(parts, ", "), nil
}

func extendExprSQL(node plan.Extend, cfg Config, pos int) (string, error) {
	rank, isRank := node.Expr.(plan.WindowRank)
	if !isRank {
		return exprSQL(node.Expr, cfg, pos)
	}

	fn, err := rankFunc(rank, cfg, pos)
	if err != nil {
		return "", err
	}

	var over strings.Builder
	over.WriteString(fn)
	over.WriteString(" OVER (")
	if len(node.Window.PartitionBy) > 0 {
		over.WriteString("PARTITION BY ")
		over.WriteString(identList(node.Window.PartitionBy, cfg))
		over.WriteString(" ")
	}
	over.WriteString("ORDER BY ")
	over.WriteString(orderSQL(node.Window.OrderBy, cfg))
	over.WriteString(")")
	return over.String(), nil
}

// rankFunc maps a tie policy to the dialect's window function. The
// reference dialect guarantees dense ties only; gap-ties ranking needs the
// extended-window-ties dialect.
func rankFunc(rank plan.WindowRank, cfg Config, pos int) (string, error) {
	switch rank.Ties {
	case plan.TiesDense:
		return "DENSE_RANK()", nil
	case plan.TiesSkip:
		if cfg.Dialect != DialectExtendedWindowTies {
			return "", &CompileError{
				Code:     ErrCodeDialectMismatch,
				Message:  fmt.Sprintf("gap-ties ranking is not expressible in dialect %q", cfg.Dialect),
				Position: pos,
			}
		}
		return "RANK()", nil
	default:
		return "", &CompileError{
			Code:     ErrCodeUnsupportedExpression,
			Message:  fmt.Sprintf("unknown tie policy %d", rank.Ties),
			Position: pos,
		}
	}
}

func exprSQL(e plan.Expr, cfg Config, pos int) (string, error) {
	switch x := e.(type) {
	case plan.ColRef:
		return cfg.ident(x.Name), nil
	case plan.Literal:
		return ir.SQLLiteral(x.Value), nil
	case plan.Compare:
		return binarySQL(string(x.Op), x.Left, x.Right, cfg, pos)
	case plan.Arith:
		return binarySQL(string(x.Op), x.Left, x.Right, cfg, pos)
	case plan.WindowRank:
		// Defense in depth: the builder rejects nested window functions.
		return "", &CompileError{
			Code:     ErrCodeUnsupportedExpression,
			Message:  "window function outside a windowed extend",
			Position: pos,
		}
	default:
		return "", &CompileError{
			Code:     ErrCodeUnsupportedExpression,
			Message:  fmt.Sprintf("unknown expression type %T", e),
			Position: pos,
		}
	}
}

func binarySQL(op string, left, right plan.Expr, cfg Config, pos int) (string, error) {
	l, err := exprSQL(left, cfg, pos)
	if err != nil {
		return "", err
	}
	r, err := exprSQL(right, cfg, pos)
	if err != nil {
		return "", err
	}
	return "(" + l + " " + op + " " + r + ")", nil
}

func identList(names []string, cfg Config) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = cfg.ident(n)
	}
	return strings.Join(parts, ", ")
}

func orderSQL(cols []plan.OrderColumn, cfg Config) string {
	parts := make([]string, len(cols))
	for i, oc := range cols {
		dir := " ASC"
		if oc.Dir == plan.Desc {
			dir = " DESC"
		}
		parts[i] = cfg.ident(oc.Column) + dir
	}
	return strings.Join(parts, ", ")
}
