package plan

import (
	"strings"

	"github.com/roach88/quarry/internal/ir"
)

// Expr represents an expression in the plan IR.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in the SQL compiler and the interpreter.
//
// Expression types:
//   - ColRef: reference to an upstream column
//   - Literal: constant value
//   - Compare: binary comparison producing a boolean
//   - Arith: binary arithmetic producing a number (or string for +)
//   - WindowRank: ranking window function, valid only at the top level of
//     an extend paired with a window specification
//
// The set is deliberately closed so both backends can pattern-match
// exhaustively without a shared interpreter for arbitrary host code.
type Expr interface {
	exprNode() // Marker method - seals interface to this package
}

// ColRef references a column of the upstream output set by name.
type ColRef struct {
	Name string
}

func (ColRef) exprNode() {}

// Literal is a constant value.
type Literal struct {
	Value ir.Value
}

func (Literal) exprNode() {}

// CmpOp enumerates comparison operators. The values are the canonical
// render forms, which coincide with the reference SQL dialect.
type CmpOp string

const (
	CmpEq CmpOp = "="
	CmpNe CmpOp = "!="
	CmpLt CmpOp = "<"
	CmpLe CmpOp = "<="
	CmpGt CmpOp = ">"
	CmpGe CmpOp = ">="
)

// Compare is a binary comparison over two sub-expressions.
type Compare struct {
	Op    CmpOp
	Left  Expr
	Right Expr
}

func (Compare) exprNode() {}

// ArithOp enumerates arithmetic operators.
type ArithOp string

const (
	ArithAdd ArithOp = "+"
	ArithSub ArithOp = "-"
	ArithMul ArithOp = "*"
	ArithDiv ArithOp = "/"
)

// Arith is a binary arithmetic expression over two sub-expressions.
type Arith struct {
	Op    ArithOp
	Left  Expr
	Right Expr
}

func (Arith) exprNode() {}

// TiePolicy selects how a ranking window function treats tied rows.
type TiePolicy int

const (
	// TiesDense gives tied rows the same rank; the next distinct value
	// increments the rank by exactly one (SQL DENSE_RANK).
	TiesDense TiePolicy = iota

	// TiesSkip gives tied rows the same rank; the next distinct value
	// skips the tied count (SQL RANK).
	TiesSkip
)

// WindowRank is the ranking window function. Within each partition, rows
// are ordered by the window's order key and assigned 1-based ranks per the
// tie policy.
type WindowRank struct {
	Ties TiePolicy
}

func (WindowRank) exprNode() {}

// Direction is the sort direction of one ordering column.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// OrderColumn pairs a column name with a sort direction.
type OrderColumn struct {
	Column string
	Dir    Direction
}

// WindowSpec is the partition/order metadata attached to a ranking
// computation: an ordered partition key defining groups and an ordered,
// directed order key defining within-group order.
type WindowSpec struct {
	PartitionBy []string
	OrderBy     []OrderColumn
}

// ExprColumns returns the column names referenced anywhere in an
// expression, in first-appearance order without duplicates.
func ExprColumns(e Expr) []string {
	var out []string
	seen := map[string]struct{}{}
	var walk func(Expr)
	walk = func(e Expr) {
		switch x := e.(type) {
		case ColRef:
			if _, ok := seen[x.Name]; !ok {
				seen[x.Name] = struct{}{}
				out = append(out, x.Name)
			}
		case Compare:
			walk(x.Left)
			walk(x.Right)
		case Arith:
			walk(x.Left)
			walk(x.Right)
		}
	}
	walk(e)
	return out
}

// containsRank reports whether a window rank appears anywhere in e.
func containsRank(e Expr) bool {
	switch x := e.(type) {
	case WindowRank:
		return true
	case Compare:
		return containsRank(x.Left) || containsRank(x.Right)
	case Arith:
		return containsRank(x.Left) || containsRank(x.Right)
	default:
		return false
	}
}

// RenderExpr produces the canonical textual form of an expression.
// The output is deterministic and used verbatim in canonical plan text.
func RenderExpr(e Expr) string {
	switch x := e.(type) {
	case ColRef:
		return x.Name
	case Literal:
		return ir.Canonical(x.Value)
	case Compare:
		return "(" + RenderExpr(x.Left) + " " + string(x.Op) + " " + RenderExpr(x.Right) + ")"
	case Arith:
		return "(" + RenderExpr(x.Left) + " " + string(x.Op) + " " + RenderExpr(x.Right) + ")"
	case WindowRank:
		if x.Ties == TiesSkip {
			return "rank()"
		}
		return "dense_rank()"
	default:
		return "<unknown>"
	}
}

// RenderWindow produces the canonical textual form of a window
// specification: "partition by a, b order by c desc, d". The partition
// clause is omitted when the partition list is empty.
func RenderWindow(w WindowSpec) string {
	var sb strings.Builder
	if len(w.PartitionBy) > 0 {
		sb.WriteString("partition by ")
		sb.WriteString(strings.Join(w.PartitionBy, ", "))
		sb.WriteString(" ")
	}
	sb.WriteString("order by ")
	sb.WriteString(renderOrderColumns(w.OrderBy))
	return sb.String()
}

func renderOrderColumns(cols []OrderColumn) string {
	parts := make([]string, len(cols))
	for i, oc := range cols {
		parts[i] = oc.Column
		if oc.Dir == Desc {
			parts[i] += " desc"
		}
	}
	return strings.Join(parts, ", ")
}
