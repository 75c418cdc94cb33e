// Package planmem executes a pipeline directly over an in-memory table,
// node by node, producing results identical in logical content to what the
// compiled SQL statement yields against the same source data.
//
// The interpreter never mutates the caller's snapshot; every node derives a
// new table, so independent pipelines can be evaluated concurrently over
// the same source.
package planmem

import (
	"sort"
	"strings"

	"github.com/roach88/quarry/internal/ir"
	"github.com/roach88/quarry/internal/plan"
	"github.com/roach88/quarry/internal/tabular"
)

// RowOrder selects what happens to row order after a windowed extend.
// SQL backends give no guarantee absent an explicit order-by, so the choice
// is configuration, not contract.
type RowOrder int

const (
	// OrderPartitionGrouped emits partitions in first-seen input order,
	// rows within a partition sorted by the window order key.
	OrderPartitionGrouped RowOrder = iota

	// OrderInputStable assigns ranks but leaves rows in input order.
	OrderInputStable
)

// Interpreter evaluates pipelines over in-memory tables.
// The zero value uses OrderPartitionGrouped.
type Interpreter struct {
	RowOrder RowOrder
}

// Interpret runs a pipeline over src with default options.
func Interpret(p plan.Pipeline, src *tabular.Table) (*tabular.Table, error) {
	return (&Interpreter{}).Run(p, src)
}

// Run evaluates the pipeline node by node and returns a new table.
// The input table is never mutated.
func (in *Interpreter) Run(p plan.Pipeline, src *tabular.Table) (*tabular.Table, error) {
	cur := src
	for i, n := range p.Nodes() {
		var err error
		switch node := n.(type) {
		case plan.Source:
			cur, err = projectSource(node, cur, i)
		case plan.Extend:
			cur, err = in.execExtend(node, cur, i)
		case plan.SelectRows:
			cur, err = execSelectRows(node, cur, i)
		case plan.OrderBy:
			cur, err = execOrderBy(node, cur)
		case plan.Materialize:
			// Persistence is meaningful only for the SQL backend.
		}
		if err != nil {
			return nil, err
		}
	}
	return cur, nil
}

// projectSource narrows the caller's snapshot to the declared columns in
// declared order, copying rows so later nodes never touch the input.
func projectSource(node plan.Source, src *tabular.Table, pos int) (*tabular.Table, error) {
	idx := make([]int, len(node.Ref.Columns))
	for i, c := range node.Ref.Columns {
		j := src.ColIndex(c)
		if j < 0 {
			return nil, &EvalError{
				Code:     ErrCodeUnknownColumn,
				Message:  "source table lacks declared column " + c,
				Position: pos,
				Row:      -1,
			}
		}
		idx[i] = j
	}
	out := tabular.New(node.Ref.Columns...)
	for _, r := range src.Rows {
		row := make(tabular.Row, len(idx))
		for i, j := range idx {
			row[i] = r[j]
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

func (in *Interpreter) execExtend(node plan.Extend, t *tabular.Table, pos int) (*tabular.Table, error) {
	if _, isRank := node.Expr.(plan.WindowRank); isRank {
		return in.execWindowExtend(node, t, pos)
	}

	out := withColumn(t, node.Column)
	ci := out.ColIndex(node.Column)
	for ri := range out.Rows {
		v, err := evalExpr(node.Expr, t, ri, pos)
		if err != nil {
			return nil, err
		}
		out.Rows[ri][ci] = v
	}
	return out, nil
}

// execWindowExtend groups rows by partition key (order-preserving on first
// appearance), sorts each group by the order key, assigns ranks per the tie
// policy, then emits rows per the configured RowOrder.
func (in *Interpreter) execWindowExtend(node plan.Extend, t *tabular.Table, pos int) (*tabular.Table, error) {
	rank := node.Expr.(plan.WindowRank)
	w := node.Window

	partIdx, err := columnIndexes(t, w.PartitionBy, pos)
	if err != nil {
		return nil, err
	}

	// Partition rows, retaining first-seen partition order.
	var keys []string
	groups := map[string][]int{}
	for ri := range t.Rows {
		key := partitionKey(t.Rows[ri], partIdx)
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], ri)
	}

	ranks := make([]int, len(t.Rows))
	var grouped []int
	for _, key := range keys {
		idxs := append([]int(nil), groups[key]...)
		sortIndexes(t, idxs, w.OrderBy)
		assignRanks(t, idxs, w.OrderBy, rank.Ties, ranks)
		grouped = append(grouped, idxs...)
	}

	order := grouped
	if in.RowOrder == OrderInputStable {
		order = make([]int, len(t.Rows))
		for i := range order {
			order[i] = i
		}
	}

	out := withColumnEmpty(t, node.Column)
	ci := out.ColIndex(node.Column)
	for _, ri := range order {
		row := make(tabular.Row, len(out.Columns))
		for i, c := range out.Columns {
			if i == ci && c == node.Column {
				row[i] = ir.Int(ranks[ri])
				continue
			}
			row[i] = t.Rows[ri][t.ColIndex(c)]
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

func execSelectRows(node plan.SelectRows, t *tabular.Table, pos int) (*tabular.Table, error) {
	out := tabular.New(t.Columns...)
	for ri := range t.Rows {
		v, err := evalExpr(node.Pred, t, ri, pos)
		if err != nil {
			return nil, err
		}
		keep, ok := ir.AsBool(v)
		if !ok && !ir.IsNull(v) {
			return nil, typeMismatch(pos, ri, "predicate produced %s, want bool", ir.KindOf(v))
		}
		if keep {
			out.Rows = append(out.Rows, append(tabular.Row(nil), t.Rows[ri]...))
		}
	}
	return out, nil
}

func execOrderBy(node plan.OrderBy, t *tabular.Table) (*tabular.Table, error) {
	out := t.Clone()
	idxs := make([]int, len(out.Rows))
	for i := range idxs {
		idxs[i] = i
	}
	sortIndexes(t, idxs, node.Columns)
	for i, ri := range idxs {
		out.Rows[i] = append(tabular.Row(nil), t.Rows[ri]...)
	}
	return out, nil
}

// sortIndexes stably sorts row indexes by the given columns/directions.
func sortIndexes(t *tabular.Table, idxs []int, cols []plan.OrderColumn) {
	ci := make([]int, len(cols))
	for i, oc := range cols {
		ci[i] = t.ColIndex(oc.Column)
	}
	sort.SliceStable(idxs, func(a, b int) bool {
		for i, oc := range cols {
			cmp := ir.Compare(t.Rows[idxs[a]][ci[i]], t.Rows[idxs[b]][ci[i]])
			if cmp != 0 {
				if oc.Dir == plan.Desc {
					return cmp > 0
				}
				return cmp < 0
			}
		}
		return false
	})
}

// assignRanks walks a sorted partition and writes 1-based ranks into the
// shared ranks slice. Ties share a rank; the next distinct order-key value
// gets previous+1 under dense ties, or its ordinal position under skip
// ties.
func assignRanks(t *tabular.Table, sorted []int, cols []plan.OrderColumn, ties plan.TiePolicy, ranks []int) {
	cur := 1
	for i, ri := range sorted {
		if i > 0 && !sameOrderKey(t, sorted[i-1], ri, cols) {
			if ties == plan.TiesSkip {
				cur = i + 1
			} else {
				cur++
			}
		}
		ranks[ri] = cur
	}
}

func sameOrderKey(t *tabular.Table, a, b int, cols []plan.OrderColumn) bool {
	for _, oc := range cols {
		ci := t.ColIndex(oc.Column)
		if ir.Compare(t.Rows[a][ci], t.Rows[b][ci]) != 0 {
			return false
		}
	}
	return true
}

func partitionKey(row tabular.Row, idx []int) string {
	parts := make([]string, len(idx))
	for i, j := range idx {
		parts[i] = ir.Canonical(row[j])
	}
	return strings.Join(parts, "\x00")
}

func columnIndexes(t *tabular.Table, names []string, pos int) ([]int, error) {
	out := make([]int, len(names))
	for i, c := range names {
		j := t.ColIndex(c)
		if j < 0 {
			return nil, &EvalError{
				Code:     ErrCodeUnknownColumn,
				Message:  "column " + c + " not found",
				Position: pos,
				Row:      -1,
			}
		}
		out[i] = j
	}
	return out, nil
}

// withColumn clones t and ensures the named column exists, copying existing
// cell values (overwrites keep the column position).
func withColumn(t *tabular.Table, column string) *tabular.Table {
	out := t.Clone()
	if out.ColIndex(column) >= 0 {
		return out
	}
	out.Columns = append(out.Columns, column)
	for i := range out.Rows {
		out.Rows[i] = append(out.Rows[i], ir.Null{})
	}
	return out
}

// withColumnEmpty builds the output shape for a windowed extend without
// copying rows.
func withColumnEmpty(t *tabular.Table, column string) *tabular.Table {
	cols := append([]string(nil), t.Columns...)
	if t.ColIndex(column) < 0 {
		cols = append(cols, column)
	}
	return tabular.New(cols...)
}

// evalExpr evaluates an expression against one row.
func evalExpr(e plan.Expr, t *tabular.Table, row, pos int) (ir.Value, error) {
	switch x := e.(type) {
	case plan.ColRef:
		ci := t.ColIndex(x.Name)
		if ci < 0 {
			return nil, &EvalError{
				Code:     ErrCodeUnknownColumn,
				Message:  "column " + x.Name + " not found",
				Position: pos,
				Row:      row,
			}
		}
		return t.Rows[row][ci], nil

	case plan.Literal:
		return x.Value, nil

	case plan.Compare:
		return evalCompare(x, t, row, pos)

	case plan.Arith:
		return evalArith(x, t, row, pos)

	case plan.WindowRank:
		// Defense in depth: the builder confines ranks to windowed extends.
		return nil, typeMismatch(pos, row, "window function in row expression")

	default:
		return nil, typeMismatch(pos, row, "unknown expression type %T", e)
	}
}

// evalCompare matches SQL three-valued logic closely enough for parity:
// any comparison touching null yields false, so filtered rows agree with
// the SQL backend's WHERE semantics.
func evalCompare(x plan.Compare, t *tabular.Table, row, pos int) (ir.Value, error) {
	left, err := evalExpr(x.Left, t, row, pos)
	if err != nil {
		return nil, err
	}
	right, err := evalExpr(x.Right, t, row, pos)
	if err != nil {
		return nil, err
	}
	if ir.IsNull(left) || ir.IsNull(right) {
		return ir.Bool(false), nil
	}
	if !comparableKinds(left, right) {
		return nil, typeMismatch(pos, row, "cannot compare %s with %s", ir.KindOf(left), ir.KindOf(right))
	}

	cmp := ir.Compare(left, right)
	switch x.Op {
	case plan.CmpEq:
		return ir.Bool(cmp == 0), nil
	case plan.CmpNe:
		return ir.Bool(cmp != 0), nil
	case plan.CmpLt:
		return ir.Bool(cmp < 0), nil
	case plan.CmpLe:
		return ir.Bool(cmp <= 0), nil
	case plan.CmpGt:
		return ir.Bool(cmp > 0), nil
	case plan.CmpGe:
		return ir.Bool(cmp >= 0), nil
	default:
		return nil, typeMismatch(pos, row, "unknown comparison operator %q", string(x.Op))
	}
}

func comparableKinds(a, b ir.Value) bool {
	if ir.KindOf(a) == ir.KindOf(b) {
		return true
	}
	_, aNum := ir.AsFloat(a)
	_, bNum := ir.AsFloat(b)
	return aNum && bNum
}

// evalArith propagates null and divides by zero to null, matching the
// reference backend.
func evalArith(x plan.Arith, t *tabular.Table, row, pos int) (ir.Value, error) {
	left, err := evalExpr(x.Left, t, row, pos)
	if err != nil {
		return nil, err
	}
	right, err := evalExpr(x.Right, t, row, pos)
	if err != nil {
		return nil, err
	}
	if ir.IsNull(left) || ir.IsNull(right) {
		return ir.Null{}, nil
	}

	lf, lok := ir.AsFloat(left)
	rf, rok := ir.AsFloat(right)
	if !lok || !rok {
		return nil, typeMismatch(pos, row, "cannot apply %s to %s and %s",
			string(x.Op), ir.KindOf(left), ir.KindOf(right))
	}

	_, lInt := left.(ir.Int)
	_, rInt := right.(ir.Int)
	bothInt := lInt && rInt

	switch x.Op {
	case plan.ArithAdd:
		return numeric(lf+rf, bothInt), nil
	case plan.ArithSub:
		return numeric(lf-rf, bothInt), nil
	case plan.ArithMul:
		return numeric(lf*rf, bothInt), nil
	case plan.ArithDiv:
		if rf == 0 {
			return ir.Null{}, nil
		}
		if bothInt {
			// Integer division, as the reference backend performs on
			// integer operands.
			return ir.Int(int64(lf) / int64(rf)), nil
		}
		return ir.Float(lf / rf), nil
	default:
		return nil, typeMismatch(pos, row, "unknown arithmetic operator %q", string(x.Op))
	}
}

func numeric(f float64, wantInt bool) ir.Value {
	if wantInt {
		return ir.Int(int64(f))
	}
	return ir.Float(f)
}
