package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quarry/internal/ir"
)

func twoRows() *Table {
	t := New("name", "score")
	t.MustAddRow(ir.String("alice"), ir.Float(0.9))
	t.MustAddRow(ir.String("bob"), ir.Float(0.5))
	return t
}

func TestAddRow_ArityMismatch(t *testing.T) {
	tab := New("a", "b")
	err := tab.AddRow(ir.Int(1))
	assert.Error(t, err)
}

func TestGet_OutOfRange(t *testing.T) {
	tab := twoRows()
	assert.Equal(t, ir.Null{}, tab.Get(5, "name"))
	assert.Equal(t, ir.Null{}, tab.Get(0, "missing"))
	assert.Equal(t, ir.String("alice"), tab.Get(0, "name"))
}

func TestClone_Independent(t *testing.T) {
	tab := twoRows()
	cl := tab.Clone()
	cl.Rows[0][0] = ir.String("mallory")
	cl.Columns[1] = "renamed"

	assert.Equal(t, ir.String("alice"), tab.Rows[0][0])
	assert.Equal(t, "score", tab.Columns[1])
}

func TestRowMap(t *testing.T) {
	tab := twoRows()
	m := tab.RowMap(1)
	assert.Equal(t, ir.String("bob"), m["name"])
	assert.Equal(t, ir.Float(0.5), m["score"])
}

func TestEqualRows_OrderSensitive(t *testing.T) {
	a := twoRows()
	b := twoRows()
	require.True(t, EqualRows(a, b))

	// Swap rows: multiset-equal but not row-equal.
	b.Rows[0], b.Rows[1] = b.Rows[1], b.Rows[0]
	assert.False(t, EqualRows(a, b))
	assert.True(t, EqualMultiset(a, b))
}

func TestEqualMultiset_CountsDuplicates(t *testing.T) {
	a := New("x")
	a.MustAddRow(ir.Int(1))
	a.MustAddRow(ir.Int(1))
	a.MustAddRow(ir.Int(2))

	b := New("x")
	b.MustAddRow(ir.Int(1))
	b.MustAddRow(ir.Int(2))
	b.MustAddRow(ir.Int(2))

	assert.False(t, EqualMultiset(a, b))
}

func TestEqualMultiset_ColumnMismatch(t *testing.T) {
	a := New("x")
	b := New("y")
	assert.False(t, EqualMultiset(a, b))
}

func TestPretty_Alignment(t *testing.T) {
	tab := twoRows()
	out := tab.Pretty()
	assert.Contains(t, out, "name")
	assert.Contains(t, out, `"alice"`)
}
