package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quarry/internal/ir"
	"github.com/roach88/quarry/internal/plan"
	"github.com/roach88/quarry/internal/planmem"
	"github.com/roach88/quarry/internal/plansql"
	"github.com/roach88/quarry/internal/schema"
	"github.com/roach88/quarry/internal/tabular"
)

func openTest(t *testing.T) *SQLite {
	t.Helper()
	b, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func offersRef(t *testing.T) schema.TableRef {
	t.Helper()
	ref, err := schema.NewTableRef("offers",
		[]string{"user_name", "product", "predicted_offer_affinity"})
	require.NoError(t, err)
	return ref
}

func offersTable() *tabular.Table {
	tab := tabular.New("user_name", "product", "predicted_offer_affinity")
	tab.MustAddRow(ir.String("alice"), ir.String("hat"), ir.Float(0.9))
	tab.MustAddRow(ir.String("bob"), ir.String("hat"), ir.Float(0.3))
	tab.MustAddRow(ir.String("alice"), ir.String("mug"), ir.Float(0.7))
	tab.MustAddRow(ir.String("bob"), ir.String("mug"), ir.Float(0.8))
	tab.MustAddRow(ir.String("alice"), ir.String("pen"), ir.Float(0.4))
	tab.MustAddRow(ir.String("bob"), ir.String("pen"), ir.Float(0.6))
	return tab
}

// rankTopTwo ends with an order_by so both backends produce a fully
// determined row order.
func rankTopTwo(t *testing.T) plan.Pipeline {
	t.Helper()
	p := plan.FromTable(offersRef(t))
	p, err := p.Extend("simple_rank", plan.WindowRank{}, &plan.WindowSpec{
		PartitionBy: []string{"user_name"},
		OrderBy:     []plan.OrderColumn{{Column: "predicted_offer_affinity", Dir: plan.Desc}},
	})
	require.NoError(t, err)
	p, err = p.SelectRows(plan.Compare{
		Op:    plan.CmpLe,
		Left:  plan.ColRef{Name: "simple_rank"},
		Right: plan.Literal{Value: ir.Int(2)},
	})
	require.NoError(t, err)
	p, err = p.OrderBy(
		plan.OrderColumn{Column: "user_name"},
		plan.OrderColumn{Column: "simple_rank"},
	)
	require.NoError(t, err)
	return p
}

func TestLoadReadRoundTrip(t *testing.T) {
	b := openTest(t)
	ctx := context.Background()
	ref := offersRef(t)
	src := offersTable()

	require.NoError(t, b.LoadTable(ctx, ref, src))
	got, err := b.ReadTable(ctx, ref)
	require.NoError(t, err)

	assert.True(t, tabular.EqualRows(src, got))
}

func TestOpen_FileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quarry.db")
	b, err := Open(path)
	require.NoError(t, err)
	defer b.Close()

	ref, err := schema.NewTableRef("t", []string{"a"})
	require.NoError(t, err)
	tab := tabular.New("a")
	tab.MustAddRow(ir.Int(42))
	require.NoError(t, b.LoadTable(context.Background(), ref, tab))

	got, err := b.ReadTable(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, ir.Int(42), got.Get(0, "a"))
}

func TestSendStatement_SelectRows(t *testing.T) {
	b := openTest(t)
	ctx := context.Background()
	require.NoError(t, b.LoadTable(ctx, offersRef(t), offersTable()))

	got, err := b.SendStatement(ctx,
		"SELECT user_name FROM offers WHERE predicted_offer_affinity > 0.6 ORDER BY user_name")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, 2, got.NumRows())
	assert.Equal(t, ir.String("alice"), got.Get(0, "user_name"))
	assert.Equal(t, ir.String("bob"), got.Get(1, "user_name"))
}

func TestBackendParity_OrderedPipeline(t *testing.T) {
	// The same pipeline, interpreted in memory and executed as compiled SQL
	// against SQLite, yields identical rows in identical order when the
	// chain ends with an order_by on a total key.
	p := rankTopTwo(t)
	src := offersTable()

	want, err := planmem.Interpret(p, src)
	require.NoError(t, err)

	b := openTest(t)
	ctx := context.Background()
	require.NoError(t, b.LoadTable(ctx, p.Source(), src))

	sqlText, err := plansql.Compile(p, plansql.Config{Dialect: plansql.DialectReference})
	require.NoError(t, err)
	got, err := b.SendStatement(ctx, sqlText)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.True(t, tabular.EqualRows(want, got),
		"in-memory:\n%s\nsqlite:\n%s", want.Pretty(), got.Pretty())
}

func TestBackendParity_UnorderedPipeline(t *testing.T) {
	// Without a terminal order_by the SQL backend guarantees no row order;
	// compare as multisets.
	p := plan.FromTable(offersRef(t))
	p, err := p.Extend("simple_rank", plan.WindowRank{}, &plan.WindowSpec{
		PartitionBy: []string{"user_name"},
		OrderBy:     []plan.OrderColumn{{Column: "predicted_offer_affinity", Dir: plan.Desc}},
	})
	require.NoError(t, err)
	p, err = p.SelectRows(plan.Compare{
		Op:    plan.CmpEq,
		Left:  plan.ColRef{Name: "simple_rank"},
		Right: plan.Literal{Value: ir.Int(1)},
	})
	require.NoError(t, err)

	src := offersTable()
	want, err := planmem.Interpret(p, src)
	require.NoError(t, err)

	b := openTest(t)
	ctx := context.Background()
	require.NoError(t, b.LoadTable(ctx, p.Source(), src))

	sqlText, err := plansql.Compile(p, plansql.Config{Dialect: plansql.DialectReference})
	require.NoError(t, err)
	got, err := b.SendStatement(ctx, sqlText)
	require.NoError(t, err)

	assert.True(t, tabular.EqualMultiset(want, got))
}

func TestMaterialize_CreatesReadableTable(t *testing.T) {
	p := rankTopTwo(t)
	p, err := p.Materialize("top_offers")
	require.NoError(t, err)

	b := openTest(t)
	ctx := context.Background()
	require.NoError(t, b.LoadTable(ctx, p.Source(), offersTable()))

	sqlText, err := plansql.Compile(p, plansql.Config{Dialect: plansql.DialectReference})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(sqlText, "CREATE TABLE top_offers AS "))

	// DDL returns no rows; the result lands in the named table.
	got, err := b.SendStatement(ctx, sqlText)
	require.NoError(t, err)
	assert.Nil(t, got)

	ref, err := schema.NewTableRef("top_offers", p.OutputColumns())
	require.NoError(t, err)
	stored, err := b.ReadTable(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.NumRows())
	assert.Equal(t,
		[]string{"user_name", "product", "predicted_offer_affinity", "simple_rank"},
		stored.Columns)
}

func TestStageTable(t *testing.T) {
	b := openTest(t)
	ctx := context.Background()

	ref, err := b.StageTable(ctx, "offers", offersTable())
	require.NoError(t, err)
	assert.True(t, ref.Staged)
	assert.True(t, strings.HasPrefix(ref.Name, "offers_stage_"))

	got, err := b.ReadTable(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, 6, got.NumRows())

	// A second stage of the same base name must not collide.
	ref2, err := b.StageTable(ctx, "offers", offersTable())
	require.NoError(t, err)
	assert.NotEqual(t, ref.Name, ref2.Name)
}

func TestScanValue_NullRoundTrip(t *testing.T) {
	b := openTest(t)
	ctx := context.Background()

	ref, err := schema.NewTableRef("t", []string{"a", "b"})
	require.NoError(t, err)
	tab := tabular.New("a", "b")
	tab.MustAddRow(ir.Null{}, ir.String("x"))
	require.NoError(t, b.LoadTable(ctx, ref, tab))

	got, err := b.ReadTable(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, ir.Null{}, got.Get(0, "a"))
	assert.Equal(t, ir.String("x"), got.Get(0, "b"))
}
