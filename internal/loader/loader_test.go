package loader

import (
	"os"
	"path/filepath"
	"testing"

	goavro "github.com/linkedin/goavro/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quarry/internal/introspect"
	"github.com/roach88/quarry/internal/ir"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const demoPlanYAML = `table:
  name: offers
  columns: [user_name, product, predicted_offer_affinity]
ops:
  - extend:
      column: simple_rank
      expr:
        rank: {}
      over:
        partition_by: [user_name]
        order_by:
          - column: predicted_offer_affinity
            desc: true
  - select_rows:
      expr:
        cmp:
          op: "<="
          left:
            col: simple_rank
          right:
            lit: 2
  - order_by:
      columns:
        - column: user_name
        - column: simple_rank
`

func TestParsePlan_DemoDocument(t *testing.T) {
	p, err := ParsePlan([]byte(demoPlanYAML))
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"user_name", "product", "predicted_offer_affinity", "simple_rank"},
		p.OutputColumns())

	out := introspect.Render(p)
	assert.Contains(t, out,
		"extend(simple_rank := dense_rank() over (partition by user_name order by predicted_offer_affinity desc))")
	assert.Contains(t, out, "select_rows((simple_rank <= 2))")
	assert.Contains(t, out, "order_by(user_name, simple_rank)")
}

func TestLoadPlan_FromFile(t *testing.T) {
	path := writeFile(t, "plan.yaml", demoPlanYAML)
	p, err := LoadPlan(path)
	require.NoError(t, err)
	assert.Equal(t, "offers", p.Source().Name)
}

func TestParsePlan_SkipTiesAndMaterialize(t *testing.T) {
	doc := `table:
  name: scores
  columns: [name, score]
ops:
  - extend:
      column: r
      expr:
        rank:
          ties: skip
      over:
        order_by:
          - column: score
            desc: true
  - materialize:
      name: ranked_scores
`
	p, err := ParsePlan([]byte(doc))
	require.NoError(t, err)
	assert.True(t, p.Terminated())
	assert.Contains(t, introspect.Render(p), "r := rank() over (order by score desc)")
}

func TestParsePlan_SchemaRejectsBadOperator(t *testing.T) {
	doc := `table:
  name: offers
  columns: [a]
ops:
  - explode:
      radius: 7
`
	_, err := ParsePlan([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plan document invalid")
}

func TestParsePlan_SchemaRejectsBadComparisonOp(t *testing.T) {
	doc := `table:
  name: offers
  columns: [a]
ops:
  - select_rows:
      expr:
        cmp:
          op: "~="
          left:
            col: a
          right:
            lit: 1
`
	_, err := ParsePlan([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plan document invalid")
}

func TestParsePlan_SchemaRequiresTable(t *testing.T) {
	_, err := ParsePlan([]byte("ops: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plan document invalid")
}

func TestParsePlan_BuilderErrorsSurface(t *testing.T) {
	// Structurally valid document, semantically wrong column: the builder
	// rejects it, not the schema.
	doc := `table:
  name: offers
  columns: [a]
ops:
  - select_rows:
      expr:
        cmp:
          op: ">"
          left:
            col: no_such
          right:
            lit: 1
`
	_, err := ParsePlan([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no_such")
}

func TestLoadDataset_CSV(t *testing.T) {
	path := writeFile(t, "offers.csv",
		"user_name,product,predicted_offer_affinity\n"+
			"alice,hat,0.9\n"+
			"bob,mug,\n"+
			"carol,pen,3\n")

	tab, err := LoadDataset(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"user_name", "product", "predicted_offer_affinity"}, tab.Columns)
	require.Equal(t, 3, tab.NumRows())

	assert.Equal(t, ir.Float(0.9), tab.Get(0, "predicted_offer_affinity"))
	assert.Equal(t, ir.Null{}, tab.Get(1, "predicted_offer_affinity"))
	assert.Equal(t, ir.Int(3), tab.Get(2, "predicted_offer_affinity"))
	assert.Equal(t, ir.String("alice"), tab.Get(0, "user_name"))
}

func TestLoadDataset_JSONUnionColumns(t *testing.T) {
	// Columns are the sorted union of keys; absent fields become null.
	path := writeFile(t, "data.json",
		`[{"b": 1, "a": "x"}, {"a": "y", "c": true}]`)

	tab, err := LoadDataset(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, tab.Columns)

	assert.Equal(t, ir.Int(1), tab.Get(0, "b"))
	assert.Equal(t, ir.Null{}, tab.Get(0, "c"))
	assert.Equal(t, ir.Null{}, tab.Get(1, "b"))
	assert.Equal(t, ir.Bool(true), tab.Get(1, "c"))
}

func TestLoadDataset_JSONL(t *testing.T) {
	path := writeFile(t, "data.jsonl",
		"{\"n\": 1}\n\n{\"n\": 2.5}\n")

	tab, err := LoadDataset(path)
	require.NoError(t, err)
	require.Equal(t, 2, tab.NumRows())
	assert.Equal(t, ir.Int(1), tab.Get(0, "n"))
	assert.Equal(t, ir.Float(2.5), tab.Get(1, "n"))
}

func TestLoadDataset_YAML(t *testing.T) {
	path := writeFile(t, "data.yaml",
		"- name: alice\n  score: 0.9\n- name: bob\n  score: 0.5\n")

	tab, err := LoadDataset(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "score"}, tab.Columns)
	assert.Equal(t, ir.String("bob"), tab.Get(1, "name"))
}

func TestLoadDataset_Avro(t *testing.T) {
	path := filepath.Join(t.TempDir(), "offers.avro")
	f, err := os.Create(path)
	require.NoError(t, err)

	w, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W: f,
		Schema: `{
			"type": "record",
			"name": "offer",
			"fields": [
				{"name": "user_name", "type": "string"},
				{"name": "predicted_offer_affinity", "type": "double"}
			]
		}`,
	})
	require.NoError(t, err)
	require.NoError(t, w.Append([]any{
		map[string]any{"user_name": "alice", "predicted_offer_affinity": 0.9},
		map[string]any{"user_name": "bob", "predicted_offer_affinity": 0.5},
	}))
	require.NoError(t, f.Close())

	tab, err := LoadDataset(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"predicted_offer_affinity", "user_name"}, tab.Columns)
	require.Equal(t, 2, tab.NumRows())
	assert.Equal(t, ir.String("alice"), tab.Get(0, "user_name"))
	assert.Equal(t, ir.Float(0.5), tab.Get(1, "predicted_offer_affinity"))
}

func TestLoadDataset_AvroNullableUnion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.avro")
	f, err := os.Create(path)
	require.NoError(t, err)

	w, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W: f,
		Schema: `{
			"type": "record",
			"name": "score",
			"fields": [
				{"name": "name", "type": "string"},
				{"name": "value", "type": ["null", "double"]}
			]
		}`,
	})
	require.NoError(t, err)
	require.NoError(t, w.Append([]any{
		map[string]any{"name": "alice", "value": map[string]any{"double": 0.25}},
		map[string]any{"name": "bob", "value": nil},
	}))
	require.NoError(t, f.Close())

	tab, err := LoadDataset(path)
	require.NoError(t, err)
	assert.Equal(t, ir.Float(0.25), tab.Get(0, "value"))
	assert.Equal(t, ir.Null{}, tab.Get(1, "value"))
}

func TestLoadDataset_UnsupportedExtension(t *testing.T) {
	_, err := LoadDataset("data.parquet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".parquet")
}
