package loader

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/quarry/internal/ir"
	"github.com/roach88/quarry/internal/plan"
	"github.com/roach88/quarry/internal/schema"
)

//go:embed plan_schema.cue
var planSchemaCUE string

// LoadPlan reads a YAML plan document, validates it against the embedded
// CUE schema, and builds the pipeline through the regular builder - so
// document-level mistakes surface with the same build error codes as
// programmatic construction.
func LoadPlan(filename string) (plan.Pipeline, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return plan.Pipeline{}, fmt.Errorf("cannot open %s: %w", filename, err)
	}
	return ParsePlan(data)
}

// ParsePlan builds a pipeline from YAML plan document bytes.
func ParsePlan(data []byte) (plan.Pipeline, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return plan.Pipeline{}, fmt.Errorf("cannot parse plan document: %w", err)
	}
	if err := validatePlanDoc(raw); err != nil {
		return plan.Pipeline{}, err
	}

	var doc planDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return plan.Pipeline{}, fmt.Errorf("cannot decode plan document: %w", err)
	}
	return buildPipeline(doc)
}

// validatePlanDoc unifies the decoded document with the plan schema.
func validatePlanDoc(doc any) error {
	ctx := cuecontext.New()
	schemaVal := ctx.CompileString(planSchemaCUE, cue.Filename("plan_schema.cue"))
	if err := schemaVal.Err(); err != nil {
		return fmt.Errorf("internal plan schema error: %w", err)
	}
	dataVal := ctx.Encode(doc)
	if err := dataVal.Err(); err != nil {
		return fmt.Errorf("cannot encode plan document: %w", err)
	}
	if err := schemaVal.Unify(dataVal).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("plan document invalid: %w", err)
	}
	return nil
}

type planDoc struct {
	Table tableDoc `yaml:"table"`
	Ops   []opDoc  `yaml:"ops"`
}

type tableDoc struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
	Staged  bool     `yaml:"staged"`
}

type opDoc struct {
	Extend      *extendDoc      `yaml:"extend"`
	SelectRows  *selectRowsDoc  `yaml:"select_rows"`
	OrderBy     *orderByDoc     `yaml:"order_by"`
	Materialize *materializeDoc `yaml:"materialize"`
}

type extendDoc struct {
	Column string   `yaml:"column"`
	Expr   exprDoc  `yaml:"expr"`
	Over   *overDoc `yaml:"over"`
}

type overDoc struct {
	PartitionBy []string         `yaml:"partition_by"`
	OrderBy     []orderColumnDoc `yaml:"order_by"`
}

type orderColumnDoc struct {
	Column string `yaml:"column"`
	Desc   bool   `yaml:"desc"`
}

type selectRowsDoc struct {
	Expr exprDoc `yaml:"expr"`
}

type orderByDoc struct {
	Columns []orderColumnDoc `yaml:"columns"`
}

type materializeDoc struct {
	Name string `yaml:"name"`
}

// exprDoc mirrors the #Expr disjunction: exactly one branch is set.
type exprDoc struct {
	Col   string    `yaml:"col"`
	Lit   yaml.Node `yaml:"lit"`
	Cmp   *binDoc   `yaml:"cmp"`
	Arith *binDoc   `yaml:"arith"`
	Rank  *rankDoc  `yaml:"rank"`
}

type binDoc struct {
	Op    string  `yaml:"op"`
	Left  exprDoc `yaml:"left"`
	Right exprDoc `yaml:"right"`
}

type rankDoc struct {
	Ties string `yaml:"ties"`
}

func buildPipeline(doc planDoc) (plan.Pipeline, error) {
	var ref schema.TableRef
	var err error
	if doc.Table.Staged {
		ref, err = schema.NewStagedRef(doc.Table.Name, doc.Table.Columns)
	} else {
		ref, err = schema.NewTableRef(doc.Table.Name, doc.Table.Columns)
	}
	if err != nil {
		return plan.Pipeline{}, err
	}

	p := plan.FromTable(ref)
	for i, op := range doc.Ops {
		switch {
		case op.Extend != nil:
			e, err := buildExpr(op.Extend.Expr)
			if err != nil {
				return plan.Pipeline{}, fmt.Errorf("op %d: %w", i, err)
			}
			var w *plan.WindowSpec
			if op.Extend.Over != nil {
				w = &plan.WindowSpec{
					PartitionBy: op.Extend.Over.PartitionBy,
					OrderBy:     buildOrderColumns(op.Extend.Over.OrderBy),
				}
			}
			p, err = p.Extend(op.Extend.Column, e, w)
			if err != nil {
				return plan.Pipeline{}, err
			}
		case op.SelectRows != nil:
			e, err := buildExpr(op.SelectRows.Expr)
			if err != nil {
				return plan.Pipeline{}, fmt.Errorf("op %d: %w", i, err)
			}
			p, err = p.SelectRows(e)
			if err != nil {
				return plan.Pipeline{}, err
			}
		case op.OrderBy != nil:
			p, err = p.OrderBy(buildOrderColumns(op.OrderBy.Columns)...)
			if err != nil {
				return plan.Pipeline{}, err
			}
		case op.Materialize != nil:
			p, err = p.Materialize(op.Materialize.Name)
			if err != nil {
				return plan.Pipeline{}, err
			}
		default:
			return plan.Pipeline{}, fmt.Errorf("op %d: no operator set", i)
		}
	}
	return p, nil
}

func buildOrderColumns(docs []orderColumnDoc) []plan.OrderColumn {
	out := make([]plan.OrderColumn, len(docs))
	for i, d := range docs {
		out[i] = plan.OrderColumn{Column: d.Column, Dir: plan.Asc}
		if d.Desc {
			out[i].Dir = plan.Desc
		}
	}
	return out
}

func buildExpr(doc exprDoc) (plan.Expr, error) {
	switch {
	case doc.Col != "":
		return plan.ColRef{Name: doc.Col}, nil

	case !doc.Lit.IsZero():
		var raw any
		if err := doc.Lit.Decode(&raw); err != nil {
			return nil, fmt.Errorf("literal: %w", err)
		}
		v, err := ir.FromAny(raw)
		if err != nil {
			return nil, fmt.Errorf("literal: %w", err)
		}
		return plan.Literal{Value: v}, nil

	case doc.Cmp != nil:
		left, right, err := buildBinOperands(*doc.Cmp)
		if err != nil {
			return nil, err
		}
		return plan.Compare{Op: plan.CmpOp(doc.Cmp.Op), Left: left, Right: right}, nil

	case doc.Arith != nil:
		left, right, err := buildBinOperands(*doc.Arith)
		if err != nil {
			return nil, err
		}
		return plan.Arith{Op: plan.ArithOp(doc.Arith.Op), Left: left, Right: right}, nil

	case doc.Rank != nil:
		ties := plan.TiesDense
		if doc.Rank.Ties == "skip" {
			ties = plan.TiesSkip
		}
		return plan.WindowRank{Ties: ties}, nil

	default:
		return nil, fmt.Errorf("expression sets no branch")
	}
}

func buildBinOperands(doc binDoc) (plan.Expr, plan.Expr, error) {
	left, err := buildExpr(doc.Left)
	if err != nil {
		return nil, nil, err
	}
	right, err := buildExpr(doc.Right)
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}
