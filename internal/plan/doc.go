// Package plan defines the backend-agnostic intermediate representation of
// relational pipelines: a closed set of expression variants, a closed set
// of operator nodes, and an immutable Pipeline chain rooted at a table
// reference.
//
// A pipeline is built by successively wrapping operator nodes around a
// table reference:
//
//	ref, _ := schema.NewTableRef("offers",
//		[]string{"user_name", "product", "predicted_offer_affinity"})
//	p := plan.FromTable(ref)
//	p, _ = p.Extend("simple_rank", plan.WindowRank{}, &plan.WindowSpec{
//		PartitionBy: []string{"user_name"},
//		OrderBy: []plan.OrderColumn{
//			{Column: "predicted_offer_affinity", Dir: plan.Desc},
//		},
//	})
//	p, _ = p.SelectRows(plan.Compare{
//		Op:    plan.CmpLe,
//		Left:  plan.ColRef{Name: "simple_rank"},
//		Right: plan.Literal{Value: ir.Int(2)},
//	})
//
// The same Pipeline value is then handed to plansql (remote execution),
// planmem (local execution), or introspect (static analysis). The pipeline
// itself never references a live connection or dataset.
//
// All column references are validated at construction time against the
// upstream output set; violations surface as BuildError values and never
// partially construct a chain.
package plan
