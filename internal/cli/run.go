package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/quarry/internal/backend"
	"github.com/roach88/quarry/internal/loader"
	"github.com/roach88/quarry/internal/plan"
	"github.com/roach88/quarry/internal/planmem"
	"github.com/roach88/quarry/internal/plansql"
	"github.com/roach88/quarry/internal/schema"
	"github.com/roach88/quarry/internal/tabular"
)

// NewRunCommand creates the run command: evaluate a plan document against
// a dataset, either in memory (default) or by compiling to SQL and
// executing on a SQLite database.
func NewRunCommand(opts *RootOptions) *cobra.Command {
	var dataFile string
	var dbPath string
	var rowOrder string

	cmd := &cobra.Command{
		Use:   "run <plan.yaml>",
		Short: "Run a plan against a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loader.LoadPlan(args[0])
			if err != nil {
				return err
			}
			src, err := loader.LoadDataset(dataFile)
			if err != nil {
				return err
			}

			if dbPath != "" {
				return runRemote(cmd, opts, p, src, dbPath)
			}

			interp := &planmem.Interpreter{}
			switch rowOrder {
			case "grouped":
				interp.RowOrder = planmem.OrderPartitionGrouped
			case "input":
				interp.RowOrder = planmem.OrderInputStable
			default:
				return fmt.Errorf("invalid row-order %q: must be grouped or input", rowOrder)
			}

			result, err := interp.Run(p, src)
			if err != nil {
				return err
			}
			return writeTable(cmd.OutOrStdout(), result, opts.Format)
		},
	}

	cmd.Flags().StringVar(&dataFile, "data", "", "dataset file (csv, json, jsonl, yaml, avro)")
	cmd.Flags().StringVar(&dbPath, "db", "", "execute remotely on a SQLite database at this path")
	cmd.Flags().StringVar(&rowOrder, "row-order", "grouped",
		"row order after a windowed extend (grouped|input)")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

// runRemote loads the source into SQLite under the plan's declared table
// name, sends the compiled statement, and prints the rows (reading back
// the materialized table when the plan is terminal).
func runRemote(cmd *cobra.Command, opts *RootOptions, p plan.Pipeline, src *tabular.Table, dbPath string) error {
	ctx := cmd.Context()

	db, err := backend.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.LoadTable(ctx, p.Source(), src); err != nil {
		return err
	}

	sql, err := plansql.Compile(p, plansql.Config{Dialect: plansql.DialectReference})
	if err != nil {
		return err
	}
	if opts.Verbose {
		fmt.Fprintln(cmd.ErrOrStderr(), sql)
	}

	result, err := db.SendStatement(ctx, sql)
	if err != nil {
		return err
	}
	if result == nil {
		// Terminal materialize: read the persisted table back.
		mat := p.Node().(plan.Materialize)
		ref, err := schema.NewTableRef(mat.TableName, p.OutputColumns())
		if err != nil {
			return err
		}
		result, err = db.ReadTable(ctx, ref)
		if err != nil {
			return err
		}
	}
	return writeTable(cmd.OutOrStdout(), result, opts.Format)
}
