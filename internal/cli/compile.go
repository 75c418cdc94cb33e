package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/quarry/internal/loader"
	"github.com/roach88/quarry/internal/plansql"
)

// NewCompileCommand creates the compile command: lower a plan document to
// one SQL statement for the chosen dialect.
func NewCompileCommand(opts *RootOptions) *cobra.Command {
	var dialect string
	var quote bool

	cmd := &cobra.Command{
		Use:   "compile <plan.yaml>",
		Short: "Compile a plan document to SQL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loader.LoadPlan(args[0])
			if err != nil {
				return err
			}
			sql, err := plansql.Compile(p, plansql.Config{
				Dialect:          plansql.Dialect(dialect),
				QuoteIdentifiers: quote,
			})
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]string{
					"dialect": dialect,
					"sql":     sql,
				})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), sql)
			return err
		},
	}

	cmd.Flags().StringVar(&dialect, "dialect", string(plansql.DialectReference),
		"target dialect (reference|extended-window-ties)")
	cmd.Flags().BoolVar(&quote, "quote", false, "quote identifiers")
	return cmd
}
