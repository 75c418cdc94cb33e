package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/quarry/internal/introspect"
	"github.com/roach88/quarry/internal/loader"
)

// NewColumnsCommand creates the columns command: report the columns a plan
// produces and the source columns it consumes.
func NewColumnsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "columns <plan.yaml>",
		Short: "Show produced and consumed columns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loader.LoadPlan(args[0])
			if err != nil {
				return err
			}
			produced := introspect.OutputColumns(p)
			consumed := introspect.ColumnsUsed(p)

			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"output_columns": produced,
					"columns_used":   consumed,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "output: %s\n", strings.Join(produced, ", "))
			for table, cols := range consumed {
				fmt.Fprintf(out, "reads %s: %s\n", table, strings.Join(cols, ", "))
			}
			return nil
		},
	}
}
