package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/quarry/internal/introspect"
	"github.com/roach88/quarry/internal/loader"
)

// NewRenderCommand creates the render command: print the canonical textual
// description of a plan document's chain.
func NewRenderCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "render <plan.yaml>",
		Short: "Render a plan's canonical text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loader.LoadPlan(args[0])
			if err != nil {
				return err
			}
			text := introspect.Render(p)
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"plan": text})
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), text)
			return err
		},
	}
}

// NewGraphCommand creates the graph command: emit diagram data (nodes and
// edges) for an external renderer.
func NewGraphCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "graph <plan.yaml>",
		Short: "Emit a plan's diagram data as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loader.LoadPlan(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), introspect.BuildGraph(p))
		},
	}
}
