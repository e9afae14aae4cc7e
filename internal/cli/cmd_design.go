package cli

import (
	"github.com/spf13/cobra"

	"github.com/vibe-cli/vibe/internal/phase"
)

func newDesignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "design",
		Short: "Design the architecture, schema and task list",
		Long: `Run phase 2: generate TREE.md, SCHEMA.md and TODO.md from the
requirements. While the main model designs, the knowledge model audits
the dependencies named in TECH_STACK.md; the audit is appended to the
design for review.

The TODO document must parse into a valid task graph before the phase
completes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := stepOptionsFromFlags(cmd)
			if err != nil {
				return err
			}
			c, err := newController()
			if err != nil {
				return err
			}
			return c.RunDocumentPhase(cmd.Context(), phase.Design, opts)
		},
	}
	addStepFlags(cmd)
	return cmd
}
