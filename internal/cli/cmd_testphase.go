package cli

import (
	"github.com/spf13/cobra"

	"github.com/vibe-cli/vibe/internal/workflow"
)

func newTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Audit the project or generate edge-case tests",
		Long: `Run phase 4. By default the knowledge model reviews the whole
project (artifacts plus source tree) for data-flow gaps and records the
findings in CONTEXT.md. With --edge-cases the main model writes
boundary-condition test files instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			edgeCases, _ := cmd.Flags().GetBool("edge-cases")
			instructions, _ := cmd.Flags().GetString("instructions")

			c, err := newController()
			if err != nil {
				return err
			}
			return c.RunTestPhase(cmd.Context(), workflow.TestOptions{
				EdgeCases:    edgeCases,
				Instructions: instructions,
			})
		},
	}
	cmd.Flags().Bool("edge-cases", false, "generate boundary tests instead of auditing")
	cmd.Flags().String("instructions", "", "extra direction for the generator")
	return cmd
}
