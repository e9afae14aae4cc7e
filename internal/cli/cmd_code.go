package cli

import (
	"github.com/spf13/cobra"

	"github.com/vibe-cli/vibe/internal/errors"
	"github.com/vibe-cli/vibe/internal/workflow"
)

func newCodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "code [task-id]",
		Short: "Implement tasks from the design",
		Long: `Run phase 3: implement one task. Without an argument the next
ready task is picked by priority and dependency order; with one, that
specific task runs.

Generated files are verified with the language toolchain; failures are
fed back to the model for a bounded number of healing attempts before
the result is shown for approval.

  vibe code            # Next ready task
  vibe code T-004      # A specific task
  vibe code --all      # Keep going until nothing is ready`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			instructions, _ := cmd.Flags().GetString("instructions")
			opts := workflow.StepOptions{Instructions: instructions}

			taskID := ""
			if len(args) > 0 {
				taskID = args[0]
			}

			c, err := newController()
			if err != nil {
				return err
			}
			if !all {
				return c.RunCodePhase(cmd.Context(), taskID, opts)
			}

			for {
				err := c.RunCodePhase(cmd.Context(), "", opts)
				if errors.HasCode(err, errors.CodeTaskDependencyUnmet) {
					return nil
				}
				if err != nil {
					return err
				}
			}
		},
	}
	cmd.Flags().Bool("all", false, "run ready tasks until none remain")
	cmd.Flags().String("instructions", "", "extra direction for the generator")
	return cmd
}
