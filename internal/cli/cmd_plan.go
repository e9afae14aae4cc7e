package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vibe-cli/vibe/internal/phase"
	"github.com/vibe-cli/vibe/internal/workflow"
)

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Write the product requirements and user stories",
		Long: `Run phase 1: generate PRD.md and USER_STORIES.md from the tech
stack and rules, review the result, and commit it.

External material (a brief, meeting notes, an existing spec) can be
fed to the knowledge model for distillation first:

  vibe plan --context brief.md
  vibe plan --instructions "focus on the billing flows"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := stepOptionsFromFlags(cmd)
			if err != nil {
				return err
			}
			c, err := newController()
			if err != nil {
				return err
			}
			return c.RunDocumentPhase(cmd.Context(), phase.Plan, opts)
		},
	}
	addStepFlags(cmd)
	return cmd
}

func addStepFlags(cmd *cobra.Command) {
	cmd.Flags().String("instructions", "", "extra direction for the generator")
	cmd.Flags().StringSlice("context", nil, "files with external context for the knowledge model")
}

func stepOptionsFromFlags(cmd *cobra.Command) (workflow.StepOptions, error) {
	instructions, _ := cmd.Flags().GetString("instructions")
	contextFiles, _ := cmd.Flags().GetStringSlice("context")

	var external strings.Builder
	for _, path := range contextFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			return workflow.StepOptions{}, fmt.Errorf("read context file: %w", err)
		}
		fmt.Fprintf(&external, "## %s\n\n%s\n\n", path, data)
	}
	return workflow.StepOptions{
		Instructions:    instructions,
		ExternalContext: strings.TrimSpace(external.String()),
	}, nil
}
