package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vibe-cli/vibe/internal/provider"
)

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat <question>",
		Short: "Ask the model about the project",
		Long: `One-shot question against the project context. The answer streams
to stdout. With --knowledge the question goes to the knowledge model
with the full project as reference instead.

  vibe chat "why does the design split storage from transport?"
  vibe chat --knowledge "which tasks touch the payment flow?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			useKnowledge, _ := cmd.Flags().GetBool("knowledge")
			question := strings.Join(args, " ")

			c, err := newController()
			if err != nil {
				return err
			}
			phaseCtx, err := c.Store.ColdContext()
			if err != nil {
				return err
			}

			if useKnowledge {
				answer, err := c.Orch.QueryKnowledge(cmd.Context(), question, phaseCtx)
				if err != nil {
					return err
				}
				fmt.Println(answer)
				return nil
			}

			msgs := []provider.Message{
				{Role: provider.RoleUser, Content: "[Project]\n" + phaseCtx},
				{Role: provider.RoleUser, Content: question},
			}
			chunks, err := c.Orch.Stream(cmd.Context(), "", msgs)
			if err != nil {
				return err
			}
			for chunk := range chunks {
				if chunk.Err != nil {
					return chunk.Err
				}
				fmt.Fprint(os.Stdout, chunk.Text)
			}
			fmt.Println()
			return nil
		},
	}
	cmd.Flags().Bool("knowledge", false, "route the question to the knowledge model")
	return cmd
}
