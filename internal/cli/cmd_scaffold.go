package cli

import (
	"github.com/spf13/cobra"
)

func newScaffoldCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scaffold",
		Short: "Create the directory layout from TREE.md",
		Long: `Materialize the designed tree: directories are created, missing
files get minimal placeholder content, existing files are left alone.

  vibe scaffold            # Create what is missing
  vibe scaffold --force    # Overwrite existing files too
  vibe scaffold --dry-run  # List what would be created`,
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			c, err := newController()
			if err != nil {
				return err
			}
			return c.Scaffold(cmd.Context(), force)
		},
	}
	cmd.Flags().Bool("force", false, "overwrite existing files")
	return cmd
}
