package cli

import (
	"github.com/spf13/cobra"
)

func newUndoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Roll back the last mutating command",
		Long: `Restore the project state recorded before the last command and
revert its git commit when one was made. Files not under version
control are left untouched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newController()
			if err != nil {
				return err
			}
			return c.Undo(cmd.Context())
		},
	}
}
