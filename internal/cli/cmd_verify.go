package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vibe-cli/vibe/internal/verify"
)

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <file>...",
		Short: "Run the language toolchain against files",
		Long: `Check files with the verifier for their language: syntax, types
and lint, plus tests unless skipped. Files without a known verifier
pass trivially.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			skipTests, _ := cmd.Flags().GetBool("skip-tests")
			root, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}

			failed := false
			for _, file := range args {
				v := verify.ForFile(root, file, nil)
				results := v.Verify(file, skipTests)
				fmt.Printf("%s (%s)\n", file, v.Language)
				fmt.Print(verify.Summary(results))
				if !verify.Passed(results) {
					failed = true
				}
			}
			if failed {
				return fmt.Errorf("verification failed")
			}
			return nil
		},
	}
	cmd.Flags().Bool("skip-tests", false, "skip test-level checks")
	return cmd
}
