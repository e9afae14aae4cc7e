package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vibe-cli/vibe/internal/config"
	"github.com/vibe-cli/vibe/internal/ui"
	"github.com/vibe-cli/vibe/internal/wizard"
	"github.com/vibe-cli/vibe/internal/workflow"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Set up a vibe project in the current directory",
		Long: `Initialize vibe here.

The wizard asks for the project name, type, provider and git policy,
writes .vibe/config.yaml, then generates the phase 0 documents
(TECH_STACK.md and RULES.md).

Examples:
  vibe init                   # Interactive wizard
  vibe init --yes --name api  # Non-interactive with defaults
  vibe init --force           # Reinitialize an existing project`,
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			name, _ := cmd.Flags().GetString("name")
			projectType, _ := cmd.Flags().GetString("type")
			skipDocs, _ := cmd.Flags().GetBool("skip-docs")

			root, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}

			cfg := config.Default()
			cfg.ProjectName = name
			if projectType != "" {
				cfg.ProjectType = projectType
			}
			if flagProvider != "" {
				cfg.Provider = flagProvider
				cfg.Dual.MainProvider = flagProvider
			}

			if flagYes {
				if cfg.ProjectName == "" {
					cfg.ProjectName = filepath.Base(root)
				}
			} else {
				w := wizard.NewSetup(cfg)
				if err := w.Run(); err != nil {
					return err
				}
				wizard.ApplyState(w.State(), cfg)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			c, err := workflow.New(root, cfg, ui.NewConsole(flagYes))
			if err != nil {
				return err
			}
			c.DryRun = flagDryRun

			if err := c.Initialize(cmd.Context(), force); err != nil {
				return err
			}
			if skipDocs || flagDryRun {
				return nil
			}
			return c.InitDocuments(cmd.Context(), workflow.StepOptions{})
		},
	}

	cmd.Flags().Bool("force", false, "overwrite an existing project")
	cmd.Flags().String("name", "", "project name (skips the wizard question)")
	cmd.Flags().String("type", "", "project type (backend, frontend, fullstack, cli, library)")
	cmd.Flags().Bool("skip-docs", false, "initialize without generating phase 0 documents")
	return cmd
}
