// Package cli implements the vibe command-line interface.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vibe-cli/vibe/internal/config"
	"github.com/vibe-cli/vibe/internal/ui"
	"github.com/vibe-cli/vibe/internal/workflow"
)

var (
	flagProvider string
	flagModel    string
	flagDryRun   bool
	flagYes      bool
	verbose      bool
	quiet        bool
)

var rootCmd = &cobra.Command{
	Use:   "vibe",
	Short: "AI-assisted development workflow",
	Long: `vibe drives a project through five phases, each producing reviewed
artifacts before the next begins:

  0. init    Project setup, tech stack and ground rules
  1. plan    Product requirements and user stories
  2. design  Architecture, data schema and the task list
  3. code    Task-by-task implementation with verification
  4. test    Project-wide audit or edge-case tests

Quick start:
  vibe init                   Set up a project here
  vibe plan                   Write the requirements
  vibe design                 Design the architecture
  vibe code                   Implement the next ready task
  vibe status                 See where things stand`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and reports failure through the exit code.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError(err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagProvider, "provider", "", "generation provider (anthropic, openai, google)")
	pf.StringVar(&flagModel, "model", "", "model name override")
	pf.BoolVar(&flagDryRun, "dry-run", false, "show what would happen without writing")
	pf.BoolVarP(&flagYes, "yes", "y", false, "answer every confirmation positively")
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	pf.BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")

	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newPlanCmd())
	rootCmd.AddCommand(newDesignCmd())
	rootCmd.AddCommand(newScaffoldCmd())
	rootCmd.AddCommand(newCodeCmd())
	rootCmd.AddCommand(newTestCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newUndoCmd())
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func initConfig() {
	viper.AddConfigPath(config.Dir)
	viper.SetConfigType("yaml")
	viper.SetConfigName("config")
	viper.SetEnvPrefix("VIBE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if quiet {
		level = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// loadConfig layers the project config with env and flag overrides.
// Once a project config exists it is validated on every load, so a
// hand-edited config.yaml fails the command instead of being carried
// along. Before init there is nothing to hold to that bar.
func loadConfig(root string) (*config.Config, error) {
	tracked, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	tracked.ApplyFlags(flagProvider, flagModel)

	if _, err := os.Stat(filepath.Join(root, config.Dir, config.FileName)); err == nil {
		if err := tracked.Config.Validate(); err != nil {
			return nil, err
		}
	}
	return tracked.Config, nil
}

// newController assembles the workflow controller for the working
// directory.
func newController() (*workflow.Controller, error) {
	root, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return nil, err
	}
	c, err := workflow.New(root, cfg, ui.NewConsole(flagYes))
	if err != nil {
		return nil, err
	}
	c.DryRun = flagDryRun
	return c, nil
}
