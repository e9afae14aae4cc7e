package workflow

import (
	"context"
	"os"
	"path/filepath"

	"github.com/vibe-cli/vibe/internal/config"
	"github.com/vibe-cli/vibe/internal/errors"
	"github.com/vibe-cli/vibe/internal/phase"
	"github.com/vibe-cli/vibe/internal/state"
)

// Initialize creates the .vibe directory, persists the configuration
// and the initial state, and optionally puts the project under git.
// With force an existing project is reinitialized in place.
func (c *Controller) Initialize(ctx context.Context, force bool) error {
	if state.Initialized(c.Root) && !force {
		return errors.ErrAlreadyInitialized(filepath.Join(c.Root, state.Dir))
	}
	if c.DryRun {
		c.Console.Info("dry run: nothing initialized")
		return nil
	}

	if err := os.MkdirAll(filepath.Join(c.Root, state.Dir), 0o755); err != nil {
		return errors.ErrFilePermission(state.Dir).WithCause(err)
	}
	if err := config.Save(c.Root, c.Config); err != nil {
		return err
	}

	gitEnabled := false
	if c.Config.AutoCommit {
		if !c.Git.IsRepo() {
			if err := c.Git.Init(); err != nil {
				return err
			}
		}
		gitEnabled = true
	}

	st := state.New(c.Config.Dual.Enabled)
	st.GitEnabled = gitEnabled
	if err := c.snapshot(st, "init", state.LastAction{}); err != nil {
		return err
	}
	if err := st.Save(c.Root); err != nil {
		return err
	}

	c.Console.Success("initialized %s project", c.Config.ProjectType)
	return nil
}

// InitDocuments generates the phase 0 documents after Initialize has
// laid down the project skeleton.
func (c *Controller) InitDocuments(ctx context.Context, opts StepOptions) error {
	return c.RunDocumentPhase(ctx, phase.Init, opts)
}
