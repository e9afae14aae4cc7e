package workflow

import (
	"context"

	"github.com/vibe-cli/vibe/internal/artifact"
	"github.com/vibe-cli/vibe/internal/errors"
	"github.com/vibe-cli/vibe/internal/phase"
	"github.com/vibe-cli/vibe/internal/scaffold"
	"github.com/vibe-cli/vibe/internal/state"
)

// Scaffold materializes the directory layout from the TREE document.
// Existing files survive unless force is set.
func (c *Controller) Scaffold(ctx context.Context, force bool) error {
	return c.withLock(ctx, func() error {
		st, err := state.Load(c.Root)
		if err != nil {
			return err
		}
		if st.PhaseStatus[phase.Design] != phase.StatusCompleted {
			return errors.ErrPhaseNotReady(phase.Design.String(),
				"the tree design must be completed before scaffolding")
		}

		tree, err := c.Store.Read(artifact.Tree)
		if err != nil {
			return err
		}
		entries := scaffold.ParseTree(tree)
		if c.DryRun {
			for _, e := range entries {
				c.Console.Info("would create %s", e.Path)
			}
			return nil
		}

		created, err := scaffold.Scaffold(c.Root, entries, force)
		if err != nil {
			return err
		}

		action := state.LastAction{FilesCreated: created}
		if c.Config.AutoCommit && c.Git.IsRepo() && len(created) > 0 {
			sha, err := c.Git.CommitAll("scaffold project structure")
			if err != nil {
				return err
			}
			action.Commit = sha
		}
		if err := c.snapshot(st, "scaffold", action); err != nil {
			return err
		}
		if err := st.Save(c.Root); err != nil {
			return err
		}

		c.Console.Success("created %d entries", len(created))
		return nil
	})
}
