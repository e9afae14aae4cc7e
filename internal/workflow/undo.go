package workflow

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/vibe-cli/vibe/internal/errors"
	"github.com/vibe-cli/vibe/internal/history"
	"github.com/vibe-cli/vibe/internal/state"
)

// Undo restores the project state to the snapshot before the last
// mutating command, and reverts that command's git commit when one was
// made. Only state.json and git move; generated files outside version
// control are left alone.
func (c *Controller) Undo(ctx context.Context) error {
	return c.withLock(ctx, func() error {
		hist, err := history.Open(filepath.Join(c.Root, state.Dir))
		if err != nil {
			return err
		}
		defer hist.Close()

		snaps, err := hist.Latest(2)
		if err != nil {
			return err
		}
		if len(snaps) < 2 {
			c.Console.Info("nothing to undo")
			return nil
		}
		undone, previous := snaps[0], snaps[1]

		var current state.ProjectState
		if err := json.Unmarshal(undone.State, &current); err != nil {
			return errors.ErrStateCorrupt("history snapshot "+undone.ID, err)
		}
		var restored state.ProjectState
		if err := json.Unmarshal(previous.State, &restored); err != nil {
			return errors.ErrStateCorrupt("history snapshot "+previous.ID, err)
		}

		if !c.Console.Confirm("Undo '"+undone.Command+"'?", true) {
			return errors.Wrap(context.Canceled, "undo rejected")
		}
		if c.DryRun {
			c.Console.Info("dry run: state unchanged")
			return nil
		}

		if current.LastAction != nil && current.LastAction.Commit != "" && c.Git.IsRepo() {
			if err := c.Git.Revert(1); err != nil {
				return err
			}
			c.Console.Info("reverted commit %s", current.LastAction.Commit)
		}
		if err := restored.Save(c.Root); err != nil {
			return err
		}
		c.Console.Success("restored state before '%s'", undone.Command)
		return nil
	})
}
