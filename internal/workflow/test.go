package workflow

import (
	"context"
	"strings"

	"github.com/vibe-cli/vibe/internal/artifact"
	"github.com/vibe-cli/vibe/internal/errors"
	"github.com/vibe-cli/vibe/internal/orchestrator"
	"github.com/vibe-cli/vibe/internal/phase"
	"github.com/vibe-cli/vibe/internal/prompt"
	"github.com/vibe-cli/vibe/internal/provider"
	"github.com/vibe-cli/vibe/internal/state"
)

// TestOptions tune the test phase.
type TestOptions struct {
	// EdgeCases switches from the project-wide audit to generating
	// boundary-condition test files.
	EdgeCases bool
	// Instructions is extra user direction merged into the prompt.
	Instructions string
}

// RunTestPhase executes phase 4. The default mode sends the whole
// project to the knowledge model for a data-flow audit and records the
// findings as the CONTEXT artifact. Edge-case mode has the main model
// write additional test files instead.
func (c *Controller) RunTestPhase(ctx context.Context, opts TestOptions) error {
	return c.withLock(ctx, func() error {
		st, err := state.Load(c.Root)
		if err != nil {
			return err
		}
		machine, err := st.Machine()
		if err != nil {
			return err
		}
		if err := machine.Begin(phase.Test); err != nil {
			return err
		}

		phaseCtx, err := c.Store.ContextForPhase(phase.Test)
		if err != nil {
			return err
		}
		data := prompt.Data{
			ProjectName:  c.Config.ProjectName,
			ProjectType:  c.Config.ProjectType,
			Context:      phaseCtx,
			Instructions: opts.Instructions,
		}
		userPrompt, err := c.Prompts.Render("test", data)
		if err != nil {
			return err
		}

		orchOpts := orchestrator.Options{EdgeCases: opts.EdgeCases}
		roleName := "knowledge"
		if opts.EdgeCases {
			roleName = "main"
		} else {
			cold, err := c.Store.ColdContext()
			if err != nil {
				return err
			}
			orchOpts.ColdContext = cold
		}
		system, err := c.Prompts.System(roleName, data)
		if err != nil {
			return err
		}

		res, err := c.Orch.ExecutePhase(ctx, phase.Test, system,
			[]provider.Message{{Role: provider.RoleUser, Content: userPrompt}}, orchOpts)
		if err != nil {
			return err
		}
		if c.DryRun {
			c.Console.Info("dry run: no files written")
			return nil
		}

		var action state.LastAction
		if opts.EdgeCases {
			files := ParseFileBlocks(res.Content)
			if len(files) == 0 {
				return errors.ErrProviderInvalidRequest("generation", "response contained no FILE blocks")
			}
			if !c.approveFiles(files) {
				return errors.Wrap(context.Canceled, "generation rejected")
			}
			written, err := c.writeFiles(files)
			if err != nil {
				return err
			}
			action.FilesCreated = written
		} else {
			if !c.Console.Confirm("Record audit findings?", true) {
				return errors.Wrap(context.Canceled, "audit rejected")
			}
			if err := c.Store.Write(artifact.Context, strings.TrimSpace(res.Content)+"\n", phase.Test); err != nil {
				return err
			}
			action.FilesModified = []string{string(artifact.Context) + ".md"}
		}

		if c.Config.AutoCommit && c.Git.IsRepo() {
			sha, err := c.Git.CommitAll("test phase results")
			if err != nil {
				return err
			}
			action.Commit = sha
		}

		if err := c.completeIfGated(machine, phase.Test); err != nil {
			return err
		}
		st.Apply(machine)
		if err := c.snapshot(st, "test", action); err != nil {
			return err
		}
		if err := st.Save(c.Root); err != nil {
			return err
		}

		for _, line := range res.Log {
			c.Console.Info("  %s", line)
		}
		c.Console.Success("test phase complete")
		return nil
	})
}
