package workflow

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/vibe-cli/vibe/internal/artifact"
	"github.com/vibe-cli/vibe/internal/orchestrator"
	"github.com/vibe-cli/vibe/internal/errors"
	"github.com/vibe-cli/vibe/internal/phase"
	"github.com/vibe-cli/vibe/internal/prompt"
	"github.com/vibe-cli/vibe/internal/provider"
	"github.com/vibe-cli/vibe/internal/state"
	"github.com/vibe-cli/vibe/internal/task"
	"github.com/vibe-cli/vibe/internal/util"
	"github.com/vibe-cli/vibe/internal/verify"
)

// RunCodePhase implements one task of the code phase: pick the task,
// generate its files, verify, self-heal within the configured bound,
// then commit files, task state and project state together.
func (c *Controller) RunCodePhase(ctx context.Context, taskID string, opts StepOptions) error {
	return c.withLock(ctx, func() error {
		st, err := state.Load(c.Root)
		if err != nil {
			return err
		}
		machine, err := st.Machine()
		if err != nil {
			return err
		}
		if err := machine.Begin(phase.Code); err != nil {
			return err
		}

		todo, err := c.Store.Read(artifact.Todo)
		if err != nil {
			return err
		}
		graph, err := task.Parse(todo)
		if err != nil {
			return err
		}

		t, err := pickTask(graph, taskID)
		if err != nil {
			return err
		}
		c.Console.Info("task %s: %s", t.ID, t.Title)

		files, healLog, err := c.generateTaskFiles(ctx, t, opts)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return errors.ErrProviderInvalidRequest("generation", "response contained no FILE blocks")
		}

		approved := c.approveFiles(files)
		if !approved {
			return errors.Wrap(context.Canceled, "generation rejected")
		}
		if c.DryRun {
			c.Console.Info("dry run: no files written")
			return nil
		}

		// Commit pass.
		written, err := c.writeFiles(files)
		if err != nil {
			return err
		}

		if err := graph.MarkInProgress(t.ID); err != nil {
			return err
		}
		if err := graph.MarkCompleted(t.ID); err != nil {
			return err
		}
		if err := c.Store.Write(artifact.Todo, task.Render(graph), phase.Code); err != nil {
			return err
		}

		action := state.LastAction{FilesCreated: written}
		if c.Config.AutoCommit && c.Git.IsRepo() {
			sha, err := c.Git.CommitAll("code " + t.ID + ": " + t.Title)
			if err != nil {
				return err
			}
			action.Commit = sha
		}

		if graph.MustTasksDone(phase.Code) {
			if err := machine.Complete(phase.Code, graph); err != nil {
				return err
			}
		}
		st.Apply(machine)
		if err := c.snapshot(st, "code "+t.ID, action); err != nil {
			return err
		}
		if err := st.Save(c.Root); err != nil {
			return err
		}

		for _, line := range healLog {
			c.Console.Info("  %s", line)
		}
		done, total := graph.Progress()
		c.Console.Success("task %s complete (%d/%d)", t.ID, done, total)
		return nil
	})
}

// pickTask returns the requested task or the next ready one. A named
// task is validated here so a blocked or finished task fails before any
// generation happens.
func pickTask(graph *task.Graph, taskID string) (*task.Task, error) {
	if taskID != "" {
		if err := graph.CheckReady(taskID); err != nil {
			return nil, err
		}
		return graph.Get(taskID), nil
	}
	t := graph.NextReady()
	if t == nil {
		return nil, errors.ErrTaskDependencyUnmet("", "no task is ready; all are blocked, done or skipped")
	}
	return t, nil
}

// generateTaskFiles produces the task's files and runs the self-healing
// loop: failed verification feeds the verifier output back to the
// generator, bounded by the healing config.
func (c *Controller) generateTaskFiles(ctx context.Context, t *task.Task, opts StepOptions) ([]GeneratedFile, []string, error) {
	hot, err := c.Store.HotContext(t.Description, firstFile(t))
	if err != nil {
		return nil, nil, err
	}

	data := prompt.Data{
		ProjectName:     c.Config.ProjectName,
		ProjectType:     c.Config.ProjectType,
		Context:         hot,
		Instructions:    opts.Instructions,
		TaskID:          t.ID,
		TaskTitle:       t.Title,
		TaskDescription: t.Description,
		Files:           strings.Join(t.Files, ", "),
	}
	userPrompt, err := c.Prompts.Render("code", data)
	if err != nil {
		return nil, nil, err
	}
	system, err := c.Prompts.System("main", data)
	if err != nil {
		return nil, nil, err
	}

	msgs := []provider.Message{{Role: provider.RoleUser, Content: userPrompt}}
	var healLog []string
	defer os.RemoveAll(filepath.Join(c.Root, state.Dir, "staging"))

	for attempt := 0; ; attempt++ {
		res, err := c.Orch.ExecutePhase(ctx, phase.Code, system, msgs, orchestrator.Options{})
		if err != nil {
			// Terminal generation failure: ask the knowledge model why
			// before giving up.
			if analysis, aerr := c.Orch.AnalyzeFailure(ctx, t.Title, err.Error()); aerr == nil {
				c.Console.Info("failure analysis:\n%s", analysis)
			}
			return nil, nil, err
		}

		files := ParseFileBlocks(res.Content)
		failures := c.verifyFiles(files)
		if failures == "" {
			return files, healLog, nil
		}
		if attempt >= c.Config.Healing.MaxAttempts {
			healLog = append(healLog, "healing attempts exhausted; keeping last result")
			return files, healLog, nil
		}

		healLog = append(healLog, "verification failed, healing attempt "+
			strings.TrimSpace(strings.SplitN(failures, "\n", 2)[0]))
		healPrompt, err := c.Prompts.Render("heal", prompt.Data{Instructions: failures})
		if err != nil {
			return nil, nil, err
		}
		msgs = append(msgs,
			provider.Message{Role: provider.RoleAssistant, Content: res.Content},
			provider.Message{Role: provider.RoleUser, Content: healPrompt},
		)
	}
}

// verifyFiles runs syntax-level checks on each generated file without
// writing it to its final location. Returns the combined failure
// summary, empty when clean. Files whose language has no verifier pass.
func (c *Controller) verifyFiles(files []GeneratedFile) string {
	var b strings.Builder
	for _, f := range files {
		if !verify.Supported(f.Path) {
			continue
		}
		staged, err := c.stageFile(f)
		if err != nil {
			continue
		}
		v := verify.ForFile(c.Root, staged, c.Runner)
		results := v.Verify(staged, true)
		if !verify.Passed(results) {
			b.WriteString(f.Path + ":\n")
			b.WriteString(verify.Summary(results))
		}
	}
	return b.String()
}

// stageFile writes f into the state directory's staging area so tools
// can run against it before the commit pass touches the real path.
func (c *Controller) stageFile(f GeneratedFile) (string, error) {
	staged := filepath.Join(state.Dir, "staging", f.Path)
	full := filepath.Join(c.Root, staged)
	if !util.WithinRoot(c.Root, full) {
		return "", errors.ErrUnsafePath(f.Path)
	}
	if err := util.AtomicWriteFile(full, []byte(f.Content), 0o644); err != nil {
		return "", err
	}
	return staged, nil
}

// approveFiles shows per-file diffs and asks once for the whole batch.
func (c *Controller) approveFiles(files []GeneratedFile) bool {
	for _, f := range files {
		old := ""
		if data, err := readProjectFile(c.Root, f.Path); err == nil {
			old = data
		}
		c.Console.ShowDiff(f.Path, old, f.Content)
	}
	return c.Console.Confirm("Write these files?", true)
}

// writeFiles lands generated files at their real paths.
func (c *Controller) writeFiles(files []GeneratedFile) ([]string, error) {
	var written []string
	for _, f := range files {
		full := filepath.Join(c.Root, f.Path)
		if !util.WithinRoot(c.Root, full) {
			return written, errors.ErrUnsafePath(f.Path)
		}
		if err := util.AtomicWriteFile(full, []byte(f.Content), 0o644); err != nil {
			return written, errors.ErrFilePermission(f.Path).WithCause(err)
		}
		written = append(written, f.Path)
	}
	return written, nil
}

func firstFile(t *task.Task) string {
	if len(t.Files) > 0 {
		return t.Files[0]
	}
	return ""
}

func readProjectFile(root, path string) (string, error) {
	data, err := os.ReadFile(filepath.Join(root, path))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
