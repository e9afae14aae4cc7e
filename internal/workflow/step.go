package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/vibe-cli/vibe/internal/artifact"
	"github.com/vibe-cli/vibe/internal/errors"
	"github.com/vibe-cli/vibe/internal/orchestrator"
	"github.com/vibe-cli/vibe/internal/phase"
	"github.com/vibe-cli/vibe/internal/prompt"
	"github.com/vibe-cli/vibe/internal/provider"
	"github.com/vibe-cli/vibe/internal/state"
	"github.com/vibe-cli/vibe/internal/task"
)

// phaseArtifacts maps each document phase to the artifacts its output
// splits into, in order of appearance.
var phaseArtifacts = map[phase.Phase][]artifact.Name{
	phase.Init:   {artifact.TechStack, artifact.Rules},
	phase.Plan:   {artifact.PRD, artifact.UserStories},
	phase.Design: {artifact.Tree, artifact.Schema, artifact.Todo},
}

// StepOptions tune one document-phase step.
type StepOptions struct {
	// Instructions is extra user direction merged into the prompt.
	Instructions string
	// ExternalContext is raw material for the knowledge model (plan).
	ExternalContext string
}

// RunDocumentPhase executes the saga for a document-producing phase
// (plan or design; init documents flow through here after the wizard).
func (c *Controller) RunDocumentPhase(ctx context.Context, p phase.Phase, opts StepOptions) error {
	names, ok := phaseArtifacts[p]
	if !ok {
		return errors.ErrPhaseNotReady(p.String(), "phase does not produce documents")
	}

	return c.withLock(ctx, func() error {
		st, err := state.Load(c.Root)
		if err != nil {
			return err
		}
		machine, err := st.Machine()
		if err != nil {
			return err
		}
		if err := machine.Begin(p); err != nil {
			return err
		}

		content, log, err := c.generateWithApproval(ctx, p, opts)
		if err != nil {
			return err
		}
		if c.DryRun {
			c.Console.Info("dry run: no files written")
			return nil
		}

		// Commit pass: everything below mutates.
		written, err := c.writePhaseArtifacts(p, names, content)
		if err != nil {
			return err
		}

		if p == phase.Design {
			// The TODO document must parse into a valid task graph
			// before the phase can complete.
			todo, err := c.Store.Read(artifact.Todo)
			if err != nil {
				return err
			}
			if _, err := task.Parse(todo); err != nil {
				return err
			}
		}

		action := state.LastAction{FilesModified: written}
		if c.Config.AutoCommit && c.Git.IsRepo() {
			sha, err := c.Git.CommitAll(p.String() + " phase documents")
			if err != nil {
				return err
			}
			action.Commit = sha
		}

		if err := c.completeIfGated(machine, p); err != nil {
			return err
		}
		st.Apply(machine)
		if err := c.snapshot(st, strings.ToLower(p.String()), action); err != nil {
			return err
		}
		if err := st.Save(c.Root); err != nil {
			return err
		}

		for _, line := range log {
			c.Console.Info("  %s", line)
		}
		c.Console.Success("%s phase complete", p)
		return nil
	})
}

// generateWithApproval runs generation plus the approval loop: on
// rejection the user's edits are folded into the instructions and the
// content is regenerated, one regeneration per interaction.
func (c *Controller) generateWithApproval(ctx context.Context, p phase.Phase, opts StepOptions) (string, []string, error) {
	instructions := opts.Instructions
	for {
		content, log, err := c.generate(ctx, p, instructions, opts)
		if err != nil {
			return "", nil, err
		}

		approved, edits := c.seekApproval(p, content)
		if approved {
			return content, log, nil
		}
		if edits == "" {
			return "", nil, errors.Wrap(context.Canceled, "generation rejected")
		}
		if instructions != "" {
			instructions += "\n"
		}
		instructions += edits
	}
}

func (c *Controller) generate(ctx context.Context, p phase.Phase, instructions string, opts StepOptions) (string, []string, error) {
	phaseCtx, err := c.Store.ContextForPhase(p)
	if err != nil {
		return "", nil, err
	}

	data := prompt.Data{
		ProjectName:  c.Config.ProjectName,
		ProjectType:  c.Config.ProjectType,
		Context:      phaseCtx,
		Instructions: instructions,
	}
	userPrompt, err := c.Prompts.Render(prompt.ForPhase(int(p)), data)
	if err != nil {
		return "", nil, err
	}
	system, err := c.Prompts.System("main", data)
	if err != nil {
		return "", nil, err
	}

	orchOpts := orchestrator.Options{ExternalContext: opts.ExternalContext}
	if p == phase.Design {
		orchOpts.Libraries = c.librariesFromTechStack()
	}

	res, err := c.Orch.ExecutePhase(ctx, p, system,
		[]provider.Message{{Role: provider.RoleUser, Content: userPrompt}}, orchOpts)
	if err != nil {
		return "", nil, err
	}
	return res.Content, res.Log, nil
}

// seekApproval shows the diff against the current artifacts and asks
// for confirmation. Returns the user's edit instructions on rejection;
// an empty edit means abandon.
func (c *Controller) seekApproval(p phase.Phase, content string) (bool, string) {
	old := ""
	if names := phaseArtifacts[p]; len(names) > 0 && c.Store.Exists(names[0]) {
		old, _ = c.Store.Read(names[0])
	}
	c.Console.ShowDiff(p.String()+" output", old, content)

	if c.Console.Confirm("Apply this result?", true) {
		return true, ""
	}
	return false, c.Console.Input("What should change? (empty to abandon)", "")
}

// writePhaseArtifacts splits content on "---" separator lines and
// writes one artifact per section. Missing trailing sections are an
// InvalidRequest-grade generation defect.
func (c *Controller) writePhaseArtifacts(p phase.Phase, names []artifact.Name, content string) ([]string, error) {
	sections := splitSections(content, len(names))
	if len(sections) < len(names) {
		return nil, errors.ErrProviderInvalidRequest(
			"generation", fmt.Sprintf("expected %d documents in the response, got %d", len(names), len(sections)))
	}

	var written []string
	for i, name := range names {
		if err := c.Store.Write(name, strings.TrimSpace(sections[i])+"\n", p); err != nil {
			return written, err
		}
		written = append(written, string(name)+".md")
	}
	return written, nil
}

// splitSections cuts content at "---" lines into at most n parts.
func splitSections(content string, n int) []string {
	var sections []string
	var cur strings.Builder
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "---" && len(sections) < n-1 {
			sections = append(sections, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteString(line)
		cur.WriteByte('\n')
	}
	sections = append(sections, cur.String())
	return sections
}

// completeIfGated completes p when its must-tasks allow. Phases without
// a task list complete unconditionally.
func (c *Controller) completeIfGated(machine *phase.Machine, p phase.Phase) error {
	gate := phase.GateFunc(func(phase.Phase) bool { return true })
	if c.Store.Exists(artifact.Todo) {
		todo, err := c.Store.Read(artifact.Todo)
		if err != nil {
			return err
		}
		graph, err := task.Parse(todo)
		if err != nil {
			return err
		}
		return machine.Complete(p, graph)
	}
	return machine.Complete(p, gate)
}

// librariesFromTechStack extracts plausible dependency names from the
// TECH_STACK document for the design-phase audit: lines starting with
// a list marker, first token only.
func (c *Controller) librariesFromTechStack() []string {
	if !c.Store.Exists(artifact.TechStack) {
		return nil
	}
	content, err := c.Store.Read(artifact.TechStack)
	if err != nil {
		return nil
	}

	var libs []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "- ") && !strings.HasPrefix(line, "* ") {
			continue
		}
		name := strings.TrimSpace(strings.TrimLeft(line, "-* "))
		if i := strings.IndexAny(name, ":("); i > 0 {
			name = strings.TrimSpace(name[:i])
		}
		if name != "" {
			libs = append(libs, name)
		}
	}
	if len(libs) > 20 {
		libs = libs[:20]
	}
	return libs
}
