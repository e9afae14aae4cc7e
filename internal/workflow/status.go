package workflow

import (
	"github.com/vibe-cli/vibe/internal/artifact"
	"github.com/vibe-cli/vibe/internal/git"
	"github.com/vibe-cli/vibe/internal/lock"
	"github.com/vibe-cli/vibe/internal/phase"
	"github.com/vibe-cli/vibe/internal/state"
	"github.com/vibe-cli/vibe/internal/task"
)

// StatusReport is a read-only snapshot of where the project stands.
type StatusReport struct {
	CurrentPhase   phase.Phase
	PhaseStatus    map[phase.Phase]phase.Status
	DualMode       bool
	TasksCompleted int
	TasksTotal     int
	LastAction     *state.LastAction
	Lock           *lock.Info
	RecentCommits  []git.Commit
}

// Status gathers the report without taking the project lock; it only
// reads, and reporting a held lock is part of its job.
func (c *Controller) Status() (*StatusReport, error) {
	st, err := state.Load(c.Root)
	if err != nil {
		return nil, err
	}
	r := &StatusReport{
		CurrentPhase: st.CurrentPhase,
		PhaseStatus:  st.PhaseStatus,
		DualMode:     st.DualMode,
		LastAction:   st.LastAction,
	}

	if c.Store.Exists(artifact.Todo) {
		if todo, err := c.Store.Read(artifact.Todo); err == nil {
			if graph, err := task.Parse(todo); err == nil {
				r.TasksCompleted, r.TasksTotal = graph.Progress()
			}
		}
	}

	if held, info, err := c.Locker.Holder(); err == nil && held {
		r.Lock = info
	}

	if c.Git.IsRepo() {
		if commits, err := c.Git.RecentCommits(5); err == nil {
			r.RecentCommits = commits
		}
	}
	return r, nil
}
