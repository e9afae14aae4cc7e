package task

import (
	"fmt"
	"sort"

	"github.com/vibe-cli/vibe/internal/errors"
	"github.com/vibe-cli/vibe/internal/phase"
)

// Graph holds tasks with dependency edges. Tasks are never deleted, only
// marked skipped.
type Graph struct {
	tasks map[string]*Task
	order []string // insertion order, for round-tripping TODO.md
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{tasks: make(map[string]*Task)}
}

// Add inserts a task. It fails with CONFIG_INVALID if the ID already exists
// or a dependency references an unknown task. Dependencies must therefore be
// added in order; TODO.md lists them that way.
func (g *Graph) Add(t *Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if _, exists := g.tasks[t.ID]; exists {
		return errors.ErrConfigInvalid("task.id", fmt.Sprintf("duplicate task id %s", t.ID))
	}
	for _, dep := range t.DependsOn {
		if _, ok := g.tasks[dep]; !ok {
			return errors.ErrConfigInvalid("task.depends_on",
				fmt.Sprintf("task %s depends on unknown task %s", t.ID, dep))
		}
	}
	g.tasks[t.ID] = t
	g.order = append(g.order, t.ID)
	return nil
}

// Get returns the task with the given ID, or nil.
func (g *Graph) Get(id string) *Task {
	return g.tasks[id]
}

// Len returns the number of tasks.
func (g *Graph) Len() int {
	return len(g.tasks)
}

// All returns tasks in insertion order.
func (g *Graph) All() []*Task {
	out := make([]*Task, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.tasks[id])
	}
	return out
}

// NextReady returns the pending task with the lowest ID whose dependencies
// are all completed, or nil when none is ready. The ordering is recomputed on
// every call so external edits to the task set are always reflected.
func (g *Graph) NextReady() *Task {
	ids := make([]string, 0, len(g.tasks))
	for id := range g.tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		t := g.tasks[id]
		if t.Status != StatusPending {
			continue
		}
		if g.depsCompleted(t) {
			return t
		}
	}
	return nil
}

func (g *Graph) depsCompleted(t *Task) bool {
	for _, dep := range t.DependsOn {
		d, ok := g.tasks[dep]
		if !ok || d.Status != StatusCompleted {
			return false
		}
	}
	return true
}

// CheckReady reports whether id may start now: the task must exist, be
// pending and have every dependency completed. Callers use it to reject
// a task before doing work on its behalf.
func (g *Graph) CheckReady(id string) error {
	t, ok := g.tasks[id]
	if !ok {
		return errors.ErrTaskNotFound(id)
	}
	if t.Status != StatusPending {
		return errors.ErrTaskDependencyUnmet(id, fmt.Sprintf("task is %s, not pending", t.Status))
	}
	if !g.depsCompleted(t) {
		return errors.ErrTaskDependencyUnmet(id, "not all dependencies are completed")
	}
	return nil
}

// MarkInProgress transitions a pending task to in_progress. It fails with
// TASK_DEPENDENCY_UNMET when any dependency is not completed.
func (g *Graph) MarkInProgress(id string) error {
	t, ok := g.tasks[id]
	if !ok {
		return errors.ErrTaskNotFound(id)
	}
	if !g.depsCompleted(t) {
		return errors.ErrTaskDependencyUnmet(id, "not all dependencies are completed")
	}
	t.Status = StatusInProgress
	return nil
}

// MarkCompleted transitions an in_progress task to completed. Unblocked
// dependents are discoverable only through the next NextReady call; there is
// no push notification.
func (g *Graph) MarkCompleted(id string) error {
	t, ok := g.tasks[id]
	if !ok {
		return errors.ErrTaskNotFound(id)
	}
	if t.Status != StatusInProgress {
		return errors.ErrTaskDependencyUnmet(id,
			fmt.Sprintf("task is %s, not in_progress", t.Status))
	}
	t.Status = StatusCompleted
	return nil
}

// MarkSkipped marks a task skipped. Always legal. Skipping does NOT unblock
// dependents; callers wanting that must skip the dependents explicitly. That
// is deliberate policy: a skipped dependency means its dependents cannot
// assume the work exists.
func (g *Graph) MarkSkipped(id string) error {
	t, ok := g.tasks[id]
	if !ok {
		return errors.ErrTaskNotFound(id)
	}
	t.Status = StatusSkipped
	return nil
}

// MustTasksDone reports whether every must-priority task in phase p is
// completed. Implements phase.TaskGate.
func (g *Graph) MustTasksDone(p phase.Phase) bool {
	for _, t := range g.tasks {
		if t.Phase == p && t.Priority == PriorityMust && t.Status != StatusCompleted {
			return false
		}
	}
	return true
}

// Progress returns (completed, total) task counts.
func (g *Graph) Progress() (completed, total int) {
	for _, t := range g.tasks {
		if t.Status == StatusCompleted {
			completed++
		}
	}
	return completed, len(g.tasks)
}
