// Package task provides the dependency-gated task graph parsed from TODO.md.
package task

import (
	"fmt"
	"regexp"

	"github.com/vibe-cli/vibe/internal/errors"
	"github.com/vibe-cli/vibe/internal/phase"
)

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusSkipped    Status = "skipped"
)

// Priority follows MoSCoW-style classification. Only must-priority tasks
// gate phase completion.
type Priority string

const (
	PriorityMust   Priority = "must"
	PriorityShould Priority = "should"
	PriorityCould  Priority = "could"
)

// idPattern matches task IDs like SETUP-001 or API-012.
var idPattern = regexp.MustCompile(`^[A-Z]+-\d{3}$`)

// Task is an atomic unit of implementation work.
type Task struct {
	ID          string      `yaml:"id"`
	Title       string      `yaml:"title"`
	Description string      `yaml:"description,omitempty"`
	Status      Status      `yaml:"status"`
	Priority    Priority    `yaml:"priority"`
	Phase       phase.Phase `yaml:"phase"`
	DependsOn   []string    `yaml:"depends_on,omitempty"`
	Files       []string    `yaml:"files,omitempty"`
}

// Validate checks structural task invariants.
func (t *Task) Validate() error {
	if !idPattern.MatchString(t.ID) {
		return errors.ErrConfigInvalid("task.id",
			fmt.Sprintf("%q does not match PREFIX-NNN", t.ID))
	}
	if t.Title == "" {
		return errors.ErrConfigInvalid("task.title", fmt.Sprintf("task %s has no title", t.ID))
	}
	if !t.Phase.Valid() {
		return errors.ErrConfigInvalid("task.phase",
			fmt.Sprintf("task %s phase %d out of range", t.ID, int(t.Phase)))
	}
	switch t.Priority {
	case PriorityMust, PriorityShould, PriorityCould:
	default:
		return errors.ErrConfigInvalid("task.priority",
			fmt.Sprintf("task %s has unknown priority %q", t.ID, t.Priority))
	}
	switch t.Status {
	case StatusPending, StatusInProgress, StatusCompleted, StatusSkipped:
	default:
		return errors.ErrConfigInvalid("task.status",
			fmt.Sprintf("task %s has unknown status %q", t.ID, t.Status))
	}
	return nil
}
