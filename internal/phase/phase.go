// Package phase implements the five-phase workflow state machine.
//
// A project moves through five ordered phases: Init, Plan, Design, Code and
// Test. The machine tracks one status per phase and gates transitions: a
// phase can begin only when its predecessor is completed, and completing a
// phase requires every must-priority task of that phase to be done.
package phase

import (
	"fmt"

	"github.com/vibe-cli/vibe/internal/errors"
)

// Phase is an ordered workflow stage, 0 through 4.
type Phase int

const (
	Init Phase = iota
	Plan
	Design
	Code
	Test
)

// Count is the number of phases in the workflow.
const Count = 5

var names = [Count]string{"Init", "Plan", "Design", "Code", "Test"}

// String returns the phase name.
func (p Phase) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return names[p]
}

// Valid reports whether p is within the 0..4 range.
func (p Phase) Valid() bool {
	return p >= Init && p <= Test
}

// Status represents the progress of a single phase.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// TaskGate reports whether the must-priority tasks of a phase are all
// completed. The task graph implements this; tests use stubs.
type TaskGate interface {
	MustTasksDone(p Phase) bool
}

// GateFunc adapts a function to the TaskGate interface.
type GateFunc func(p Phase) bool

// MustTasksDone implements TaskGate.
func (f GateFunc) MustTasksDone(p Phase) bool { return f(p) }

// Machine tracks per-phase status and the current phase.
// It is the authoritative record; task statuses are advisory detail.
type Machine struct {
	current Phase
	status  map[Phase]Status
}

// NewMachine returns a machine with phase 0 in progress and the rest pending.
func NewMachine() *Machine {
	m := &Machine{
		current: Init,
		status:  make(map[Phase]Status, Count),
	}
	m.status[Init] = StatusInProgress
	for p := Plan; p <= Test; p++ {
		m.status[p] = StatusPending
	}
	return m
}

// Restore builds a machine from persisted current phase and status map.
// Missing entries default to pending.
func Restore(current Phase, status map[Phase]Status) (*Machine, error) {
	if !current.Valid() {
		return nil, errors.ErrStateCorrupt("state", fmt.Errorf("current phase %d out of range", int(current)))
	}
	m := &Machine{
		current: current,
		status:  make(map[Phase]Status, Count),
	}
	for p := Init; p <= Test; p++ {
		s, ok := status[p]
		if !ok {
			s = StatusPending
		}
		switch s {
		case StatusPending, StatusInProgress, StatusCompleted:
			m.status[p] = s
		default:
			return nil, errors.ErrStateCorrupt("state", fmt.Errorf("phase %s has unknown status %q", p, s))
		}
	}
	return m, nil
}

// Current returns the current phase.
func (m *Machine) Current() Phase {
	return m.current
}

// Status returns the status of phase p.
func (m *Machine) Status(p Phase) Status {
	return m.status[p]
}

// Snapshot returns a copy of the status map for persistence.
func (m *Machine) Snapshot() map[Phase]Status {
	out := make(map[Phase]Status, Count)
	for p, s := range m.status {
		out[p] = s
	}
	return out
}

// Begin marks phase n as in progress.
// Re-entering a phase that is already in progress is idempotent.
func (m *Machine) Begin(n Phase) error {
	if !n.Valid() {
		return errors.ErrPhaseNotReady(n.String(), "phase index out of range")
	}
	if m.status[n] == StatusInProgress {
		return nil
	}
	if m.status[n] == StatusCompleted {
		return errors.ErrPhaseNotReady(n.String(), "phase is already completed")
	}
	if n > Init && m.status[n-1] != StatusCompleted {
		return errors.ErrPhaseNotReady(n.String(),
			fmt.Sprintf("phase %s is not completed", n-1))
	}
	m.status[n] = StatusInProgress
	if n > m.current {
		m.current = n
	}
	return nil
}

// Complete marks phase n as completed and advances the current phase.
// It fails unless n is in progress and gate reports all must-priority tasks
// of n as completed.
func (m *Machine) Complete(n Phase, gate TaskGate) error {
	if !n.Valid() {
		return errors.ErrPhaseNotReady(n.String(), "phase index out of range")
	}
	if m.status[n] != StatusInProgress {
		return errors.ErrPhaseNotReady(n.String(),
			fmt.Sprintf("phase is %s, not in progress", m.status[n]))
	}
	if gate != nil && !gate.MustTasksDone(n) {
		return errors.ErrPhaseNotReady(n.String(), "must-priority tasks are not all completed")
	}
	m.status[n] = StatusCompleted
	if n < Test {
		m.current = n + 1
	}
	return nil
}

// CanTransition reports whether moving from one phase to the next is legal.
// It is a pure query with no side effects.
func (m *Machine) CanTransition(from, to Phase) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if to != from+1 {
		return false
	}
	return m.status[from] == StatusCompleted
}

// Done reports whether every phase is completed.
func (m *Machine) Done() bool {
	for p := Init; p <= Test; p++ {
		if m.status[p] != StatusCompleted {
			return false
		}
	}
	return true
}
