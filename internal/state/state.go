// Package state persists the singleton per-project workflow state.
//
// The state lives at .vibe/state.json. It is read fully at the start of a
// workflow step and written atomically (temp file + rename) at the end, so a
// reader never observes a half-written file.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/vibe-cli/vibe/internal/errors"
	"github.com/vibe-cli/vibe/internal/phase"
	"github.com/vibe-cli/vibe/internal/util"
)

const (
	// Dir is the project state directory.
	Dir = ".vibe"
	// FileName is the state file inside Dir.
	FileName = "state.json"
)

// LastAction records the most recent mutating command.
type LastAction struct {
	ID            string    `json:"id"`
	Command       string    `json:"command"`
	Timestamp     time.Time `json:"timestamp"`
	FilesCreated  []string  `json:"files_created,omitempty"`
	FilesModified []string  `json:"files_modified,omitempty"`
	Commit        string    `json:"commit,omitempty"`
}

// ProjectState is the singleton persisted workflow state.
type ProjectState struct {
	CurrentPhase phase.Phase                  `json:"current_phase"`
	PhaseStatus  map[phase.Phase]phase.Status `json:"phase_status"`
	LastAction   *LastAction                  `json:"last_action,omitempty"`
	GitEnabled   bool                         `json:"git_enabled"`
	DualMode     bool                         `json:"dual_mode_active"`
	CreatedAt    time.Time                    `json:"created_at"`
	UpdatedAt    time.Time                    `json:"updated_at"`
}

// New returns the initial state: phase 0 in progress, the rest pending.
func New(dualMode bool) *ProjectState {
	m := phase.NewMachine()
	now := time.Now().UTC()
	return &ProjectState{
		CurrentPhase: m.Current(),
		PhaseStatus:  m.Snapshot(),
		DualMode:     dualMode,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Path returns the state file path under projectRoot.
func Path(projectRoot string) string {
	return filepath.Join(projectRoot, Dir, FileName)
}

// Load reads and validates the state file. A missing file means the project
// is not initialized; a malformed file is STATE_CORRUPT and always fatal —
// state is never auto-repaired because silent repair could mask data loss.
func Load(projectRoot string) (*ProjectState, error) {
	path := Path(projectRoot)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrNotInitialized()
		}
		return nil, errors.ErrFilePermission(path).WithCause(err)
	}

	var s ProjectState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.ErrStateCorrupt(path, err)
	}
	if s.PhaseStatus == nil {
		return nil, errors.ErrStateCorrupt(path, errNilStatus)
	}
	// Validate through the machine so illegal phases and statuses are
	// rejected at load time rather than mid-step.
	if _, err := s.Machine(); err != nil {
		return nil, err
	}
	return &s, nil
}

var errNilStatus = jsonError("phase_status is missing")

type jsonError string

func (e jsonError) Error() string { return string(e) }

// Save writes the state atomically, bumping UpdatedAt.
func (s *ProjectState) Save(projectRoot string) error {
	s.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal state")
	}
	if err := util.AtomicWriteFile(Path(projectRoot), data, 0o644); err != nil {
		return errors.ErrFilePermission(Path(projectRoot)).WithCause(err)
	}
	return nil
}

// Machine reconstructs the phase machine from the persisted status map.
func (s *ProjectState) Machine() (*phase.Machine, error) {
	return phase.Restore(s.CurrentPhase, s.PhaseStatus)
}

// Apply copies the machine's progress back into the state.
func (s *ProjectState) Apply(m *phase.Machine) {
	s.CurrentPhase = m.Current()
	s.PhaseStatus = m.Snapshot()
}

// RecordAction stores the last mutating command.
func (s *ProjectState) RecordAction(a LastAction) {
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	s.LastAction = &a
}

// Initialized reports whether a .vibe directory exists under root.
func Initialized(projectRoot string) bool {
	info, err := os.Stat(filepath.Join(projectRoot, Dir))
	return err == nil && info.IsDir()
}
