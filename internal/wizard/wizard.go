// Package wizard is the interactive project setup flow, a small
// Bubbletea step sequencer. Each step collects one configuration value
// into a shared state map.
package wizard

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// State holds the values collected so far, keyed by step ID.
type State map[string]any

// Step is one screen of the wizard.
type Step interface {
	ID() string
	Title() string

	// Skip reports whether the step is unnecessary given what earlier
	// steps collected.
	Skip(state State) bool

	// Model builds the Bubbletea model for this step.
	Model(state State) tea.Model

	// Result stores the step's outcome into state when it completes.
	Result(model tea.Model, state State)
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170")).MarginBottom(1)
	progressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))
)

// Wizard runs a sequence of steps and accumulates their results.
type Wizard struct {
	steps   []Step
	current int
	state   State
	model   tea.Model
	err     error
}

// New creates a wizard over the given steps.
func New(steps ...Step) *Wizard {
	return &Wizard{steps: steps, state: make(State)}
}

// WithState seeds the wizard with pre-collected values; steps may use
// them to skip themselves.
func (w *Wizard) WithState(state State) *Wizard {
	w.state = state
	return w
}

// State returns the collected values.
func (w *Wizard) State() State {
	return w.state
}

// Run executes the wizard on the terminal and blocks until the user
// finishes or cancels.
func (w *Wizard) Run() error {
	w.skipAhead()
	if w.current >= len(w.steps) {
		return nil
	}
	w.model = w.steps[w.current].Model(w.state)

	if _, err := tea.NewProgram(w).Run(); err != nil {
		return fmt.Errorf("wizard: %w", err)
	}
	return w.err
}

// Init implements tea.Model.
func (w *Wizard) Init() tea.Cmd {
	if w.model == nil {
		return nil
	}
	return w.model.Init()
}

// Update implements tea.Model.
func (w *Wizard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			w.err = fmt.Errorf("setup cancelled")
			return w, tea.Quit
		}

	case stepDoneMsg:
		w.steps[w.current].Result(w.model, w.state)
		w.current++
		w.skipAhead()
		if w.current >= len(w.steps) {
			return w, tea.Quit
		}
		w.model = w.steps[w.current].Model(w.state)
		return w, w.model.Init()
	}

	if w.model != nil {
		var cmd tea.Cmd
		w.model, cmd = w.model.Update(msg)
		return w, cmd
	}
	return w, nil
}

// View implements tea.Model.
func (w *Wizard) View() string {
	if w.current >= len(w.steps) {
		return ""
	}
	step := w.steps[w.current]

	s := progressStyle.Render(fmt.Sprintf("Step %d of %d", w.current+1, len(w.steps))) + "\n\n"
	s += titleStyle.Render(step.Title()) + "\n"
	if w.model != nil {
		s += w.model.View()
	}
	return s
}

func (w *Wizard) skipAhead() {
	for w.current < len(w.steps) && w.steps[w.current].Skip(w.state) {
		w.current++
	}
}

// stepDoneMsg signals that the current step finished.
type stepDoneMsg struct{}

func stepDone() tea.Cmd {
	return func() tea.Msg { return stepDoneMsg{} }
}
