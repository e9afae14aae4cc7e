package wizard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Option is one selectable choice.
type Option struct {
	Value string
	Label string
	Hint  string
}

// SelectStep picks one option from a list.
type SelectStep struct {
	id       string
	title    string
	options  []Option
	skipFunc func(State) bool
}

// NewSelectStep creates a select step storing its result under id.
func NewSelectStep(id, title string, options []Option) *SelectStep {
	return &SelectStep{id: id, title: title, options: options}
}

// WithSkipFunc makes the step conditional on earlier answers.
func (s *SelectStep) WithSkipFunc(fn func(State) bool) *SelectStep {
	s.skipFunc = fn
	return s
}

func (s *SelectStep) ID() string    { return s.id }
func (s *SelectStep) Title() string { return s.title }

func (s *SelectStep) Skip(state State) bool {
	return s.skipFunc != nil && s.skipFunc(state)
}

func (s *SelectStep) Model(State) tea.Model {
	return &selectModel{options: s.options, selected: -1}
}

func (s *SelectStep) Result(model tea.Model, state State) {
	if m, ok := model.(*selectModel); ok && m.selected >= 0 {
		state[s.id] = m.options[m.selected].Value
	}
}

type selectModel struct {
	options  []Option
	cursor   int
	selected int
}

func (m *selectModel) Init() tea.Cmd { return nil }

func (m *selectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.options)-1 {
				m.cursor++
			}
		case "enter", " ":
			m.selected = m.cursor
			return m, stepDone()
		}
	}
	return m, nil
}

func (m *selectModel) View() string {
	var b strings.Builder
	for i, opt := range m.options {
		line := "  " + opt.Label
		if i == m.cursor {
			line = "> " + opt.Label
		}
		if opt.Hint != "" {
			line += " - " + hintStyle.Render(opt.Hint)
		}
		if i == m.cursor {
			line = cursorStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n" + hintStyle.Render("↑/↓: navigate • enter: select"))
	return b.String()
}

// ConfirmStep asks a yes/no question.
type ConfirmStep struct {
	id         string
	title      string
	defaultVal bool
	skipFunc   func(State) bool
}

// NewConfirmStep creates a yes/no step defaulting to yes.
func NewConfirmStep(id, title string) *ConfirmStep {
	return &ConfirmStep{id: id, title: title, defaultVal: true}
}

// WithDefault sets the preselected answer.
func (s *ConfirmStep) WithDefault(val bool) *ConfirmStep {
	s.defaultVal = val
	return s
}

// WithSkipFunc makes the step conditional on earlier answers.
func (s *ConfirmStep) WithSkipFunc(fn func(State) bool) *ConfirmStep {
	s.skipFunc = fn
	return s
}

func (s *ConfirmStep) ID() string    { return s.id }
func (s *ConfirmStep) Title() string { return s.title }

func (s *ConfirmStep) Skip(state State) bool {
	return s.skipFunc != nil && s.skipFunc(state)
}

func (s *ConfirmStep) Model(State) tea.Model {
	return &confirmModel{value: s.defaultVal}
}

func (s *ConfirmStep) Result(model tea.Model, state State) {
	if m, ok := model.(*confirmModel); ok {
		state[s.id] = m.value
	}
}

type confirmModel struct {
	value bool
}

func (m *confirmModel) Init() tea.Cmd { return nil }

func (m *confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "y", "Y":
			m.value = true
			return m, stepDone()
		case "n", "N":
			m.value = false
			return m, stepDone()
		case "enter":
			return m, stepDone()
		case "left", "h":
			m.value = true
		case "right", "l":
			m.value = false
		}
	}
	return m, nil
}

func (m *confirmModel) View() string {
	yes, no := hintStyle.Render(" Yes "), cursorStyle.Render("[No]")
	if m.value {
		yes, no = cursorStyle.Render("[Yes]"), hintStyle.Render(" No ")
	}
	return fmt.Sprintf("%s / %s\n\n%s", yes, no,
		hintStyle.Render("y/n: select • ←/→: toggle • enter: confirm"))
}

// InputStep collects one line of text.
type InputStep struct {
	id          string
	title       string
	placeholder string
	defaultVal  string
	validate    func(string) error
}

// NewInputStep creates a text input step.
func NewInputStep(id, title string) *InputStep {
	return &InputStep{id: id, title: title}
}

// WithPlaceholder sets the placeholder text.
func (s *InputStep) WithPlaceholder(p string) *InputStep {
	s.placeholder = p
	return s
}

// WithDefault sets the initial value.
func (s *InputStep) WithDefault(val string) *InputStep {
	s.defaultVal = val
	return s
}

// WithValidate rejects input until it passes fn.
func (s *InputStep) WithValidate(fn func(string) error) *InputStep {
	s.validate = fn
	return s
}

func (s *InputStep) ID() string      { return s.id }
func (s *InputStep) Title() string   { return s.title }
func (s *InputStep) Skip(State) bool { return false }

func (s *InputStep) Model(State) tea.Model {
	ti := textinput.New()
	ti.Placeholder = s.placeholder
	ti.SetValue(s.defaultVal)
	ti.Focus()
	ti.Width = 50
	return &inputModel{textInput: ti, validate: s.validate}
}

func (s *InputStep) Result(model tea.Model, state State) {
	if m, ok := model.(*inputModel); ok {
		state[s.id] = strings.TrimSpace(m.textInput.Value())
	}
}

type inputModel struct {
	textInput textinput.Model
	validate  func(string) error
	err       error
}

func (m *inputModel) Init() tea.Cmd { return textinput.Blink }

func (m *inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		if m.validate != nil {
			if err := m.validate(strings.TrimSpace(m.textInput.Value())); err != nil {
				m.err = err
				return m, nil
			}
		}
		return m, stepDone()
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m *inputModel) View() string {
	s := m.textInput.View() + "\n\n"
	if m.err != nil {
		s += errorStyle.Render("Error: "+m.err.Error()) + "\n"
	}
	return s + hintStyle.Render("enter: confirm")
}
