// Package prompt renders the phase prompt templates. Templates are
// embedded in the binary; a project can override any of them by
// dropping a file with the same name under .vibe/prompts/.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/vibe-cli/vibe/internal/errors"
	"github.com/vibe-cli/vibe/internal/state"
	"github.com/vibe-cli/vibe/templates"
)

// Source indicates where a prompt template came from.
type Source string

const (
	SourceProject  Source = "project"  // .vibe/prompts/<name>.md
	SourceEmbedded Source = "embedded" // built into the binary
)

// Data carries the variables templates may reference.
type Data struct {
	ProjectName     string
	ProjectType     string
	Context         string
	Instructions    string
	TaskID          string
	TaskTitle       string
	TaskDescription string
	Files           string
}

// Service resolves and renders prompt templates for one project.
type Service struct {
	root string
}

// NewService creates a prompt service for the project rooted at root.
func NewService(root string) *Service {
	return &Service{root: root}
}

func (s *Service) overridePath(name string) string {
	return filepath.Join(s.root, state.Dir, "prompts", name+".md")
}

// Resolve returns the raw template for name, preferring a project
// override over the embedded default.
func (s *Service) Resolve(name string) (string, Source, error) {
	if data, err := os.ReadFile(s.overridePath(name)); err == nil {
		return string(data), SourceProject, nil
	}

	data, err := templates.Prompts.ReadFile("prompts/" + name + ".md")
	if err != nil {
		return "", SourceEmbedded, errors.ErrFileNotFound("prompts/" + name + ".md").WithCause(err)
	}
	return string(data), SourceEmbedded, nil
}

// Render resolves the template for name and executes it with d.
func (s *Service) Render(name string, d Data) (string, error) {
	raw, source, err := s.Resolve(name)
	if err != nil {
		return "", err
	}

	tmpl, err := template.New(name).Parse(raw)
	if err != nil {
		return "", errors.Wrap(err, fmt.Sprintf("parse %s prompt (%s)", name, source))
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, d); err != nil {
		return "", errors.Wrap(err, fmt.Sprintf("render %s prompt", name))
	}
	return strings.TrimSpace(b.String()) + "\n", nil
}

// System renders one of the role prompts ("main" or "knowledge").
func (s *Service) System(role string, d Data) (string, error) {
	raw, err := templates.SystemPrompts.ReadFile("system_prompts/" + role + ".md")
	if err != nil {
		return "", errors.ErrFileNotFound("system_prompts/" + role + ".md").WithCause(err)
	}
	tmpl, err := template.New(role).Parse(string(raw))
	if err != nil {
		return "", errors.Wrap(err, "parse system prompt")
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, d); err != nil {
		return "", errors.Wrap(err, "render system prompt")
	}
	return strings.TrimSpace(b.String()) + "\n", nil
}

// ForPhase maps a phase number to its prompt template name.
func ForPhase(p int) string {
	switch p {
	case 0:
		return "init"
	case 1:
		return "plan"
	case 2:
		return "design"
	case 3:
		return "code"
	case 4:
		return "test"
	default:
		return ""
	}
}
