package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibe-cli/vibe/internal/state"
)

func TestResolveEmbedded(t *testing.T) {
	s := NewService(t.TempDir())

	raw, source, err := s.Resolve("plan")
	require.NoError(t, err)
	assert.Equal(t, SourceEmbedded, source)
	assert.Contains(t, raw, "{{.Context}}")
}

func TestResolveProjectOverride(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, state.Dir, "prompts")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plan.md"), []byte("custom {{.ProjectName}}"), 0o644))

	s := NewService(root)
	raw, source, err := s.Resolve("plan")
	require.NoError(t, err)
	assert.Equal(t, SourceProject, source)
	assert.Equal(t, "custom {{.ProjectName}}", raw)
}

func TestResolveUnknownName(t *testing.T) {
	s := NewService(t.TempDir())
	_, _, err := s.Resolve("nonexistent")
	assert.Error(t, err)
}

func TestRenderSubstitutesVariables(t *testing.T) {
	s := NewService(t.TempDir())

	out, err := s.Render("code", Data{
		ProjectName:     "shop",
		Context:         "## RULES\nkeep it small",
		TaskID:          "T-001",
		TaskTitle:       "Add login",
		TaskDescription: "Session-based login.",
		Files:           "internal/auth/login.go",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "T-001: Add login")
	assert.Contains(t, out, "keep it small")
	assert.Contains(t, out, "internal/auth/login.go")
	assert.NotContains(t, out, "{{")
}

func TestRenderOmitsEmptyInstructions(t *testing.T) {
	s := NewService(t.TempDir())

	out, err := s.Render("plan", Data{ProjectName: "shop", Context: "ctx"})
	require.NoError(t, err)
	assert.NotContains(t, out, "Additional direction")

	out2, err := s.Render("plan", Data{ProjectName: "shop", Context: "ctx", Instructions: "focus on mobile"})
	require.NoError(t, err)
	assert.Contains(t, out2, "focus on mobile")
}

func TestSystemPrompts(t *testing.T) {
	s := NewService(t.TempDir())

	main, err := s.System("main", Data{ProjectName: "shop", ProjectType: "backend"})
	require.NoError(t, err)
	assert.Contains(t, main, "shop")

	knowledge, err := s.System("knowledge", Data{ProjectName: "shop", ProjectType: "backend"})
	require.NoError(t, err)
	assert.Contains(t, knowledge, "long-context")

	_, err = s.System("other", Data{})
	assert.Error(t, err)
}

func TestForPhase(t *testing.T) {
	assert.Equal(t, "init", ForPhase(0))
	assert.Equal(t, "plan", ForPhase(1))
	assert.Equal(t, "design", ForPhase(2))
	assert.Equal(t, "code", ForPhase(3))
	assert.Equal(t, "test", ForPhase(4))
	assert.Equal(t, "", ForPhase(9))
}
