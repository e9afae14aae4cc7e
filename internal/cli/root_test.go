package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibe-cli/vibe/internal/config"
	"github.com/vibe-cli/vibe/internal/errors"
)

func TestCommandsRegistered(t *testing.T) {
	want := []string{"init", "plan", "design", "scaffold", "code", "test", "status", "undo", "chat", "verify", "version"}
	have := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		assert.True(t, have[name], "command %s not registered", name)
	}
}

func TestLoadConfigValidatesProjectConfig(t *testing.T) {
	root := t.TempDir()
	cfgDir := filepath.Join(root, config.Dir)
	require.NoError(t, os.MkdirAll(cfgDir, 0o755))
	bad := "project_name: demo\ntoken_budget: 5\n"
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, config.FileName), []byte(bad), 0o644))

	_, err := loadConfig(root)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeConfigInvalid))
}

func TestLoadConfigBeforeInitUsesDefaults(t *testing.T) {
	cfg, err := loadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.Provider)
}

func TestStepOptionsFromFlags(t *testing.T) {
	dir := t.TempDir()
	brief := filepath.Join(dir, "brief.md")
	require.NoError(t, os.WriteFile(brief, []byte("build a shop"), 0o644))

	cmd := newPlanCmd()
	require.NoError(t, cmd.Flags().Set("instructions", "keep it short"))
	require.NoError(t, cmd.Flags().Set("context", brief))

	opts, err := stepOptionsFromFlags(cmd)
	require.NoError(t, err)
	assert.Equal(t, "keep it short", opts.Instructions)
	assert.Contains(t, opts.ExternalContext, "build a shop")
}

func TestStepOptionsMissingContextFile(t *testing.T) {
	cmd := newPlanCmd()
	require.NoError(t, cmd.Flags().Set("context", "/does/not/exist.md"))
	_, err := stepOptionsFromFlags(cmd)
	assert.Error(t, err)
}
