package artifact

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibe-cli/vibe/internal/errors"
	"github.com/vibe-cli/vibe/internal/phase"
	"github.com/vibe-cli/vibe/internal/state"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, state.Dir), 0o755))
	return NewStore(root)
}

func TestWriteReadRoundTrip(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Write(PRD, "# Product\n\nBuild the thing.\n", phase.Plan))

	got, err := s.Read(PRD)
	require.NoError(t, err)
	assert.Equal(t, "# Product\n\nBuild the thing.\n", got)
	assert.True(t, s.Exists(PRD))
}

func TestReadMissingArtifact(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Read(Schema)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeArtifactNotFound))
	assert.False(t, s.Exists(Schema))
}

func TestUnknownNameRejected(t *testing.T) {
	s := newTestStore(t)

	err := s.Write(Name("../../etc/passwd"), "x", phase.Plan)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeArtifactNotFound))

	_, err = s.Read(Name("NOTES"))
	assert.Error(t, err)
}

func TestProducedInPhaseStampedOnce(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Write(PRD, "v1", phase.Plan))
	meta1, ok, err := s.MetaFor(PRD)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, phase.Plan, meta1.ProducedInPhase)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.Write(PRD, "v2", phase.Code))
	meta2, ok, err := s.MetaFor(PRD)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, phase.Plan, meta2.ProducedInPhase, "first writer keeps provenance")
	assert.True(t, meta2.LastModified.After(meta1.LastModified))

	got, err := s.Read(PRD)
	require.NoError(t, err)
	assert.Equal(t, "v2", got)
}

func TestListCanonicalOrder(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Write(Todo, "- [ ] T-001: thing", phase.Design))
	require.NoError(t, s.Write(TechStack, "Go", phase.Init))
	require.NoError(t, s.Write(PRD, "prd", phase.Plan))

	assert.Equal(t, []Name{TechStack, PRD, Todo}, s.List())
}

func TestContextForPhaseGrowsWithPhase(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Write(TechStack, "Go and sqlite", phase.Init))
	require.NoError(t, s.Write(Rules, "keep it simple", phase.Init))
	require.NoError(t, s.Write(PRD, "the product", phase.Plan))

	ctx0, err := s.ContextForPhase(phase.Init)
	require.NoError(t, err)
	assert.Empty(t, ctx0)

	ctx1, err := s.ContextForPhase(phase.Plan)
	require.NoError(t, err)
	assert.Contains(t, ctx1, "Go and sqlite")
	assert.Contains(t, ctx1, "keep it simple")
	assert.NotContains(t, ctx1, "the product")

	ctx2, err := s.ContextForPhase(phase.Design)
	require.NoError(t, err)
	assert.Contains(t, ctx2, "the product")

	ctx3, err := s.ContextForPhase(phase.Code)
	require.NoError(t, err)
	assert.Contains(t, ctx3, "## TECH_STACK")
	assert.Contains(t, ctx3, "## PRD")
}

func TestContextDeterministic(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Write(TechStack, "Go", phase.Init))
	require.NoError(t, s.Write(Rules, "rules", phase.Init))

	a, err := s.ContextForPhase(phase.Plan)
	require.NoError(t, err)
	b, err := s.ContextForPhase(phase.Plan)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestHotContext(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Write(Rules, "no globals", phase.Init))
	require.NoError(t, os.WriteFile(filepath.Join(s.root, "main.go"), []byte("package main"), 0o644))

	hot, err := s.HotContext("implement login", "main.go")
	require.NoError(t, err)
	assert.Contains(t, hot, "no globals")
	assert.Contains(t, hot, "implement login")
	assert.Contains(t, hot, "package main")
}

func TestColdContextCollectsTreeWithIgnores(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Write(Rules, "rules", phase.Init))

	require.NoError(t, os.MkdirAll(filepath.Join(s.root, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(s.root, "src", "app.go"), []byte("package app"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(s.root, "node_modules", "pkg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(s.root, "node_modules", "pkg", "index.js"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(s.root, "yarn.lock"), []byte("x"), 0o644))

	cold, err := s.ColdContext()
	require.NoError(t, err)
	assert.Contains(t, cold, "src/app.go")
	assert.NotContains(t, cold, "node_modules")
	assert.NotContains(t, cold, "yarn.lock")
	assert.NotContains(t, cold, state.Dir+"/")
}
