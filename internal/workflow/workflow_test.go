package workflow

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibe-cli/vibe/internal/artifact"
	"github.com/vibe-cli/vibe/internal/config"
	"github.com/vibe-cli/vibe/internal/errors"
	"github.com/vibe-cli/vibe/internal/git"
	"github.com/vibe-cli/vibe/internal/history"
	"github.com/vibe-cli/vibe/internal/lock"
	"github.com/vibe-cli/vibe/internal/orchestrator"
	"github.com/vibe-cli/vibe/internal/phase"
	"github.com/vibe-cli/vibe/internal/prompt"
	"github.com/vibe-cli/vibe/internal/provider"
	"github.com/vibe-cli/vibe/internal/state"
	"github.com/vibe-cli/vibe/internal/task"
	"github.com/vibe-cli/vibe/internal/ui"
)

// scriptProvider returns canned responses in order and records requests.
type scriptProvider struct {
	replies  []string
	requests []provider.Request
}

func (p *scriptProvider) Name() string         { return "fake" }
func (p *scriptProvider) DefaultModel() string { return "fake-1" }

func (p *scriptProvider) Generate(ctx context.Context, req provider.Request) (*provider.Response, error) {
	p.requests = append(p.requests, req)
	if len(p.replies) == 0 {
		return nil, errors.ErrProviderUnavailable("fake")
	}
	reply := p.replies[0]
	p.replies = p.replies[1:]
	return &provider.Response{Content: reply, Model: "fake-1"}, nil
}

func (p *scriptProvider) Stream(ctx context.Context, req provider.Request) (<-chan provider.Chunk, error) {
	ch := make(chan provider.Chunk)
	close(ch)
	return ch, nil
}

// byteReader yields one byte per Read so consecutive bufio readers do
// not swallow later lines.
type byteReader struct {
	s string
	i int
}

func (r *byteReader) Read(p []byte) (int, error) {
	if r.i >= len(r.s) {
		return 0, io.EOF
	}
	p[0] = r.s[r.i]
	r.i++
	return 1, nil
}

// stubRunner scripts command results by command name, with per-name
// call counting so a check can fail once and then pass.
type stubRunner struct {
	calls   map[string]int
	results map[string][]struct {
		out string
		err error
	}
}

func (r *stubRunner) Run(workDir, name string, args ...string) (string, error) {
	if r.calls == nil {
		r.calls = map[string]int{}
	}
	n := r.calls[name]
	r.calls[name]++
	seq := r.results[name]
	if n < len(seq) {
		return seq[n].out, seq[n].err
	}
	return "", nil
}

func newTestController(t *testing.T, replies ...string) (*Controller, *scriptProvider) {
	t.Helper()
	root := t.TempDir()

	cfg := config.Default()
	cfg.ProjectName = "demo"
	cfg.AutoCommit = false

	prov := &scriptProvider{replies: replies}
	runner := &stubRunner{}
	c := &Controller{
		Root:    root,
		Config:  cfg,
		Store:   artifact.NewStore(root),
		Orch:    orchestrator.NewSingle(prov, modelConfig(cfg)),
		Prompts: prompt.NewService(root),
		Console: &ui.Console{In: strings.NewReader(""), Out: &bytes.Buffer{}, AutoYes: true},
		Git:     git.New(root, runner),
		Runner:  runner,
		Locker:  lock.New(root, "test@host"),
	}

	require.NoError(t, os.MkdirAll(filepath.Join(root, state.Dir), 0o755))
	require.NoError(t, state.New(cfg.Dual.Enabled).Save(root))
	return c, prov
}

// advanceTo completes every phase before p so Begin(p) is legal.
func advanceTo(t *testing.T, c *Controller, p phase.Phase) {
	t.Helper()
	st, err := state.Load(c.Root)
	require.NoError(t, err)
	m, err := st.Machine()
	require.NoError(t, err)
	gate := phase.GateFunc(func(phase.Phase) bool { return true })
	for q := phase.Init; q < p; q++ {
		require.NoError(t, m.Begin(q))
		require.NoError(t, m.Complete(q, gate))
	}
	st.Apply(m)
	require.NoError(t, st.Save(c.Root))
}

func writeAllArtifacts(t *testing.T, c *Controller) {
	t.Helper()
	docs := map[artifact.Name]string{
		artifact.TechStack:   "- Go 1.22: performance\n",
		artifact.Rules:       "keep functions small\n",
		artifact.PRD:         "requirements\n",
		artifact.UserStories: "stories\n",
		artifact.Tree:        "```\ndemo/\n└── core.txt\n```\n",
		artifact.Schema:      "no schema\n",
	}
	for name, content := range docs {
		require.NoError(t, c.Store.Write(name, content, phase.Init))
	}
}

func TestDocumentPhaseWritesArtifactsAndState(t *testing.T) {
	c, _ := newTestController(t, "go and postgres\n---\nkeep it simple")

	err := c.RunDocumentPhase(context.Background(), phase.Init, StepOptions{})
	require.NoError(t, err)

	stack, err := c.Store.Read(artifact.TechStack)
	require.NoError(t, err)
	assert.Contains(t, stack, "go and postgres")

	rules, err := c.Store.Read(artifact.Rules)
	require.NoError(t, err)
	assert.Contains(t, rules, "keep it simple")

	st, err := state.Load(c.Root)
	require.NoError(t, err)
	assert.Equal(t, phase.StatusCompleted, st.PhaseStatus[phase.Init])
	assert.Equal(t, phase.Plan, st.CurrentPhase)

	hist, err := history.Open(filepath.Join(c.Root, state.Dir))
	require.NoError(t, err)
	defer hist.Close()
	n, err := hist.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDocumentPhaseDryRunLeavesNoTrace(t *testing.T) {
	c, _ := newTestController(t, "stack\n---\nrules")
	c.DryRun = true

	require.NoError(t, c.RunDocumentPhase(context.Background(), phase.Init, StepOptions{}))

	assert.False(t, c.Store.Exists(artifact.TechStack))
	st, err := state.Load(c.Root)
	require.NoError(t, err)
	assert.Equal(t, phase.StatusInProgress, st.PhaseStatus[phase.Init])
}

func TestDocumentPhaseRejectionAbandons(t *testing.T) {
	c, _ := newTestController(t, "stack\n---\nrules")
	c.Console = &ui.Console{In: &byteReader{s: "n\n\n"}, Out: &bytes.Buffer{}}

	err := c.RunDocumentPhase(context.Background(), phase.Init, StepOptions{})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, context.Canceled))
	assert.False(t, c.Store.Exists(artifact.TechStack))
}

func TestDocumentPhaseEditsRegenerate(t *testing.T) {
	c, prov := newTestController(t,
		"draft stack\n---\ndraft rules",
		"final stack\n---\nfinal rules")
	c.Console = &ui.Console{In: &byteReader{s: "n\nshorter please\ny\n"}, Out: &bytes.Buffer{}}

	require.NoError(t, c.RunDocumentPhase(context.Background(), phase.Init, StepOptions{}))
	require.Len(t, prov.requests, 2)

	second := prov.requests[1]
	last := second.Messages[len(second.Messages)-1]
	assert.Contains(t, last.Content, "shorter please")

	stack, err := c.Store.Read(artifact.TechStack)
	require.NoError(t, err)
	assert.Contains(t, stack, "final stack")
}

func TestDocumentPhaseConcurrentAccessFails(t *testing.T) {
	c, _ := newTestController(t, "stack\n---\nrules")
	other := lock.New(c.Root, "other@host")
	require.NoError(t, other.Acquire())

	err := c.RunDocumentPhase(context.Background(), phase.Init, StepOptions{})
	assert.True(t, errors.HasCode(err, errors.CodeConcurrentAccess))
}

func TestDesignPhaseValidatesTodo(t *testing.T) {
	todo := "# TODO\n\n## Phase 3\n\n- [ ] T-001: Build core (must) [files: core.txt]\n- [ ] T-002: Wire it up (should) [deps: T-001]"
	c, _ := newTestController(t, "tree\n---\nschema\n---\n"+todo)
	writeAllArtifacts(t, c)
	advanceTo(t, c, phase.Design)

	require.NoError(t, c.RunDocumentPhase(context.Background(), phase.Design, StepOptions{}))

	content, err := c.Store.Read(artifact.Todo)
	require.NoError(t, err)
	graph, err := task.Parse(content)
	require.NoError(t, err)
	assert.Equal(t, 2, graph.Len())

	st, err := state.Load(c.Root)
	require.NoError(t, err)
	assert.Equal(t, phase.StatusCompleted, st.PhaseStatus[phase.Design])
}

func TestCodePhaseWritesTaskFiles(t *testing.T) {
	c, _ := newTestController(t, "FILE: core.txt\n```\nhello world\n```")
	writeAllArtifacts(t, c)
	todo := "## Phase 3\n\n- [ ] T-001: Build core (must) [files: core.txt]\n"
	require.NoError(t, c.Store.Write(artifact.Todo, todo, phase.Design))
	advanceTo(t, c, phase.Code)

	require.NoError(t, c.RunCodePhase(context.Background(), "", StepOptions{}))

	data, err := os.ReadFile(filepath.Join(c.Root, "core.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", string(data))

	content, err := c.Store.Read(artifact.Todo)
	require.NoError(t, err)
	assert.Contains(t, content, "- [x] T-001")

	st, err := state.Load(c.Root)
	require.NoError(t, err)
	assert.Equal(t, phase.StatusCompleted, st.PhaseStatus[phase.Code])
}

func TestCodePhaseUnknownTask(t *testing.T) {
	c, _ := newTestController(t)
	writeAllArtifacts(t, c)
	todo := "## Phase 3\n\n- [ ] T-001: Build core (must)\n"
	require.NoError(t, c.Store.Write(artifact.Todo, todo, phase.Design))
	advanceTo(t, c, phase.Code)

	err := c.RunCodePhase(context.Background(), "T-999", StepOptions{})
	assert.True(t, errors.HasCode(err, errors.CodeTaskNotFound))
}

func TestCodePhaseNoReadyTask(t *testing.T) {
	c, _ := newTestController(t)
	writeAllArtifacts(t, c)
	todo := "## Phase 3\n\n- [x] T-001: Build core (must)\n"
	require.NoError(t, c.Store.Write(artifact.Todo, todo, phase.Design))
	advanceTo(t, c, phase.Code)

	err := c.RunCodePhase(context.Background(), "", StepOptions{})
	assert.True(t, errors.HasCode(err, errors.CodeTaskDependencyUnmet))
}

func TestCodePhaseBlockedTaskFailsBeforeGeneration(t *testing.T) {
	c, prov := newTestController(t, "FILE: wired.txt\n```\nwired\n```")
	writeAllArtifacts(t, c)
	todo := "## Phase 3\n\n- [ ] T-001: Build core (must) [files: core.txt]\n- [ ] T-002: Wire it up (must) [deps: T-001] [files: wired.txt]\n"
	require.NoError(t, c.Store.Write(artifact.Todo, todo, phase.Design))
	advanceTo(t, c, phase.Code)

	err := c.RunCodePhase(context.Background(), "T-002", StepOptions{})
	assert.True(t, errors.HasCode(err, errors.CodeTaskDependencyUnmet))

	// Rejected before any model call, so nothing can have landed.
	assert.Empty(t, prov.requests)
	assert.NoFileExists(t, filepath.Join(c.Root, "wired.txt"))
}

func TestCodePhaseCompletedTaskNotRerun(t *testing.T) {
	c, prov := newTestController(t, "FILE: core.txt\n```\nagain\n```")
	writeAllArtifacts(t, c)
	todo := "## Phase 3\n\n- [x] T-001: Build core (must) [files: core.txt]\n- [ ] T-002: Wire it up (must)\n"
	require.NoError(t, c.Store.Write(artifact.Todo, todo, phase.Design))
	advanceTo(t, c, phase.Code)

	err := c.RunCodePhase(context.Background(), "T-001", StepOptions{})
	assert.True(t, errors.HasCode(err, errors.CodeTaskDependencyUnmet))
	assert.Empty(t, prov.requests)
}

func TestConfiguredModelAndBudgetReachProvider(t *testing.T) {
	c, prov := newTestController(t, "stack\n---\nrules")
	c.Config.Dual.Enabled = false
	c.Config.Model = "my-model"
	c.Config.TokenBudget = 50000
	c.Orch = orchestrator.NewSingle(prov, modelConfig(c.Config))

	require.NoError(t, c.RunDocumentPhase(context.Background(), phase.Init, StepOptions{}))

	require.Len(t, prov.requests, 1)
	assert.Equal(t, "my-model", prov.requests[0].Model)
	assert.Equal(t, 50000, prov.requests[0].MaxTokens)
}

func TestModelConfigResolution(t *testing.T) {
	cfg := config.Default()
	m := modelConfig(cfg)
	assert.Equal(t, cfg.Dual.MainModel, m.Main)
	assert.Equal(t, cfg.Dual.KnowledgeModel, m.Knowledge)
	assert.Equal(t, cfg.TokenBudget, m.MaxTokens)

	// The --model override wins over the dual-mode main model.
	cfg.Model = "override"
	assert.Equal(t, "override", modelConfig(cfg).Main)
	assert.Equal(t, cfg.Dual.KnowledgeModel, modelConfig(cfg).Knowledge)

	cfg.Dual.Enabled = false
	m = modelConfig(cfg)
	assert.Equal(t, "override", m.Main)
	assert.Equal(t, "override", m.Knowledge)
}

func TestNewToleratesMissingAPIKeys(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	root := t.TempDir()
	cfg := config.Default()
	cfg.ProjectName = "demo"
	require.NoError(t, os.MkdirAll(filepath.Join(root, state.Dir), 0o755))
	require.NoError(t, state.New(cfg.Dual.Enabled).Save(root))

	c, err := New(root, cfg, ui.NewConsole(true))
	require.NoError(t, err)

	r, err := c.Status()
	require.NoError(t, err)
	assert.Equal(t, phase.Init, r.CurrentPhase)
}

func TestCodePhaseHealsOnVerifyFailure(t *testing.T) {
	c, prov := newTestController(t,
		"FILE: main.go\n```go\npackage main\n```",
		"FILE: main.go\n```go\npackage main\n\nfunc main() {}\n```")
	writeAllArtifacts(t, c)
	todo := "## Phase 3\n\n- [ ] T-001: Entry point (must) [files: main.go]\n"
	require.NoError(t, c.Store.Write(artifact.Todo, todo, phase.Design))
	advanceTo(t, c, phase.Code)

	// First gofmt run reports the file unformatted, the second is clean.
	runner := &stubRunner{results: map[string][]struct {
		out string
		err error
	}{
		"gofmt": {{out: "main.go"}, {out: ""}},
	}}
	c.Runner = runner

	require.NoError(t, c.RunCodePhase(context.Background(), "", StepOptions{}))
	require.Len(t, prov.requests, 2)

	healMsg := prov.requests[1].Messages[len(prov.requests[1].Messages)-1]
	assert.Contains(t, healMsg.Content, "gofmt")

	data, err := os.ReadFile(filepath.Join(c.Root, "main.go"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "func main()")

	assert.NoDirExists(t, filepath.Join(c.Root, state.Dir, "staging"))
}

func TestTestPhaseAuditWritesContextArtifact(t *testing.T) {
	c, _ := newTestController(t, "data flows cleanly, one gap in error handling")
	writeAllArtifacts(t, c)
	advanceTo(t, c, phase.Test)

	require.NoError(t, c.RunTestPhase(context.Background(), TestOptions{}))

	audit, err := c.Store.Read(artifact.Context)
	require.NoError(t, err)
	assert.Contains(t, audit, "one gap in error handling")

	st, err := state.Load(c.Root)
	require.NoError(t, err)
	assert.Equal(t, phase.StatusCompleted, st.PhaseStatus[phase.Test])
}

func TestTestPhaseEdgeCasesWritesFiles(t *testing.T) {
	c, _ := newTestController(t, "FILE: edge.txt\n```\nboundary cases\n```")
	writeAllArtifacts(t, c)
	advanceTo(t, c, phase.Test)

	require.NoError(t, c.RunTestPhase(context.Background(), TestOptions{EdgeCases: true}))

	data, err := os.ReadFile(filepath.Join(c.Root, "edge.txt"))
	require.NoError(t, err)
	assert.Equal(t, "boundary cases\n", string(data))
}

func TestUndoRestoresPreviousState(t *testing.T) {
	c, _ := newTestController(t, "stack\n---\nrules")
	require.NoError(t, c.RunDocumentPhase(context.Background(), phase.Init, StepOptions{}))

	c.Orch = orchestrator.NewSingle(&scriptProvider{replies: []string{"prd\n---\nstories"}}, modelConfig(c.Config))
	require.NoError(t, c.RunDocumentPhase(context.Background(), phase.Plan, StepOptions{}))

	st, err := state.Load(c.Root)
	require.NoError(t, err)
	require.Equal(t, phase.StatusCompleted, st.PhaseStatus[phase.Plan])

	require.NoError(t, c.Undo(context.Background()))

	st, err = state.Load(c.Root)
	require.NoError(t, err)
	assert.Equal(t, phase.StatusCompleted, st.PhaseStatus[phase.Init])
	assert.NotEqual(t, phase.StatusCompleted, st.PhaseStatus[phase.Plan])
}

func TestUndoWithEmptyHistory(t *testing.T) {
	c, _ := newTestController(t)
	assert.NoError(t, c.Undo(context.Background()))
}

func TestScaffoldCreatesTreeEntries(t *testing.T) {
	c, _ := newTestController(t)
	advanceTo(t, c, phase.Code)
	tree := "```\ndemo/\n├── cmd/\n│   └── main.go\n└── README.md\n```"
	require.NoError(t, c.Store.Write(artifact.Tree, tree, phase.Design))

	require.NoError(t, c.Scaffold(context.Background(), false))

	assert.FileExists(t, filepath.Join(c.Root, "cmd", "main.go"))
	assert.FileExists(t, filepath.Join(c.Root, "README.md"))
}

func TestInitializeCreatesProject(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.ProjectName = "demo"
	cfg.AutoCommit = false

	c := &Controller{
		Root:    root,
		Config:  cfg,
		Store:   artifact.NewStore(root),
		Orch:    orchestrator.NewSingle(&scriptProvider{}, modelConfig(cfg)),
		Prompts: prompt.NewService(root),
		Console: &ui.Console{In: strings.NewReader(""), Out: &bytes.Buffer{}, AutoYes: true},
		Git:     git.New(root, &stubRunner{}),
		Runner:  &stubRunner{},
		Locker:  lock.New(root, "test@host"),
	}

	require.NoError(t, c.Initialize(context.Background(), false))
	assert.True(t, state.Initialized(root))

	err := c.Initialize(context.Background(), false)
	assert.True(t, errors.HasCode(err, errors.CodeAlreadyInitialized))
	assert.NoError(t, c.Initialize(context.Background(), true))
}

func TestStatusReportsProgress(t *testing.T) {
	c, _ := newTestController(t)
	writeAllArtifacts(t, c)
	todo := "## Phase 3\n\n- [x] T-001: Done (must)\n- [ ] T-002: Open (must)\n"
	require.NoError(t, c.Store.Write(artifact.Todo, todo, phase.Design))

	r, err := c.Status()
	require.NoError(t, err)
	assert.Equal(t, phase.Init, r.CurrentPhase)
	assert.Equal(t, 1, r.TasksCompleted)
	assert.Equal(t, 2, r.TasksTotal)
	assert.Nil(t, r.Lock)

	require.NoError(t, lock.New(c.Root, "other@host").Acquire())
	r, err = c.Status()
	require.NoError(t, err)
	require.NotNil(t, r.Lock)
	assert.Equal(t, "other@host", r.Lock.Owner)
}
