// Package workflow drives one phase step as a short saga: lock, load,
// assemble context, generate, seek approval, then commit everything in
// one final mutation pass. Failures before the commit pass leave no
// trace on disk.
package workflow

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/vibe-cli/vibe/internal/artifact"
	"github.com/vibe-cli/vibe/internal/config"
	"github.com/vibe-cli/vibe/internal/errors"
	"github.com/vibe-cli/vibe/internal/git"
	"github.com/vibe-cli/vibe/internal/history"
	"github.com/vibe-cli/vibe/internal/lock"
	"github.com/vibe-cli/vibe/internal/orchestrator"
	"github.com/vibe-cli/vibe/internal/prompt"
	"github.com/vibe-cli/vibe/internal/provider"
	"github.com/vibe-cli/vibe/internal/state"
	"github.com/vibe-cli/vibe/internal/ui"
)

// Controller wires the collaborators for one project.
type Controller struct {
	Root    string
	Config  *config.Config
	Store   *artifact.Store
	Orch    *orchestrator.Orchestrator
	Prompts *prompt.Service
	Console *ui.Console
	Git     *git.Git
	Runner  git.CommandRunner
	Locker  *lock.ProjectLocker
	DryRun  bool
}

// New assembles a controller for the project at root. The generation
// providers are built from cfg and wrapped with the retry policy.
func New(root string, cfg *config.Config, console *ui.Console) (*Controller, error) {
	orch, err := buildOrchestrator(cfg)
	if err != nil {
		return nil, err
	}
	runner := git.NewExecRunner()
	return &Controller{
		Root:    root,
		Config:  cfg,
		Store:   artifact.NewStore(root),
		Orch:    orch,
		Prompts: prompt.NewService(root),
		Console: console,
		Git:     git.New(root, runner),
		Runner:  runner,
		Locker:  lock.New(root, ""),
	}, nil
}

func buildOrchestrator(cfg *config.Config) (*orchestrator.Orchestrator, error) {
	retryWrap := func(p provider.Provider) provider.Provider {
		return provider.NewRetrier(p, cfg.Retry.MaxAttempts, cfg.Retry.InitialBackoff)
	}
	models := modelConfig(cfg)

	if cfg.Dual.Enabled {
		main, err := provider.New(cfg.Dual.MainProvider, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		knowledge, err := provider.New(cfg.Dual.KnowledgeProvider, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return orchestrator.New(retryWrap(main), retryWrap(knowledge), models), nil
	}

	p, err := provider.New(cfg.Provider, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return orchestrator.NewSingle(retryWrap(p), models), nil
}

// modelConfig resolves which model each role requests. Config.Model is
// the --model override and wins over the dual-mode main model; the
// token budget bounds every primary generation call.
func modelConfig(cfg *config.Config) orchestrator.Models {
	m := orchestrator.Models{Main: cfg.Model, Knowledge: cfg.Model, MaxTokens: cfg.TokenBudget}
	if cfg.Dual.Enabled {
		if m.Main == "" {
			m.Main = cfg.Dual.MainModel
		}
		m.Knowledge = cfg.Dual.KnowledgeModel
	}
	return m
}

// withLock acquires the project lock for the duration of fn, keeping
// the heartbeat fresh. A second live invocation fails fast instead of
// queuing.
func (c *Controller) withLock(ctx context.Context, fn func() error) error {
	if err := c.Locker.Acquire(); err != nil {
		return err
	}
	hb := lock.NewHeartbeatRunner(c.Locker, 0)
	hb.Start(ctx)
	defer func() {
		hb.Stop()
		if err := c.Locker.Release(); err != nil {
			slog.Warn("releasing project lock", "error", err)
		}
	}()
	return fn()
}

// snapshot appends the current state to the history log and stamps the
// action onto the state record. Called only from the commit pass.
func (c *Controller) snapshot(st *state.ProjectState, command string, action state.LastAction) error {
	action.ID = uuid.NewString()
	action.Command = command
	action.Timestamp = time.Now().UTC()
	st.RecordAction(action)

	data, err := json.Marshal(st)
	if err != nil {
		return errors.Wrap(err, "marshal state for history")
	}
	hist, err := history.Open(filepath.Join(c.Root, state.Dir))
	if err != nil {
		return err
	}
	defer hist.Close()
	if _, err := hist.Append(command, data); err != nil {
		return err
	}
	return nil
}
