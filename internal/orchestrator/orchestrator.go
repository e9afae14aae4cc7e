// Package orchestrator coordinates the two generation models. The main
// model writes documents and code; the knowledge model holds the
// long-context view and handles analysis, audits and library checks.
// Each phase pairs them differently. In single-model mode the main
// model plays both roles.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vibe-cli/vibe/internal/phase"
	"github.com/vibe-cli/vibe/internal/provider"
)

// Result is the outcome of one orchestrated phase execution.
type Result struct {
	Content   string
	ModelUsed string
	Usage     provider.Usage
	Log       []string // collaboration log, one line per model interaction
}

// Options tunes a phase execution.
type Options struct {
	// ExternalContext is raw material the knowledge model distills
	// before the main model runs (phase 1).
	ExternalContext string
	// Libraries are dependency names the knowledge model audits while
	// the main model designs (phase 2).
	Libraries []string
	// ColdContext is the full-project payload for knowledge-model
	// phases (phase 4 audit).
	ColdContext string
	// EdgeCases switches phase 4 from the knowledge audit to the main
	// model writing edge-case tests.
	EdgeCases bool
}

// Models names the model each role requests and the output token budget
// per call. Empty or zero fields fall back to the provider defaults.
type Models struct {
	Main      string
	Knowledge string
	MaxTokens int
}

// sideCallTokens bounds auxiliary knowledge calls (summaries, audits,
// failure analysis) that only feed into the primary output.
const sideCallTokens = 2048

// Orchestrator routes work between the main and knowledge models.
type Orchestrator struct {
	main      provider.Provider
	knowledge provider.Provider
	models    Models

	mu  sync.Mutex
	log []string
}

// New creates a dual-model orchestrator.
func New(main, knowledge provider.Provider, m Models) *Orchestrator {
	return &Orchestrator{main: main, knowledge: knowledge, models: m}
}

// NewSingle creates an orchestrator where one model plays both roles.
func NewSingle(p provider.Provider, m Models) *Orchestrator {
	return &Orchestrator{main: p, knowledge: p, models: m}
}

// note is safe for concurrent use; phases that fan out call it from
// multiple goroutines.
func (o *Orchestrator) note(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	o.mu.Lock()
	o.log = append(o.log, line)
	o.mu.Unlock()
	slog.Debug("orchestrator", "event", line)
}

func (o *Orchestrator) result(content, model string, usage provider.Usage) *Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	logCopy := make([]string, len(o.log))
	copy(logCopy, o.log)
	return &Result{Content: content, ModelUsed: model, Usage: usage, Log: logCopy}
}

// mainRequest builds the primary-output request for the main model.
func (o *Orchestrator) mainRequest(msgs []provider.Message) provider.Request {
	return provider.Request{Messages: msgs, Model: o.models.Main, MaxTokens: o.models.MaxTokens}
}

// knowledgeRequest builds a knowledge-model request with the given
// output bound.
func (o *Orchestrator) knowledgeRequest(msgs []provider.Message, maxTokens int) provider.Request {
	return provider.Request{Messages: msgs, Model: o.models.Knowledge, MaxTokens: maxTokens}
}

// ExecutePhase runs the collaboration pattern for p.
func (o *Orchestrator) ExecutePhase(ctx context.Context, p phase.Phase, system string, msgs []provider.Message, opts Options) (*Result, error) {
	o.mu.Lock()
	o.log = nil
	o.mu.Unlock()
	switch p {
	case phase.Init:
		return o.initPhase(ctx, system, msgs)
	case phase.Plan:
		return o.planPhase(ctx, system, msgs, opts)
	case phase.Design:
		return o.designPhase(ctx, system, msgs, opts)
	case phase.Code:
		return o.codePhase(ctx, system, msgs)
	case phase.Test:
		return o.testPhase(ctx, system, msgs, opts)
	default:
		return nil, fmt.Errorf("no collaboration pattern for phase %d", p)
	}
}

func withSystem(system string, msgs []provider.Message) []provider.Message {
	if system == "" {
		return msgs
	}
	out := make([]provider.Message, 0, len(msgs)+1)
	out = append(out, provider.Message{Role: provider.RoleSystem, Content: system})
	return append(out, msgs...)
}

// initPhase: the knowledge model alone reads the user's intent and
// proposes the stack.
func (o *Orchestrator) initPhase(ctx context.Context, system string, msgs []provider.Message) (*Result, error) {
	o.note("init: knowledge model analyzes project intent")
	resp, err := o.knowledge.Generate(ctx, o.knowledgeRequest(withSystem(system, msgs), o.models.MaxTokens))
	if err != nil {
		return nil, err
	}
	return o.result(resp.Content, o.knowledge.Name(), resp.Usage), nil
}

// planPhase: the knowledge model distills any external context, then
// the main model writes the requirements with that summary prepended.
func (o *Orchestrator) planPhase(ctx context.Context, system string, msgs []provider.Message, opts Options) (*Result, error) {
	enhanced := msgs
	if opts.ExternalContext != "" {
		o.note("plan: knowledge model distills external context")
		analysis := fmt.Sprintf(
			"Extract the essentials for writing product requirements from this material. List core needs, technical constraints and user goals.\n\n%s",
			opts.ExternalContext)
		summary, err := o.knowledge.Generate(ctx, o.knowledgeRequest(
			[]provider.Message{{Role: provider.RoleUser, Content: analysis}}, sideCallTokens))
		if err != nil {
			return nil, err
		}

		enhanced = make([]provider.Message, 0, len(msgs)+1)
		enhanced = append(enhanced, provider.Message{
			Role:    provider.RoleUser,
			Content: "[Context analysis]\n" + summary.Content,
		})
		enhanced = append(enhanced, msgs...)
	}

	o.note("plan: main model writes requirements")
	resp, err := o.main.Generate(ctx, o.mainRequest(withSystem(system, enhanced)))
	if err != nil {
		return nil, err
	}
	model := o.main.Name()
	if opts.ExternalContext != "" {
		model = o.knowledge.Name() + "+" + o.main.Name()
	}
	return o.result(resp.Content, model, resp.Usage), nil
}

// designPhase: the main model designs while the knowledge model audits
// the dependency list concurrently; the audit is appended to the design.
func (o *Orchestrator) designPhase(ctx context.Context, system string, msgs []provider.Message, opts Options) (*Result, error) {
	var design *provider.Response
	var audit string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		o.note("design: main model drafts the architecture")
		resp, err := o.main.Generate(gctx, o.mainRequest(withSystem(system, msgs)))
		if err != nil {
			return err
		}
		design = resp
		return nil
	})
	if len(opts.Libraries) > 0 {
		g.Go(func() error {
			o.note("design: knowledge model audits %d libraries", len(opts.Libraries))
			prompt := fmt.Sprintf(
				"Audit these dependencies for the project. For each, give the current stable version, known compatibility constraints and conflicts within this set:\n- %s",
				strings.Join(opts.Libraries, "\n- "))
			resp, err := o.knowledge.Generate(gctx, o.knowledgeRequest(
				[]provider.Message{{Role: provider.RoleUser, Content: prompt}}, sideCallTokens))
			if err != nil {
				return err
			}
			audit = resp.Content
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	content := design.Content
	model := o.main.Name()
	if audit != "" {
		content += "\n\n---\n## Library audit\n" + audit
		model += "+" + o.knowledge.Name()
	}
	return o.result(content, model, design.Usage), nil
}

// codePhase: the main model codes alone; retry and healing live in the
// workflow layer.
func (o *Orchestrator) codePhase(ctx context.Context, system string, msgs []provider.Message) (*Result, error) {
	o.note("code: main model generates implementation")
	resp, err := o.main.Generate(ctx, o.mainRequest(withSystem(system, msgs)))
	if err != nil {
		return nil, err
	}
	return o.result(resp.Content, o.main.Name(), resp.Usage), nil
}

// testPhase: by default the knowledge model audits global data flow
// over the cold context; EdgeCases flips to the main model writing
// boundary tests.
func (o *Orchestrator) testPhase(ctx context.Context, system string, msgs []provider.Message, opts Options) (*Result, error) {
	if opts.EdgeCases {
		o.note("test: main model writes edge-case tests")
		resp, err := o.main.Generate(ctx, o.mainRequest(withSystem(system, msgs)))
		if err != nil {
			return nil, err
		}
		return o.result(resp.Content, o.main.Name(), resp.Usage), nil
	}

	o.note("test: knowledge model audits the full project")
	enhanced := msgs
	if opts.ColdContext != "" {
		enhanced = make([]provider.Message, 0, len(msgs)+1)
		enhanced = append(enhanced, provider.Message{
			Role:    provider.RoleUser,
			Content: "[Full project]\n" + opts.ColdContext,
		})
		enhanced = append(enhanced, msgs...)
	}
	resp, err := o.knowledge.Generate(ctx, o.knowledgeRequest(withSystem(system, enhanced), o.models.MaxTokens))
	if err != nil {
		return nil, err
	}
	return o.result(resp.Content, o.knowledge.Name(), resp.Usage), nil
}

// QueryKnowledge asks the knowledge model a free-form question, with
// optional reference context.
func (o *Orchestrator) QueryKnowledge(ctx context.Context, query, refContext string) (string, error) {
	o.note("knowledge query: %.50s", query)
	msgs := []provider.Message{}
	if refContext != "" {
		msgs = append(msgs, provider.Message{Role: provider.RoleUser, Content: "[Reference]\n" + refContext})
	}
	msgs = append(msgs, provider.Message{Role: provider.RoleUser, Content: query})

	resp, err := o.knowledge.Generate(ctx, o.knowledgeRequest(msgs, sideCallTokens))
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// AnalyzeFailure asks the knowledge model why generation keeps failing.
// Used after the main model exhausts its retries.
func (o *Orchestrator) AnalyzeFailure(ctx context.Context, request, failure string) (string, error) {
	o.note("failure analysis by knowledge model")
	prompt := fmt.Sprintf(
		"Generation of the following request failed repeatedly.\n\nRequest:\n%s\n\nFailure:\n%s\n\nExplain the likely cause and how to fix it.",
		request, failure)
	resp, err := o.knowledge.Generate(ctx, o.knowledgeRequest(
		[]provider.Message{{Role: provider.RoleUser, Content: prompt}}, sideCallTokens))
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Stream streams from the main model, used by chat.
func (o *Orchestrator) Stream(ctx context.Context, system string, msgs []provider.Message) (<-chan provider.Chunk, error) {
	return o.main.Stream(ctx, o.mainRequest(withSystem(system, msgs)))
}
