package task

import (
	"strings"
	"testing"

	"github.com/vibe-cli/vibe/internal/phase"
)

const sampleTodo = `# TODO

Notes the model wrote, ignored by the parser.

## Phase 3

- [x] SETUP-001: Project scaffolding (must)
- [>] API-001: Define routes (must) [deps: SETUP-001]
- [ ] API-002: Build the handler (must) [deps: API-001] [files: src/api.go, src/routes.go]
- [~] DOC-001: API docs (could)

## Phase 4

- [ ] TEST-001: End to end tests (must) [deps: API-002]
`

func TestParse(t *testing.T) {
	g, err := Parse(sampleTodo)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if g.Len() != 5 {
		t.Fatalf("Len = %d, want 5", g.Len())
	}

	setup := g.Get("SETUP-001")
	if setup.Status != StatusCompleted {
		t.Errorf("SETUP-001 status = %s, want completed", setup.Status)
	}

	api1 := g.Get("API-001")
	if api1.Status != StatusInProgress {
		t.Errorf("API-001 status = %s, want in_progress", api1.Status)
	}

	api2 := g.Get("API-002")
	if len(api2.DependsOn) != 1 || api2.DependsOn[0] != "API-001" {
		t.Errorf("API-002 deps = %v", api2.DependsOn)
	}
	if len(api2.Files) != 2 || api2.Files[1] != "src/routes.go" {
		t.Errorf("API-002 files = %v", api2.Files)
	}

	doc := g.Get("DOC-001")
	if doc.Status != StatusSkipped || doc.Priority != PriorityCould {
		t.Errorf("DOC-001 = %s/%s, want skipped/could", doc.Status, doc.Priority)
	}

	test1 := g.Get("TEST-001")
	if test1.Phase != phase.Test {
		t.Errorf("TEST-001 phase = %d, want 4", int(test1.Phase))
	}
}

func TestRenderRoundTrip(t *testing.T) {
	g, err := Parse(sampleTodo)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	rendered := Render(g)
	g2, err := Parse(rendered)
	if err != nil {
		t.Fatalf("Parse(Render): %v\n%s", err, rendered)
	}

	if g2.Len() != g.Len() {
		t.Fatalf("round trip lost tasks: %d -> %d", g.Len(), g2.Len())
	}
	for _, orig := range g.All() {
		got := g2.Get(orig.ID)
		if got == nil {
			t.Fatalf("task %s lost in round trip", orig.ID)
		}
		if got.Status != orig.Status || got.Priority != orig.Priority || got.Phase != orig.Phase {
			t.Errorf("task %s changed: %+v -> %+v", orig.ID, orig, got)
		}
	}
}

func TestParseDefaultsPriorityToMust(t *testing.T) {
	g, err := Parse("## Phase 3\n- [ ] API-001: No priority given\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := g.Get("API-001").Priority; got != PriorityMust {
		t.Errorf("priority = %s, want must", got)
	}
}

func TestParseIgnoresProse(t *testing.T) {
	g, err := Parse("Just a paragraph.\n\n- a plain bullet\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if g.Len() != 0 {
		t.Errorf("Len = %d, want 0", g.Len())
	}
}

func TestRenderGroupsByPhase(t *testing.T) {
	g, _ := Parse(sampleTodo)
	out := Render(g)

	p3 := strings.Index(out, "## Phase 3")
	p4 := strings.Index(out, "## Phase 4")
	if p3 < 0 || p4 < 0 || p4 < p3 {
		t.Errorf("phase sections missing or out of order:\n%s", out)
	}
}
