package task

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/vibe-cli/vibe/internal/phase"
)

// TODO.md line formats:
//
//	## Phase 3
//	- [ ] API-002: Build the handler (must) [deps: API-001] [files: src/api.go]
//	- [x] API-001: Define routes (should)
//	- [~] API-003: Metrics endpoint (could)
//
// [x] marks completed, [~] skipped, [>] in progress, [ ] pending.
var (
	phaseHeadingRe = regexp.MustCompile(`^##\s+Phase\s+(\d+)`)
	taskLineRe     = regexp.MustCompile(`^- \[([ xX~>])\]\s+([A-Z]+-\d{3}):\s+(.+?)(?:\s+\((\w+)\))?(?:\s+\[deps:\s*([^\]]+)\])?(?:\s+\[files:\s*([^\]]+)\])?\s*$`)
)

// Parse builds a Graph from TODO.md content. Lines that are not phase
// headings or task items are ignored so the document can carry prose.
func Parse(content string) (*Graph, error) {
	g := NewGraph()
	current := phase.Code

	for _, line := range strings.Split(content, "\n") {
		if m := phaseHeadingRe.FindStringSubmatch(line); m != nil {
			n, _ := strconv.Atoi(m[1])
			current = phase.Phase(n)
			continue
		}

		m := taskLineRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}

		t := &Task{
			ID:       m[2],
			Title:    strings.TrimSpace(m[3]),
			Status:   statusFromMarker(m[1]),
			Priority: PriorityMust,
			Phase:    current,
		}
		if m[4] != "" {
			t.Priority = Priority(strings.ToLower(m[4]))
		}
		if m[5] != "" {
			t.DependsOn = splitList(m[5])
		}
		if m[6] != "" {
			t.Files = splitList(m[6])
		}

		if err := g.Add(t); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Render writes the graph back to TODO.md form, grouped by phase in
// insertion order within each group.
func Render(g *Graph) string {
	var b strings.Builder
	b.WriteString("# TODO\n")

	for p := phase.Init; p <= phase.Test; p++ {
		var lines []string
		for _, t := range g.All() {
			if t.Phase != p {
				continue
			}
			lines = append(lines, renderTask(t))
		}
		if len(lines) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## Phase %d\n\n", int(p))
		for _, l := range lines {
			b.WriteString(l)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func renderTask(t *Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- [%s] %s: %s (%s)", markerFor(t.Status), t.ID, t.Title, t.Priority)
	if len(t.DependsOn) > 0 {
		fmt.Fprintf(&b, " [deps: %s]", strings.Join(t.DependsOn, ", "))
	}
	if len(t.Files) > 0 {
		fmt.Fprintf(&b, " [files: %s]", strings.Join(t.Files, ", "))
	}
	return b.String()
}

func statusFromMarker(m string) Status {
	switch strings.ToLower(m) {
	case "x":
		return StatusCompleted
	case "~":
		return StatusSkipped
	case ">":
		return StatusInProgress
	default:
		return StatusPending
	}
}

func markerFor(s Status) string {
	switch s {
	case StatusCompleted:
		return "x"
	case StatusSkipped:
		return "~"
	case StatusInProgress:
		return ">"
	default:
		return " "
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
