package artifact

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/vibe-cli/vibe/internal/phase"
	"github.com/vibe-cli/vibe/internal/state"
)

// ignoreDirs are pruned from the walk entirely.
var ignoreDirs = map[string]bool{
	state.Dir:      true,
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	"dist":         true,
	"build":        true,
}

// ignoreGlobs excludes individual files from cold-storage collection.
var ignoreGlobs = []string{
	"**/*.lock",
	"**/*.min.js",
	"**/*.sqlite",
	"**/*.db",
}

// contextNames returns the artifacts a phase may read, in canonical order.
// Later phases see strictly more than earlier ones.
func contextNames(p phase.Phase) []Name {
	switch {
	case p <= phase.Init:
		return nil
	case p == phase.Plan:
		return []Name{TechStack, Rules}
	case p == phase.Design:
		return []Name{TechStack, Rules, PRD, UserStories}
	default:
		return Names
	}
}

// ContextForPhase assembles the generation context for a phase. It is a
// deterministic projection of stored artifacts: same files in, same
// payload out.
func (s *Store) ContextForPhase(p phase.Phase) (string, error) {
	var b strings.Builder
	for _, name := range contextNames(p) {
		if !s.Exists(name) {
			continue
		}
		content, err := s.Read(name)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", name, strings.TrimRight(content, "\n"))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// HotContext is the small working set handed to the main model while
// coding: project rules, the file under edit, and the task at hand.
func (s *Store) HotContext(taskDescription, currentFile string) (string, error) {
	var b strings.Builder
	if s.Exists(Rules) {
		rules, err := s.Read(Rules)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "## RULES\n\n%s\n\n", strings.TrimRight(rules, "\n"))
	}
	if taskDescription != "" {
		fmt.Fprintf(&b, "## TASK\n\n%s\n\n", strings.TrimRight(taskDescription, "\n"))
	}
	if currentFile != "" {
		data, err := os.ReadFile(filepath.Join(s.root, currentFile))
		if err == nil {
			fmt.Fprintf(&b, "## FILE %s\n\n%s\n\n", currentFile, strings.TrimRight(string(data), "\n"))
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// ColdContext is the long-context payload for the knowledge model: every
// artifact plus the source tree listing, with ignore globs applied.
func (s *Store) ColdContext() (string, error) {
	docs, err := s.ContextForPhase(phase.Test)
	if err != nil {
		return "", err
	}

	files, err := s.collectSourceFiles()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(docs)
	if len(files) > 0 {
		b.WriteString("\n\n## SOURCE TREE\n\n")
		for _, f := range files {
			b.WriteString(f)
			b.WriteByte('\n')
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// collectSourceFiles walks the project root and returns relative paths
// of regular files not matched by the ignore globs, sorted by the walk
// order (lexical, so deterministic).
func (s *Store) collectSourceFiles() ([]string, error) {
	var out []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if ignoreDirs[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}
		for _, glob := range ignoreGlobs {
			if ok, _ := doublestar.Match(glob, rel); ok {
				return nil
			}
		}
		out = append(out, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
