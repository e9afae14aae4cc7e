// Package scaffold creates the project skeleton described by TREE.md.
// The tree is expected inside a fenced code block, drawn with the usual
// box characters; indentation depth rebuilds the nested paths.
package scaffold

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vibe-cli/vibe/internal/errors"
	"github.com/vibe-cli/vibe/internal/util"
)

// Entry is one path parsed from the tree listing.
type Entry struct {
	Path  string
	IsDir bool
}

// ParseTree extracts entries from a TREE.md document. Only lines inside
// ``` fences count; "#" comments after a name are stripped. A trailing
// slash or an extension-less name marks a directory.
func ParseTree(content string) []Entry {
	var entries []Entry
	// Directory stack by depth; index 0 is the project root.
	stack := []string{""}

	inFence := false
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if !inFence {
			continue
		}

		name, depth := parseLine(line)
		if name == "" {
			continue
		}
		isDir := strings.HasSuffix(name, "/") || !strings.Contains(filepath.Base(name), ".")
		name = strings.TrimSuffix(name, "/")

		// An unindented directory on the first line is the project root
		// header; everything below nests under it.
		if len(entries) == 0 && depth == 0 && isDir {
			entries = append(entries, Entry{Path: name, IsDir: true})
			stack = []string{name}
			continue
		}

		parentIdx := depth - 1
		if parentIdx < 0 {
			parentIdx = 0
		}
		if parentIdx >= len(stack) {
			parentIdx = len(stack) - 1
		}
		rel := filepath.Join(stack[parentIdx], name)

		entries = append(entries, Entry{Path: rel, IsDir: isDir})
		if isDir {
			if depth < len(stack) {
				stack = append(stack[:depth], rel)
			} else {
				stack = append(stack, rel)
			}
		}
	}
	return entries
}

// parseLine strips tree-drawing characters and returns the entry name
// plus its nesting depth. Empty or comment-only lines return "".
func parseLine(line string) (string, int) {
	depth := 0
	rest := line

	// Count indent units made of "│   " or four spaces.
	for {
		if strings.HasPrefix(rest, "│   ") {
			rest = strings.TrimPrefix(rest, "│   ")
			depth++
			continue
		}
		if strings.HasPrefix(rest, "    ") {
			rest = strings.TrimPrefix(rest, "    ")
			depth++
			continue
		}
		break
	}
	for _, prefix := range []string{"├── ", "└── ", "├─ ", "└─ "} {
		if strings.HasPrefix(rest, prefix) {
			rest = strings.TrimPrefix(rest, prefix)
			depth++
			break
		}
	}

	// Strip trailing comment.
	if i := strings.Index(rest, "#"); i >= 0 {
		rest = rest[:i]
	}
	name := strings.TrimSpace(rest)
	if name == "" || strings.ContainsAny(name, "│├└") {
		return "", 0
	}
	return name, depth
}

// Scaffold materializes entries under root. Existing files are left
// alone unless force is set; directories are always ensured. Returns
// the paths actually created.
func Scaffold(root string, entries []Entry, force bool) ([]string, error) {
	var created []string
	for _, e := range entries {
		target := filepath.Join(root, e.Path)
		if !util.WithinRoot(root, target) {
			return created, errors.ErrUnsafePath(e.Path)
		}

		if e.IsDir {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return created, errors.ErrFilePermission(target).WithCause(err)
			}
			created = append(created, e.Path)
			continue
		}

		if _, err := os.Stat(target); err == nil && !force {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return created, errors.ErrFilePermission(target).WithCause(err)
		}
		if err := util.AtomicWriteFile(target, []byte(defaultContent(target)), 0o644); err != nil {
			return created, errors.ErrFilePermission(target).WithCause(err)
		}
		created = append(created, e.Path)
	}
	return created, nil
}

// defaultContent gives new files a minimal seed by extension.
func defaultContent(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return fmt.Sprintf("package %s\n", sanitizeIdent(stem))
	case ".py":
		return fmt.Sprintf("\"\"\"%s module.\"\"\"\n", stem)
	case ".md", ".txt":
		return fmt.Sprintf("# %s\n", stem)
	case ".json":
		return "{}\n"
	case ".yaml", ".yml", ".toml":
		return "# Configuration\n"
	default:
		return ""
	}
}

// sanitizeIdent turns a file stem into a plausible Go package name.
func sanitizeIdent(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r >= 'A' && r <= 'Z' {
			b.WriteRune(r + ('a' - 'A'))
		}
	}
	if b.Len() == 0 {
		return "pkg"
	}
	return b.String()
}
