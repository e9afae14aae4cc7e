// Package git is the version-control collaborator. All operations shell
// out through a CommandRunner so the workflow never depends on a live
// repository in tests.
package git

import (
	"fmt"
	"strings"

	"github.com/vibe-cli/vibe/internal/errors"
)

// CommitPrefix marks commits made by the workflow.
const CommitPrefix = "[vibe]"

// Commit describes one entry of the repository log.
type Commit struct {
	SHA     string
	Message string
}

// Git runs version-control operations against one repository.
type Git struct {
	root   string
	runner CommandRunner
}

// New creates a Git for the repository at root. A nil runner gets the
// default exec-backed one.
func New(root string, runner CommandRunner) *Git {
	if runner == nil {
		runner = NewExecRunner()
	}
	return &Git{root: root, runner: runner}
}

// IsRepo reports whether root is inside a git work tree.
func (g *Git) IsRepo() bool {
	out, err := g.runner.Run(g.root, "git", "rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// Init creates a repository at root if one does not exist.
func (g *Git) Init() error {
	if g.IsRepo() {
		return nil
	}
	if _, err := g.runner.Run(g.root, "git", "init"); err != nil {
		return errors.ErrGit("init", err)
	}
	return nil
}

// HasUncommittedChanges reports whether the work tree is dirty.
func (g *Git) HasUncommittedChanges() (bool, error) {
	out, err := g.runner.Run(g.root, "git", "status", "--porcelain")
	if err != nil {
		return false, errors.ErrGit("status", err)
	}
	return out != "", nil
}

// CommitAll stages everything and commits with the workflow prefix,
// returning the short SHA. Committing a clean tree is a no-op that
// returns the current HEAD.
func (g *Git) CommitAll(message string) (string, error) {
	dirty, err := g.HasUncommittedChanges()
	if err != nil {
		return "", err
	}
	if !dirty {
		return g.head()
	}

	if _, err := g.runner.Run(g.root, "git", "add", "-A"); err != nil {
		return "", errors.ErrGit("add", err)
	}
	full := fmt.Sprintf("%s %s", CommitPrefix, message)
	if _, err := g.runner.Run(g.root, "git", "commit", "-m", full); err != nil {
		return "", errors.ErrGit("commit", err)
	}
	return g.head()
}

func (g *Git) head() (string, error) {
	out, err := g.runner.Run(g.root, "git", "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", errors.ErrGit("rev-parse", err)
	}
	return out, nil
}

// Revert moves the work tree back n commits. The reverted commits stay
// reachable via the reflog, so this is recoverable out of band.
func (g *Git) Revert(n int) error {
	if n < 1 {
		return nil
	}
	ref := fmt.Sprintf("HEAD~%d", n)
	if _, err := g.runner.Run(g.root, "git", "reset", "--hard", ref); err != nil {
		return errors.ErrGit("reset", err)
	}
	return nil
}

// RecentCommits returns up to n log entries, newest first.
func (g *Git) RecentCommits(n int) ([]Commit, error) {
	out, err := g.runner.Run(g.root, "git", "log", fmt.Sprintf("-%d", n), "--format=%h%x09%s")
	if err != nil {
		return nil, errors.ErrGit("log", err)
	}
	if out == "" {
		return nil, nil
	}

	var commits []Commit
	for _, line := range strings.Split(out, "\n") {
		sha, msg, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		commits = append(commits, Commit{SHA: sha, Message: msg})
	}
	return commits, nil
}
