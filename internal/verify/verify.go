// Package verify runs language toolchains against generated code. A
// verifier is a fixed sequence of command-line checks chosen by file
// extension; unsupported extensions verify trivially.
package verify

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vibe-cli/vibe/internal/git"
)

// Level names one kind of check.
type Level string

const (
	LevelSyntax Level = "syntax"
	LevelTypes  Level = "types"
	LevelLint   Level = "lint"
	LevelTest   Level = "test"
)

// Result is the outcome of one check.
type Result struct {
	Level   Level
	Tool    string
	Success bool
	Output  string
}

func (r Result) String() string {
	status := "PASS"
	if !r.Success {
		status = "FAIL"
	}
	return fmt.Sprintf("%s (%s): %s", r.Level, r.Tool, status)
}

// check is one command in a verifier's sequence. "{file}" in args is
// replaced with the file under verification.
type check struct {
	level Level
	tool  string
	args  []string
}

// Verifier runs the checks for one language.
type Verifier struct {
	Language string
	root     string
	runner   git.CommandRunner
	checks   []check
}

var languages = map[string]struct {
	name   string
	checks []check
}{
	".go": {"Go", []check{
		{LevelSyntax, "gofmt", []string{"gofmt", "-l", "{file}"}},
		{LevelTypes, "go vet", []string{"go", "vet", "./..."}},
		{LevelTest, "go test", []string{"go", "test", "./..."}},
	}},
	".py": {"Python", []check{
		{LevelSyntax, "py_compile", []string{"python3", "-m", "py_compile", "{file}"}},
		{LevelTypes, "mypy", []string{"python3", "-m", "mypy", "--ignore-missing-imports", "{file}"}},
		{LevelLint, "ruff", []string{"python3", "-m", "ruff", "check", "{file}"}},
		{LevelTest, "pytest", []string{"python3", "-m", "pytest", "-q"}},
	}},
	".ts": {"TypeScript", []check{
		{LevelTypes, "tsc", []string{"npx", "tsc", "--noEmit"}},
		{LevelLint, "eslint", []string{"npx", "eslint", "{file}"}},
		{LevelTest, "npm test", []string{"npm", "test", "--silent"}},
	}},
	".js": {"JavaScript", []check{
		{LevelSyntax, "node", []string{"node", "--check", "{file}"}},
		{LevelLint, "eslint", []string{"npx", "eslint", "{file}"}},
		{LevelTest, "npm test", []string{"npm", "test", "--silent"}},
	}},
}

func init() {
	// Extension aliases share a language's check sequence.
	languages[".tsx"] = languages[".ts"]
	languages[".jsx"] = languages[".js"]
	languages[".mjs"] = languages[".js"]
	languages[".pyi"] = languages[".py"]
}

// Supported reports whether a file's extension has a verifier.
func Supported(path string) bool {
	_, ok := languages[strings.ToLower(filepath.Ext(path))]
	return ok
}

// ForFile picks the verifier for a file by extension. A nil runner gets
// the default exec-backed one. Unsupported extensions return a verifier
// with no checks, which always passes.
func ForFile(root, path string, runner git.CommandRunner) *Verifier {
	if runner == nil {
		runner = git.NewExecRunner()
	}
	lang, ok := languages[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return &Verifier{Language: "unknown", root: root, runner: runner}
	}
	return &Verifier{Language: lang.name, root: root, runner: runner, checks: lang.checks}
}

// Verify runs the check sequence for file. A syntax failure stops the
// sequence early since later checks would only repeat the noise.
func (v *Verifier) Verify(file string, skipTests bool) []Result {
	var results []Result
	for _, c := range v.checks {
		if skipTests && c.level == LevelTest {
			continue
		}

		args := make([]string, len(c.args))
		for i, a := range c.args {
			args[i] = strings.ReplaceAll(a, "{file}", file)
		}

		out, err := v.runner.Run(v.root, args[0], args[1:]...)
		success := err == nil
		// gofmt lists unformatted files on stdout without a failing exit.
		if c.tool == "gofmt" && strings.TrimSpace(out) != "" {
			success = false
		}
		results = append(results, Result{
			Level:   c.level,
			Tool:    c.tool,
			Success: success,
			Output:  out,
		})

		if c.level == LevelSyntax && !success {
			break
		}
	}
	return results
}

// Passed reports whether every result succeeded.
func Passed(results []Result) bool {
	for _, r := range results {
		if !r.Success {
			return false
		}
	}
	return true
}

// Summary renders results for terminal output and healing prompts.
func Summary(results []Result) string {
	var b strings.Builder
	failures := 0
	for _, r := range results {
		b.WriteString(r.String())
		b.WriteByte('\n')
		if !r.Success {
			failures++
			if out := strings.TrimSpace(r.Output); out != "" {
				b.WriteString(out)
				b.WriteByte('\n')
			}
		}
	}
	fmt.Fprintf(&b, "%d of %d checks failed\n", failures, len(results))
	return b.String()
}
