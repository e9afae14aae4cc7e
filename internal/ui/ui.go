// Package ui is the user-interaction collaborator: confirmation
// prompts, free-text input and diff display. Non-interactive sessions
// (piped stdin, --yes) degrade to sensible defaults so the workflow
// stays scriptable.
package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

var (
	addStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	delStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	headStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("170")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))
)

// Console reads from In and writes to Out. AutoYes answers every
// confirmation positively without prompting (--yes).
type Console struct {
	In      io.Reader
	Out     io.Writer
	AutoYes bool
	isTTY   bool
}

// NewConsole wires a console to the process stdio.
func NewConsole(autoYes bool) *Console {
	return &Console{
		In:      os.Stdin,
		Out:     os.Stdout,
		AutoYes: autoYes,
		isTTY:   isatty.IsTerminal(os.Stdin.Fd()),
	}
}

// Confirm asks a yes/no question. AutoYes and non-TTY sessions take the
// default without prompting; empty input also takes the default.
func (c *Console) Confirm(prompt string, def bool) bool {
	if c.AutoYes {
		return true
	}
	if !c.isTTY && c.In == os.Stdin {
		return def
	}

	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}
	fmt.Fprintf(c.Out, "%s %s ", promptStyle.Render(prompt), dimStyle.Render(hint))

	line, err := bufio.NewReader(c.In).ReadString('\n')
	if err != nil && line == "" {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	default:
		return def
	}
}

// Input reads one line of free text, returning def on empty input.
func (c *Console) Input(prompt, def string) string {
	fmt.Fprintf(c.Out, "%s ", promptStyle.Render(prompt))
	if def != "" {
		fmt.Fprintf(c.Out, "%s ", dimStyle.Render("("+def+")"))
	}

	line, err := bufio.NewReader(c.In).ReadString('\n')
	if err != nil && line == "" {
		return def
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}

// width returns the terminal width, or a conservative default when the
// output is not a terminal.
func (c *Console) width() int {
	if f, ok := c.Out.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			return w
		}
	}
	return 100
}

// ShowDiff renders a line-level diff between old and new content.
// Lines longer than the terminal are truncated, not wrapped.
func (c *Console) ShowDiff(title, oldContent, newContent string) {
	w := c.width()
	fmt.Fprintln(c.Out, headStyle.Render("--- "+title))
	for _, line := range DiffLines(oldContent, newContent) {
		if len(line) > w {
			line = line[:w-1] + "…"
		}
		switch {
		case strings.HasPrefix(line, "+"):
			fmt.Fprintln(c.Out, addStyle.Render(line))
		case strings.HasPrefix(line, "-"):
			fmt.Fprintln(c.Out, delStyle.Render(line))
		default:
			fmt.Fprintln(c.Out, dimStyle.Render(line))
		}
	}
}

// Info prints a status line.
func (c *Console) Info(format string, args ...any) {
	fmt.Fprintf(c.Out, format+"\n", args...)
}

// Success prints a highlighted completion line.
func (c *Console) Success(format string, args ...any) {
	fmt.Fprintln(c.Out, addStyle.Render(fmt.Sprintf(format, args...)))
}
