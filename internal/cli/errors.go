package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/vibe-cli/vibe/internal/errors"
)

var errStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

// printError renders an error for the terminal. VibeErrors carry a
// what/why/fix structure; anything else prints plainly.
func printError(err error) {
	if ve := errors.AsVibeError(err); ve != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", errStyle.Render("error:"), ve.UserMessage())
		return
	}
	fmt.Fprintf(os.Stderr, "%s %v\n", errStyle.Render("error:"), err)
}
