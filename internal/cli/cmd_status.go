package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/vibe-cli/vibe/internal/phase"
	"github.com/vibe-cli/vibe/internal/workflow"
)

var (
	statusDoneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	statusCurrentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("170")).Bold(true)
	statusDimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Aliases: []string{"st"},
		Short:   "Show where the project stands",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newController()
			if err != nil {
				return err
			}
			r, err := c.Status()
			if err != nil {
				return err
			}
			printStatus(r)
			return nil
		},
	}
}

func printStatus(r *workflow.StatusReport) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for p := phase.Init; p <= phase.Test; p++ {
		marker := "  "
		line := fmt.Sprintf("%d. %s\t%s", int(p), p, r.PhaseStatus[p])
		switch {
		case r.PhaseStatus[p] == phase.StatusCompleted:
			line = statusDoneStyle.Render(line)
		case p == r.CurrentPhase:
			marker = "> "
			line = statusCurrentStyle.Render(line)
		default:
			line = statusDimStyle.Render(line)
		}
		fmt.Fprintf(w, "%s%s\n", marker, line)
	}
	w.Flush()

	if r.TasksTotal > 0 {
		fmt.Printf("\ntasks: %d/%d completed\n", r.TasksCompleted, r.TasksTotal)
	}
	if r.DualMode {
		fmt.Println(statusDimStyle.Render("dual-model mode active"))
	}
	if r.LastAction != nil {
		fmt.Printf("last action: %s (%s)\n", r.LastAction.Command,
			r.LastAction.Timestamp.Local().Format("2006-01-02 15:04"))
	}
	if r.Lock != nil {
		fmt.Printf("locked by %s (pid %d)\n", r.Lock.Owner, r.Lock.PID)
	}
	if len(r.RecentCommits) > 0 {
		fmt.Println("\nrecent commits:")
		for _, c := range r.RecentCommits {
			fmt.Printf("  %s %s\n", statusDimStyle.Render(c.SHA), c.Message)
		}
	}
}
