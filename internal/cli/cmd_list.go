package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"
	"unicode"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/randalmurphal/todosync/internal/task"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true)
	priorityStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	overdueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	doneStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Strikethrough(true)
)

// newListCmd creates the list command
func newListCmd(a *app) *cobra.Command {
	var (
		jsonOut bool
		noColor bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tracked tasks",
		Long: `List every task in the snapshot, in the order they were first tracked.

Example:
  todosync list
  todosync list --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			doc, err := store.Load(cmd.Context())
			if err != nil {
				return err
			}
			if doc.Diagnostic != "" {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", doc.Diagnostic)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				data, err := doc.Encode()
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}

			tasks := doc.Tasks()
			if len(tasks) == 0 {
				_, _ = fmt.Fprintln(out, `No tasks tracked. Add some with: todosync sync --text "..."`)
				return nil
			}

			color := !noColor && isStdout(out) && isatty.IsTerminal(os.Stdout.Fd())
			printTaskTable(out, tasks, time.Now(), color)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the snapshot as JSON")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable styling")
	return cmd
}

// printTaskTable writes tasks as an aligned table. Styling is applied per
// row after alignment so escape codes don't skew column widths.
func printTaskTable(out io.Writer, tasks []task.Task, now time.Time, color bool) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tPRIORITY\tDUE\tCATEGORY\tTITLE")
	for _, t := range tasks {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			truncate(t.ID, 20),
			orDash(string(t.Status)),
			priorityLabel(t),
			dueLabel(t),
			orDash(string(t.Category)),
			truncate(t.Title, 50),
		)
	}
	_ = w.Flush()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	for i, line := range lines {
		if color {
			switch {
			case i == 0:
				line = headerStyle.Render(line)
			case i <= len(tasks):
				line = styleRow(tasks[i-1], now).Render(line)
			}
		}
		_, _ = fmt.Fprintln(out, line)
	}
}

func styleRow(t task.Task, now time.Time) lipgloss.Style {
	switch {
	case t.Status == task.StatusCompleted:
		return doneStyle
	case t.IsOverdue(now):
		return overdueStyle
	case t.IsPriority():
		return priorityStyle
	default:
		return lipgloss.NewStyle()
	}
}

func priorityLabel(t task.Task) string {
	switch {
	case t.Priority == nil:
		return "-"
	case *t.Priority:
		return "yes"
	default:
		return "no"
	}
}

func dueLabel(t task.Task) string {
	if t.DueDate == nil {
		return "-"
	}
	d := t.DueDate.UTC()
	if d.Hour() == 0 && d.Minute() == 0 && d.Second() == 0 {
		return d.Format("2006-01-02")
	}
	return d.Format("2006-01-02 15:04")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncate flattens s onto one line and shortens it to at most n runes.
// Runs of whitespace become one space and other control characters are
// dropped, so each task stays one table row.
func truncate(s string, n int) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// isStdout reports whether w is the process stdout.
func isStdout(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && f == os.Stdout
}
