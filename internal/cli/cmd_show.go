package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	syncerrors "github.com/randalmurphal/todosync/internal/errors"
	"github.com/randalmurphal/todosync/internal/task"
)

// newShowCmd creates the show command
func newShowCmd(a *app) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]

			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			doc, err := store.Load(cmd.Context())
			if err != nil {
				return err
			}
			t, ok := doc.Task(id)
			if !ok {
				return syncerrors.ErrTaskNotFound(id)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(t)
			}
			printTask(out, t)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the task as JSON")
	return cmd
}

func printTask(w io.Writer, t task.Task) {
	_, _ = fmt.Fprintf(w, "ID:          %s\n", t.ID)
	_, _ = fmt.Fprintf(w, "Title:       %s\n", t.Title)
	_, _ = fmt.Fprintf(w, "Description: %s\n", orDash(t.Description))
	_, _ = fmt.Fprintf(w, "Status:      %s\n", orDash(string(t.Status)))
	_, _ = fmt.Fprintf(w, "Category:    %s\n", orDash(string(t.Category)))
	_, _ = fmt.Fprintf(w, "Priority:    %s\n", priorityLabel(t))
	_, _ = fmt.Fprintf(w, "Due:         %s\n", dueLabel(t))
}
