package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/todosync/internal/reconcile"
)

// newSyncCmd creates the sync command
func newSyncCmd(a *app) *cobra.Command {
	var in inputFlags

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the todo list with new text",
		Long: `Extract the tasks mentioned in the text and reconcile the stored snapshot
with them. Tasks that are not mentioned any more are removed.

If nothing could be extracted the pass is skipped and the snapshot is left
alone (set reconcile.skip_on_extraction_failure=false to reconcile against
an empty list instead).

Example:
  todosync sync --text "I bought milk, still need to call mom"
  todosync sync --file notes.txt
  cat reply.json | todosync sync --raw`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPass(cmd, in, false)
		},
	}

	addInputFlags(cmd, &in)
	return cmd
}

func addInputFlags(cmd *cobra.Command, in *inputFlags) {
	cmd.Flags().StringVarP(&in.text, "text", "t", "", "text to reconcile")
	cmd.Flags().StringVarP(&in.file, "file", "f", "", "read text from a file (- for stdin)")
	cmd.Flags().BoolVar(&in.raw, "raw", false, "input already is a JSON task array; skip the model")
}

// runPass runs one reconciliation pass and prints its plan.
func (a *app) runPass(cmd *cobra.Command, in inputFlags, dryRun bool) error {
	text, err := a.readInput(in)
	if err != nil {
		return err
	}

	ex, err := a.newExtractor(in.raw)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	res, err := a.newReconciler(store, ex, reconcile.WithDryRun(dryRun)).Run(ctx, text)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if res.LoadDiagnostic != "" {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", res.LoadDiagnostic)
	}
	if res.Skipped {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Pass skipped, nothing was extracted: %s\n", res.Diagnostic)
		return nil
	}
	for _, rej := range res.Rejected {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Skipped candidate %d: %s\n", rej.Index, rej.Err.Error())
	}
	if a.verbose {
		for _, w := range res.Warnings {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Dropped field of task %s: %s\n", w.TaskID, w.Error())
		}
	}

	printPlan(out, res.Plan)
	switch {
	case dryRun:
		_, _ = fmt.Fprintln(out, "Dry run: nothing saved.")
	case res.Saved:
		_, _ = fmt.Fprintf(out, "Saved %d task(s) to %s\n", res.Document.Len(), store.Location())
	}
	return nil
}

// printPlan writes one line per command plus a count summary.
func printPlan(w io.Writer, plan reconcile.Plan) {
	if plan.IsEmpty() {
		_, _ = fmt.Fprintln(w, "No changes.")
		return
	}

	for _, c := range plan.Commands {
		switch c.Kind {
		case reconcile.KindAdd:
			_, _ = fmt.Fprintf(w, "+ %s  %s\n", c.TaskID, c.Task.Title)
		case reconcile.KindUpdate:
			_, _ = fmt.Fprintf(w, "~ %s  %s\n", c.TaskID, c.Task.Title)
		case reconcile.KindRemove:
			_, _ = fmt.Fprintf(w, "- %s\n", c.TaskID)
		}
	}

	adds, updates, removes := plan.Counts()
	_, _ = fmt.Fprintf(w, "%d added, %d updated, %d removed\n", adds, updates, removes)
}
