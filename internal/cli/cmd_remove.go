package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/todosync/internal/extract"
)

// newRemoveCmd creates the remove command
func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Stop tracking a task",
		Long: `Remove one task from the snapshot. The next sync pass adds it back if
the text still mentions it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := a.newReconciler(store, extract.RawExtractor{}).RemoveTask(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}
}
