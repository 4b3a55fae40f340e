package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/todosync/internal/extract"
)

// newResetCmd creates the reset command
func newResetCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear the snapshot",
		Long: `Replace the stored snapshot with an empty one. Every tracked task is
forgotten.

Asks for confirmation on a terminal; use --yes in scripts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			out := cmd.OutOrStdout()
			if !yes {
				if !isTerminal(a.stdin) {
					return fmt.Errorf("refusing to reset %s without --yes", store.Location())
				}
				_, _ = fmt.Fprintf(out, "Reset %s? [y/N] ", store.Location())
				answer, _ := bufio.NewReader(a.stdin).ReadString('\n')
				if ans := strings.ToLower(strings.TrimSpace(answer)); ans != "y" && ans != "yes" {
					_, _ = fmt.Fprintln(out, "Aborted.")
					return nil
				}
			}

			if err := a.newReconciler(store, extract.RawExtractor{}).Reset(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "Reset %s\n", store.Location())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
