package cli

import (
	"github.com/spf13/cobra"
)

// newDiffCmd creates the diff command
func newDiffCmd(a *app) *cobra.Command {
	var in inputFlags

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Show what sync would change without saving",
		Long: `Run a reconciliation pass in memory and print the commands it would
apply. The stored snapshot is not modified.

Example:
  todosync diff --text "finished the essay"
  cat reply.json | todosync diff --raw`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPass(cmd, in, true)
		},
	}

	addInputFlags(cmd, &in)
	return cmd
}
