// Package cli provides error handling utilities for CLI output.
package cli

import (
	"fmt"
	"io"

	syncerrors "github.com/randalmurphal/todosync/internal/errors"
)

// PrintError prints an error with appropriate formatting.
// A structured error uses its user-friendly form; anything else is printed
// as a simple message.
func PrintError(w io.Writer, err error) {
	if e := syncerrors.AsError(err); e != nil {
		_, _ = fmt.Fprintln(w, e.UserMessage())
		if e.Cause != nil {
			_, _ = fmt.Fprintf(w, "\nCode: %s\nCause: %v\n", e.Code, e.Cause)
		}
		return
	}
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
}

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if e := syncerrors.AsError(err); e != nil {
		return e.Category().ExitCode()
	}
	return 1
}
