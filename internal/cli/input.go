package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// inputFlags are the ways sync and diff receive text.
type inputFlags struct {
	text string
	file string
	raw  bool
}

// errNoInput is returned when no text was given and stdin is a terminal.
var errNoInput = errors.New("no input: pass --text, --file, or pipe text on stdin")

// readInput returns the text to reconcile: --text, then --file ("-" is
// stdin), then piped stdin.
func (a *app) readInput(in inputFlags) (string, error) {
	switch {
	case in.text != "":
		return in.text, nil
	case in.file != "" && in.file != "-":
		data, err := os.ReadFile(in.file)
		if err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		return string(data), nil
	case in.file == "" && isTerminal(a.stdin):
		return "", errNoInput
	}

	data, err := io.ReadAll(a.stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", errNoInput
	}
	return string(data), nil
}

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
