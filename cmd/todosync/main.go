// Package main provides the entry point for the todosync CLI.
package main

import (
	"os"

	"github.com/randalmurphal/todosync/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
