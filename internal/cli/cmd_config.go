package cli

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/todosync/internal/config"
	"github.com/randalmurphal/todosync/internal/util"
)

// newConfigCmd creates the config command with subcommands.
func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and manage configuration",
		Long: `View and manage todosync configuration.

Configuration is loaded from these sources, later ones winning:
  1. Built-in defaults
  2. ~/.todosync/config.yaml
  3. .todosync/config.yaml (or --config)
  4. Environment variables (TODOSYNC_*, e.g. TODOSYNC_STORE_DRIVER)
  5. Command-line flags

Examples:
  todosync config show             # Show merged config as YAML
  todosync config show --source    # Show where each value comes from
  todosync config get store.driver
  todosync config init             # Write .todosync/config.yaml`,
	}

	cmd.AddCommand(newConfigShowCmd(a))
	cmd.AddCommand(newConfigGetCmd(a))
	cmd.AddCommand(newConfigInitCmd(a))

	return cmd
}

// newConfigShowCmd creates the 'config show' subcommand.
func newConfigShowCmd(a *app) *cobra.Command {
	var showSource bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show merged configuration",
		Long: `Show the merged configuration from all sources.

By default, outputs valid YAML. Use --source to see where each value comes from.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if showSource {
				return a.printConfigWithSources(out)
			}
			data, err := a.settings().YAML()
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&showSource, "source", false, "Show source for each value")
	return cmd
}

// newConfigGetCmd creates the 'config get' subcommand.
func newConfigGetCmd(a *app) *cobra.Command {
	var showSource bool

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Get a specific config value",
		Long: `Get a specific configuration value by key.

Keys use dot notation (e.g. "extract.model").`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if !slices.Contains(config.Keys, key) {
				return fmt.Errorf("unknown config key %q", key)
			}

			out := cmd.OutOrStdout()
			value := a.viper.Get(key)
			if showSource {
				_, _ = fmt.Fprintf(out, "%v (from %s)\n", value, a.tc.GetSource(key))
			} else {
				_, _ = fmt.Fprintln(out, value)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showSource, "source", false, "Show source of the value")
	return cmd
}

// newConfigInitCmd creates the 'config init' subcommand.
func newConfigInitCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a project config file",
		Long: `Write the effective configuration to .todosync/config.yaml so it can be
edited. An existing file is kept unless --force is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ProjectConfigPath(a.baseDir)
			if util.FileExists(path) && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := a.settings().SaveTo(path); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

func (a *app) printConfigWithSources(out io.Writer) error {
	for _, key := range config.Keys {
		_, _ = fmt.Fprintf(out, "%-38s %-20v # %s\n", key, a.viper.Get(key), a.tc.GetSource(key))
	}
	if len(a.tc.Files) > 0 {
		_, _ = fmt.Fprintln(out)
		for _, f := range a.tc.Files {
			if _, err := os.Stat(f); err == nil {
				_, _ = fmt.Fprintf(out, "read %s\n", f)
			}
		}
	}
	return nil
}
