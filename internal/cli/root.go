// Package cli implements the todosync command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/randalmurphal/todosync/internal/config"
	syncerrors "github.com/randalmurphal/todosync/internal/errors"
	"github.com/randalmurphal/todosync/internal/extract"
	"github.com/randalmurphal/todosync/internal/lock"
	"github.com/randalmurphal/todosync/internal/reconcile"
	"github.com/randalmurphal/todosync/internal/storage"
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=...".
var Version = "0.1.0-dev"

// app holds the state shared by every command of one invocation.
type app struct {
	cfgFile string
	baseDir string
	verbose bool
	quiet   bool

	viper  *viper.Viper
	tc     *config.TrackedConfig
	logger *slog.Logger

	stdin  io.Reader
	stderr io.Writer
}

// flagKeys maps persistent flags to the config keys they override.
var flagKeys = map[string]string{
	"driver":     "store.driver",
	"store":      "store.path",
	"log-format": "log.format",
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "todosync",
		Short: "Keep a todo list in sync with what you say",
		Long: `todosync turns free-form text into a todo list and keeps it reconciled.

Each sync pass extracts the tasks mentioned in the text, compares them with
the stored snapshot, and applies the minimal set of add, update and remove
commands. The extracted list is authoritative: tracked tasks that are no
longer mentioned are removed.

Quick start:
  todosync config init                     Write .todosync/config.yaml
  echo "I need to call mom" | todosync sync
  todosync list                            Show tracked tasks
  todosync diff --file notes.txt           Preview without saving`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.stdin = cmd.InOrStdin()
			a.stderr = cmd.ErrOrStderr()
			return a.initConfig(cmd)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is .todosync/config.yaml)")
	pf.StringVarP(&a.baseDir, "dir", "C", "", "project directory holding .todosync/ (default is cwd)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	pf.BoolVarP(&a.quiet, "quiet", "q", false, "only log errors")
	pf.String("driver", "", "store driver: file, sqlite, postgres, badger")
	pf.String("store", "", "store location (file, database or badger directory)")
	pf.String("log-format", "", "log format: text or json")

	rootCmd.AddCommand(newSyncCmd(a))
	rootCmd.AddCommand(newDiffCmd(a))
	rootCmd.AddCommand(newListCmd(a))
	rootCmd.AddCommand(newShowCmd(a))
	rootCmd.AddCommand(newRemoveCmd(a))
	rootCmd.AddCommand(newResetCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, cancel := SetupSignalHandler(os.Stderr)
	defer cancel()

	cmd := newRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		PrintError(cmd.ErrOrStderr(), err)
		return ExitCode(err)
	}
	return 0
}

// initConfig loads the layered configuration and installs the logger.
func (a *app) initConfig(cmd *cobra.Command) error {
	if a.baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
		a.baseDir = wd
	}

	a.viper = config.NewViper()
	var changed []string
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || !f.Changed {
			return
		}
		_ = a.viper.BindPFlag(key, f)
		changed = append(changed, key)
	})

	tc, err := config.Load(a.viper, config.LoadOptions{
		BaseDir:    a.baseDir,
		ConfigFile: a.cfgFile,
		FlagKeys:   changed,
	})
	if err != nil {
		return err
	}
	a.tc = tc
	a.logger = newLogger(a.stderr, tc.Config.Log, a.verbose, a.quiet)
	slog.SetDefault(a.logger)
	return nil
}

func newLogger(w io.Writer, cfg config.LogConfig, verbose, quiet bool) *slog.Logger {
	var level slog.Level
	switch {
	case verbose:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelError
	default:
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			level = slog.LevelInfo
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (a *app) settings() *config.Config {
	return a.tc.Config
}

// openStore opens the configured snapshot store. Callers close it.
func (a *app) openStore(ctx context.Context) (storage.Store, error) {
	return storage.NewStore(ctx, a.baseDir, a.settings(), a.logger)
}

// newExtractor builds the configured extractor; raw forces the raw one.
func (a *app) newExtractor(raw bool) (extract.Extractor, error) {
	cfg := a.settings()
	if raw || cfg.Extract.Provider == config.ProviderRaw {
		return extract.RawExtractor{}, nil
	}

	key := cfg.APIKey()
	if key == "" && cfg.Extract.BaseURL == "" {
		return nil, syncerrors.ErrConfigInvalid("extract.api_key_env",
			fmt.Sprintf("environment variable %s is not set", cfg.Extract.APIKeyEnv))
	}
	return extract.NewOpenAIExtractor(extract.OpenAIConfig{
		APIKey:      key,
		BaseURL:     cfg.Extract.BaseURL,
		Model:       cfg.Extract.Model,
		Temperature: cfg.Extract.Temperature,
		Logger:      a.logger,
	}), nil
}

// newReconciler wires store, extractor and guard into a Reconciler.
func (a *app) newReconciler(store storage.Store, ex extract.Extractor, opts ...reconcile.Option) *reconcile.Reconciler {
	cfg := a.settings()
	base := []reconcile.Option{
		reconcile.WithLogger(a.logger),
		reconcile.WithGuard(lock.NewPIDGuard(cfg.LockPath(a.baseDir))),
		reconcile.WithExtractTimeout(cfg.Extract.Timeout),
		reconcile.WithSkipOnExtractionFailure(cfg.Reconcile.SkipOnExtractionFailure),
	}
	return reconcile.New(store, ex, append(base, opts...)...)
}
