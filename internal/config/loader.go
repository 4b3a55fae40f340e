package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"

	syncerrors "github.com/randalmurphal/todosync/internal/errors"
)

// Keys lists every configuration key in display order.
var Keys = []string{
	"version",
	"store.driver",
	"store.path",
	"store.dsn",
	"extract.provider",
	"extract.model",
	"extract.base_url",
	"extract.api_key_env",
	"extract.timeout",
	"extract.temperature",
	"reconcile.skip_on_extraction_failure",
	"log.level",
	"log.format",
}

// EnvVar returns the environment variable that overrides key,
// e.g. "store.driver" -> TODOSYNC_STORE_DRIVER.
func EnvVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// NewViper returns a viper instance seeded with defaults and the
// TODOSYNC_* environment overrides. Callers bind flags on it before Load.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v, Default())
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)
	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.dsn", d.Store.DSN)
	v.SetDefault("extract.provider", d.Extract.Provider)
	v.SetDefault("extract.model", d.Extract.Model)
	v.SetDefault("extract.base_url", d.Extract.BaseURL)
	v.SetDefault("extract.api_key_env", d.Extract.APIKeyEnv)
	v.SetDefault("extract.timeout", d.Extract.Timeout)
	v.SetDefault("extract.temperature", d.Extract.Temperature)
	v.SetDefault("reconcile.skip_on_extraction_failure", d.Reconcile.SkipOnExtractionFailure)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// LoadOptions controls which files Load reads.
type LoadOptions struct {
	// BaseDir is the project directory holding .todosync/ (default: cwd).
	BaseDir string

	// ConfigFile replaces the project config when set. It must exist.
	ConfigFile string

	// UserConfig overrides the user config path; "-" disables it.
	UserConfig string

	// FlagKeys lists keys that were set by command-line flags.
	FlagKeys []string
}

// Load resolves the configuration with source tracking.
// Load order (later sources override earlier):
//  1. Built-in defaults
//  2. User config (~/.todosync/config.yaml) - optional
//  3. Project config (.todosync/config.yaml, or --config)
//  4. Environment variables (TODOSYNC_*)
//  5. Command-line flags bound on v
func Load(v *viper.Viper, opts LoadOptions) (*TrackedConfig, error) {
	tc := NewTrackedConfig()

	userPath := opts.UserConfig
	if userPath == "" {
		userPath = UserConfigPath()
	}
	if userPath != "" && userPath != "-" {
		if _, err := os.Stat(userPath); err == nil {
			if err := mergeFile(v, tc, userPath, SourceUser); err != nil {
				// A broken personal file should not block the project.
				slog.Warn("failed to load user config", "path", userPath, "error", err)
			}
		}
	}

	projectPath := opts.ConfigFile
	if projectPath == "" {
		projectPath = ProjectConfigPath(opts.BaseDir)
		if _, err := os.Stat(projectPath); err != nil {
			projectPath = ""
		}
	}
	if projectPath != "" {
		if err := mergeFile(v, tc, projectPath, SourceProject); err != nil {
			return nil, syncerrors.ErrConfigInvalid(projectPath, err.Error()).WithCause(err)
		}
	}

	for _, key := range Keys {
		if env := EnvVar(key); os.Getenv(env) != "" {
			tc.SetSource(key, SourceEnv, env)
		}
	}
	for _, key := range opts.FlagKeys {
		tc.SetSource(key, SourceFlag, "")
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, syncerrors.ErrConfigInvalid("config", err.Error()).WithCause(err)
	}
	tc.Config = cfg

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return tc, nil
}

// mergeFile merges one YAML file into v and records the keys it sets.
func mergeFile(v *viper.Viper, tc *TrackedConfig, path string, source ConfigSource) error {
	fv := viper.New()
	fv.SetConfigFile(path)
	fv.SetConfigType("yaml")
	if err := fv.ReadInConfig(); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := v.MergeConfigMap(fv.AllSettings()); err != nil {
		return fmt.Errorf("merge config %s: %w", path, err)
	}

	for _, key := range Keys {
		if fv.IsSet(key) {
			tc.SetSource(key, source, path)
		}
	}
	tc.Files = append(tc.Files, path)
	return nil
}
