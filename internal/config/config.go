// Package config provides configuration management for todosync.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/todosync/internal/db/driver"
	syncerrors "github.com/randalmurphal/todosync/internal/errors"
	"github.com/randalmurphal/todosync/internal/util"
)

const (
	// ConfigFileName is the default config file name
	ConfigFileName = "config.yaml"
	// Dir is the todosync configuration directory
	Dir = ".todosync"
	// EnvPrefix prefixes every environment variable override.
	EnvPrefix = "TODOSYNC"
)

// Store drivers. The SQL drivers share their names with driver.Dialect.
const (
	DriverFile     = "file"
	DriverSQLite   = string(driver.DialectSQLite)
	DriverPostgres = string(driver.DialectPostgres)
	DriverBadger   = "badger"
)

// Extraction providers.
const (
	ProviderOpenAI = "openai"
	ProviderRaw    = "raw"
)

// StoreConfig selects where the snapshot lives.
type StoreConfig struct {
	// Driver is one of file, sqlite, postgres, badger (default: file)
	Driver string `yaml:"driver" mapstructure:"driver"`

	// Path is the JSON file, SQLite database or Badger directory.
	// Empty means a driver-specific default under .todosync/.
	Path string `yaml:"path,omitempty" mapstructure:"path"`

	// DSN is the PostgreSQL connection string.
	DSN string `yaml:"dsn,omitempty" mapstructure:"dsn"`
}

// ExtractConfig configures how free-form text becomes candidate tasks.
type ExtractConfig struct {
	// Provider is openai (LLM call) or raw (input already is model output)
	Provider string `yaml:"provider" mapstructure:"provider"`

	Model string `yaml:"model" mapstructure:"model"`

	// BaseURL points at any OpenAI-compatible endpoint (e.g. a local Ollama).
	BaseURL string `yaml:"base_url,omitempty" mapstructure:"base_url"`

	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env" mapstructure:"api_key_env"`

	// Timeout bounds the extraction call. Zero disables it.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	Temperature float32 `yaml:"temperature" mapstructure:"temperature"`
}

// ReconcileConfig configures a reconciliation pass.
type ReconcileConfig struct {
	// SkipOnExtractionFailure skips the pass when nothing could be extracted
	// instead of reconciling against an empty list (default: true)
	SkipOnExtractionFailure bool `yaml:"skip_on_extraction_failure" mapstructure:"skip_on_extraction_failure"`
}

// LogConfig configures the CLI logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // text, json
}

// Config represents the todosync configuration.
type Config struct {
	// Version is the config file version
	Version int `yaml:"version" mapstructure:"version"`

	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Reconcile ReconcileConfig `yaml:"reconcile" mapstructure:"reconcile"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: 1,
		Store: StoreConfig{
			Driver: DriverFile,
		},
		Extract: ExtractConfig{
			Provider:    ProviderOpenAI,
			Model:       "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			Timeout:     60 * time.Second,
			Temperature: 0,
		},
		Reconcile: ReconcileConfig{
			SkipOnExtractionFailure: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// StorePath returns the configured store location, or the driver's default
// under baseDir when none is set.
func (c *Config) StorePath(baseDir string) string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	switch c.Store.Driver {
	case DriverSQLite:
		return filepath.Join(baseDir, Dir, "todosync.db")
	case DriverBadger:
		return filepath.Join(baseDir, Dir, "badger")
	default:
		return filepath.Join(baseDir, Dir, "todos.json")
	}
}

// LockPath returns the single-writer guard file for the configured store:
// beside the snapshot, or under baseDir/.todosync for postgres.
func (c *Config) LockPath(baseDir string) string {
	if c.Store.Driver == DriverPostgres {
		return filepath.Join(baseDir, Dir, "postgres.lock")
	}
	return c.StorePath(baseDir) + ".lock"
}

// APIKey returns the extraction API key from the configured variable.
func (c *Config) APIKey() string {
	if c.Extract.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.Extract.APIKeyEnv)
}

var (
	validDrivers   = []string{DriverFile, DriverSQLite, DriverPostgres, DriverBadger}
	validProviders = []string{ProviderOpenAI, ProviderRaw}
	validLevels    = []string{"debug", "info", "warn", "error"}
	validFormats   = []string{"text", "json"}
)

// Normalize rewrites the SQL dialect spellings driver.ParseDialect accepts
// (sqlite3, postgresql, pg) to the canonical store.driver value.
func (c *Config) Normalize() {
	if d, err := driver.ParseDialect(c.Store.Driver); err == nil {
		c.Store.Driver = string(d)
	}
}

// Validate checks the configuration for values todosync cannot run with.
func (c *Config) Validate() error {
	if !slices.Contains(validDrivers, c.Store.Driver) {
		return syncerrors.ErrConfigInvalid("store.driver",
			fmt.Sprintf("%q is not one of %s", c.Store.Driver, strings.Join(validDrivers, ", ")))
	}
	if c.Store.Driver == DriverPostgres && c.Store.DSN == "" {
		return syncerrors.ErrConfigInvalid("store.dsn", "the postgres driver needs a connection string")
	}
	if !slices.Contains(validProviders, c.Extract.Provider) {
		return syncerrors.ErrConfigInvalid("extract.provider",
			fmt.Sprintf("%q is not one of %s", c.Extract.Provider, strings.Join(validProviders, ", ")))
	}
	if c.Extract.Provider == ProviderOpenAI && c.Extract.Model == "" {
		return syncerrors.ErrConfigInvalid("extract.model", "a model is required for the openai provider")
	}
	if c.Extract.Timeout < 0 {
		return syncerrors.ErrConfigInvalid("extract.timeout", "must not be negative")
	}
	if c.Extract.Temperature < 0 || c.Extract.Temperature > 2 {
		return syncerrors.ErrConfigInvalid("extract.temperature", "must be between 0 and 2")
	}
	if !slices.Contains(validLevels, c.Log.Level) {
		return syncerrors.ErrConfigInvalid("log.level",
			fmt.Sprintf("%q is not one of %s", c.Log.Level, strings.Join(validLevels, ", ")))
	}
	if !slices.Contains(validFormats, c.Log.Format) {
		return syncerrors.ErrConfigInvalid("log.format",
			fmt.Sprintf("%q is not one of %s", c.Log.Format, strings.Join(validFormats, ", ")))
	}
	return nil
}

// YAML renders the configuration as a config file.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// SaveTo writes the configuration to path, creating parent directories.
func (c *Config) SaveTo(path string) error {
	data, err := c.YAML()
	if err != nil {
		return err
	}
	if err := util.AtomicWriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// LoadFile reads a single config file on top of the defaults. Used by tests
// and by `config init` to check an existing file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ProjectConfigPath returns the project config path under baseDir.
func ProjectConfigPath(baseDir string) string {
	return filepath.Join(baseDir, Dir, ConfigFileName)
}

// UserConfigPath returns ~/.todosync/config.yaml, or "" without a home dir.
func UserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, Dir, ConfigFileName)
}
