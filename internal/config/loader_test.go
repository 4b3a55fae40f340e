package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncerrors "github.com/randalmurphal/todosync/internal/errors"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoad_DefaultsOnly(t *testing.T) {
	tc, err := Load(NewViper(), LoadOptions{BaseDir: t.TempDir(), UserConfig: "-"})
	require.NoError(t, err)

	assert.Equal(t, Default(), tc.Config)
	assert.Empty(t, tc.Files)
	assert.Equal(t, SourceDefault, tc.GetSource("store.driver").Source)
}

func TestLoad_LayersWithSources(t *testing.T) {
	base := t.TempDir()
	userPath := filepath.Join(t.TempDir(), "user.yaml")
	writeConfig(t, userPath, "extract:\n  model: llama3\n  timeout: 10s\nlog:\n  level: debug\n")
	writeConfig(t, ProjectConfigPath(base), "store:\n  driver: sqlite\nlog:\n  level: warn\n")
	t.Setenv("TODOSYNC_EXTRACT_MODEL", "gpt-4o")

	tc, err := Load(NewViper(), LoadOptions{BaseDir: base, UserConfig: userPath})
	require.NoError(t, err)

	cfg := tc.Config
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "gpt-4o", cfg.Extract.Model)
	assert.Equal(t, 10*time.Second, cfg.Extract.Timeout)
	assert.Equal(t, "warn", cfg.Log.Level)

	assert.Equal(t, []string{userPath, ProjectConfigPath(base)}, tc.Files)
	assert.Equal(t, TrackedSource{Source: SourceEnv, Path: "TODOSYNC_EXTRACT_MODEL"}, tc.GetSource("extract.model"))
	assert.Equal(t, SourceUser, tc.GetSource("extract.timeout").Source)
	assert.Equal(t, SourceProject, tc.GetSource("log.level").Source)
	assert.Equal(t, SourceDefault, tc.GetSource("reconcile.skip_on_extraction_failure").Source)
}

func TestLoad_ExplicitConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	writeConfig(t, path, "reconcile:\n  skip_on_extraction_failure: false\nstore:\n  driver: badger\n")

	tc, err := Load(NewViper(), LoadOptions{BaseDir: t.TempDir(), ConfigFile: path, UserConfig: "-"})
	require.NoError(t, err)
	assert.False(t, tc.Config.Reconcile.SkipOnExtractionFailure)
	assert.Equal(t, DriverBadger, tc.Config.Store.Driver)
}

func TestLoad_MissingExplicitConfigFile(t *testing.T) {
	_, err := Load(NewViper(), LoadOptions{
		BaseDir:    t.TempDir(),
		ConfigFile: filepath.Join(t.TempDir(), "nope.yaml"),
		UserConfig: "-",
	})
	require.Error(t, err)
	assert.True(t, syncerrors.HasCode(err, syncerrors.CodeConfigInvalid))
}

func TestLoad_InvalidValueRejected(t *testing.T) {
	base := t.TempDir()
	writeConfig(t, ProjectConfigPath(base), "store:\n  driver: mysql\n")

	_, err := Load(NewViper(), LoadOptions{BaseDir: base, UserConfig: "-"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
}

func TestLoad_DriverAliasesNormalized(t *testing.T) {
	tests := []struct {
		yaml string
		want string
	}{
		{"store:\n  driver: sqlite3\n", DriverSQLite},
		{"store:\n  driver: SQLite\n", DriverSQLite},
		{"store:\n  driver: pg\n  dsn: postgres://localhost/todos\n", DriverPostgres},
		{"store:\n  driver: postgresql\n  dsn: postgres://localhost/todos\n", DriverPostgres},
	}

	for _, tt := range tests {
		base := t.TempDir()
		writeConfig(t, ProjectConfigPath(base), tt.yaml)

		tc, err := Load(NewViper(), LoadOptions{BaseDir: base, UserConfig: "-"})
		require.NoError(t, err, tt.yaml)
		assert.Equal(t, tt.want, tc.Config.Store.Driver, tt.yaml)
	}
}

func TestLoad_BrokenUserConfigIsIgnored(t *testing.T) {
	userPath := filepath.Join(t.TempDir(), "user.yaml")
	writeConfig(t, userPath, "store: [unclosed\n")

	tc, err := Load(NewViper(), LoadOptions{BaseDir: t.TempDir(), UserConfig: userPath})
	require.NoError(t, err)
	assert.Empty(t, tc.Files)
}

func TestLoad_FlagKeysTracked(t *testing.T) {
	v := NewViper()
	v.Set("store.driver", DriverBadger)

	tc, err := Load(v, LoadOptions{BaseDir: t.TempDir(), UserConfig: "-", FlagKeys: []string{"store.driver"}})
	require.NoError(t, err)
	assert.Equal(t, DriverBadger, tc.Config.Store.Driver)
	assert.Equal(t, SourceFlag, tc.GetSource("store.driver").Source)
}
