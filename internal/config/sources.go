package config

import "fmt"

// ConfigSource is the layer a setting was taken from.
type ConfigSource string

// Layers, lowest precedence first.
const (
	SourceDefault ConfigSource = "default"
	SourceUser    ConfigSource = "user"    // ~/.todosync/config.yaml
	SourceProject ConfigSource = "project" // .todosync/config.yaml or --config
	SourceEnv     ConfigSource = "env"
	SourceFlag    ConfigSource = "flag"
)

// TrackedSource pairs a layer with the file or variable that set the key.
// Path is empty for defaults and flags.
type TrackedSource struct {
	Source ConfigSource
	Path   string
}

func (ts TrackedSource) String() string {
	if ts.Path != "" {
		return fmt.Sprintf("%s: %s", ts.Source, ts.Path)
	}
	return string(ts.Source)
}

// TrackedConfig is the merged Config plus, per dotted key, the layer that
// won. `todosync config show --source` prints it.
type TrackedConfig struct {
	Config  *Config
	Sources map[string]TrackedSource
	// Files read, in load order.
	Files []string
}

func NewTrackedConfig() *TrackedConfig {
	return &TrackedConfig{Config: Default(), Sources: map[string]TrackedSource{}}
}

// SetSource records that key was last set by source at path.
func (tc *TrackedConfig) SetSource(key string, source ConfigSource, path string) {
	tc.Sources[key] = TrackedSource{Source: source, Path: path}
}

// GetSource reports where key came from, SourceDefault if never overridden.
func (tc *TrackedConfig) GetSource(key string) TrackedSource {
	ts, ok := tc.Sources[key]
	if !ok {
		ts.Source = SourceDefault
	}
	return ts
}
