// internal/config/config.go
//
// This package handles the specsmith state directory and user
// preferences. Every user gets a state dir (default ~/.specsmith)
// holding drafts, logs and generated output.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// AppDirName is the default state directory under the user's home.
	AppDirName = ".specsmith"

	// EnvStateDir overrides the state directory location.
	EnvStateDir = "SPECSMITH_HOME"

	preferencesFile = "preferences.yaml"
)

const defaultPreferencesYAML = `# specsmith preferences
# language: en or ja
language: en

# auto_save: persist drafts automatically while answering
auto_save: true

# storage: draft backend, file (one JSON per draft) or sqlite (single db)
storage: file
`

// Preferences models preferences.yaml.
type Preferences struct {
	Language  string `yaml:"language"`
	AutoSave  bool   `yaml:"auto_save"`
	Storage   string `yaml:"storage"`
	OutputDir string `yaml:"output_dir,omitempty"`
}

func defaultPreferences() Preferences {
	return Preferences{Language: "en", AutoSave: true, Storage: "file"}
}

// Config holds the resolved runtime configuration.
type Config struct {
	// StateDir is where everything lives.
	StateDir string

	// DraftsDir backs the file KV store.
	DraftsDir string

	// LogsDir holds the structured log file.
	LogsDir string

	// OutDir receives generated artifacts saved to disk.
	OutDir string

	Prefs Preferences
}

// Load resolves the state directory (explicit flag beats the
// environment, which beats ~/.specsmith), creates the layout, and reads
// preferences. A missing preferences file is written with defaults.
func Load(stateDir string) (*Config, error) {
	dir, err := resolveStateDir(stateDir)
	if err != nil {
		return nil, err
	}
	c := &Config{
		StateDir:  dir,
		DraftsDir: filepath.Join(dir, "drafts"),
		LogsDir:   filepath.Join(dir, "logs"),
		OutDir:    filepath.Join(dir, "out"),
		Prefs:     defaultPreferences(),
	}
	for _, d := range []string{c.StateDir, c.DraftsDir, c.LogsDir, c.OutDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("config: ensure %s: %w", d, err)
		}
	}
	if err := c.loadPreferences(); err != nil {
		return nil, err
	}
	if c.Prefs.OutputDir != "" {
		c.OutDir = c.Prefs.OutputDir
		if err := os.MkdirAll(c.OutDir, 0o755); err != nil {
			return nil, fmt.Errorf("config: ensure output dir %s: %w", c.OutDir, err)
		}
	}
	return c, nil
}

func resolveStateDir(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if env := os.Getenv(EnvStateDir); env != "" {
		return env, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home dir: %w", err)
	}
	return filepath.Join(home, AppDirName), nil
}

func (c *Config) preferencesPath() string {
	return filepath.Join(c.StateDir, preferencesFile)
}

func (c *Config) loadPreferences() error {
	data, err := os.ReadFile(c.preferencesPath())
	if errors.Is(err, fs.ErrNotExist) {
		if writeErr := os.WriteFile(c.preferencesPath(), []byte(defaultPreferencesYAML), 0o644); writeErr != nil {
			return fmt.Errorf("config: write default preferences: %w", writeErr)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: read preferences: %w", err)
	}
	prefs := defaultPreferences()
	if err := yaml.Unmarshal(data, &prefs); err != nil {
		return fmt.Errorf("config: parse preferences: %w", err)
	}
	if prefs.Language != "en" && prefs.Language != "ja" {
		return fmt.Errorf("config: unsupported language %q (en or ja)", prefs.Language)
	}
	if prefs.Storage != "file" && prefs.Storage != "sqlite" {
		return fmt.Errorf("config: unsupported storage %q (file or sqlite)", prefs.Storage)
	}
	c.Prefs = prefs
	return nil
}

// SavePreferences writes the current preferences back to disk.
func (c *Config) SavePreferences() error {
	data, err := yaml.Marshal(c.Prefs)
	if err != nil {
		return fmt.Errorf("config: encode preferences: %w", err)
	}
	if err := os.WriteFile(c.preferencesPath(), data, 0o644); err != nil {
		return fmt.Errorf("config: write preferences: %w", err)
	}
	return nil
}

// SQLitePath is the database location for the sqlite draft backend.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.StateDir, "drafts.db")
}
