package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadCreatesLayoutAndDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	for _, d := range []string{c.StateDir, c.DraftsDir, c.LogsDir, c.OutDir} {
		info, err := os.Stat(d)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", d, err)
		}
	}
	if c.Prefs.Language != "en" || !c.Prefs.AutoSave || c.Prefs.Storage != "file" {
		t.Fatalf("unexpected default preferences: %+v", c.Prefs)
	}

	// The default file is written out so users can find and edit it.
	data, err := os.ReadFile(filepath.Join(dir, "preferences.yaml"))
	if err != nil {
		t.Fatalf("default preferences not written: %v", err)
	}
	if !strings.Contains(string(data), "language: en") {
		t.Fatalf("unexpected default preferences content:\n%s", data)
	}
}

func TestLoadReadsExistingPreferences(t *testing.T) {
	dir := t.TempDir()
	prefs := "language: ja\nauto_save: false\nstorage: sqlite\n"
	if err := os.WriteFile(filepath.Join(dir, "preferences.yaml"), []byte(prefs), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Prefs.Language != "ja" || c.Prefs.AutoSave || c.Prefs.Storage != "sqlite" {
		t.Fatalf("preferences not honored: %+v", c.Prefs)
	}
}

func TestLoadRejectsBadPreferences(t *testing.T) {
	cases := []struct {
		name  string
		prefs string
	}{
		{"language", "language: fr\nstorage: file\n"},
		{"storage", "language: en\nstorage: redis\n"},
		{"syntax", "language: [en\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, "preferences.yaml"), []byte(tc.prefs), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(dir); err == nil {
				t.Fatal("expected Load to reject preferences")
			}
		})
	}
}

func TestEnvOverridesHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvStateDir, dir)

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.StateDir != dir {
		t.Fatalf("StateDir = %s, want %s", c.StateDir, dir)
	}
}

func TestExplicitDirBeatsEnv(t *testing.T) {
	envDir := t.TempDir()
	explicit := t.TempDir()
	t.Setenv(EnvStateDir, envDir)

	c, err := Load(explicit)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.StateDir != explicit {
		t.Fatalf("StateDir = %s, want %s", c.StateDir, explicit)
	}
}

func TestOutputDirOverride(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(t.TempDir(), "artifacts")
	prefs := "language: en\nstorage: file\noutput_dir: " + out + "\n"
	if err := os.WriteFile(filepath.Join(dir, "preferences.yaml"), []byte(prefs), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.OutDir != out {
		t.Fatalf("OutDir = %s, want %s", c.OutDir, out)
	}
	if info, err := os.Stat(out); err != nil || !info.IsDir() {
		t.Fatalf("output dir not created: %v", err)
	}
}

func TestSavePreferencesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	c.Prefs.Language = "ja"
	c.Prefs.Storage = "sqlite"
	if err := c.SavePreferences(); err != nil {
		t.Fatalf("SavePreferences failed: %v", err)
	}

	reloaded, err := Load(dir)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.Prefs.Language != "ja" || reloaded.Prefs.Storage != "sqlite" {
		t.Fatalf("saved preferences lost: %+v", reloaded.Prefs)
	}
}

func TestSQLitePath(t *testing.T) {
	dir := t.TempDir()
	c, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got := c.SQLitePath(); got != filepath.Join(dir, "drafts.db") {
		t.Fatalf("SQLitePath = %s", got)
	}
}
