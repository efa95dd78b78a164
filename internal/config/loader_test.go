package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

// setupHome points HOME at a temp directory and resets viper's global state so
// each subtest loads from a clean slate.
func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	viper.Reset()
	t.Cleanup(viper.Reset)
	return home
}

func writeConfigFile(t *testing.T, home, content string) {
	t.Helper()
	dir := filepath.Join(home, configDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, configFileName+"."+configFileType)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaults(t *testing.T) {
	home := setupHome(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !cfg.Diff.AutoDetectStaged {
		t.Error("expected auto_detect_staged default true")
	}
	if !cfg.Diff.FallbackToAll {
		t.Error("expected fallback_to_all default true")
	}
	if cfg.Diff.PreferredTarget != "auto" {
		t.Errorf("expected preferred_target auto, got %q", cfg.Diff.PreferredTarget)
	}
	if cfg.Timeouts.AvailabilityProbeMs != 5000 {
		t.Errorf("expected probe timeout 5000, got %d", cfg.Timeouts.AvailabilityProbeMs)
	}
	if cfg.Timeouts.StagedDetectionMs != 10000 {
		t.Errorf("expected detection timeout 10000, got %d", cfg.Timeouts.StagedDetectionMs)
	}

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Workspace.Roots) != 1 || cfg.Workspace.Roots[0] != cwd {
		t.Errorf("expected workspace root to default to cwd, got %v", cfg.Workspace.Roots)
	}

	if !strings.HasPrefix(cfg.History.DatabasePath, home) {
		t.Errorf("expected history db under home, got %q", cfg.History.DatabasePath)
	}
}

func TestLoadFromFile(t *testing.T) {
	home := setupHome(t)
	writeConfigFile(t, home, `
diff:
  auto_detect_staged: false
  preferred_target: staged
notifications:
  suppress: true
timeouts:
  staged_detection_ms: 2500
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Diff.AutoDetectStaged {
		t.Error("expected auto_detect_staged false from file")
	}
	if cfg.Diff.PreferredTarget != "staged" {
		t.Errorf("expected preferred_target staged, got %q", cfg.Diff.PreferredTarget)
	}
	if !cfg.Notifications.Suppress {
		t.Error("expected notifications suppressed")
	}
	if cfg.Timeouts.StagedDetectionMs != 2500 {
		t.Errorf("expected detection timeout 2500, got %d", cfg.Timeouts.StagedDetectionMs)
	}
	// Untouched keys keep their defaults.
	if !cfg.Diff.FallbackToAll {
		t.Error("expected fallback_to_all default true")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	setupHome(t)
	t.Setenv("DISH_AI_COMMIT_DIFF_PREFERRED_TARGET", "all")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Diff.PreferredTarget != "all" {
		t.Errorf("expected env override to all, got %q", cfg.Diff.PreferredTarget)
	}
}

func TestLoadExpandsHomePaths(t *testing.T) {
	home := setupHome(t)
	writeConfigFile(t, home, `
history:
  database_path: ~/custom/history.db
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := filepath.Join(home, "custom", "history.db")
	if cfg.History.DatabasePath != want {
		t.Errorf("expected %q, got %q", want, cfg.History.DatabasePath)
	}
}

func TestLoadRejectsInvalidTarget(t *testing.T) {
	home := setupHome(t)
	writeConfigFile(t, home, `
diff:
  preferred_target: everything
`)

	if _, err := Load(); err == nil {
		t.Error("expected validation error")
	}
}
