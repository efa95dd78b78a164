package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	configFilePerm = 0600
	configDirPerm  = 0755
)

// Save saves the configuration to the config file (~/.dish-ai-commit/config.yaml).
// It creates the config directory if it doesn't exist and writes the config in
// YAML format with user-friendly path formatting (using ~ for home directory).
// The config directory must resolve to a path within the home directory.
func Save(cfg *Config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get user home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, configDirName)

	// Resolve symlinks to prevent symlink attacks
	resolvedConfigDir, err := filepath.EvalSymlinks(configDir)
	if err != nil {
		// Directory doesn't exist yet - verify the path we're about to create
		if !isPathWithinHome(configDir, homeDir) {
			return fmt.Errorf("config directory path is outside home directory")
		}
		resolvedConfigDir = configDir
	} else {
		if !isPathWithinHome(resolvedConfigDir, homeDir) {
			return fmt.Errorf("config directory resolves to path outside home directory")
		}
	}

	if err := os.MkdirAll(resolvedConfigDir, configDirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Re-resolve after creation to ensure it's still safe
	resolvedConfigDir, err = filepath.EvalSymlinks(resolvedConfigDir)
	if err == nil && !isPathWithinHome(resolvedConfigDir, homeDir) {
		return fmt.Errorf("config directory is outside home directory")
	}

	configPath := filepath.Join(resolvedConfigDir, configFileName+"."+configFileType)

	saveCfg := convertPathsToTilde(cfg, homeDir)

	data, err := yaml.Marshal(saveCfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, data, configFilePerm); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// CreateDefaultConfig writes the default configuration file if none exists.
func CreateDefaultConfig() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get user home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, configDirName, configFileName+"."+configFileType)
	if _, err := os.Stat(configPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	workingDir, err := os.Getwd()
	if err != nil {
		workingDir = "."
	}

	defaultCfg := &Config{
		Workspace: WorkspaceConfig{
			Roots:              []string{workingDir},
			ActiveRepositories: []string{},
		},
		Diff: DiffConfig{
			AutoDetectStaged: true,
			FallbackToAll:    true,
			PreferredTarget:  "auto",
		},
		Timeouts: TimeoutsConfig{
			AvailabilityProbeMs: 5000,
			StagedDetectionMs:   10000,
		},
		History: HistoryConfig{
			DatabasePath: "~/" + configDirName + "/history.db",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
	}

	if err := Save(defaultCfg); err != nil {
		return fmt.Errorf("failed to save default config: %w", err)
	}

	return nil
}

// isPathWithinHome reports whether path is inside the user's home directory.
func isPathWithinHome(path, homeDir string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absHome, err := filepath.Abs(homeDir)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absHome, absPath)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}

// convertPathsToTilde creates a copy of the config with absolute paths
// converted to ~ format if they're within the user's home directory
func convertPathsToTilde(cfg *Config, homeDir string) *Config {
	result := *cfg
	result.History.DatabasePath = convertPathToTilde(cfg.History.DatabasePath, homeDir)
	result.Logging.FilePath = convertPathToTilde(cfg.Logging.FilePath, homeDir)

	result.Workspace.Roots = make([]string, len(cfg.Workspace.Roots))
	for i, root := range cfg.Workspace.Roots {
		result.Workspace.Roots[i] = convertPathToTilde(root, homeDir)
	}
	result.Workspace.ActiveRepositories = make([]string, len(cfg.Workspace.ActiveRepositories))
	for i, root := range cfg.Workspace.ActiveRepositories {
		result.Workspace.ActiveRepositories[i] = convertPathToTilde(root, homeDir)
	}

	return &result
}

// convertPathToTilde converts an absolute path to ~ format if it's within
// the user's home directory, otherwise returns the path as-is.
func convertPathToTilde(path, homeDir string) string {
	if path == "" || strings.HasPrefix(path, "~") {
		return path
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	homeDirAbs, err := filepath.Abs(homeDir)
	if err != nil {
		return path
	}

	relPath, err := filepath.Rel(homeDirAbs, absPath)
	if err != nil {
		return path
	}

	if !strings.HasPrefix(relPath, "..") {
		if relPath == "." {
			return "~"
		}
		return filepath.Join("~", relPath)
	}

	return path
}
