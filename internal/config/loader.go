package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	configDirName  = ".dish-ai-commit"
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "DISH_AI_COMMIT"
)

// Load loads the configuration from file, environment variables, and defaults.
// It returns a Config struct populated with values from these sources in order of precedence:
// 1. Environment variables (DISH_AI_COMMIT_ prefix)
// 2. Configuration file (~/.dish-ai-commit/config.yaml)
// 3. Default values
func Load() (*Config, error) {
	if err := initViper(); err != nil {
		return nil, fmt.Errorf("failed to initialize viper: %w", err)
	}

	setDefaults()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Expand home directory paths in the loaded config
	expandConfigPaths(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// initViper initializes Viper with configuration file path, environment variable prefix, and settings
func initViper() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get user home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, configDirName, configFileName+"."+configFileType)
	viper.SetConfigFile(configPath)

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	// Try to read the config file (it's okay if it doesn't exist)
	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) && !os.IsNotExist(err) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// If we can't get home dir, use literal ~ which will be expanded later
		homeDir = "~"
	}

	workingDir, err := os.Getwd()
	if err != nil {
		workingDir = "."
	}

	// Workspace: the current directory is the single root by default
	viper.SetDefault("workspace.roots", []string{workingDir})
	viper.SetDefault("workspace.active_repositories", []string{})

	// Diff-scope resolution
	viper.SetDefault("diff.auto_detect_staged", true)
	viper.SetDefault("diff.fallback_to_all", true)
	viper.SetDefault("diff.preferred_target", "auto")

	viper.SetDefault("notifications.suppress", false)

	// Bounds for external probes
	viper.SetDefault("timeouts.availability_probe_ms", 5000)
	viper.SetDefault("timeouts.staged_detection_ms", 10000)

	// Commit-message history store
	viper.SetDefault("history.database_path", filepath.Join(homeDir, configDirName, "history.db"))

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file_path", "")
	viper.SetDefault("logging.console", true)
}

// expandHomeDir expands ~ in a path to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			// If we can't get home dir, return path as-is
			return path
		}
		if path == "~" {
			return homeDir
		}
		if strings.HasPrefix(path, "~/") {
			return filepath.Join(homeDir, path[2:])
		}
	}
	return path
}

// expandConfigPaths expands all ~ paths in the configuration struct
func expandConfigPaths(cfg *Config) {
	cfg.History.DatabasePath = expandHomeDir(cfg.History.DatabasePath)
	cfg.Logging.FilePath = expandHomeDir(cfg.Logging.FilePath)

	for i, root := range cfg.Workspace.Roots {
		cfg.Workspace.Roots[i] = expandHomeDir(root)
	}
	for i, root := range cfg.Workspace.ActiveRepositories {
		cfg.Workspace.ActiveRepositories[i] = expandHomeDir(root)
	}
}
