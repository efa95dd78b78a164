package config

// Config represents the root configuration structure for dish-ai-commit
type Config struct {
	Workspace     WorkspaceConfig     `mapstructure:"workspace" yaml:"workspace"`
	Diff          DiffConfig          `mapstructure:"diff" yaml:"diff"`
	Notifications NotificationsConfig `mapstructure:"notifications" yaml:"notifications"`
	Timeouts      TimeoutsConfig      `mapstructure:"timeouts" yaml:"timeouts"`
	History       HistoryConfig       `mapstructure:"history" yaml:"history"`
	Logging       LoggingConfig       `mapstructure:"logging" yaml:"logging"`
}

// WorkspaceConfig describes the host workspace handed to the engine
type WorkspaceConfig struct {
	// Roots are the workspace root folders scanned for repositories
	Roots []string `mapstructure:"roots" yaml:"roots"`
	// ActiveRepositories stands in for a host native-VCS integration when
	// running headless: roots listed here are treated as "active"
	ActiveRepositories []string `mapstructure:"active_repositories" yaml:"active_repositories"`
}

// DiffConfig controls diff-scope resolution
type DiffConfig struct {
	AutoDetectStaged bool   `mapstructure:"auto_detect_staged" yaml:"auto_detect_staged"`
	FallbackToAll    bool   `mapstructure:"fallback_to_all" yaml:"fallback_to_all"`
	PreferredTarget  string `mapstructure:"preferred_target" yaml:"preferred_target"`
}

// NotificationsConfig controls user-facing notices
type NotificationsConfig struct {
	Suppress bool `mapstructure:"suppress" yaml:"suppress"`
}

// TimeoutsConfig bounds every external probe, in milliseconds
type TimeoutsConfig struct {
	AvailabilityProbeMs int `mapstructure:"availability_probe_ms" yaml:"availability_probe_ms"`
	StagedDetectionMs   int `mapstructure:"staged_detection_ms" yaml:"staged_detection_ms"`
}

// HistoryConfig contains commit-message history store settings
type HistoryConfig struct {
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level    string `mapstructure:"level" yaml:"level"`
	FilePath string `mapstructure:"file_path" yaml:"file_path"`
	Console  bool   `mapstructure:"console" yaml:"console"`
}
