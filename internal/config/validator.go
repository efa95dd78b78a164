package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// Validate checks a loaded configuration for values the engine cannot work
// with. Workspace roots may be absent (the engine then reports "no repository"
// downstream), but present roots must be plausible paths.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	switch cfg.Diff.PreferredTarget {
	case "staged", "all", "auto", "":
	default:
		return fmt.Errorf("diff.preferred_target must be one of staged, all, auto: %q", cfg.Diff.PreferredTarget)
	}

	if cfg.Timeouts.AvailabilityProbeMs < 0 {
		return fmt.Errorf("timeouts.availability_probe_ms cannot be negative")
	}
	if cfg.Timeouts.StagedDetectionMs < 0 {
		return fmt.Errorf("timeouts.staged_detection_ms cannot be negative")
	}

	for _, root := range cfg.Workspace.Roots {
		if err := validatePathInput(root); err != nil {
			return fmt.Errorf("workspace root %q: %w", root, err)
		}
	}
	for _, root := range cfg.Workspace.ActiveRepositories {
		if err := validatePathInput(root); err != nil {
			return fmt.Errorf("active repository %q: %w", root, err)
		}
	}

	return nil
}

// ValidatePath validates that a path exists and is a directory.
// It expands home directory paths (~) before validation and checks for security issues.
// Returns an error with a helpful message if validation fails.
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	if err := validatePathInput(path); err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	expandedPath := expandHomeDir(path)

	// Resolve symlinks; if that fails the path may simply not exist yet
	resolvedPath, err := filepath.EvalSymlinks(expandedPath)
	if err != nil {
		resolvedPath = expandedPath
	}

	info, err := os.Stat(resolvedPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("path does not exist: %s", path)
		}
		return fmt.Errorf("failed to check path: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	return nil
}

// validatePathInput checks for dangerous characters in path input
func validatePathInput(path string) error {
	if strings.ContainsRune(path, '\x00') {
		return fmt.Errorf("path contains null byte")
	}

	for _, r := range path {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return fmt.Errorf("path contains control character")
		}
	}

	return nil
}

// IsDuplicate checks if a path (after expansion) already exists in the given slice of paths.
// It compares paths after expanding home directory notation and normalizing.
func IsDuplicate(path string, paths []string) bool {
	if path == "" {
		return false
	}

	expandedPath := expandHomeDir(path)
	expandedPathAbs, err := filepath.Abs(expandedPath)
	if err != nil {
		expandedPathAbs = expandedPath
	}

	for _, existingPath := range paths {
		if existingPath == "" {
			continue
		}

		expandedExisting := expandHomeDir(existingPath)
		expandedExistingAbs, err := filepath.Abs(expandedExisting)
		if err != nil {
			expandedExistingAbs = expandedExisting
		}

		if expandedPathAbs == expandedExistingAbs {
			return true
		}

		// Also compare after resolving symlinks, so two representations of the
		// same directory count as duplicates
		resolvedPath, err1 := filepath.EvalSymlinks(expandedPathAbs)
		resolvedExisting, err2 := filepath.EvalSymlinks(expandedExistingAbs)
		if err1 == nil && err2 == nil && resolvedPath == resolvedExisting {
			return true
		}
	}

	return false
}
