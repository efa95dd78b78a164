// Package diff turns a staged-content detection result plus configuration and
// user preference into a concrete diff target, fetches the diff through a
// provider handle, and validates that it is non-empty.
package diff

import (
	"context"
	"strings"

	"github.com/littleCareless/dish-ai-commit-sub004/internal/config"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/detect"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/logging"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/scm"
)

// Validation is the outcome of re-checking a target against the repository.
// SuggestedTarget differs from the checked target when the staged diff came
// back empty; the suggestion is never applied automatically.
type Validation struct {
	Empty           bool
	SuggestedTarget scm.DiffTarget
}

// Selector resolves diff targets and materializes diff text.
type Selector interface {
	// SelectTarget resolves the concrete target. The result is always
	// TargetStaged or TargetAll, never TargetAuto.
	SelectTarget(detection detect.StagedResult, userPreference scm.DiffTarget) scm.DiffTarget

	// DiffWithTarget fetches diff text for target, temporarily steering the
	// provider's ambient diff scope and restoring it on every exit path.
	DiffWithTarget(ctx context.Context, provider scm.Provider, target scm.DiffTarget, files []string) (*scm.DiffResult, error)

	// ValidateTarget re-fetches the diff for target and suggests widening an
	// empty staged scope without applying the change.
	ValidateTarget(ctx context.Context, provider scm.Provider, target scm.DiffTarget) (*Validation, error)
}

// selector implements Selector
type selector struct {
	autoDetect    bool
	fallbackToAll bool
	preferred     scm.DiffTarget
	logger        logging.Logger
}

// NewSelector creates a diff selector from configuration.
func NewSelector(cfg *config.Config, logger logging.Logger) Selector {
	autoDetect := true
	fallbackToAll := true
	preferred := scm.TargetAuto

	if cfg != nil {
		autoDetect = cfg.Diff.AutoDetectStaged
		fallbackToAll = cfg.Diff.FallbackToAll
		if parsed, err := scm.ParseDiffTarget(cfg.Diff.PreferredTarget); err == nil {
			preferred = parsed
		}
	}

	return &selector{
		autoDetect:    autoDetect,
		fallbackToAll: fallbackToAll,
		preferred:     preferred,
		logger:        logger.With("component", "diff_selector"),
	}
}

// SelectTarget applies the resolution order: explicit preference, configured
// preference when auto-detection is off, fallback policy on detection error,
// then the detection result itself.
func (s *selector) SelectTarget(detection detect.StagedResult, userPreference scm.DiffTarget) scm.DiffTarget {
	if userPreference != "" && userPreference != scm.TargetAuto {
		s.logger.Debug("using explicit user preference", "target", string(userPreference))
		return userPreference
	}

	if !s.autoDetect {
		target := s.preferred
		if target == scm.TargetAuto || target == "" {
			target = scm.TargetAll
		}
		s.logger.Debug("auto-detection disabled, using configured target", "target", string(target))
		return target
	}

	if detection.ErrorMessage != "" {
		target := s.fallbackTarget()
		s.logger.Debug("detection reported an error, using fallback target",
			"repository", detection.RepositoryPath, "target", string(target))
		return target
	}

	if detection.HasStagedContent {
		return scm.TargetStaged
	}
	return s.fallbackTarget()
}

// fallbackTarget is the scope used when nothing is staged or detection failed.
func (s *selector) fallbackTarget() scm.DiffTarget {
	if s.fallbackToAll {
		return scm.TargetAll
	}
	return scm.TargetStaged
}

// DiffWithTarget steers the provider's ambient scope, fetches the diff, and
// restores the prior scope even when the fetch fails.
func (s *selector) DiffWithTarget(ctx context.Context, provider scm.Provider, target scm.DiffTarget, files []string) (*scm.DiffResult, error) {
	if target == scm.TargetAuto || target == "" {
		return nil, scm.NewDetectionError(scm.KindUnknown,
			"auto target must be resolved before fetching a diff", provider.Root(), nil)
	}

	previous := provider.DiffTarget()
	provider.SetDiffTarget(target)
	defer provider.SetDiffTarget(previous)

	content, err := provider.GetDiff(ctx, files)
	if err != nil {
		s.logger.Warn("diff fetch failed", "repository", provider.Root(), "target", string(target), "error", err)
		return nil, err
	}

	if strings.TrimSpace(content) == "" {
		return nil, scm.ErrNoDiff
	}

	return &scm.DiffResult{
		Content:        content,
		Target:         target,
		Files:          files,
		RepositoryPath: provider.Root(),
	}, nil
}

// ValidateTarget re-fetches the diff for target. An empty staged diff yields
// a suggestion of TargetAll; the caller decides whether to take it.
func (s *selector) ValidateTarget(ctx context.Context, provider scm.Provider, target scm.DiffTarget) (*Validation, error) {
	previous := provider.DiffTarget()
	provider.SetDiffTarget(target)
	defer provider.SetDiffTarget(previous)

	content, err := provider.GetDiff(ctx, nil)
	if err != nil {
		return nil, err
	}

	empty := strings.TrimSpace(content) == ""
	suggested := target
	if empty && target == scm.TargetStaged {
		suggested = scm.TargetAll
	}

	return &Validation{Empty: empty, SuggestedTarget: suggested}, nil
}
