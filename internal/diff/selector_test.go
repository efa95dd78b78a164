package diff

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/littleCareless/dish-ai-commit-sub004/internal/config"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/detect"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/logging"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/scm"
)

// fakeProvider tracks its ambient target and serves scripted diffs.
type fakeProvider struct {
	root    string
	target  scm.DiffTarget
	diffs   map[scm.DiffTarget]string
	diffErr error
	history []scm.DiffTarget
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		root:   "/repo",
		target: scm.TargetAll,
		diffs:  make(map[scm.DiffTarget]string),
	}
}

func (p *fakeProvider) Type() scm.Type                  { return scm.TypeGit }
func (p *fakeProvider) Root() string                    { return p.root }
func (p *fakeProvider) Capabilities() scm.Capabilities  { return scm.Capabilities{StagedArea: true} }
func (p *fakeProvider) IsAvailable(context.Context) bool { return true }
func (p *fakeProvider) Init(context.Context) error      { return nil }
func (p *fakeProvider) DiffTarget() scm.DiffTarget      { return p.target }

func (p *fakeProvider) SetDiffTarget(target scm.DiffTarget) {
	p.target = target
	p.history = append(p.history, target)
}

func (p *fakeProvider) GetDiff(_ context.Context, _ []string) (string, error) {
	if p.diffErr != nil {
		return "", p.diffErr
	}
	return p.diffs[p.target], nil
}

func (p *fakeProvider) Commit(context.Context, string, []string) error { return nil }

func (p *fakeProvider) RecentCommitMessages(context.Context) (*scm.RecentMessages, error) {
	return &scm.RecentMessages{}, nil
}

func newTestSelector(autoDetect, fallbackToAll bool, preferred string) Selector {
	cfg := &config.Config{}
	cfg.Diff.AutoDetectStaged = autoDetect
	cfg.Diff.FallbackToAll = fallbackToAll
	cfg.Diff.PreferredTarget = preferred
	return NewSelector(cfg, logging.NewNoopLogger())
}

func TestSelectTarget(t *testing.T) {
	staged := detect.StagedResult{HasStagedContent: true, StagedFileCount: 1, RecommendedTarget: scm.TargetStaged}
	empty := detect.StagedResult{RecommendedTarget: scm.TargetAll}
	failed := detect.StagedResult{RecommendedTarget: scm.TargetAll, ErrorMessage: "detection failed"}

	tests := []struct {
		name       string
		selector   Selector
		detection  detect.StagedResult
		preference scm.DiffTarget
		want       scm.DiffTarget
	}{
		{"explicit staged preference wins", newTestSelector(true, true, "auto"), empty, scm.TargetStaged, scm.TargetStaged},
		{"explicit all preference wins over staged content", newTestSelector(true, true, "auto"), staged, scm.TargetAll, scm.TargetAll},
		{"auto preference defers to detection", newTestSelector(true, true, "auto"), staged, scm.TargetAuto, scm.TargetStaged},
		{"staged content selects staged", newTestSelector(true, true, "auto"), staged, "", scm.TargetStaged},
		{"empty index falls back to all", newTestSelector(true, true, "auto"), empty, "", scm.TargetAll},
		{"empty index keeps staged when fallback off", newTestSelector(true, false, "auto"), empty, "", scm.TargetStaged},
		{"detection error uses fallback", newTestSelector(true, true, "auto"), failed, "", scm.TargetAll},
		{"detection error without fallback stays staged", newTestSelector(true, false, "auto"), failed, "", scm.TargetStaged},
		{"auto-detect off uses configured target", newTestSelector(false, true, "staged"), empty, "", scm.TargetStaged},
		{"auto-detect off with auto config defaults to all", newTestSelector(false, true, "auto"), staged, "", scm.TargetAll},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.selector.SelectTarget(tt.detection, tt.preference)
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
			if got == scm.TargetAuto || got == "" {
				t.Error("resolved target must never be auto or empty")
			}
		})
	}
}

func TestDiffWithTarget(t *testing.T) {
	s := newTestSelector(true, true, "auto")

	t.Run("fetches diff for target", func(t *testing.T) {
		provider := newFakeProvider()
		provider.diffs[scm.TargetStaged] = "diff --git a/x b/x"

		result, err := s.DiffWithTarget(context.Background(), provider, scm.TargetStaged, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Content != "diff --git a/x b/x" {
			t.Errorf("unexpected content: %q", result.Content)
		}
		if result.Target != scm.TargetStaged {
			t.Errorf("expected staged target, got %s", result.Target)
		}
		if result.RepositoryPath != "/repo" {
			t.Errorf("unexpected repository path: %s", result.RepositoryPath)
		}
	})

	t.Run("restores ambient target after fetch", func(t *testing.T) {
		provider := newFakeProvider()
		provider.diffs[scm.TargetStaged] = "content"

		s.DiffWithTarget(context.Background(), provider, scm.TargetStaged, nil)

		if provider.DiffTarget() != scm.TargetAll {
			t.Errorf("expected ambient target restored to all, got %s", provider.DiffTarget())
		}
	})

	t.Run("restores ambient target on fetch error", func(t *testing.T) {
		provider := newFakeProvider()
		provider.diffErr = fmt.Errorf("boom")

		_, err := s.DiffWithTarget(context.Background(), provider, scm.TargetStaged, nil)
		if err == nil {
			t.Fatal("expected error")
		}
		if provider.DiffTarget() != scm.TargetAll {
			t.Errorf("expected ambient target restored on error, got %s", provider.DiffTarget())
		}
	})

	t.Run("empty diff yields ErrNoDiff", func(t *testing.T) {
		provider := newFakeProvider()
		provider.diffs[scm.TargetStaged] = "  \n"

		_, err := s.DiffWithTarget(context.Background(), provider, scm.TargetStaged, nil)
		if !errors.Is(err, scm.ErrNoDiff) {
			t.Errorf("expected ErrNoDiff, got %v", err)
		}
	})

	t.Run("rejects unresolved auto target", func(t *testing.T) {
		provider := newFakeProvider()

		_, err := s.DiffWithTarget(context.Background(), provider, scm.TargetAuto, nil)
		if err == nil {
			t.Fatal("expected error for auto target")
		}
		if len(provider.history) != 0 {
			t.Error("provider target must not be touched for an unresolved target")
		}
	})
}

func TestValidateTarget(t *testing.T) {
	s := newTestSelector(true, true, "auto")

	t.Run("non-empty staged diff validates as-is", func(t *testing.T) {
		provider := newFakeProvider()
		provider.diffs[scm.TargetStaged] = "content"

		v, err := s.ValidateTarget(context.Background(), provider, scm.TargetStaged)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v.Empty {
			t.Error("expected non-empty validation")
		}
		if v.SuggestedTarget != scm.TargetStaged {
			t.Errorf("expected no suggestion change, got %s", v.SuggestedTarget)
		}
	})

	t.Run("empty staged diff suggests all", func(t *testing.T) {
		provider := newFakeProvider()

		v, err := s.ValidateTarget(context.Background(), provider, scm.TargetStaged)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !v.Empty {
			t.Error("expected empty validation")
		}
		if v.SuggestedTarget != scm.TargetAll {
			t.Errorf("expected suggestion of all, got %s", v.SuggestedTarget)
		}
		if provider.DiffTarget() != scm.TargetAll {
			t.Errorf("expected ambient target restored, got %s", provider.DiffTarget())
		}
	})

	t.Run("empty all diff suggests nothing wider", func(t *testing.T) {
		provider := newFakeProvider()

		v, err := s.ValidateTarget(context.Background(), provider, scm.TargetAll)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v.SuggestedTarget != scm.TargetAll {
			t.Errorf("expected all, got %s", v.SuggestedTarget)
		}
	})
}
