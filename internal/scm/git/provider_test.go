package git

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/littleCareless/dish-ai-commit-sub004/internal/logging"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/scm"
)

// fakeRunner records argv and serves scripted responses keyed by the joined
// argument string.
type fakeRunner struct {
	mu        sync.Mutex
	calls     [][]string
	responses map[string]string
	errors    map[string]error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		responses: make(map[string]string),
		errors:    make(map[string]error),
	}
}

func (f *fakeRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()

	key := name + " " + strings.Join(args, " ")
	if err, ok := f.errors[key]; ok {
		return nil, err
	}
	return []byte(f.responses[key]), nil
}

func (f *fakeRunner) lastCall() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1]
}

func newTestProvider(runner *fakeRunner) *Provider {
	return New("/repo", runner, logging.NewNoopLogger(), 0)
}

func TestProviderIdentity(t *testing.T) {
	p := newTestProvider(newFakeRunner())

	if p.Type() != scm.TypeGit {
		t.Errorf("expected git type, got %s", p.Type())
	}
	if p.Root() != "/repo" {
		t.Errorf("expected /repo, got %s", p.Root())
	}
	caps := p.Capabilities()
	if !caps.StagedArea || !caps.NativeLog {
		t.Errorf("unexpected capabilities: %+v", caps)
	}
	if p.DiffTarget() != scm.TargetAll {
		t.Errorf("expected default target all, got %s", p.DiffTarget())
	}
}

func TestIsAvailable(t *testing.T) {
	t.Run("inside a work tree", func(t *testing.T) {
		runner := newFakeRunner()
		runner.responses["git rev-parse --is-inside-work-tree"] = "true\n"
		p := newTestProvider(runner)

		if !p.IsAvailable(context.Background()) {
			t.Error("expected available")
		}
	})

	t.Run("outside a work tree", func(t *testing.T) {
		runner := newFakeRunner()
		runner.responses["git rev-parse --is-inside-work-tree"] = "false\n"
		p := newTestProvider(runner)

		if p.IsAvailable(context.Background()) {
			t.Error("expected unavailable")
		}
	})

	t.Run("probe failure", func(t *testing.T) {
		runner := newFakeRunner()
		runner.errors["git rev-parse --is-inside-work-tree"] = fmt.Errorf("not a repo")
		p := newTestProvider(runner)

		if p.IsAvailable(context.Background()) {
			t.Error("expected unavailable on error")
		}
	})
}

func TestGetDiff(t *testing.T) {
	t.Run("staged target runs cached diff only", func(t *testing.T) {
		runner := newFakeRunner()
		runner.responses["git diff --no-ext-diff --cached"] = "staged-diff"
		p := newTestProvider(runner)
		p.SetDiffTarget(scm.TargetStaged)

		got, err := p.GetDiff(context.Background(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "staged-diff" {
			t.Errorf("unexpected diff: %q", got)
		}
		if len(runner.calls) != 1 {
			t.Errorf("expected 1 invocation, got %d", len(runner.calls))
		}
	})

	t.Run("all target concatenates staged and unstaged", func(t *testing.T) {
		runner := newFakeRunner()
		runner.responses["git diff --no-ext-diff --cached"] = "staged-part\n"
		runner.responses["git diff --no-ext-diff"] = "unstaged-part\n"
		p := newTestProvider(runner)

		got, err := p.GetDiff(context.Background(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "staged-part\nunstaged-part\n" {
			t.Errorf("unexpected diff: %q", got)
		}
	})

	t.Run("file scoping appends after separator", func(t *testing.T) {
		runner := newFakeRunner()
		p := newTestProvider(runner)
		p.SetDiffTarget(scm.TargetStaged)

		if _, err := p.GetDiff(context.Background(), []string{"a.go", "b.go"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := "git diff --no-ext-diff --cached -- a.go b.go"
		if got := strings.Join(runner.lastCall(), " "); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	})

	t.Run("failure is classified", func(t *testing.T) {
		runner := newFakeRunner()
		runner.errors["git diff --no-ext-diff --cached"] = fmt.Errorf("boom")
		p := newTestProvider(runner)
		p.SetDiffTarget(scm.TargetStaged)

		_, err := p.GetDiff(context.Background(), nil)
		if err == nil {
			t.Fatal("expected error")
		}
		if _, ok := err.(*scm.DetectionError); !ok {
			t.Errorf("expected DetectionError, got %T", err)
		}
	})
}

func TestCommit(t *testing.T) {
	t.Run("empty message is rejected", func(t *testing.T) {
		p := newTestProvider(newFakeRunner())
		if err := p.Commit(context.Background(), "   ", nil); err == nil {
			t.Error("expected error for empty message")
		}
	})

	t.Run("explicit files commit only those paths", func(t *testing.T) {
		runner := newFakeRunner()
		p := newTestProvider(runner)

		if err := p.Commit(context.Background(), "fix bug", []string{"a.go"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := "git commit -m fix bug -- a.go"
		if got := strings.Join(runner.lastCall(), " "); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	})

	t.Run("ambient all scope stages tracked changes", func(t *testing.T) {
		runner := newFakeRunner()
		p := newTestProvider(runner)

		if err := p.Commit(context.Background(), "fix bug", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := "git commit -a -m fix bug"
		if got := strings.Join(runner.lastCall(), " "); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	})

	t.Run("staged scope commits the index as-is", func(t *testing.T) {
		runner := newFakeRunner()
		p := newTestProvider(runner)
		p.SetDiffTarget(scm.TargetStaged)

		if err := p.Commit(context.Background(), "fix bug", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := "git commit -m fix bug"
		if got := strings.Join(runner.lastCall(), " "); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	})
}

func TestRecentCommitMessages(t *testing.T) {
	t.Run("repository subjects", func(t *testing.T) {
		runner := newFakeRunner()
		runner.responses["git log --pretty=format:%s -n10"] = "third\nsecond\nfirst\n"
		runner.errors["git config user.email"] = fmt.Errorf("not set")
		p := newTestProvider(runner)

		messages, err := p.RecentCommitMessages(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(messages.Repository) != 3 {
			t.Fatalf("expected 3 subjects, got %d", len(messages.Repository))
		}
		if messages.Repository[0] != "third" {
			t.Errorf("expected newest first, got %s", messages.Repository[0])
		}
		if len(messages.User) != 0 {
			t.Errorf("expected no user subjects without user.email, got %d", len(messages.User))
		}
	})

	t.Run("author subjects when email configured", func(t *testing.T) {
		runner := newFakeRunner()
		runner.responses["git log --pretty=format:%s -n10"] = "a\nb\n"
		runner.responses["git config user.email"] = "dev@example.com\n"
		runner.responses["git log --author=dev@example.com --pretty=format:%s -n10"] = "a\n"
		p := newTestProvider(runner)

		messages, err := p.RecentCommitMessages(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(messages.User) != 1 {
			t.Errorf("expected 1 user subject, got %d", len(messages.User))
		}
	})

	t.Run("log failure is an error", func(t *testing.T) {
		runner := newFakeRunner()
		runner.errors["git log --pretty=format:%s -n10"] = fmt.Errorf("boom")
		p := newTestProvider(runner)

		if _, err := p.RecentCommitMessages(context.Background()); err == nil {
			t.Error("expected error")
		}
	})
}
