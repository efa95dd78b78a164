package detect

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/littleCareless/dish-ai-commit-sub004/internal/config"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/logging"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/scm"
)

// fakeRunner records invocations and returns scripted responses.
type fakeRunner struct {
	mu      sync.Mutex
	calls   int
	respond func(ctx context.Context, dir, name string, args []string) ([]byte, error)
}

func (f *fakeRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.respond != nil {
		return f.respond(ctx, dir, name, args)
	}
	return nil, nil
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func staticOutput(out string) func(context.Context, string, string, []string) ([]byte, error) {
	return func(context.Context, string, string, []string) ([]byte, error) {
		return []byte(out), nil
	}
}

func TestDetectStagedContent(t *testing.T) {
	logger := logging.NewNoopLogger()

	t.Run("staged files recommend staged target", func(t *testing.T) {
		runner := &fakeRunner{respond: staticOutput("file1.go\nfile2.go\n")}
		d := NewDetector(nil, runner, logger)

		result := d.DetectStagedContent(context.Background(), "/repo", Options{})

		if !result.HasStagedContent {
			t.Error("expected staged content")
		}
		if result.StagedFileCount != 2 {
			t.Errorf("expected 2 staged files, got %d", result.StagedFileCount)
		}
		if result.RecommendedTarget != scm.TargetStaged {
			t.Errorf("expected staged target, got %s", result.RecommendedTarget)
		}
		if result.ErrorMessage != "" {
			t.Errorf("unexpected error message: %s", result.ErrorMessage)
		}
	})

	t.Run("empty index recommends all when fallback enabled", func(t *testing.T) {
		runner := &fakeRunner{respond: staticOutput("")}
		d := NewDetector(nil, runner, logger)

		result := d.DetectStagedContent(context.Background(), "/repo", Options{})

		if result.HasStagedContent {
			t.Error("expected no staged content")
		}
		if result.RecommendedTarget != scm.TargetAll {
			t.Errorf("expected all target, got %s", result.RecommendedTarget)
		}
	})

	t.Run("empty index keeps staged target when fallback disabled", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Diff.AutoDetectStaged = true
		cfg.Diff.FallbackToAll = false

		runner := &fakeRunner{respond: staticOutput("")}
		d := NewDetector(cfg, runner, logger)

		result := d.DetectStagedContent(context.Background(), "/repo", Options{})

		if result.RecommendedTarget != scm.TargetStaged {
			t.Errorf("expected staged target, got %s", result.RecommendedTarget)
		}
	})

	t.Run("command failure degrades to fallback without error", func(t *testing.T) {
		runner := &fakeRunner{respond: func(context.Context, string, string, []string) ([]byte, error) {
			return nil, fmt.Errorf("git exploded")
		}}
		d := NewDetector(nil, runner, logger)

		result := d.DetectStagedContent(context.Background(), "/repo", Options{})

		if result.HasStagedContent {
			t.Error("fallback result must report no staged content")
		}
		if result.RecommendedTarget != scm.TargetAll {
			t.Errorf("fallback target must be all, got %s", result.RecommendedTarget)
		}
		if result.ErrorMessage == "" {
			t.Error("expected error message on fallback result")
		}
	})

	t.Run("timeout degrades to fallback", func(t *testing.T) {
		runner := &fakeRunner{respond: func(ctx context.Context, _, _ string, _ []string) ([]byte, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}}
		d := NewDetector(nil, runner, logger)

		result := d.DetectStagedContent(context.Background(), "/repo", Options{Timeout: 10 * time.Millisecond})

		if result.ErrorMessage == "" {
			t.Error("expected error message on timeout")
		}
		if result.RecommendedTarget != scm.TargetAll {
			t.Errorf("expected all target after timeout, got %s", result.RecommendedTarget)
		}
	})
}

func TestDetectStagedContentCaching(t *testing.T) {
	logger := logging.NewNoopLogger()
	now := time.Now()
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(d)
	}

	t.Run("cached result reused within TTL", func(t *testing.T) {
		runner := &fakeRunner{respond: staticOutput("file.go\n")}
		d := NewDetector(nil, runner, logger, WithClock(clock))

		d.DetectStagedContent(context.Background(), "/repo", Options{UseCache: true})
		d.DetectStagedContent(context.Background(), "/repo", Options{UseCache: true})

		if runner.callCount() != 1 {
			t.Errorf("expected 1 command invocation, got %d", runner.callCount())
		}
	})

	t.Run("cache expires after TTL", func(t *testing.T) {
		runner := &fakeRunner{respond: staticOutput("file.go\n")}
		d := NewDetector(nil, runner, logger, WithClock(clock))

		d.DetectStagedContent(context.Background(), "/repo", Options{UseCache: true})
		advance(6 * time.Second)
		d.DetectStagedContent(context.Background(), "/repo", Options{UseCache: true})

		if runner.callCount() != 2 {
			t.Errorf("expected re-detection after expiry, got %d invocations", runner.callCount())
		}
	})

	t.Run("failures are not cached", func(t *testing.T) {
		runner := &fakeRunner{respond: func(context.Context, string, string, []string) ([]byte, error) {
			return nil, fmt.Errorf("boom")
		}}
		d := NewDetector(nil, runner, logger, WithClock(clock))

		d.DetectStagedContent(context.Background(), "/repo", Options{UseCache: true})
		d.DetectStagedContent(context.Background(), "/repo", Options{UseCache: true})

		if runner.callCount() != 2 {
			t.Errorf("expected failures to re-detect, got %d invocations", runner.callCount())
		}
	})

	t.Run("clear cache forces re-detection", func(t *testing.T) {
		runner := &fakeRunner{respond: staticOutput("file.go\n")}
		d := NewDetector(nil, runner, logger, WithClock(clock))

		d.DetectStagedContent(context.Background(), "/repo", Options{UseCache: true})
		d.ClearCache()
		d.DetectStagedContent(context.Background(), "/repo", Options{UseCache: true})

		if runner.callCount() != 2 {
			t.Errorf("expected re-detection after clear, got %d invocations", runner.callCount())
		}
	})
}

func TestStagedDetails(t *testing.T) {
	logger := logging.NewNoopLogger()

	t.Run("parses status letters", func(t *testing.T) {
		runner := &fakeRunner{respond: staticOutput("M\tmain.go\nA\tnew.go\nD\tgone.go\n")}
		d := NewDetector(nil, runner, logger)

		details, err := d.StagedDetails(context.Background(), "/repo")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(details.Files) != 3 {
			t.Fatalf("expected 3 files, got %d", len(details.Files))
		}
		if details.Files[0].Status != "M" || details.Files[0].Path != "main.go" {
			t.Errorf("unexpected first entry: %+v", details.Files[0])
		}
	})

	t.Run("rename keeps new path and status letter", func(t *testing.T) {
		runner := &fakeRunner{respond: staticOutput("R100\told.go\tnew.go\n")}
		d := NewDetector(nil, runner, logger)

		details, err := d.StagedDetails(context.Background(), "/repo")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(details.Files) != 1 {
			t.Fatalf("expected 1 file, got %d", len(details.Files))
		}
		if details.Files[0].Status != "R" {
			t.Errorf("expected status R, got %s", details.Files[0].Status)
		}
		if details.Files[0].Path != "new.go" {
			t.Errorf("expected new path, got %s", details.Files[0].Path)
		}
	})

	t.Run("malformed lines are skipped", func(t *testing.T) {
		runner := &fakeRunner{respond: staticOutput("\tno-status.go\nM\tmain.go\nlonelyline\n")}
		d := NewDetector(nil, runner, logger)

		details, err := d.StagedDetails(context.Background(), "/repo")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(details.Files) != 1 {
			t.Fatalf("expected 1 file, got %d", len(details.Files))
		}
		if details.Files[0].Path != "main.go" {
			t.Errorf("unexpected entry: %+v", details.Files[0])
		}
	})

	t.Run("failure raises detection error", func(t *testing.T) {
		runner := &fakeRunner{respond: func(context.Context, string, string, []string) ([]byte, error) {
			return nil, fmt.Errorf("boom")
		}}
		d := NewDetector(nil, runner, logger)

		_, err := d.StagedDetails(context.Background(), "/repo")
		if err == nil {
			t.Fatal("expected error")
		}
		var detErr *scm.DetectionError
		if !errors.As(err, &detErr) {
			t.Errorf("expected DetectionError, got %T", err)
		}
	})
}

func TestDetectStagedForFiles(t *testing.T) {
	logger := logging.NewNoopLogger()

	t.Run("one failure does not abort siblings", func(t *testing.T) {
		runner := &fakeRunner{respond: func(_ context.Context, _, _ string, args []string) ([]byte, error) {
			file := args[len(args)-1]
			if file == "bad.go" {
				return nil, fmt.Errorf("boom")
			}
			return []byte(file + "\n"), nil
		}}
		d := NewDetector(nil, runner, logger)

		results, err := d.DetectStagedForFiles(context.Background(), "/repo", []string{"a.go", "bad.go", "c.go"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 3 {
			t.Fatalf("expected 3 results, got %d", len(results))
		}
		if results[0].Err != nil || !results[0].Staged {
			t.Errorf("unexpected first result: %+v", results[0])
		}
		if results[1].Err == nil {
			t.Error("expected error on second item")
		}
		if results[2].Err != nil || !results[2].Staged {
			t.Errorf("unexpected third result: %+v", results[2])
		}
	})

	t.Run("cancellation returns partial results", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		runner := &fakeRunner{respond: func(context.Context, string, string, []string) ([]byte, error) {
			cancel()
			return []byte("a.go\n"), nil
		}}
		d := NewDetector(nil, runner, logger)

		results, err := d.DetectStagedForFiles(ctx, "/repo", []string{"a.go", "b.go", "c.go"})
		if err == nil {
			t.Fatal("expected cancellation error")
		}
		if len(results) != 1 {
			t.Errorf("expected 1 partial result, got %d", len(results))
		}
	})

	t.Run("empty output means unstaged", func(t *testing.T) {
		runner := &fakeRunner{respond: staticOutput("")}
		d := NewDetector(nil, runner, logger)

		results, err := d.DetectStagedForFiles(context.Background(), "/repo", []string{"a.go"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if results[0].Staged {
			t.Error("expected unstaged")
		}
	})
}
