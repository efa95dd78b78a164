// Package git implements the scm.Provider contract over the git executable.
// The provider is bound to one repository root; every invocation runs through
// the injected command runner so availability probes and diff fetches stay
// timeout-bounded and testable.
package git

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/littleCareless/dish-ai-commit-sub004/internal/logging"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/run"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/scm"
)

const (
	// recentMessageCount is how many commit subjects a log query returns.
	recentMessageCount = 10
	// defaultProbeTimeout bounds IsAvailable when no bound was configured.
	defaultProbeTimeout = 5 * time.Second
)

// Provider is the git-backed scm.Provider.
type Provider struct {
	root         string
	runner       run.Runner
	logger       logging.Logger
	probeTimeout time.Duration

	mu     sync.Mutex
	target scm.DiffTarget
}

// New creates a git provider for a repository root.
func New(root string, runner run.Runner, logger logging.Logger, probeTimeout time.Duration) *Provider {
	if probeTimeout <= 0 {
		probeTimeout = defaultProbeTimeout
	}
	return &Provider{
		root:         root,
		runner:       runner,
		logger:       logger.With("component", "git_provider", "repository", root),
		probeTimeout: probeTimeout,
		target:       scm.TargetAll,
	}
}

// Type returns the backend kind.
func (p *Provider) Type() scm.Type {
	return scm.TypeGit
}

// Root returns the bound repository root.
func (p *Provider) Root() string {
	return p.root
}

// Capabilities reports that git has a staging area and a usable log.
func (p *Provider) Capabilities() scm.Capabilities {
	return scm.Capabilities{StagedArea: true, NativeLog: true}
}

// IsAvailable probes the repository with a bounded rev-parse call.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, p.probeTimeout)
	defer cancel()

	out, err := p.runner.Run(probeCtx, p.root, "git", "rev-parse", "--is-inside-work-tree")
	if err != nil {
		p.logger.Debug("availability probe failed", "error", err)
		return false
	}
	return strings.TrimSpace(string(out)) == "true"
}

// Init verifies the repository can be addressed; git needs no further setup.
func (p *Provider) Init(ctx context.Context) error {
	if _, err := p.runner.Run(ctx, p.root, "git", "rev-parse", "--show-toplevel"); err != nil {
		return scm.ClassifyError(err, p.root)
	}
	return nil
}

// DiffTarget returns the ambient diff scope.
func (p *Provider) DiffTarget() scm.DiffTarget {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.target
}

// SetDiffTarget steers the ambient diff scope.
func (p *Provider) SetDiffTarget(target scm.DiffTarget) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.target = target
}

// GetDiff returns diff text for the ambient target. The staged scope is
// `git diff --cached`; the full scope concatenates staged and unstaged
// output so neither side of the index is lost.
func (p *Provider) GetDiff(ctx context.Context, files []string) (string, error) {
	target := p.DiffTarget()

	staged, err := p.diff(ctx, true, files)
	if err != nil {
		return "", err
	}
	if target == scm.TargetStaged {
		return staged, nil
	}

	unstaged, err := p.diff(ctx, false, files)
	if err != nil {
		return "", err
	}
	return staged + unstaged, nil
}

// diff runs one git diff invocation.
func (p *Provider) diff(ctx context.Context, cached bool, files []string) (string, error) {
	args := []string{"diff", "--no-ext-diff"}
	if cached {
		args = append(args, "--cached")
	}
	if len(files) > 0 {
		args = append(args, "--")
		args = append(args, files...)
	}

	out, err := p.runner.Run(ctx, p.root, "git", args...)
	if err != nil {
		return "", scm.ClassifyError(err, p.root)
	}
	return string(out), nil
}

// Commit records a commit. With explicit files only those paths are
// committed; otherwise the ambient "all" scope stages tracked changes first.
func (p *Provider) Commit(ctx context.Context, message string, files []string) error {
	if strings.TrimSpace(message) == "" {
		return fmt.Errorf("commit message cannot be empty")
	}

	args := []string{"commit", "-m", message}
	if len(files) > 0 {
		args = append(args, "--")
		args = append(args, files...)
	} else if p.DiffTarget() == scm.TargetAll {
		args = []string{"commit", "-a", "-m", message}
	}

	if _, err := p.runner.Run(ctx, p.root, "git", args...); err != nil {
		return scm.ClassifyError(err, p.root)
	}
	p.logger.Info("commit recorded", "files", len(files))
	return nil
}

// RecentCommitMessages returns recent subjects for the repository and, best
// effort, for the configured author.
func (p *Provider) RecentCommitMessages(ctx context.Context) (*scm.RecentMessages, error) {
	countArg := fmt.Sprintf("-n%d", recentMessageCount)

	out, err := p.runner.Run(ctx, p.root, "git", "log", "--pretty=format:%s", countArg)
	if err != nil {
		return nil, scm.ClassifyError(err, p.root)
	}
	messages := &scm.RecentMessages{Repository: splitSubjects(string(out))}

	// The author-scoped query depends on local git config; its absence is
	// not an error.
	emailOut, err := p.runner.Run(ctx, p.root, "git", "config", "user.email")
	if err != nil {
		p.logger.Debug("user.email not configured, skipping author log", "error", err)
		return messages, nil
	}
	email := strings.TrimSpace(string(emailOut))
	if email == "" {
		return messages, nil
	}

	userOut, err := p.runner.Run(ctx, p.root, "git", "log", "--author="+email, "--pretty=format:%s", countArg)
	if err != nil {
		p.logger.Debug("author log query failed", "error", err)
		return messages, nil
	}
	messages.User = splitSubjects(string(userOut))
	return messages, nil
}

// splitSubjects splits log output into non-empty subject lines.
func splitSubjects(out string) []string {
	var subjects []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			subjects = append(subjects, line)
		}
	}
	return subjects
}
