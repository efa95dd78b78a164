// Package svn implements the scm.Provider contract over the svn executable
// for legacy centralized working copies. Subversion has no staging area, so
// staged-scoped requests degrade to the full working-copy delta; the
// capability flag lets callers see the distinction up front.
package svn

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
	recentMessageCount  = 10
	defaultProbeTimeout = 5 * time.Second
)

// Provider is the svn-backed scm.Provider.
type Provider struct {
	root         string
	runner       run.Runner
	logger       logging.Logger
	probeTimeout time.Duration

	mu     sync.Mutex
	target scm.DiffTarget
}

// New creates an svn provider for a working-copy root.
func New(root string, runner run.Runner, logger logging.Logger, probeTimeout time.Duration) *Provider {
	if probeTimeout <= 0 {
		probeTimeout = defaultProbeTimeout
	}
	return &Provider{
		root:         root,
		runner:       runner,
		logger:       logger.With("component", "svn_provider", "repository", root),
		probeTimeout: probeTimeout,
		target:       scm.TargetAll,
	}
}

// Type returns the backend kind.
func (p *Provider) Type() scm.Type {
	return scm.TypeSVN
}

// Root returns the bound working-copy root.
func (p *Provider) Root() string {
	return p.root
}

// Capabilities reports that svn has no staging area.
func (p *Provider) Capabilities() scm.Capabilities {
	return scm.Capabilities{StagedArea: false, NativeLog: true}
}

// IsAvailable probes the working copy with a bounded svn info call.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, p.probeTimeout)
	defer cancel()

	if _, err := p.runner.Run(probeCtx, p.root, "svn", "info"); err != nil {
		p.logger.Debug("availability probe failed", "error", err)
		return false
	}
	return true
}

// Init verifies the working copy can be addressed.
func (p *Provider) Init(ctx context.Context) error {
	if _, err := p.runner.Run(ctx, p.root, "svn", "info"); err != nil {
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

// GetDiff returns the working-copy diff. Subversion cannot narrow to staged
// changes, so every target yields the full delta.
func (p *Provider) GetDiff(ctx context.Context, files []string) (string, error) {
	if p.DiffTarget() == scm.TargetStaged {
		p.logger.Debug("staged scope requested on svn, serving full working-copy delta")
	}

	args := []string{"diff"}
	args = append(args, files...)

	out, err := p.runner.Run(ctx, p.root, "svn", args...)
	if err != nil {
		return "", scm.ClassifyError(err, p.root)
	}
	return string(out), nil
}

// Commit records a commit against the central repository.
func (p *Provider) Commit(ctx context.Context, message string, files []string) error {
	if strings.TrimSpace(message) == "" {
		return fmt.Errorf("commit message cannot be empty")
	}

	args := []string{"commit", "-m", message}
	args = append(args, files...)

	if _, err := p.runner.Run(ctx, p.root, "svn", args...); err != nil {
		return scm.ClassifyError(err, p.root)
	}
	p.logger.Info("commit recorded", "files", len(files))
	return nil
}

// RecentCommitMessages returns recent log messages. Subversion's log format
// interleaves revision headers and bodies; only message lines are kept. The
// author-scoped list stays empty because svn cannot filter by author locally.
func (p *Provider) RecentCommitMessages(ctx context.Context) (*scm.RecentMessages, error) {
	out, err := p.runner.Run(ctx, p.root, "svn", "log", "-l", fmt.Sprintf("%d", recentMessageCount))
	if err != nil {
		return nil, scm.ClassifyError(err, p.root)
	}

	return &scm.RecentMessages{Repository: parseLogMessages(string(out))}, nil
}

// parseLogMessages extracts message lines from svn log output. Entries are
// separated by dash rulers; the first line of each entry is the revision
// header (r123 | author | date | lines).
func parseLogMessages(out string) []string {
	var messages []string
	inHeader := false

	for _, line := range strings.Split(out, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "----") {
			inHeader = true
			continue
		}
		if inHeader {
			// Revision header line follows the ruler.
			inHeader = false
			continue
		}
		if trimmed != "" {
			messages = append(messages, trimmed)
		}
	}
	return messages
}
