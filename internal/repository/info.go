package repository

import (
	"context"

	"github.com/littleCareless/dish-ai-commit-sub004/internal/scm"
)

// Info represents a discovered version-controlled root. Identity key is Path
// after normalization; discovery replaces Info values wholesale, it never
// mutates them in place.
type Info struct {
	Path     string   // absolute, normalized repository root
	Name     string   // derived from the directory name
	Type     scm.Type // git, svn, or unknown
	Branch   string   // current branch, best effort
	IsActive bool     // reported active by the host integration
}

// Context is the ephemeral result of one identification call. It is produced
// per resolution and never cached.
type Context struct {
	Repository       Info
	SelectedFiles    []string
	ActiveFile       string
	WorkingDirectory string
}

// SelectionHint is a UI selection-state object: a resource path plus,
// optionally, the owning source-control root the host already knows about.
type SelectionHint struct {
	ResourcePath string
	RootPath     string
}

// IdentifyRequest carries the ambiguous user context handed to
// IdentifyRepository.
type IdentifyRequest struct {
	SelectedFiles []string
	ActiveFile    string
	Hints         []SelectionHint
}

// HostIntegration is the optional native-VCS capability of the host,
// exposing the repository roots it currently considers active. Every
// resolution path works without it.
type HostIntegration interface {
	ActiveRepositories(ctx context.Context) ([]string, error)
}

// staticIntegration serves a fixed root list, used when running headless with
// roots taken from configuration.
type staticIntegration struct {
	roots []string
}

// NewStaticIntegration creates a HostIntegration over a fixed root list.
// An empty list yields a nil integration, matching an absent host capability.
func NewStaticIntegration(roots []string) HostIntegration {
	if len(roots) == 0 {
		return nil
	}
	return &staticIntegration{roots: roots}
}

// ActiveRepositories returns the configured roots.
func (s *staticIntegration) ActiveRepositories(ctx context.Context) ([]string, error) {
	return s.roots, nil
}
