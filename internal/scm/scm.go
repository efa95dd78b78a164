// Package scm defines the version-control provider contract shared by the
// repository registry, the staged-content detector, and the diff selector.
// Concrete backends live in internal/scm/git and internal/scm/svn; resolution
// and caching of provider handles lives in internal/scm/resolver.
package scm

import (
	"context"
	"errors"
)

// Type identifies a version control backend.
type Type string

const (
	// TypeGit is the primary, decentralized VCS backend.
	TypeGit Type = "git"

	// TypeSVN is the legacy, centralized VCS backend.
	TypeSVN Type = "svn"

	// TypeUnknown marks a root whose backend could not be determined.
	TypeUnknown Type = "unknown"

	// TypeNone indicates that no version control was detected.
	TypeNone Type = "none"
)

// String returns the string representation of the backend type.
func (t Type) String() string {
	return string(t)
}

// DiffTarget selects which subset of uncommitted work a diff covers.
type DiffTarget string

const (
	// TargetStaged covers only changes marked for the next commit.
	TargetStaged DiffTarget = "staged"

	// TargetAll covers the full working-tree delta.
	TargetAll DiffTarget = "all"

	// TargetAuto asks the engine to pick between staged and all. It is an
	// input-only value: every resolution path converts it to TargetStaged or
	// TargetAll before a diff is fetched.
	TargetAuto DiffTarget = "auto"
)

// ParseDiffTarget converts a configuration string to a DiffTarget.
func ParseDiffTarget(s string) (DiffTarget, error) {
	switch DiffTarget(s) {
	case TargetStaged, TargetAll, TargetAuto:
		return DiffTarget(s), nil
	case "":
		return TargetAuto, nil
	default:
		return TargetAuto, errors.New("invalid diff target: " + s)
	}
}

// Capabilities describes what a provider backend can do. Callers branch on
// these flags instead of probing for optional methods at call time.
type Capabilities struct {
	// StagedArea is true when the backend distinguishes staged changes from
	// the working tree. SVN has no staging area, so staged-scoped requests
	// degrade to the full delta.
	StagedArea bool

	// NativeLog is true when the backend can enumerate recent commit
	// messages without help from the local history store.
	NativeLog bool
}

// RecentMessages groups recent commit subjects by scope.
type RecentMessages struct {
	Repository []string // most recent messages on the current branch
	User       []string // most recent messages authored by the current user
}

// DiffResult is the materialized diff for a resolved repository and target.
type DiffResult struct {
	Content        string
	Target         DiffTarget
	Files          []string
	RepositoryPath string
}

// ErrNoDiff indicates the selected target produced no diff content.
var ErrNoDiff = errors.New("no changes found for the selected diff target")

// Provider is the contract every VCS backend satisfies. A provider handle is
// bound to a single repository root, cached per normalized root by the
// resolver, and revalidated with IsAvailable before reuse.
type Provider interface {
	// Type returns the backend kind.
	Type() Type

	// Root returns the repository root the provider is bound to.
	Root() string

	// Capabilities reports the backend's capability flags.
	Capabilities() Capabilities

	// IsAvailable reports whether the backend can serve requests for its
	// root. Implementations must respect ctx cancellation and deadlines.
	IsAvailable(ctx context.Context) bool

	// Init performs any one-time backend setup.
	Init(ctx context.Context) error

	// DiffTarget returns the provider's ambient diff scope.
	DiffTarget() DiffTarget

	// SetDiffTarget steers the provider's ambient diff scope. Callers that
	// steer it temporarily must restore the prior value on every exit path.
	SetDiffTarget(target DiffTarget)

	// GetDiff returns diff text for the ambient target, optionally narrowed
	// to the given files. An empty string means no changes.
	GetDiff(ctx context.Context, files []string) (string, error)

	// Commit records a commit with the given message, optionally narrowed to
	// the given files.
	Commit(ctx context.Context, message string, files []string) error

	// RecentCommitMessages returns recent commit subjects for prompt context.
	RecentCommitMessages(ctx context.Context) (*RecentMessages, error)
}
