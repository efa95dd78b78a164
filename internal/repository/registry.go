// Package repository discovers version-controlled roots in the workspace and
// resolves which one an ambiguous user context refers to. Discovery results
// are held in a 30-second TTL cache; identification itself is never cached.
package repository

import (
	"context"
	"os"
	"path/filepath"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/littleCareless/dish-ai-commit-sub004/internal/cache"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/config"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/logging"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/scm"
)

const (
	// discoveryCacheTTL bounds how long a workspace scan is reused.
	discoveryCacheTTL = 30 * time.Second
	// discoveryCacheKey is the single key under which a scan is stored.
	discoveryCacheKey = "workspace"
)

// Registry discovers repositories and identifies which one a user context
// refers to.
type Registry interface {
	// AllRepositories returns every repository found in the workspace roots,
	// serving a cached scan when one is fresh.
	AllRepositories(ctx context.Context) ([]Info, error)

	// PrimaryRepository picks the best default repository: a host-reported
	// active root, then the repository containing the active file, then the
	// first discovered. Returns (nil, false) when the workspace has none.
	PrimaryRepository(ctx context.Context, activeFile string) (*Info, bool)

	// IdentifyRepository resolves the ambiguous user context to one
	// repository. It fails with an INVALID_REPOSITORY DetectionError only
	// when no repository exists anywhere in the workspace.
	IdentifyRepository(ctx context.Context, req IdentifyRequest) (*Context, error)

	// RepositoryForPath finds the repository containing path by containment
	// only; (nil, false) when none matches, never an error.
	RepositoryForPath(ctx context.Context, path string) (*Info, bool)

	// Refresh clears the discovery cache and re-scans; identification calls
	// made afterwards never observe pre-refresh entries.
	Refresh(ctx context.Context) error
}

// registry implements Registry
type registry struct {
	roots       []string
	integration HostIntegration
	cache       *cache.Cache[[]Info]
	logger      logging.Logger
}

// Option configures the registry.
type Option func(*registry)

// WithClock overrides the discovery cache's time source.
func WithClock(now func() time.Time) Option {
	return func(r *registry) {
		r.cache = cache.New[[]Info](discoveryCacheTTL, cache.WithClock[[]Info](now))
	}
}

// NewRegistry creates a repository registry over the configured workspace
// roots. integration may be nil when the host offers no native-VCS capability.
func NewRegistry(cfg *config.Config, integration HostIntegration, logger logging.Logger, opts ...Option) Registry {
	var roots []string
	if cfg != nil {
		roots = cfg.Workspace.Roots
	}

	r := &registry{
		roots:       roots,
		integration: integration,
		cache:       cache.New[[]Info](discoveryCacheTTL),
		logger:      logger.With("component", "repository_registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AllRepositories scans the workspace roots, one marker probe per root plus
// one level of non-hidden subdirectories when the root itself is not a
// repository.
func (r *registry) AllRepositories(ctx context.Context) ([]Info, error) {
	if cached, ok := r.cache.Get(discoveryCacheKey); ok {
		r.logger.Debug("discovery cache hit", "count", len(cached))
		return cached, nil
	}

	activeRoots := r.activeRootSet(ctx)

	var repos []Info
	seen := make(map[string]bool)

	for _, root := range r.roots {
		if err := ctx.Err(); err != nil {
			return repos, scm.ClassifyError(err, root)
		}
		if root == "" {
			continue
		}

		if info, ok := r.probeRoot(root, activeRoots); ok {
			if !seen[info.Path] {
				seen[info.Path] = true
				repos = append(repos, info)
				r.logger.Info("discovered repository", "path", info.Path, "type", info.Type.String(), "branch", info.Branch)
			}
			continue
		}

		// The root itself is not a repository: enumerate one level of
		// non-hidden subdirectories.
		entries, err := os.ReadDir(root)
		if err != nil {
			r.logger.Warn("failed to enumerate workspace root, skipping", "path", root, "error", err)
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() || entry.Name()[0] == '.' {
				continue
			}
			child := filepath.Join(root, entry.Name())
			if info, ok := r.probeRoot(child, activeRoots); ok {
				if !seen[info.Path] {
					seen[info.Path] = true
					repos = append(repos, info)
					r.logger.Info("discovered repository", "path", info.Path, "type", info.Type.String(), "branch", info.Branch)
				}
			}
		}
	}

	// Only successful scans are cached; an empty workspace is a valid scan.
	r.cache.Put(discoveryCacheKey, repos)
	r.logger.Debug("repository discovery completed", "count", len(repos))
	return repos, nil
}

// probeRoot tests a single directory for a repository marker and builds its
// Info when one is present.
func (r *registry) probeRoot(dir string, activeRoots map[string]bool) (Info, bool) {
	kind := DetectMarker(dir)
	if kind == scm.TypeNone {
		return Info{}, false
	}

	normalized := NormalizePath(dir)
	info := Info{
		Path:     normalized,
		Name:     filepath.Base(normalized),
		Type:     kind,
		IsActive: activeRoots[normalized],
	}

	if kind == scm.TypeGit {
		info.Branch = r.currentBranch(dir)
	}

	return info, true
}

// currentBranch reads the git branch for a root, best effort.
func (r *registry) currentBranch(dir string) string {
	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		r.logger.Debug("failed to open repository for branch read", "path", dir, "error", err)
		return ""
	}

	head, err := repo.Head()
	if err != nil {
		if err == plumbing.ErrReferenceNotFound {
			// Empty repository, no commits yet
			return ""
		}
		r.logger.Debug("failed to read HEAD", "path", dir, "error", err)
		return ""
	}

	if head.Name().IsBranch() {
		return head.Name().Short()
	}
	return "detached"
}

// activeRootSet queries the optional host integration for active roots.
func (r *registry) activeRootSet(ctx context.Context) map[string]bool {
	active := make(map[string]bool)
	if r.integration == nil {
		return active
	}

	roots, err := r.integration.ActiveRepositories(ctx)
	if err != nil {
		// The integration is a hint, not a dependency.
		r.logger.Debug("host integration query failed", "error", err)
		return active
	}
	for _, root := range roots {
		active[NormalizePath(root)] = true
	}
	return active
}

// PrimaryRepository picks the best default repository.
func (r *registry) PrimaryRepository(ctx context.Context, activeFile string) (*Info, bool) {
	repos, err := r.AllRepositories(ctx)
	if err != nil || len(repos) == 0 {
		return nil, false
	}

	for _, repo := range repos {
		if repo.IsActive {
			return &repo, true
		}
	}

	if activeFile != "" {
		for _, repo := range repos {
			if ContainsPath(repo.Path, activeFile) {
				return &repo, true
			}
		}
	}

	return &repos[0], true
}

// IdentifyRepository resolves the ambiguous user context to one repository.
func (r *registry) IdentifyRepository(ctx context.Context, req IdentifyRequest) (*Context, error) {
	repos, err := r.AllRepositories(ctx)
	if err != nil {
		return nil, err
	}

	resolved := r.resolveFromRequest(ctx, repos, req)
	if resolved == nil {
		// No safe default repository exists: this is the one identification
		// failure that raises instead of degrading.
		return nil, scm.NewDetectionError(scm.KindInvalidRepository,
			"no repository found in workspace", "", nil)
	}

	return &Context{
		Repository:       *resolved,
		SelectedFiles:    req.SelectedFiles,
		ActiveFile:       req.ActiveFile,
		WorkingDirectory: resolved.Path,
	}, nil
}

// resolveFromRequest applies the identification preference order.
func (r *registry) resolveFromRequest(ctx context.Context, repos []Info, req IdentifyRequest) *Info {
	// 1. Explicit file selection, matched by containment.
	for _, file := range req.SelectedFiles {
		for i := range repos {
			if ContainsPath(repos[i].Path, file) {
				return &repos[i]
			}
		}
	}

	// 2. Active document containment.
	if req.ActiveFile != "" {
		for i := range repos {
			if ContainsPath(repos[i].Path, req.ActiveFile) {
				return &repos[i]
			}
		}
	}

	// 3. UI selection hints: a direct root reference wins, otherwise walk
	// upward from the resource to the nearest marker.
	for _, hint := range req.Hints {
		if hint.RootPath != "" {
			for i := range repos {
				if NormalizePath(hint.RootPath) == repos[i].Path {
					return &repos[i]
				}
			}
		}
		if hint.ResourcePath != "" {
			if root, ok := FindRepositoryRoot(hint.ResourcePath); ok {
				for i := range repos {
					if repos[i].Path == root {
						return &repos[i]
					}
				}
			}
		}
	}

	// 4. Primary, then first discovered.
	if primary, ok := r.PrimaryRepository(ctx, req.ActiveFile); ok {
		return primary
	}
	if len(repos) > 0 {
		return &repos[0]
	}
	return nil
}

// RepositoryForPath finds the repository containing path, containment only.
func (r *registry) RepositoryForPath(ctx context.Context, path string) (*Info, bool) {
	repos, err := r.AllRepositories(ctx)
	if err != nil {
		return nil, false
	}

	for i := range repos {
		if ContainsPath(repos[i].Path, path) {
			return &repos[i], true
		}
	}
	return nil, false
}

// Refresh clears the discovery cache and re-scans the workspace.
func (r *registry) Refresh(ctx context.Context) error {
	r.cache.Clear()
	r.logger.Debug("discovery cache cleared")
	_, err := r.AllRepositories(ctx)
	return err
}

// DetectMarker reports the VCS kind of a directory by its repository marker:
// a .git directory or worktree file for git, a .svn directory for svn.
func DetectMarker(dir string) scm.Type {
	// A .git file marks a worktree; both directory and file count as git.
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		return scm.TypeGit
	}

	svnMarker := filepath.Join(dir, ".svn")
	if info, err := os.Stat(svnMarker); err == nil && info.IsDir() {
		return scm.TypeSVN
	}

	return scm.TypeNone
}

// FindRepositoryRoot walks upward from path to the nearest directory holding
// a repository marker. Returns the normalized root and true when found.
func FindRepositoryRoot(path string) (string, bool) {
	current := path
	if abs, err := filepath.Abs(current); err == nil {
		current = abs
	}

	// A file path starts the walk at its directory.
	if info, err := os.Stat(current); err != nil || !info.IsDir() {
		current = filepath.Dir(current)
	}

	for {
		if DetectMarker(current) != scm.TypeNone {
			return NormalizePath(current), true
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", false
		}
		current = parent
	}
}
