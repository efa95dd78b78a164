// Package resolver decides which VCS backend applies to a workspace root and
// hands out cached, probed provider handles. Detection for a given root runs
// at most once at a time: concurrent callers share the pending result through
// an in-flight registry instead of spawning duplicate subprocess probes.
package resolver

import (
	"context"
	"sync"
	"time"

	"github.com/littleCareless/dish-ai-commit-sub004/internal/config"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/logging"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/repository"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/run"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/scm"
	gitscm "github.com/littleCareless/dish-ai-commit-sub004/internal/scm/git"
	svnscm "github.com/littleCareless/dish-ai-commit-sub004/internal/scm/svn"
)

const defaultProbeTimeout = 5 * time.Second

// NativeIntegration is an optional host-supplied factory for the secondary
// VCS: a native plugin is preferred over the raw executable when present.
type NativeIntegration interface {
	ProviderFor(ctx context.Context, root string) (scm.Provider, error)
}

// Request carries the candidate paths for one resolution.
type Request struct {
	RepositoryPath string // explicit root, wins outright
	SelectedFiles  []string
	ActiveFile     string
	Hints          []repository.SelectionHint
}

// Resolver resolves and caches provider handles per normalized root.
type Resolver struct {
	runner       run.Runner
	logger       logging.Logger
	roots        []string
	native       NativeIntegration
	probeTimeout time.Duration

	mu        sync.Mutex
	providers map[string]scm.Provider
	inflight  map[string]*inflightCall
	current   scm.Type
}

// inflightCall is one pending detection shared by concurrent callers.
type inflightCall struct {
	done     chan struct{}
	provider scm.Provider
	err      error
}

// Option configures the resolver.
type Option func(*Resolver)

// WithNativeIntegration supplies the optional secondary-VCS plugin factory.
func WithNativeIntegration(native NativeIntegration) Option {
	return func(r *Resolver) {
		r.native = native
	}
}

// New creates a provider resolver.
func New(cfg *config.Config, runner run.Runner, logger logging.Logger, opts ...Option) *Resolver {
	probeTimeout := defaultProbeTimeout
	var roots []string
	if cfg != nil {
		roots = cfg.Workspace.Roots
		if cfg.Timeouts.AvailabilityProbeMs > 0 {
			probeTimeout = time.Duration(cfg.Timeouts.AvailabilityProbeMs) * time.Millisecond
		}
	}

	r := &Resolver{
		runner:       runner,
		logger:       logger.With("component", "scm_resolver"),
		roots:        roots,
		probeTimeout: probeTimeout,
		providers:    make(map[string]scm.Provider),
		inflight:     make(map[string]*inflightCall),
		current:      scm.TypeNone,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DetectSCM resolves a workspace root from the request, determines its VCS
// kind, and returns a probed provider handle. A workspace without version
// control yields (nil, nil) so the caller can present a neutral state.
func (r *Resolver) DetectSCM(ctx context.Context, req Request) (scm.Provider, error) {
	root, ok := r.resolveRoot(req)
	if !ok {
		r.logger.Debug("no candidate root in request")
		r.setCurrent(scm.TypeNone)
		return nil, nil
	}

	key := repository.NormalizePath(root)
	provider, err := r.detectOnce(ctx, key, root)
	if err != nil {
		r.setCurrent(scm.TypeNone)
		return nil, err
	}
	if provider == nil {
		r.setCurrent(scm.TypeNone)
		return nil, nil
	}

	r.setCurrent(provider.Type())
	return provider, nil
}

// CurrentSCMType returns the type of the most recently resolved provider.
func (r *Resolver) CurrentSCMType() scm.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// resolveRoot applies the root preference order: explicit path, selected
// files, active file, hints, first workspace root.
func (r *Resolver) resolveRoot(req Request) (string, bool) {
	if req.RepositoryPath != "" {
		return req.RepositoryPath, true
	}

	for _, file := range req.SelectedFiles {
		if root, ok := repository.FindRepositoryRoot(file); ok {
			return root, true
		}
	}

	if req.ActiveFile != "" {
		if root, ok := repository.FindRepositoryRoot(req.ActiveFile); ok {
			return root, true
		}
	}

	for _, hint := range req.Hints {
		if hint.RootPath != "" {
			return hint.RootPath, true
		}
		if hint.ResourcePath != "" {
			if root, ok := repository.FindRepositoryRoot(hint.ResourcePath); ok {
				return root, true
			}
		}
	}

	if len(r.roots) > 0 {
		return r.roots[0], true
	}
	return "", false
}

// detectOnce ensures at most one detection runs per root; late arrivals wait
// for the pending result.
func (r *Resolver) detectOnce(ctx context.Context, key, root string) (scm.Provider, error) {
	r.mu.Lock()
	if call, ok := r.inflight[key]; ok {
		r.mu.Unlock()
		select {
		case <-call.done:
			return call.provider, call.err
		case <-ctx.Done():
			return nil, scm.ClassifyError(ctx.Err(), root)
		}
	}

	call := &inflightCall{done: make(chan struct{})}
	r.inflight[key] = call
	r.mu.Unlock()

	call.provider, call.err = r.detect(ctx, key, root)
	close(call.done)

	r.mu.Lock()
	delete(r.inflight, key)
	r.mu.Unlock()

	return call.provider, call.err
}

// detect reuses a validated cached provider or builds a fresh one.
func (r *Resolver) detect(ctx context.Context, key, root string) (scm.Provider, error) {
	r.mu.Lock()
	cached, ok := r.providers[key]
	r.mu.Unlock()

	if ok {
		if cached.IsAvailable(ctx) {
			r.logger.Debug("reusing cached provider", "root", root, "type", cached.Type().String())
			return cached, nil
		}
		// Availability regressed: evict and re-detect.
		r.logger.Info("cached provider failed revalidation, evicting", "root", root, "type", cached.Type().String())
		r.mu.Lock()
		delete(r.providers, key)
		r.mu.Unlock()
	}

	markerRoot := root
	kind := repository.DetectMarker(root)
	if kind == scm.TypeNone {
		// The candidate may point inside a repository: walk upward.
		if found, ok := repository.FindRepositoryRoot(root); ok {
			markerRoot = found
			kind = repository.DetectMarker(found)
		}
	}

	var provider scm.Provider
	switch kind {
	case scm.TypeGit:
		provider = gitscm.New(markerRoot, r.runner, r.logger, r.probeTimeout)
	case scm.TypeSVN:
		provider = r.buildSVNProvider(ctx, markerRoot)
	default:
		r.logger.Debug("no repository marker found", "root", root)
		return nil, nil
	}

	if provider == nil {
		return nil, nil
	}

	if err := provider.Init(ctx); err != nil {
		r.logger.Warn("provider init failed", "root", markerRoot, "type", provider.Type().String(), "error", err)
		return nil, nil
	}
	if !provider.IsAvailable(ctx) {
		r.logger.Warn("provider failed availability probe", "root", markerRoot, "type", provider.Type().String())
		return nil, nil
	}

	r.mu.Lock()
	r.providers[key] = provider
	r.mu.Unlock()

	r.logger.Info("resolved provider", "root", markerRoot, "type", provider.Type().String())
	return provider, nil
}

// buildSVNProvider tries the native plugin integration before falling back to
// the raw executable.
func (r *Resolver) buildSVNProvider(ctx context.Context, root string) scm.Provider {
	if r.native != nil {
		provider, err := r.native.ProviderFor(ctx, root)
		if err == nil && provider != nil && provider.IsAvailable(ctx) {
			r.logger.Debug("using native svn integration", "root", root)
			return provider
		}
		if err != nil {
			r.logger.Debug("native svn integration unavailable", "root", root, "error", err)
		}
	}

	return svnscm.New(root, r.runner, r.logger, r.probeTimeout)
}

// setCurrent records the most recently resolved type for UI display.
func (r *Resolver) setCurrent(t scm.Type) {
	r.mu.Lock()
	r.current = t
	r.mu.Unlock()
}
