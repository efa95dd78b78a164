// Package watch observes repository state on disk so long-running callers can
// invalidate caches the moment staged content or workspace membership changes
// instead of waiting for a TTL to lapse.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/littleCareless/dish-ai-commit-sub004/internal/logging"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/repository"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/scm"
)

// EventKind distinguishes what changed.
type EventKind string

const (
	// KindStaged means a repository's index changed: staged-content caches
	// for that repository are stale.
	KindStaged EventKind = "staged"

	// KindDiscovery means workspace membership may have changed: a directory
	// appeared or disappeared under a workspace root.
	KindDiscovery EventKind = "discovery"
)

// Event is one observed repository-state change.
type Event struct {
	RepositoryPath string
	Kind           EventKind
	Timestamp      time.Time
}

// Watcher streams repository-state events.
type Watcher interface {
	Start() error
	Stop() error
	Events() (<-chan Event, error)
}

// watcher implements Watcher over fsnotify.
type watcher struct {
	roots  []string
	repos  []repository.Info
	logger logging.Logger

	fsWatcher *fsnotify.Watcher
	events    chan Event
	done      chan struct{}

	mu      sync.Mutex
	started bool
}

// New creates a watcher over the given workspace roots and the repositories
// already discovered in them.
func New(roots []string, repos []repository.Info, logger logging.Logger) Watcher {
	return &watcher{
		roots:  roots,
		repos:  repos,
		logger: logger.With("component", "repository_watcher"),
	}
}

// Start registers the watch points and begins streaming events. A stopped
// watcher can be started again; each start serves a fresh event channel.
func (w *watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return fmt.Errorf("watcher is already started")
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	w.fsWatcher = fsWatcher
	// Buffered so event bursts from bulk staging do not block fsnotify.
	w.events = make(chan Event, 100)
	w.done = make(chan struct{})

	added := 0
	for _, path := range w.watchPaths() {
		if err := fsWatcher.Add(path); err != nil {
			w.logger.Debug("failed to add watch point, skipping", "path", path, "error", err)
			continue
		}
		added++
	}
	if added == 0 {
		fsWatcher.Close()
		return fmt.Errorf("no watchable paths in workspace")
	}

	go w.processEvents(fsWatcher, w.events, w.done)

	w.started = true
	w.logger.Info("repository watcher started", "watch_points", added)
	return nil
}

// watchPaths collects the marker directories to observe: each git repository's
// .git directory (where the index lives), each svn working copy's .svn
// directory, and every workspace root for membership changes.
func (w *watcher) watchPaths() []string {
	var paths []string
	seen := make(map[string]bool)
	add := func(path string) {
		if path == "" || seen[path] {
			return
		}
		if _, err := os.Stat(path); err != nil {
			return
		}
		seen[path] = true
		paths = append(paths, path)
	}

	for _, repo := range w.repos {
		switch repo.Type {
		case scm.TypeGit:
			add(filepath.Join(repo.Path, ".git"))
		case scm.TypeSVN:
			add(filepath.Join(repo.Path, ".svn"))
		}
	}
	for _, root := range w.roots {
		add(root)
	}
	return paths
}

// processEvents translates raw fsnotify events into repository-state events.
// The channels are bound per start so a restart never touches a prior run's
// stream.
func (w *watcher) processEvents(fsWatcher *fsnotify.Watcher, events chan Event, done chan struct{}) {
	defer close(events)

	for {
		select {
		case <-done:
			return
		case raw, ok := <-fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(raw, events)
		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// handleEvent classifies one raw event and forwards it.
func (w *watcher) handleEvent(raw fsnotify.Event, events chan Event) {
	if raw.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	event, ok := w.classify(raw.Name)
	if !ok {
		return
	}

	select {
	case events <- event:
	default:
		// Burst overflow: the consumer will re-detect on its next event, a
		// dropped invalidation signal is not a correctness problem.
		w.logger.Debug("event channel full, dropping event", "path", raw.Name)
	}
}

// classify maps an event path to the repository it affects. Index changes
// inside a marker directory are staged events; anything directly under a
// workspace root is a discovery event.
func (w *watcher) classify(path string) (Event, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Event{}, false
	}

	for _, repo := range w.repos {
		marker := ".git"
		if repo.Type == scm.TypeSVN {
			marker = ".svn"
		}
		if repository.ContainsPath(filepath.Join(repo.Path, marker), abs) {
			return Event{
				RepositoryPath: repo.Path,
				Kind:           KindStaged,
				Timestamp:      time.Now(),
			}, true
		}
	}

	for _, root := range w.roots {
		if repository.ContainsPath(root, abs) {
			return Event{
				RepositoryPath: repository.NormalizePath(root),
				Kind:           KindDiscovery,
				Timestamp:      time.Now(),
			}, true
		}
	}

	return Event{}, false
}

// Stop shuts the watcher down and releases the fsnotify handle.
func (w *watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return nil
	}

	close(w.done)
	if w.fsWatcher != nil {
		if err := w.fsWatcher.Close(); err != nil {
			return fmt.Errorf("failed to close file watcher: %w", err)
		}
	}

	w.started = false
	return nil
}

// Events returns the event stream. The channel closes when the watcher stops.
func (w *watcher) Events() (<-chan Event, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return nil, fmt.Errorf("watcher is not started")
	}
	return w.events, nil
}
