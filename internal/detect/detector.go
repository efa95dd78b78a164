// Package detect determines whether a repository has staged content and which
// diff scope the engine should recommend. Detection is timeout-bounded and
// cached with a short TTL. The high-level entry point never fails: any error
// degrades to a safe fallback result so downstream generation cannot hang on
// a slow or broken repository.
package detect

import (
	"context"
	"strings"
	"time"

	"github.com/littleCareless/dish-ai-commit-sub004/internal/cache"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/config"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/logging"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/repository"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/run"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/scm"
)

const (
	// stagedCacheTTL bounds how long a successful detection is reused.
	stagedCacheTTL = 5 * time.Second
	// defaultDetectionTimeout bounds the staged-file query when the caller
	// does not override it.
	defaultDetectionTimeout = 10 * time.Second
)

// StagedResult describes the staged state of a repository and the diff target
// the engine recommends for it. When ErrorMessage is set the rest of the
// result is the safe fallback: no staged content, recommended target "all".
type StagedResult struct {
	HasStagedContent  bool
	StagedFileCount   int
	StagedFiles       []string
	RecommendedTarget scm.DiffTarget
	RepositoryPath    string
	ErrorMessage      string
}

// StagedFile is one staged path with its index status letter.
type StagedFile struct {
	Path   string
	Status string // A, M, D, R, C per git name-status output
}

// StagedDetails is the result of the strict low-level query.
type StagedDetails struct {
	RepositoryPath string
	Files          []StagedFile
}

// FileDetection is the per-file outcome of a batch detection. A failed item
// carries its error; sibling items are unaffected.
type FileDetection struct {
	Path   string
	Staged bool
	Err    error
}

// Options controls a single detection call.
type Options struct {
	// UseCache allows reuse of a recent successful result.
	UseCache bool
	// Timeout bounds the staged-file query; zero means the configured default.
	Timeout time.Duration
}

// Detector resolves staged content state for repository paths.
type Detector interface {
	// DetectStagedContent never returns an error: failures yield a fallback
	// StagedResult with ErrorMessage set.
	DetectStagedContent(ctx context.Context, repositoryPath string, opts Options) StagedResult

	// StagedFiles returns the staged paths, raising a DetectionError on any
	// failure. Used internally and by callers that want strict semantics.
	StagedFiles(ctx context.Context, repositoryPath string) ([]string, error)

	// StagedDetails returns staged paths with their index status letters,
	// raising a DetectionError on any failure.
	StagedDetails(ctx context.Context, repositoryPath string) (*StagedDetails, error)

	// DetectStagedForFiles runs per-file detection for a multi-file flow.
	// It checks ctx between items and returns partial results with ctx's
	// error when cancelled; one item's failure never aborts its siblings.
	DetectStagedForFiles(ctx context.Context, repositoryPath string, files []string) ([]FileDetection, error)

	// ClearCache drops all cached detection results.
	ClearCache()
}

// detector implements Detector
type detector struct {
	runner         run.Runner
	cache          *cache.Cache[StagedResult]
	fallbackToAll  bool
	defaultTimeout time.Duration
	logger         logging.Logger
}

// Option configures the detector.
type Option func(*detector)

// WithClock overrides the detection cache's time source.
func WithClock(now func() time.Time) Option {
	return func(d *detector) {
		d.cache = cache.New[StagedResult](stagedCacheTTL, cache.WithClock[StagedResult](now))
	}
}

// NewDetector creates a staged-content detector.
func NewDetector(cfg *config.Config, runner run.Runner, logger logging.Logger, opts ...Option) Detector {
	timeout := defaultDetectionTimeout
	if cfg != nil && cfg.Timeouts.StagedDetectionMs > 0 {
		timeout = time.Duration(cfg.Timeouts.StagedDetectionMs) * time.Millisecond
	}

	fallbackToAll := true
	if cfg != nil {
		fallbackToAll = cfg.Diff.FallbackToAll
	}

	d := &detector{
		runner:         runner,
		cache:          cache.New[StagedResult](stagedCacheTTL),
		fallbackToAll:  fallbackToAll,
		defaultTimeout: timeout,
		logger:         logger.With("component", "staged_detector"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DetectStagedContent races the staged-file query against a timeout and
// converts every failure into the safe fallback result.
func (d *detector) DetectStagedContent(ctx context.Context, repositoryPath string, opts Options) StagedResult {
	key := repository.NormalizePath(repositoryPath)

	if opts.UseCache {
		if cached, ok := d.cache.Get(key); ok {
			d.logger.Debug("staged detection cache hit", "repository", repositoryPath)
			return cached
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = d.defaultTimeout
	}
	detectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	files, err := d.StagedFiles(detectCtx, repositoryPath)
	if err != nil {
		detErr := scm.ClassifyError(err, repositoryPath)
		d.logger.Warn("staged detection failed, using fallback",
			"repository", repositoryPath, "kind", detErr.Kind.String(), "error", err)
		return StagedResult{
			HasStagedContent:  false,
			StagedFileCount:   0,
			StagedFiles:       nil,
			RecommendedTarget: scm.TargetAll,
			RepositoryPath:    repositoryPath,
			ErrorMessage:      detErr.Message,
		}
	}

	result := StagedResult{
		HasStagedContent:  len(files) > 0,
		StagedFileCount:   len(files),
		StagedFiles:       files,
		RecommendedTarget: d.recommendTarget(len(files)),
		RepositoryPath:    repositoryPath,
	}

	// Only successful detections are cached; failures always re-detect.
	d.cache.Put(key, result)
	d.logger.Debug("staged detection completed",
		"repository", repositoryPath, "staged_count", result.StagedFileCount, "recommended", string(result.RecommendedTarget))
	return result
}

// recommendTarget applies the scope recommendation policy: staged content wins,
// otherwise widen to the full delta only when the user allows it.
func (d *detector) recommendTarget(stagedCount int) scm.DiffTarget {
	if stagedCount > 0 {
		return scm.TargetStaged
	}
	if d.fallbackToAll {
		return scm.TargetAll
	}
	// Strict preference: an empty staged diff is the intended outcome.
	return scm.TargetStaged
}

// StagedFiles returns the staged paths for a repository, strict variant.
func (d *detector) StagedFiles(ctx context.Context, repositoryPath string) ([]string, error) {
	out, err := d.runner.Run(ctx, repositoryPath, "git", "diff", "--cached", "--name-only")
	if err != nil {
		return nil, scm.ClassifyError(err, repositoryPath)
	}

	var files []string
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

// StagedDetails returns staged paths with index status letters, strict variant.
func (d *detector) StagedDetails(ctx context.Context, repositoryPath string) (*StagedDetails, error) {
	out, err := d.runner.Run(ctx, repositoryPath, "git", "diff", "--cached", "--name-status")
	if err != nil {
		return nil, scm.ClassifyError(err, repositoryPath)
	}

	details := &StagedDetails{RepositoryPath: repositoryPath}
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// Format: STATUS<TAB>path, or STATUS<TAB>old<TAB>new for renames
		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			continue
		}
		status := strings.TrimSpace(parts[0])
		if status == "" {
			continue
		}
		path := parts[len(parts)-1]
		details.Files = append(details.Files, StagedFile{
			Path: path,
			// Rename/copy statuses carry a similarity score (R100); keep the letter.
			Status: status[:1],
		})
	}
	return details, nil
}

// DetectStagedForFiles runs per-file detection, collecting partial results.
func (d *detector) DetectStagedForFiles(ctx context.Context, repositoryPath string, files []string) ([]FileDetection, error) {
	results := make([]FileDetection, 0, len(files))

	for _, file := range files {
		// Cooperative cancellation between items: keep what we have.
		if err := ctx.Err(); err != nil {
			d.logger.Debug("batch detection cancelled",
				"repository", repositoryPath, "completed", len(results), "total", len(files))
			return results, scm.ClassifyError(err, repositoryPath)
		}

		out, err := d.runner.Run(ctx, repositoryPath, "git", "diff", "--cached", "--name-only", "--", file)
		if err != nil {
			results = append(results, FileDetection{Path: file, Err: scm.ClassifyError(err, repositoryPath)})
			continue
		}
		results = append(results, FileDetection{
			Path:   file,
			Staged: strings.TrimSpace(string(out)) != "",
		})
	}

	return results, nil
}

// ClearCache drops all cached detection results.
func (d *detector) ClearCache() {
	d.cache.Clear()
}
