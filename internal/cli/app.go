package cli

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/littleCareless/dish-ai-commit-sub004/internal/config"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/detect"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/diff"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/history"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/logging"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/repository"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/run"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/scm/resolver"
)

// engine bundles the resolution pipeline components behind one constructor so
// every command wires them the same way.
type engine struct {
	cfg      *config.Config
	logger   logging.Logger
	runner   run.Runner
	registry repository.Registry
	detector detect.Detector
	selector diff.Selector
	resolver *resolver.Resolver
}

// newEngine loads configuration and builds the pipeline.
func newEngine() (*engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	// One id per invocation so log lines from a single resolution correlate.
	logger = logger.With("run_id", uuid.NewString())

	runner := run.NewRunner(logger)
	integration := repository.NewStaticIntegration(cfg.Workspace.ActiveRepositories)

	return &engine{
		cfg:      cfg,
		logger:   logger,
		runner:   runner,
		registry: repository.NewRegistry(cfg, integration, logger),
		detector: detect.NewDetector(cfg, runner, logger),
		selector: diff.NewSelector(cfg, logger),
		resolver: resolver.New(cfg, runner, logger),
	}, nil
}

// openHistory opens the commit-message history store.
func (e *engine) openHistory() (*history.Store, error) {
	return history.Open(e.cfg, e.logger)
}
