// Package run provides a context-bounded subprocess runner. The Runner
// interface is injected into every component that shells out to a VCS binary
// so tests can substitute a fake instead of spawning processes.
package run

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/littleCareless/dish-ai-commit-sub004/internal/logging"
)

// Runner executes an external command in a working directory and returns its
// stdout. Implementations must honor ctx cancellation and deadlines; a command
// that outlives its deadline is killed and reported as a timeout.
type Runner interface {
	Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error)
}

// execRunner implements Runner with os/exec
type execRunner struct {
	logger logging.Logger
}

// NewRunner creates the exec-backed command runner.
func NewRunner(logger logging.Logger) Runner {
	return &execRunner{
		logger: logger.With("component", "command_runner"),
	}
}

// Run executes the command and returns captured stdout. Stderr is logged at
// debug level and summarized in the returned error, never passed through to
// user-facing messages.
func (r *execRunner) Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("running command", "command", name, "args", strings.Join(args, " "), "dir", dir)

	err := cmd.Run()
	if err != nil {
		// A deadline or cancellation on the context takes precedence over the
		// process error it caused.
		if ctxErr := ctx.Err(); ctxErr != nil {
			r.logger.Warn("command aborted by context", "command", name, "dir", dir, "error", ctxErr)
			return nil, fmt.Errorf("%s timed out: %w", name, ctxErr)
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			r.logger.Debug("command exited with error", "command", name, "dir", dir, "exit_code", exitErr.ExitCode(), "stderr", stderr.String())
			return nil, fmt.Errorf("%s exited with code %d: %w", name, exitErr.ExitCode(), err)
		}

		if errors.Is(err, exec.ErrNotFound) {
			r.logger.Debug("command not found", "command", name)
			return nil, fmt.Errorf("%s not found in PATH: %w", name, err)
		}

		r.logger.Debug("command failed to start", "command", name, "dir", dir, "error", err)
		return nil, fmt.Errorf("%s failed: %w", name, err)
	}

	return stdout.Bytes(), nil
}
