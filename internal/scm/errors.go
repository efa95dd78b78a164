package scm

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
)

// ErrorKind classifies detection-layer failures.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindInvalidRepository
	KindPermissionDenied
	KindTimeout
	KindCommandFailed
)

// String returns the stable name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidRepository:
		return "INVALID_REPOSITORY"
	case KindPermissionDenied:
		return "PERMISSION_DENIED"
	case KindTimeout:
		return "TIMEOUT"
	case KindCommandFailed:
		return "COMMAND_FAILED"
	default:
		return "UNKNOWN"
	}
}

// DetectionError is the structured error raised by the strict detection
// primitives and by repository identification when no repository exists.
type DetectionError struct {
	Kind           ErrorKind
	Message        string
	RepositoryPath string
	Cause          error
}

// Error implements the error interface.
func (e *DetectionError) Error() string {
	if e.RepositoryPath != "" {
		return fmt.Sprintf("%s: %s (repository: %s)", e.Kind, e.Message, e.RepositoryPath)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DetectionError) Unwrap() error {
	return e.Cause
}

// NewDetectionError creates a DetectionError.
func NewDetectionError(kind ErrorKind, message, repositoryPath string, cause error) *DetectionError {
	return &DetectionError{
		Kind:           kind,
		Message:        message,
		RepositoryPath: repositoryPath,
		Cause:          cause,
	}
}

// ClassifyError converts an arbitrary failure from a subprocess or filesystem
// probe into a DetectionError. Already-classified errors pass through.
func ClassifyError(err error, repositoryPath string) *DetectionError {
	if err == nil {
		return nil
	}

	var detErr *DetectionError
	if errors.As(err, &detErr) {
		return detErr
	}

	// errors.Is unwraps %w chains; the runner always wraps the raw exec and
	// filesystem errors before they reach this point.
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return NewDetectionError(KindTimeout, "operation timed out", repositoryPath, err)
	case errors.Is(err, fs.ErrPermission):
		return NewDetectionError(KindPermissionDenied, "permission denied", repositoryPath, err)
	case errors.Is(err, fs.ErrNotExist):
		return NewDetectionError(KindInvalidRepository, "repository path does not exist", repositoryPath, err)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return NewDetectionError(KindCommandFailed, "command exited with an error", repositoryPath, err)
	}
	if errors.Is(err, exec.ErrNotFound) {
		return NewDetectionError(KindCommandFailed, "executable not found", repositoryPath, err)
	}

	return NewDetectionError(KindUnknown, "detection failed", repositoryPath, err)
}
