package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/gophersatwork/ctxcache"
	"github.com/gophersatwork/ctxcache/internal/discover"
)

// Exit codes. These values are part of the CLI contract and never change.
const (
	ExitSuccess       = 0
	ExitUsage         = 1
	ExitInvalidQuery  = 2
	ExitInvalidBudget = 3
	ExitCacheMissing  = 4
	ExitCacheInvalid  = 5
	ExitIO            = 6
	ExitInternal      = 7
)

// ExitError pairs an error with the process exit code it maps to.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode returns the exit code for err. Errors that did not pass through
// one of the mappers below come from flag parsing or config loading and
// count as usage errors.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitUsage
}

func exitf(code int, format string, args ...any) *ExitError {
	return &ExitError{Code: code, Err: fmt.Errorf(format, args...)}
}

func cacheMissing(root string) *ExitError {
	return exitf(ExitCacheMissing, "cache does not exist: %s", root)
}

func cacheInvalid(err error) *ExitError {
	return exitf(ExitCacheInvalid, "cache is invalid: %w", err)
}

func ioFailure(err error) *ExitError {
	return exitf(ExitIO, "i/o error: %w", err)
}

func internalFailure(err error) *ExitError {
	return exitf(ExitInternal, "internal error: %w", err)
}

// fromBuildError maps a Builder.Build failure.
func fromBuildError(err error) error {
	switch {
	case errors.Is(err, ctxcache.ErrDuplicateID):
		return cacheInvalid(err)
	case errors.Is(err, ctxcache.ErrOutputExists), errors.Is(err, ctxcache.ErrIO):
		return ioFailure(err)
	default:
		// Serialization, filename collisions and bad version tags
		return internalFailure(err)
	}
}

// fromDiscoverError maps a failure while walking or ingesting sources.
func fromDiscoverError(err error) error {
	switch {
	case errors.Is(err, ctxcache.ErrIngest), errors.Is(err, ctxcache.ErrInvalidPath):
		return internalFailure(err)
	case discover.IsNotExist(err):
		return exitf(ExitIO, "i/o error: sources directory does not exist: %w", err)
	default:
		return ioFailure(err)
	}
}

// fromOpenError maps a ctxcache.Open failure for the cache at root.
func fromOpenError(err error, root string) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return cacheMissing(root)
	case errors.Is(err, ctxcache.ErrManifestParse):
		return exitf(ExitCacheInvalid, "cache is invalid: invalid manifest: %w", err)
	default:
		return ioFailure(err)
	}
}

// fromSelectError maps a Selector.Select failure.
func fromSelectError(err error) error {
	switch {
	case errors.Is(err, ctxcache.ErrInvalidBudget):
		return &ExitError{Code: ExitInvalidBudget, Err: err}
	case errors.Is(err, ctxcache.ErrCacheIntegrity):
		return cacheInvalid(err)
	default:
		return internalFailure(err)
	}
}
