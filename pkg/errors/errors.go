// Package errors declares the error taxonomy shared across pkgorigin and
// small helpers for wrapping errors with context.
package errors

import "fmt"

// Common error types.
var (
	// ErrFetch covers transport and availability failures while retrieving
	// repository metadata. Fetches are retried with backoff before this
	// surfaces; once it does, the build for that repository is over.
	ErrFetch = fmt.Errorf("fetch failed")

	// ErrParse means the catalog is structurally unreadable (not valid
	// compressed or XML data at all). Individual malformed records are
	// skipped and counted, never escalated to this.
	ErrParse = fmt.Errorf("catalog unreadable")

	// ErrIndexLoad means a persisted index file could not be read or failed
	// schema validation.
	ErrIndexLoad = fmt.Errorf("index load failed")

	// ErrMergeConflict means the two merge inputs identify different
	// repositories. Never coerced; the operator has to fix the inputs.
	ErrMergeConflict = fmt.Errorf("merge conflict")

	// Config errors.
	ErrEmptyConfigPath = fmt.Errorf("config file path cannot be empty")
	ErrConfigParse     = fmt.Errorf("failed to parse config")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
