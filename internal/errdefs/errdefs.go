// Package errdefs defines the error taxonomy shared by the workflow
// composition layer.
//
// Three failure classes exist:
//
//   - UsageError: malformed declarative input, surfaced synchronously at
//     declaration or compile time.
//   - MissingImplementationError: a feature that is intentionally stubbed.
//     Signals a known gap, not a bug.
//   - ResolutionError: a reference or attribute path that does not resolve
//     to a valid producer at translation time.
//
// All three are raised to the declaring caller. The core performs no
// retries and no partial recovery; execution-time failures belong to the
// engine and are reported as plain errors.
package errdefs

import "fmt"

// UsageError reports a misuse of the declarative API.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string { return e.Message }

// Usagef constructs a UsageError from a format string.
func Usagef(format string, args ...any) error {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}

// MissingImplementationError reports a requested feature that is not (yet)
// implemented.
type MissingImplementationError struct {
	Message string
}

func (e *MissingImplementationError) Error() string { return e.Message }

// NotImplementedf constructs a MissingImplementationError from a format string.
func NotImplementedf(format string, args ...any) error {
	return &MissingImplementationError{Message: fmt.Sprintf(format, args...)}
}

// ResolutionError reports a reference chain that failed to resolve against
// its referent.
type ResolutionError struct {
	Message string
}

func (e *ResolutionError) Error() string { return e.Message }

// Resolutionf constructs a ResolutionError from a format string.
func Resolutionf(format string, args ...any) error {
	return &ResolutionError{Message: fmt.Sprintf(format, args...)}
}
