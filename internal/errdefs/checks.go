package errdefs

import "errors"

// IsUsage reports whether err wraps a UsageError.
func IsUsage(err error) bool {
	var target *UsageError
	return errors.As(err, &target)
}

// IsNotImplemented reports whether err wraps a MissingImplementationError.
func IsNotImplemented(err error) bool {
	var target *MissingImplementationError
	return errors.As(err, &target)
}

// IsResolution reports whether err wraps a ResolutionError.
func IsResolution(err error) bool {
	var target *ResolutionError
	return errors.As(err, &target)
}
