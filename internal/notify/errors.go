package notify

import (
	"errors"
	"fmt"
)

// Domain-specific errors for notification operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrRequestFailed is returned when a notification REST call fails
	// (network error or non-2xx response).
	ErrRequestFailed = errors.New("notify: request failed")

	// ErrMissingDependency is returned by NewStore when a required
	// dependency is absent.
	ErrMissingDependency = errors.New("notify: missing dependency")
)

// errMissing wraps ErrMissingDependency with the dependency name.
func errMissing(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingDependency, name)
}
