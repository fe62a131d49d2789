package sync

import (
	"errors"
	"fmt"
)

// Domain-specific errors for stream operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrConnectionFailed is returned when a stream dial attempt fails.
	ErrConnectionFailed = errors.New("sync: connection failed")

	// ErrMissingDependency is returned by NewSession when a required
	// dependency is absent.
	ErrMissingDependency = errors.New("sync: missing dependency")
)

// errMissing wraps ErrMissingDependency with the dependency name.
func errMissing(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingDependency, name)
}
