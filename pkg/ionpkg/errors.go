// SPDX-License-Identifier: MPL-2.0

package ionpkg

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRoot is returned when a package root does not exist.
	ErrInvalidRoot = errors.New("invalid package root")
	// ErrInvalidName is returned when the vendor or project name is empty.
	ErrInvalidName = errors.New("invalid package name")
)

// PackageError describes a failed package construction. It unwraps to both
// the sentinel in Kind and the underlying cause.
type PackageError struct {
	Name string
	Root string
	Kind error
	Err  error
}

// Error implements the error interface.
func (e *PackageError) Error() string {
	msg := fmt.Sprintf("package %q", e.Name)
	if e.Root != "" {
		msg += fmt.Sprintf(" (root %q)", e.Root)
	}
	if e.Kind != nil {
		msg += ": " + e.Kind.Error()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the sentinel kind and the cause so callers can use errors.Is
// and errors.As for programmatic detection.
func (e *PackageError) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
