package tephra

import (
	"errors"
	"fmt"

	"github.com/gogpu/tephra/hal"
)

// Error kinds re-exported from the HAL so callers match with errors.Is
// without importing hal.
var (
	ErrInitializationFailed  = hal.ErrInitializationFailed
	ErrOutOfHostMemory       = hal.ErrOutOfHostMemory
	ErrOutOfDeviceMemory     = hal.ErrOutOfDeviceMemory
	ErrFragmentation         = hal.ErrFragmentation
	ErrDeviceLost            = hal.ErrDeviceLost
	ErrSurfaceLost           = hal.ErrSurfaceLost
	ErrOutOfDate             = hal.ErrOutOfDate
	ErrLayerNotPresent       = hal.ErrLayerNotPresent
	ErrExtensionNotPresent   = hal.ErrExtensionNotPresent
	ErrFeatureNotPresent     = hal.ErrFeatureNotPresent
	ErrFormatNotSupported    = hal.ErrFormatNotSupported
	ErrMemoryMapFailed       = hal.ErrMemoryMapFailed
	ErrTooManyObjects        = hal.ErrTooManyObjects
	ErrInvalidExternalHandle = hal.ErrInvalidExternalHandle
	ErrUnsupportedOperation  = hal.ErrUnsupportedOperation
)

// Package-level sentinel errors.
var (
	// ErrAssertionFailed reports a broken internal invariant.
	ErrAssertionFailed = errors.New("tephra: assertion failed")

	// ErrReleased is returned when operating on a released object.
	ErrReleased = errors.New("tephra: object already released")

	// ErrOrphaned is returned when a job outlived its resource pool.
	ErrOrphaned = errors.New("tephra: job resource pool was destroyed")
)

// Error wraps a failure with its contextual breadcrumbs: the object it
// happened on and the method that was executing.
type Error struct {
	// Op is the method that failed, e.g. "Job.Enqueue".
	Op string

	// Object names the object involved. May be empty.
	Object string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Object != "" {
		return fmt.Sprintf("tephra: %s (%s): %v", e.Op, e.Object, e.Err)
	}
	return fmt.Sprintf("tephra: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause for errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// opError wraps err with breadcrumbs, passing nil through.
func opError(op, object string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Object: object, Err: err}
}
