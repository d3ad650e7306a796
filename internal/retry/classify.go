// Package retry provides transient/permanent error classification and a
// retry executor with exponential backoff for externally-facing calls.
package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"syscall"
)

// Class tags an error as retryable or not.
type Class string

const (
	// ClassTransient marks failures worth retrying (network, timeout, I/O).
	ClassTransient Class = "transient"
	// ClassPermanent marks failures that will not succeed on retry.
	ClassPermanent Class = "permanent"
)

// Diagnostic categories attached to classified errors for observability.
const (
	CategoryNetwork    = "network"
	CategoryTimeout    = "timeout"
	CategoryIO         = "io"
	CategoryValidation = "validation"
	CategoryFormat     = "format"
	CategoryUnknown    = "unknown"
)

// taggedError carries an explicit classification assigned at the call site.
type taggedError struct {
	err      error
	class    Class
	category string
}

func (e *taggedError) Error() string { return e.err.Error() }
func (e *taggedError) Unwrap() error { return e.err }

// Transient wraps err so Classify reports it as transient.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &taggedError{err: err, class: ClassTransient, category: CategoryNetwork}
}

// Permanent wraps err so Classify reports it as permanent with the
// validation category.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &taggedError{err: err, class: ClassPermanent, category: CategoryValidation}
}

// Classify maps an error to a retry class and a diagnostic category.
// Network, timeout, and I/O failures are transient; validation and format
// failures are permanent; anything unrecognized is permanent so unknown
// errors are never retried indefinitely.
func Classify(err error) (Class, string) {
	if err == nil {
		return ClassPermanent, CategoryUnknown
	}

	var tagged *taggedError
	if errors.As(err, &tagged) {
		return tagged.class, tagged.category
	}

	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return ClassTransient, CategoryTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ClassTransient, CategoryTimeout
		}
		return ClassTransient, CategoryNetwork
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return ClassTransient, CategoryNetwork
	}

	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.ErrClosedPipe) {
		return ClassTransient, CategoryIO
	}

	return ClassPermanent, CategoryUnknown
}
