package governor

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
)

// Class labels an upstream error for retry handling.
type Class int

const (
	// ClassTransient marks connectivity failures worth retrying in place.
	ClassTransient Class = iota

	// ClassPermanent marks application failures that retrying cannot fix.
	ClassPermanent
)

// String returns the lowercase class name.
func (c Class) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// classifiedError pins an explicit class onto an upstream error,
// overriding automatic classification.
type classifiedError struct {
	err   error
	class Class
}

func (e *classifiedError) Error() string {
	return e.err.Error()
}

func (e *classifiedError) Unwrap() error {
	return e.err
}

// Transient marks err as retryable in place. Call implementations use it
// to flag failures the automatic rules cannot see, such as a 429 or 503
// status from an otherwise healthy connection.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{err: err, class: ClassTransient}
}

// Permanent marks err as not retryable, such as an authentication
// failure or a malformed request.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{err: err, class: ClassPermanent}
}

// Classify reports the retry class of an upstream error. An explicit
// Transient or Permanent wrap takes precedence. Otherwise deadline
// expiry, network timeouts, connection-level syscall failures, and
// truncated reads are transient; everything else is permanent.
func Classify(err error) Class {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.class
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTransient
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return ClassTransient
	}

	return ClassPermanent
}
