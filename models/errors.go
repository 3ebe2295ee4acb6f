// Package models holds the types shared across the index core: error kinds,
// search results and the consolidation report.
package models

import (
	"errors"
	"fmt"
)

// ErrorKind enumerates the error kinds the core surfaces to the driver. The
// driver logs and exits on any of these; none is retried automatically at
// the core level.
type ErrorKind string

const (
	ErrDuplicateTag      ErrorKind = "DuplicateTag"
	ErrUnknownTag        ErrorKind = "UnknownTag"
	ErrCapacity          ErrorKind = "Capacity"
	ErrDimensionMismatch ErrorKind = "DimensionMismatch"
	ErrIOFailure         ErrorKind = "IOFailure"
	ErrFileSizeMismatch  ErrorKind = "FileSizeMismatch"
	ErrInvalidConfig     ErrorKind = "InvalidConfig"
)

// IndexError tags an error with one of the kinds above so that callers can
// distinguish, for example, a DuplicateTag from a Capacity failure with
// errors.Is, while the wrapped error keeps the underlying detail.
type IndexError struct {
	Kind ErrorKind
	Err  error
}

func (e *IndexError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *IndexError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, &models.IndexError{Kind: models.ErrDuplicateTag})
// style comparisons work, but more conveniently callers use
// models.Is(err, models.ErrDuplicateTag).
func (e *IndexError) Is(target error) bool {
	other, ok := target.(*IndexError)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// NewError builds an IndexError from a formatted message.
func NewError(kind ErrorKind, format string, args ...any) *IndexError {
	return &IndexError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// WrapError tags an existing error with a kind, preserving %w-style
// unwrapping of the original cause.
func WrapError(kind ErrorKind, err error) *IndexError {
	if err == nil {
		return nil
	}
	return &IndexError{Kind: kind, Err: err}
}

// Is reports whether err is an IndexError of the given kind anywhere in its
// chain.
func Is(err error, kind ErrorKind) bool {
	var ie *IndexError
	if !errors.As(err, &ie) {
		return false
	}
	return ie.Kind == kind
}

// KindOf extracts the ErrorKind from err, defaulting to the empty kind if err
// is not (or does not wrap) an IndexError.
func KindOf(err error) ErrorKind {
	var ie *IndexError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return ""
}
