package repositories

import (
	"errors"
	"fmt"
)

type errorKind int

const (
	kindUnknown errorKind = iota
	kindNotFound
	kindConflict
	kindUnavailable
)

// Error is a backend-neutral RepositoryError used by the in-process and Redis repositories.
type Error struct {
	Op   string
	Err  error
	kind errorKind
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

// Unwrap exposes the underlying error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsNotFound implements RepositoryError.
func (e *Error) IsNotFound() bool { return e != nil && e.kind == kindNotFound }

// IsConflict implements RepositoryError.
func (e *Error) IsConflict() bool { return e != nil && e.kind == kindConflict }

// IsUnavailable implements RepositoryError.
func (e *Error) IsUnavailable() bool { return e != nil && e.kind == kindUnavailable }

// NewNotFoundError reports a missing record.
func NewNotFoundError(op, message string) *Error {
	return &Error{Op: op, Err: errors.New(message), kind: kindNotFound}
}

// NewConflictError reports a rejected write such as a stock shortfall.
func NewConflictError(op, message string) *Error {
	return &Error{Op: op, Err: errors.New(message), kind: kindConflict}
}

// NewUnavailableError wraps a transient backend failure.
func NewUnavailableError(op string, err error) *Error {
	return &Error{Op: op, Err: err, kind: kindUnavailable}
}

// IsNotFound reports whether err classifies as a missing record.
func IsNotFound(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

// IsConflict reports whether err classifies as a conflicting write.
func IsConflict(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}

// IsUnavailable reports whether err classifies as a transient backend failure.
func IsUnavailable(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsUnavailable()
}
