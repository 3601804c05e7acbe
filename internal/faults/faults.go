package faults

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Kind sentinels. Workflows signal the kind of a failure; HTTP status
// mapping is the caller's job.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrStore      = errors.New("store failure")
)

// ValidationError reports malformed or out-of-range input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Unwrap() error { return ErrValidation }

func Invalidf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an unknown id or an empty required result set.
type NotFoundError struct {
	Resource string
	Msg      string
}

func (e *NotFoundError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Resource + " not found"
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func Missingf(resource, format string, args ...any) *NotFoundError {
	return &NotFoundError{Resource: resource, Msg: fmt.Sprintf(format, args...)}
}

// ConflictError reports a state collision (double booking, double billing).
// Domain packages wrap it with more context where the caller needs to
// distinguish conflict classes.
type ConflictError struct {
	Msg string
	IDs []uuid.UUID
}

func (e *ConflictError) Error() string { return e.Msg }

func (e *ConflictError) Unwrap() error { return ErrConflict }

func Conflictf(format string, args ...any) *ConflictError {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}

// StoreError wraps an unclassified persistence failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return e.Op + ": " + e.Err.Error() }

// Unwrap exposes both the kind sentinel and the driver-level failure, so
// errors.Is matches either.
func (e *StoreError) Unwrap() []error { return []error{ErrStore, e.Err} }

func Storef(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool   { return errors.Is(err, ErrConflict) }
