// Package apperror defines the error taxonomy shared by all domain
// services: validation failures, missing records, operations attempted in
// the wrong lifecycle state, and optimistic-concurrency conflicts. Nothing
// in this layer is transient, so there is no retry metadata.
package apperror

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindInvalidState
	KindConflict
	KindForbidden
)

// Error carries a kind plus enough detail for the caller to act: the
// offending field for validation errors, the current lifecycle state for
// invalid-state errors.
type Error struct {
	Kind         Kind
	Msg          string
	Field        string
	Resource     string
	CurrentState string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindValidation:
		if e.Field != "" {
			return fmt.Sprintf("validation: %s: %s", e.Field, e.Msg)
		}
		return "validation: " + e.Msg
	case KindNotFound:
		return fmt.Sprintf("%s not found", e.Resource)
	case KindInvalidState:
		return fmt.Sprintf("%s (current state: %s)", e.Msg, e.CurrentState)
	case KindConflict:
		return "conflict: " + e.Msg
	case KindForbidden:
		return "forbidden: " + e.Msg
	}
	return e.Msg
}

func Validation(field, msg string) *Error {
	return &Error{Kind: KindValidation, Field: field, Msg: msg}
}

func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Resource: resource}
}

// InvalidState reports an operation that is not legal in the record's
// current lifecycle state. The state is echoed back so the caller can
// refresh instead of guessing.
func InvalidState(msg, currentState string) *Error {
	return &Error{Kind: KindInvalidState, Msg: msg, CurrentState: currentState}
}

// Conflict reports a failed compare-and-swap. The caller should refetch
// and retry the whole operation; it is never retried internally.
func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Msg: msg}
}

// Forbidden reports an authenticated caller acting on a record that is
// not theirs. Role gates live in middleware; this covers per-record
// ownership checks.
func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Msg: msg}
}

// KindOf extracts the kind from any error in the chain, KindUnknown if the
// error did not originate here.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsValidation(err error) bool   { return KindOf(err) == KindValidation }
func IsNotFound(err error) bool     { return KindOf(err) == KindNotFound }
func IsInvalidState(err error) bool { return KindOf(err) == KindInvalidState }
func IsConflict(err error) bool     { return KindOf(err) == KindConflict }
func IsForbidden(err error) bool    { return KindOf(err) == KindForbidden }
