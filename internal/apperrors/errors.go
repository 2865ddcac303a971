// Package apperrors defines the failure taxonomy shared by services and
// the HTTP boundary. Services return these; the boundary translates
// them to status codes in exactly one place.
package apperrors

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindUnauthorized
	KindAccountSuspended
	KindAccountBanned
	KindValidation
	KindForbidden
	KindNotFound
	KindConflict
	KindInvalidState
	KindInvitationInvalid
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf reports the taxonomy kind of err, or KindInternal for
// anything unmapped.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func Unauthorized(message string) *Error      { return New(KindUnauthorized, message) }
func Validation(message string) *Error        { return New(KindValidation, message) }
func Forbidden(message string) *Error         { return New(KindForbidden, message) }
func NotFound(entity string) *Error           { return Newf(KindNotFound, "%s not found", entity) }
func Conflict(message string) *Error          { return New(KindConflict, message) }
func InvalidState(message string) *Error      { return New(KindInvalidState, message) }
func InvitationInvalid(message string) *Error { return New(KindInvitationInvalid, message) }
