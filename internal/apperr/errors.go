// Package apperr defines the error taxonomy shared by services and the
// HTTP/WebSocket boundary.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindForbidden
	KindUnauthorized
	KindValidation
	KindNotFound
	KindConflict
	KindInvitationNotFound
	KindInvitationAccepted
	KindInvitationExpired
)

func (k Kind) String() string {
	switch k {
	case KindForbidden:
		return "forbidden"
	case KindUnauthorized:
		return "unauthorized"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvitationNotFound:
		return "invitation_not_found"
	case KindInvitationAccepted:
		return "invitation_already_accepted"
	case KindInvitationExpired:
		return "invitation_expired"
	default:
		return "internal"
	}
}

// Status is the HTTP status code the kind is reported with.
func (k Kind) Status() int {
	switch k {
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound, KindInvitationNotFound:
		return http.StatusNotFound
	case KindConflict, KindInvitationAccepted:
		return http.StatusConflict
	case KindInvitationExpired:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrForbidden)
// holds for every forbidden error regardless of its message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrForbidden          = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "not found"}
	ErrValidation         = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrConflict           = &Error{Kind: KindConflict, Message: "conflict"}
	ErrInvitationNotFound = &Error{Kind: KindInvitationNotFound, Message: "invitation not found"}
	ErrInvitationAccepted = &Error{Kind: KindInvitationAccepted, Message: "invitation already accepted"}
	ErrInvitationExpired  = &Error{Kind: KindInvitationExpired, Message: "invitation expired"}
)

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Message: entity + " not found"}
}

func Validation(msg string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal server error", Err: err}
}

// KindOf reports the kind of err; errors outside the taxonomy are internal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}
