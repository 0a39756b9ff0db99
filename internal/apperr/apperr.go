// Package apperr defines the structured failures returned by the booking
// services.  Callers branch on Kind; Code is a stable machine readable
// reason and Message is meant for humans.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindBusiness
	KindInvalid
	KindForbidden
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindBusiness:
		return "business"
	case KindInvalid:
		return "invalid"
	case KindForbidden:
		return "forbidden"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// Business rule codes.
const (
	CodeSeatAlreadyReserved   = "SEAT_ALREADY_RESERVED"
	CodeSeatNotInRoom         = "SEAT_NOT_IN_ROOM"
	CodeRoomNotAvailable      = "ROOM_NOT_AVAILABLE"
	CodeRoomInUse             = "ROOM_IN_USE"
	CodeScreeningInPast       = "SCREENING_IN_PAST"
	CodeScreeningNotBookable  = "SCREENING_NOT_BOOKABLE"
	CodeScreeningStarted      = "SCREENING_STARTED"
	CodeScreeningHasBookings  = "SCREENING_HAS_RESERVATIONS"
	CodeReservationNotPending = "RESERVATION_NOT_PENDING"
	CodeReservationEmpty      = "RESERVATION_EMPTY"
	CodePaymentCompleted      = "PAYMENT_ALREADY_COMPLETED"
	CodeEmailTaken            = "EMAIL_TAKEN"
	CodeRoomSizeOutOfBounds   = "ROOM_SIZE_OUT_OF_BOUNDS"
	CodeInvalidInput          = "INVALID_INPUT"
	CodeNotOwner              = "NOT_OWNER"
	CodeUnauthorized          = "UNAUTHORIZED"
)

// Error is the structured failure surfaced to the immediate caller.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound reports a referenced entity that does not exist.
func NotFound(entity string, id any) *Error {
	return &Error{
		Kind:    KindNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found with id %v", entity, id),
	}
}

// NotFoundf is NotFound with a free-form message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Code: "NOT_FOUND", Message: fmt.Sprintf(format, args...)}
}

// Business reports a violated domain rule.
func Business(code, format string, args ...any) *Error {
	return &Error{Kind: KindBusiness, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Invalid(format string, args ...any) *Error {
	return &Error{Kind: KindInvalid, Code: CodeInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Code: CodeNotOwner, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...any) *Error {
	return &Error{Kind: KindUnauthorized, Code: CodeUnauthorized, Message: fmt.Sprintf(format, args...)}
}

// WithCode replaces the code of e and returns it.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// Wrap attaches cause to e so errors.Is keeps working through it.
func (e *Error) Wrap(cause error) *Error {
	e.Err = cause
	return e
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the business code of err, or "" when err is not an *Error.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, k Kind) bool { return err != nil && KindOf(err) == k }

// HTTPStatus maps an error onto the status code used by the handlers.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindBusiness:
		return http.StatusConflict
	case KindInvalid:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
