package models

import "errors"

var (
	ErrEventNotFound       = errors.New("event not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrUserNotFound        = errors.New("user not found")

	ErrDuplicateTicket   = errors.New("participant already holds a ticket")
	ErrDuplicateCheckin  = errors.New("ticket already used")
	ErrAlreadyCheckedIn  = errors.New("ticket already checked in")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrDuplicateEmail    = errors.New("email already registered for this event")

	ErrValidation      = errors.New("validation failed")
	ErrForbidden       = errors.New("permission denied")
	ErrUnauthenticated = errors.New("authentication required")

	ErrTokenExhausted = errors.New("could not generate a unique ticket token")
)

type ErrorKind string

const (
	KindNotFound        ErrorKind = "not_found"
	KindConflict        ErrorKind = "conflict"
	KindValidation      ErrorKind = "validation"
	KindAuthorization   ErrorKind = "forbidden"
	KindUnauthenticated ErrorKind = "unauthenticated"
	KindInternal        ErrorKind = "internal"
)

// KindOf classifies err into the error taxonomy. Unknown errors are internal.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEventNotFound),
		errors.Is(err, ErrParticipantNotFound),
		errors.Is(err, ErrTicketNotFound),
		errors.Is(err, ErrUserNotFound):
		return KindNotFound
	case errors.Is(err, ErrDuplicateTicket),
		errors.Is(err, ErrDuplicateCheckin),
		errors.Is(err, ErrAlreadyCheckedIn),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrDuplicateEmail):
		return KindConflict
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrForbidden):
		return KindAuthorization
	case errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	default:
		return KindInternal
	}
}

// Code returns a stable machine readable code for err.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrEventNotFound):
		return "event_not_found"
	case errors.Is(err, ErrParticipantNotFound):
		return "participant_not_found"
	case errors.Is(err, ErrTicketNotFound):
		return "ticket_not_found"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrDuplicateTicket):
		return "duplicate_ticket"
	case errors.Is(err, ErrDuplicateCheckin):
		return "duplicate_checkin"
	case errors.Is(err, ErrAlreadyCheckedIn):
		return "already_checked_in"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrDuplicateEmail):
		return "duplicate_email"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	default:
		return "internal_error"
	}
}
