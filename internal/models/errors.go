package models

import "errors"

// Common errors used throughout the application
var (
	ErrNotFound          = errors.New("not found")
	ErrEventNotFound     = errors.New("event not found")
	ErrTierNotFound      = errors.New("ticket tier not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrOrganizerNotFound = errors.New("organizer not found")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrTicketNotFound    = errors.New("ticket not found")

	ErrUnauthenticated = errors.New("authentication required")
	ErrNotOwner        = errors.New("requester does not own this ticket")
	ErrForbidden       = errors.New("insufficient authority")

	ErrEventUnavailable  = errors.New("event is not open for booking")
	ErrCapacityExceeded  = errors.New("tier capacity exceeded")
	ErrSoldOut           = errors.New("ticket tier is sold out")
	ErrAlreadyRefunded   = errors.New("ticket already refunded")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrContention        = errors.New("too much contention, please retry")
	ErrTransient         = errors.New("transient storage conflict")

	ErrInvalidInput       = errors.New("invalid input")
	ErrDuplicateEntry     = errors.New("duplicate entry")
	ErrInvalidTicketCode  = errors.New("invalid ticket code")
	ErrRequestInProgress  = errors.New("request with this idempotency key is in progress")
	ErrIdempotencyKeyUsed = errors.New("idempotency key was used for a different booking")
	ErrStorageUnavailable = errors.New("storage backend unavailable")
)

// IsNotFound reports whether err is any of the not-found sentinels.
func IsNotFound(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrEventNotFound),
		errors.Is(err, ErrTierNotFound),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrOrganizerNotFound),
		errors.Is(err, ErrBookingNotFound),
		errors.Is(err, ErrTicketNotFound):
		return true
	}
	return false
}

// ValidationError wraps a field-level validation failure so callers can
// match it with errors.Is(err, ErrInvalidInput) and still show the message.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
