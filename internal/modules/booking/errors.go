// README: Error classes returned by the dispatch engine.
package booking

import (
	"errors"
	"fmt"
)

// Classes. Every error the engine returns matches exactly one of these with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("not authorized")
	ErrConflict     = errors.New("booking state conflict")
)

var (
	ErrInvalidTransition  = fmt.Errorf("%w: invalid status transition", ErrConflict)
	ErrAlreadyAccepted    = fmt.Errorf("%w: booking already accepted", ErrConflict)
	ErrVehicleUnavailable = fmt.Errorf("%w: vehicle unavailable", ErrConflict)
	ErrDuplicateRating    = fmt.Errorf("%w: rating already submitted", ErrConflict)
	ErrAlreadyTerminal    = fmt.Errorf("%w: booking already terminal", ErrConflict)
	ErrStaleVersion       = fmt.Errorf("%w: booking changed concurrently", ErrConflict)
)

// ConflictError carries the booking as it was when the operation lost, so the
// caller can show the current state instead of retrying blindly.
type ConflictError struct {
	Reason    error
	Current   Status
	Requested Status
	Booking   *Booking
}

func (e *ConflictError) Error() string {
	if e.Requested != "" {
		return fmt.Sprintf("%v (current=%s requested=%s)", e.Reason, e.Current, e.Requested)
	}
	return fmt.Sprintf("%v (current=%s)", e.Reason, e.Current)
}

func (e *ConflictError) Unwrap() error { return e.Reason }

func conflict(reason error, b *Booking, requested Status) *ConflictError {
	ce := &ConflictError{Reason: reason, Requested: requested}
	if b != nil {
		ce.Current = b.Status
		ce.Booking = b.Clone()
	}
	return ce
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func unauthorized(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnauthorized, fmt.Sprintf(format, args...))
}
