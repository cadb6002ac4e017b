package domain

import (
	"errors"
	"fmt"
)

// ValidationError reports invalid caller input.
type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	switch {
	case e.Msg != "" && e.Field != "":
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Field != "":
		return fmt.Sprintf("invalid %s", e.Field)
	default:
		return "validation error"
	}
}

func (e ValidationError) Unwrap() error { return e.Err }

// NotFoundError reports a missing resource.
type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

// CapacityExceededError is returned when an open-trip departure cannot admit
// the requested number of seats.
type CapacityExceededError struct {
	DepartureID string
	Requested   int
	Available   int
}

func (e CapacityExceededError) Error() string {
	return fmt.Sprintf("departure %s cannot admit %d seats (%d available)", e.DepartureID, e.Requested, e.Available)
}

// GroupAlreadyBookedError is returned when a private-trip group is already
// held by an active booking.
type GroupAlreadyBookedError struct {
	GroupID string
}

func (e GroupAlreadyBookedError) Error() string {
	return fmt.Sprintf("departure group %s is already booked", e.GroupID)
}

// InvalidTransitionError reports a status change the state machine does not
// permit from the current state.
type InvalidTransitionError struct {
	Resource string
	From     string
	To       string
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s cannot move from %s to %s", e.Resource, e.From, e.To)
}

// ForbiddenError reports an actor lacking the role or ownership the operation
// requires.
type ForbiddenError struct {
	Msg string
}

func (e ForbiddenError) Error() string {
	if e.Msg == "" {
		return "forbidden"
	}
	return e.Msg
}

// InvalidSignatureError is returned when a payment webhook's signature does
// not match the recomputed digest. No state is touched when this is returned.
type InvalidSignatureError struct {
	OrderID string
}

func (e InvalidSignatureError) Error() string {
	return fmt.Sprintf("invalid payment signature for order %s", e.OrderID)
}

// NotPendingError is returned when a payment transaction is requested for a
// booking that already left PENDING.
type NotPendingError struct {
	BookingID string
	Status    string
}

func (e NotPendingError) Error() string {
	return fmt.Sprintf("booking %s is %s, payment requires PENDING", e.BookingID, e.Status)
}

// UpstreamUnavailableError reports a payment provider that could not be
// reached. Status polling absorbs it; it never fails a booking.
type UpstreamUnavailableError struct {
	Err error
}

func (e UpstreamUnavailableError) Error() string {
	if e.Err == nil {
		return "payment provider unavailable"
	}
	return fmt.Sprintf("payment provider unavailable: %v", e.Err)
}

func (e UpstreamUnavailableError) Unwrap() error { return e.Err }

// InternalError wraps unexpected failures.
type InternalError struct {
	Msg string
	Err error
}

func (e InternalError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "internal error"
}

func (e InternalError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsCapacityExceeded(err error) bool {
	var target CapacityExceededError
	return errors.As(err, &target)
}

func IsGroupAlreadyBooked(err error) bool {
	var target GroupAlreadyBookedError
	return errors.As(err, &target)
}

func IsInvalidTransition(err error) bool {
	var target InvalidTransitionError
	return errors.As(err, &target)
}

func IsForbidden(err error) bool {
	var target ForbiddenError
	return errors.As(err, &target)
}

func IsInvalidSignature(err error) bool {
	var target InvalidSignatureError
	return errors.As(err, &target)
}

func IsNotPending(err error) bool {
	var target NotPendingError
	return errors.As(err, &target)
}

func IsUpstreamUnavailable(err error) bool {
	var target UpstreamUnavailableError
	return errors.As(err, &target)
}
