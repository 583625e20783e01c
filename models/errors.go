package models

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the engine, the stores and the HTTP layer.
var (
	ErrSlotFull             = errors.New("slot is full")
	ErrSlotBlocked          = errors.New("slot is blocked")
	ErrInvalidBookingWindow = errors.New("date outside booking window")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrDuplicateFeedback    = errors.New("feedback already submitted")
	ErrValidation           = errors.New("validation failed")
	ErrGenerationExhausted  = errors.New("appointment number generation exhausted")
	ErrNotFound             = errors.New("not found")
	ErrForbidden            = errors.New("forbidden")
	ErrDuplicateBooking     = errors.New("citizen already holds an active appointment for this service")
	ErrStorageUnavailable   = errors.New("storage unavailable")

	// Store-level signals; never surfaced to callers as-is.
	ErrDuplicateNumber = errors.New("appointment number already exists")
	ErrConflict        = errors.New("concurrent modification")
)

// InvalidTransitionError names the rejected edge of the lifecycle.
type InvalidTransitionError struct {
	From AppointmentStatus
	To   AppointmentStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move appointment from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// NewInvalidTransition builds an InvalidTransitionError.
func NewInvalidTransition(from, to AppointmentStatus) error {
	return &InvalidTransitionError{From: from, To: to}
}

// ValidationError is a malformed or rule-violating input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// BookingWindowError reports a requested date that is in the past or too far ahead.
type BookingWindowError struct {
	Date   string
	Reason string
}

func (e *BookingWindowError) Error() string {
	return fmt.Sprintf("%s: %s", e.Date, e.Reason)
}

func (e *BookingWindowError) Is(target error) bool {
	return target == ErrInvalidBookingWindow
}

// StorageUnavailableError wraps a persistence failure that is neither a miss nor a conflict.
type StorageUnavailableError struct {
	Op  string
	Err error
}

func (e *StorageUnavailableError) Error() string {
	return fmt.Sprintf("%s: storage unavailable: %v", e.Op, e.Err)
}

func (e *StorageUnavailableError) Unwrap() error { return e.Err }

func (e *StorageUnavailableError) Is(target error) bool {
	return target == ErrStorageUnavailable
}

// NewStorageUnavailable wraps err for operation op.
func NewStorageUnavailable(op string, err error) error {
	return &StorageUnavailableError{Op: op, Err: err}
}
