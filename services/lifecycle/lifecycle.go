// Package lifecycle holds the appointment state machine. It is pure: no I/O, no clock.
package lifecycle

import "govbook/models"

// Initial is the status every new appointment starts in.
const Initial = models.StatusPending

var allowed = map[models.AppointmentStatus][]models.AppointmentStatus{
	models.StatusPending:     {models.StatusConfirmed, models.StatusCancelled, models.StatusRescheduled},
	models.StatusConfirmed:   {models.StatusInProgress, models.StatusCancelled, models.StatusRescheduled, models.StatusNoShow},
	models.StatusInProgress:  {models.StatusCompleted, models.StatusCancelled},
	models.StatusRescheduled: {models.StatusPending, models.StatusConfirmed},
	models.StatusCompleted:   {},
	models.StatusCancelled:   {},
	models.StatusNoShow:      {},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to models.AppointmentStatus) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Validate returns an InvalidTransitionError when from -> to is not a legal edge.
func Validate(from, to models.AppointmentStatus) error {
	if !CanTransition(from, to) {
		return models.NewInvalidTransition(from, to)
	}
	return nil
}

// ActiveStatuses hold a claim on a slot and count towards the duplicate-booking policy.
var ActiveStatuses = []models.AppointmentStatus{
	models.StatusPending,
	models.StatusConfirmed,
	models.StatusInProgress,
	models.StatusRescheduled,
}

// IsActive reports whether s still holds a claim on its slot.
func IsActive(s models.AppointmentStatus) bool {
	for _, a := range ActiveStatuses {
		if a == s {
			return true
		}
	}
	return false
}

// Reschedulable reports whether an appointment in s may be moved to another slot.
func Reschedulable(s models.AppointmentStatus) bool {
	return CanTransition(s, models.StatusRescheduled)
}
