package scheduling

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"govbook/models"
	"govbook/services/authz"
	"govbook/services/lifecycle"
)

// Reschedule moves an appointment to another start time. The new unit is reserved first,
// then the appointment is moved with a compare-and-set, then the old unit is released.
// Any failure before the commit leaves both slots and the appointment as they were.
func (e *Engine) Reschedule(ctx context.Context, p models.Principal, number string, in models.RescheduleInput) (*models.Appointment, error) {
	if err := authz.Require(p, citizenOrStaff...); err != nil {
		return nil, err
	}
	appt, err := e.appointments.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireOwnerOr(p, appt.Citizen, authz.Staff...); err != nil {
		return nil, err
	}
	if !lifecycle.Reschedulable(appt.Status) {
		return nil, models.NewInvalidTransition(appt.Status, models.StatusRescheduled)
	}

	info, err := e.lookupService(ctx, appt.Department, appt.Service)
	if err != nil {
		return nil, err
	}
	when, err := e.resolveSlotTime(in.Date, in.Time, info)
	if err != nil {
		return nil, err
	}
	if when.Date == appt.AppointmentDate && when.Start == appt.AppointmentTime {
		return nil, models.NewValidationError("time", "appointment is already at this date and time")
	}

	slot, err := e.slots.Ensure(ctx, models.TimeSlot{
		Department:  appt.Department,
		Service:     appt.Service,
		Date:        when.Date,
		StartTime:   when.Start,
		EndTime:     when.End,
		MaxCapacity: e.slotCapacity(info),
	})
	if err != nil {
		return nil, err
	}
	newToken, err := e.slots.Reserve(ctx, slot.ID, reservationRef(appt.ID))
	if err != nil {
		return nil, err
	}
	oldToken := appt.Token()

	now := e.now()
	next := appt.Clone()
	next.RescheduleHistory = append(next.RescheduleHistory, models.RescheduleEntry{
		PreviousDate: appt.AppointmentDate,
		PreviousTime: appt.AppointmentTime,
		NewDate:      slot.Date,
		NewTime:      slot.StartTime,
		Reason:       strings.TrimSpace(in.Reason),
		Actor:        p.UserID,
		Timestamp:    now,
	})
	next.AppointmentDate = slot.Date
	next.AppointmentTime = slot.StartTime
	next.EndTime = slot.EndTime
	next.SlotID = slot.ID
	next.ReservationRef = newToken.AppointmentRef
	next.Officer = slot.Officer
	next.ConfirmedAt = nil
	// The move passes through rescheduled and settles in pending in a single write.
	if err := lifecycle.Validate(models.StatusRescheduled, models.StatusPending); err != nil {
		_ = e.releaseWithRetry(ctx, newToken, "reschedule")
		return nil, err
	}
	next.Status = models.StatusPending

	if err := e.appointments.Update(ctx, next, appt.Version, appt.Status); err != nil {
		_ = e.releaseWithRetry(ctx, newToken, "reschedule")
		if errors.Is(err, models.ErrConflict) {
			status := appt.Status
			if current, readErr := e.appointments.GetByID(ctx, appt.ID); readErr == nil {
				status = current.Status
			}
			return nil, models.NewInvalidTransition(status, models.StatusRescheduled)
		}
		return nil, err
	}
	e.metrics.IncrementTransition(string(appt.Status), string(models.StatusRescheduled))
	e.metrics.IncrementTransition(string(models.StatusRescheduled), string(models.StatusPending))

	_ = e.releaseWithRetry(ctx, oldToken, "reschedule")

	e.logger.Info("Appointment rescheduled",
		zap.String("appointmentNumber", number),
		zap.String("from", appt.AppointmentDate+" "+appt.AppointmentTime),
		zap.String("to", next.AppointmentDate+" "+next.AppointmentTime),
		zap.String("by", p.UserID))
	e.notify(ctx, models.NotifyRescheduled, next)
	return next, nil
}

// reservationRef names one reservation made on behalf of an appointment.
func reservationRef(appointmentID string) string {
	return appointmentID + "/" + uuid.New().String()
}
