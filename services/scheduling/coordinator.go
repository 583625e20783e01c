package scheduling

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"govbook/models"
	"govbook/services/authz"
	"govbook/services/lifecycle"
)

// Book reserves capacity and creates a pending appointment as one unit. If anything fails
// after the reservation, the reservation is released before the error is returned.
func (e *Engine) Book(ctx context.Context, p models.Principal, req models.BookingInput) (*models.Appointment, error) {
	start := time.Now()
	appt, err := e.book(ctx, p, req)
	e.metrics.ObserveBook(start, bookOutcome(err))
	return appt, err
}

func (e *Engine) book(ctx context.Context, p models.Principal, req models.BookingInput) (*models.Appointment, error) {
	if err := authz.Require(p, models.RoleCitizen); err != nil {
		return nil, err
	}
	priority, err := normalizePriority(req.Priority)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Department) == "" {
		return nil, models.NewValidationError("department", "is required")
	}
	if strings.TrimSpace(req.Service) == "" {
		return nil, models.NewValidationError("service", "is required")
	}

	info, err := e.lookupService(ctx, req.Department, req.Service)
	if err != nil {
		return nil, err
	}
	when, err := e.resolveSlotTime(req.Date, req.Time, info)
	if err != nil {
		return nil, err
	}

	if !e.cfg.AllowDuplicateActiveBookings {
		// Best effort: two concurrent requests may both pass this check.
		n, err := e.appointments.CountActive(ctx, p.UserID, req.Department, req.Service)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, models.ErrDuplicateBooking
		}
	}

	slot, err := e.slots.Ensure(ctx, models.TimeSlot{
		Department:  req.Department,
		Service:     req.Service,
		Date:        when.Date,
		StartTime:   when.Start,
		EndTime:     when.End,
		MaxCapacity: e.slotCapacity(info),
	})
	if err != nil {
		return nil, err
	}

	apptID := uuid.New().String()
	token, err := e.slots.Reserve(ctx, slot.ID, apptID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	appt := &models.Appointment{
		ID:                apptID,
		Citizen:           p.UserID,
		Service:           req.Service,
		Department:        req.Department,
		Officer:           slot.Officer,
		SlotID:            slot.ID,
		ReservationRef:    token.AppointmentRef,
		AppointmentDate:   slot.Date,
		AppointmentTime:   slot.StartTime,
		EndTime:           slot.EndTime,
		Status:            lifecycle.Initial,
		Priority:          priority,
		Notes:             models.Notes{Citizen: strings.TrimSpace(req.Notes)},
		RescheduleHistory: []models.RescheduleEntry{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	_, err = e.numbers.Generate(func(number string) error {
		appt.AppointmentNumber = number
		err := e.appointments.Insert(ctx, appt)
		if errors.Is(err, models.ErrDuplicateNumber) {
			e.metrics.NumberCollisions.Inc()
		}
		return err
	})
	if err != nil {
		e.logger.Warn("Booking failed after reservation, releasing slot",
			zap.String("slotId", token.SlotID),
			zap.String("appointmentRef", apptID),
			zap.Error(err))
		_ = e.releaseWithRetry(ctx, token, "book")
		return nil, err
	}

	e.logger.Info("Appointment booked",
		zap.String("appointmentNumber", appt.AppointmentNumber),
		zap.String("citizen", appt.Citizen),
		zap.String("slotId", appt.SlotID),
		zap.String("date", appt.AppointmentDate),
		zap.String("time", appt.AppointmentTime))
	e.notify(ctx, models.NotifyBooked, appt)
	return appt, nil
}

func normalizePriority(p string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "", models.PriorityNormal:
		return models.PriorityNormal, nil
	case models.PriorityHigh:
		return models.PriorityHigh, nil
	case models.PriorityUrgent:
		return models.PriorityUrgent, nil
	}
	return "", models.NewValidationError("priority", "must be one of normal, high, urgent")
}

func bookOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrSlotFull):
		return "slot_full"
	case errors.Is(err, models.ErrSlotBlocked):
		return "slot_blocked"
	case errors.Is(err, models.ErrInvalidBookingWindow):
		return "invalid_window"
	case errors.Is(err, models.ErrValidation):
		return "validation"
	case errors.Is(err, models.ErrForbidden):
		return "forbidden"
	case errors.Is(err, models.ErrDuplicateBooking):
		return "duplicate"
	}
	return "error"
}
