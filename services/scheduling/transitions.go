package scheduling

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"govbook/models"
	"govbook/services/authz"
	"govbook/services/lifecycle"
)

// mutation applies the side fields of a transition to a private copy.
type mutation func(next *models.Appointment, now time.Time)

// authorizer checks the caller against the freshly read appointment.
type authorizer struct {
	roles []models.Role
	check func(p models.Principal, appt *models.Appointment) error
}

// citizenOrStaff is every role that may act on its own or on any appointment.
var citizenOrStaff = append([]models.Role{models.RoleCitizen}, authz.Staff...)

var staffOnly = authorizer{
	roles: authz.Staff,
	check: func(p models.Principal, _ *models.Appointment) error {
		return authz.Require(p, authz.Staff...)
	},
}

var ownerOrStaff = authorizer{
	roles: citizenOrStaff,
	check: func(p models.Principal, appt *models.Appointment) error {
		return authz.RequireOwnerOr(p, appt.Citizen, authz.Staff...)
	},
}

// transition reads, validates and commits one status change with a compare-and-set on
// (version, status). A lost race is retried only while the status is unchanged. The caller's
// role is checked before the read so a caller without it cannot tell which numbers exist.
func (e *Engine) transition(ctx context.Context, p models.Principal, number string, to models.AppointmentStatus, allow authorizer, mutate mutation) (*models.Appointment, error) {
	if err := authz.Require(p, allow.roles...); err != nil {
		return nil, err
	}
	appt, err := e.appointments.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if err := allow.check(p, appt); err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		if err := lifecycle.Validate(appt.Status, to); err != nil {
			return nil, err
		}
		from := appt.Status
		next := appt.Clone()
		next.Status = to
		if mutate != nil {
			mutate(next, e.now())
		}

		err := e.appointments.Update(ctx, next, appt.Version, from)
		if err == nil {
			e.metrics.IncrementTransition(string(from), string(to))
			return next, nil
		}
		if !errors.Is(err, models.ErrConflict) {
			return nil, err
		}

		current, err := e.appointments.GetByNumber(ctx, number)
		if err != nil {
			return nil, err
		}
		if current.Status != from {
			return nil, models.NewInvalidTransition(current.Status, to)
		}
		if attempt >= casAttempts {
			return nil, models.ErrConflict
		}
		e.logger.Debug("Retrying appointment update after concurrent write",
			zap.String("appointmentNumber", number),
			zap.Int("attempt", attempt))
		appt = current
	}
}

func withOfficerNotes(notes string, mutate mutation) mutation {
	notes = strings.TrimSpace(notes)
	return func(next *models.Appointment, now time.Time) {
		if notes != "" {
			next.Notes.Officer = notes
		}
		if mutate != nil {
			mutate(next, now)
		}
	}
}

// Confirm moves a pending appointment to confirmed and assigns the acting officer if none is set.
func (e *Engine) Confirm(ctx context.Context, p models.Principal, number string, in models.TransitionInput) (*models.Appointment, error) {
	appt, err := e.transition(ctx, p, number, models.StatusConfirmed, staffOnly,
		withOfficerNotes(in.Notes, func(next *models.Appointment, now time.Time) {
			next.ConfirmedAt = &now
			if next.Officer == "" && p.Role == models.RoleOfficer {
				next.Officer = p.UserID
			}
		}))
	if err != nil {
		return nil, err
	}
	e.logger.Info("Appointment confirmed", zap.String("appointmentNumber", number), zap.String("by", p.UserID))
	e.notify(ctx, models.NotifyConfirmed, appt)
	return appt, nil
}

// Start marks the citizen as being served.
func (e *Engine) Start(ctx context.Context, p models.Principal, number string, in models.TransitionInput) (*models.Appointment, error) {
	appt, err := e.transition(ctx, p, number, models.StatusInProgress, staffOnly,
		withOfficerNotes(in.Notes, func(next *models.Appointment, now time.Time) {
			next.StartedAt = &now
			if next.Officer == "" && p.Role == models.RoleOfficer {
				next.Officer = p.UserID
			}
		}))
	if err != nil {
		return nil, err
	}
	e.logger.Info("Appointment started", zap.String("appointmentNumber", number), zap.String("by", p.UserID))
	return appt, nil
}

// Complete closes an in-progress appointment. The slot keeps its count.
func (e *Engine) Complete(ctx context.Context, p models.Principal, number string, in models.TransitionInput) (*models.Appointment, error) {
	appt, err := e.transition(ctx, p, number, models.StatusCompleted, staffOnly,
		withOfficerNotes(in.Notes, func(next *models.Appointment, now time.Time) {
			next.CompletedAt = &now
		}))
	if err != nil {
		return nil, err
	}
	e.logger.Info("Appointment completed", zap.String("appointmentNumber", number), zap.String("by", p.UserID))
	e.notify(ctx, models.NotifyCompleted, appt)
	return appt, nil
}

// MarkNoShow records that a confirmed citizen did not attend. The slot keeps its count.
func (e *Engine) MarkNoShow(ctx context.Context, p models.Principal, number string, in models.TransitionInput) (*models.Appointment, error) {
	appt, err := e.transition(ctx, p, number, models.StatusNoShow, staffOnly, withOfficerNotes(in.Notes, nil))
	if err != nil {
		return nil, err
	}
	e.logger.Info("Appointment marked no-show", zap.String("appointmentNumber", number), zap.String("by", p.UserID))
	return appt, nil
}

// Cancel ends the appointment and returns its unit to the slot.
func (e *Engine) Cancel(ctx context.Context, p models.Principal, number string, in models.TransitionInput) (*models.Appointment, error) {
	reason := strings.TrimSpace(in.Reason)
	mutate := func(next *models.Appointment, now time.Time) {
		next.CancelledAt = &now
		next.CancelledBy = p.UserID
		next.CancellationReason = reason
	}
	if p.IsStaff() {
		mutate = withOfficerNotes(in.Notes, mutate)
	}

	appt, err := e.transition(ctx, p, number, models.StatusCancelled, ownerOrStaff, mutate)
	if err != nil {
		return nil, err
	}
	_ = e.releaseWithRetry(ctx, appt.Token(), "cancel")

	e.logger.Info("Appointment cancelled",
		zap.String("appointmentNumber", number),
		zap.String("by", p.UserID),
		zap.String("reason", reason))
	e.notify(ctx, models.NotifyCancelled, appt)
	return appt, nil
}
