package scheduling

import (
	"context"

	"go.uber.org/zap"

	"govbook/models"
	"govbook/services/notification"
)

// notify records the intent to notify. Failures are logged and never returned.
func (e *Engine) notify(ctx context.Context, kind models.NotificationType, appt *models.Appointment) {
	if e.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	rec := notification.NewRecord(kind, appt)
	if err := e.notifier.Enqueue(ctx, rec); err != nil {
		e.metrics.IncrementNotification(string(kind), "error")
		e.logger.Warn("Failed to enqueue notification",
			zap.String("type", string(kind)),
			zap.String("appointmentNumber", appt.AppointmentNumber),
			zap.Error(err))
		return
	}
	e.metrics.IncrementNotification(string(kind), "ok")
}
