// Package notification records the intent to notify. Delivery happens elsewhere.
package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	notificationRepo "govbook/database/repository/notification"
	"govbook/models"
	"govbook/services/tasks"
)

// Notifier accepts notification intents. Implementations must not block for long.
type Notifier interface {
	Enqueue(ctx context.Context, rec models.NotificationRecord) error
}

// QueueNotifier hands records to the asynq queue consumed by cron.NotificationWorker.
type QueueNotifier struct {
	client *asynq.Client
	logger *zap.Logger
}

func NewQueueNotifier(client *asynq.Client, logger *zap.Logger) *QueueNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueNotifier{client: client, logger: logger}
}

func (n *QueueNotifier) Enqueue(ctx context.Context, rec models.NotificationRecord) error {
	task, opts, err := tasks.NewNotificationTask(rec)
	if err != nil {
		return fmt.Errorf("build notification task: %w", err)
	}
	info, err := n.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	n.logger.Debug("Notification enqueued",
		zap.String("taskId", info.ID),
		zap.String("type", string(rec.Type)),
		zap.String("appointmentNumber", rec.Recipient.AppointmentNumber))
	return nil
}

// StoreNotifier appends records straight to the log. Used with STORE=memory.
type StoreNotifier struct {
	repo notificationRepo.NotificationRepository
}

func NewStoreNotifier(repo notificationRepo.NotificationRepository) *StoreNotifier {
	return &StoreNotifier{repo: repo}
}

func (n *StoreNotifier) Enqueue(ctx context.Context, rec models.NotificationRecord) error {
	return n.repo.Append(ctx, &rec)
}

// NewRecord builds the intent for appt. Ids are assigned here so retries carry the same id.
func NewRecord(kind models.NotificationType, appt *models.Appointment) models.NotificationRecord {
	return models.NotificationRecord{
		ID:   uuid.New().String(),
		Type: kind,
		Recipient: models.Recipient{
			Citizen:           appt.Citizen,
			Officer:           appt.Officer,
			AppointmentNumber: appt.AppointmentNumber,
			Department:        appt.Department,
			Service:           appt.Service,
			Date:              appt.AppointmentDate,
			Time:              appt.AppointmentTime,
		},
		Message: message(kind, appt),
	}
}

func message(kind models.NotificationType, appt *models.Appointment) string {
	switch kind {
	case models.NotifyBooked:
		return fmt.Sprintf("Appointment %s booked for %s at %s.", appt.AppointmentNumber, appt.AppointmentDate, appt.AppointmentTime)
	case models.NotifyConfirmed:
		return fmt.Sprintf("Appointment %s on %s at %s has been confirmed.", appt.AppointmentNumber, appt.AppointmentDate, appt.AppointmentTime)
	case models.NotifyCancelled:
		if appt.CancellationReason != "" {
			return fmt.Sprintf("Appointment %s has been cancelled: %s", appt.AppointmentNumber, appt.CancellationReason)
		}
		return fmt.Sprintf("Appointment %s has been cancelled.", appt.AppointmentNumber)
	case models.NotifyRescheduled:
		return fmt.Sprintf("Appointment %s moved to %s at %s.", appt.AppointmentNumber, appt.AppointmentDate, appt.AppointmentTime)
	case models.NotifyCompleted:
		return fmt.Sprintf("Appointment %s is complete. You can now leave feedback.", appt.AppointmentNumber)
	}
	return fmt.Sprintf("Appointment %s updated.", appt.AppointmentNumber)
}
