package cron

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	notificationRepo "govbook/database/repository/notification"
	"govbook/services/tasks"
)

// NotificationWorker consumes notification intents and appends them to the log.
type NotificationWorker struct {
	srv    *asynq.Server
	repo   notificationRepo.NotificationRepository
	logger *zap.Logger
}

// NewNotificationWorker builds the asynq server. Call Start to begin processing.
func NewNotificationWorker(redisOpts asynq.RedisClientOpt, concurrency int, repo notificationRepo.NotificationRepository, logger *zap.Logger) *NotificationWorker {
	if concurrency <= 0 {
		concurrency = 10
	}
	w := &NotificationWorker{repo: repo, logger: logger}
	w.srv = asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"default": 1,
			},
			Logger: logger.Sugar(),
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Warn("[NotificationWorker] task failed", zap.String("type", task.Type()), zap.Error(err))
			}),
		},
	)
	return w
}

// Start runs the worker in the background.
func (w *NotificationWorker) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeRecordNotification, w.HandleNotificationTask)

	w.logger.Info("[NotificationWorker] starting async worker")
	if err := w.srv.Start(mux); err != nil {
		return fmt.Errorf("start notification worker: %w", err)
	}
	return nil
}

// Shutdown waits for in-flight tasks and stops the worker.
func (w *NotificationWorker) Shutdown() {
	w.srv.Shutdown()
	w.logger.Info("[NotificationWorker] stopped")
}

// HandleNotificationTask appends one record. Undecodable payloads are dropped without retry.
func (w *NotificationWorker) HandleNotificationTask(ctx context.Context, task *asynq.Task) error {
	rec, err := tasks.ParseNotificationTask(task)
	if err != nil {
		w.logger.Error("[NotificationWorker] invalid payload", zap.Error(err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if rec.ID == "" || rec.Recipient.AppointmentNumber == "" {
		w.logger.Error("[NotificationWorker] incomplete record", zap.String("id", rec.ID))
		return fmt.Errorf("incomplete notification record: %w", asynq.SkipRetry)
	}

	if err := w.repo.Append(ctx, &rec); err != nil {
		w.logger.Warn("[NotificationWorker] append failed", zap.String("id", rec.ID), zap.Error(err))
		return err
	}
	w.logger.Debug("[NotificationWorker] recorded notification",
		zap.String("id", rec.ID),
		zap.String("type", string(rec.Type)),
		zap.String("appointmentNumber", rec.Recipient.AppointmentNumber))
	return nil
}
