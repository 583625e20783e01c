package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"govbook/models"
)

const TypeRecordNotification = "notification:record"

// NewNotificationTask packs rec into a task. The record id doubles as the task id so a
// repeated enqueue of the same intent is rejected by the queue.
func NewNotificationTask(rec models.NotificationRecord) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeRecordNotification, b)
	opts := []asynq.Option{
		asynq.TaskID(rec.ID),
		asynq.MaxRetry(10),
		asynq.Timeout(30 * time.Second),
		asynq.Retention(24 * time.Hour),
	}

	return task, opts, nil
}

// ParseNotificationTask decodes the payload written by NewNotificationTask.
func ParseNotificationTask(task *asynq.Task) (models.NotificationRecord, error) {
	var rec models.NotificationRecord
	err := json.Unmarshal(task.Payload(), &rec)
	return rec, err
}
