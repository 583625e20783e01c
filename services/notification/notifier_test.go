package notification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	notificationRepo "govbook/database/repository/notification"
	"govbook/models"
)

func TestStoreNotifierAppends(t *testing.T) {
	repo := notificationRepo.NewInMemory()
	n := NewStoreNotifier(repo)

	appt := &models.Appointment{
		AppointmentNumber:  "APT-300110-AAAAAA",
		Citizen:            "citizen-1",
		Department:         "passports",
		Service:            "renewal",
		AppointmentDate:    "2030-01-10",
		AppointmentTime:    "09:00",
		CancellationReason: "travel",
	}
	rec := NewRecord(models.NotifyCancelled, appt)
	require.NoError(t, n.Enqueue(context.Background(), rec))
	require.NoError(t, n.Enqueue(context.Background(), rec))

	got, err := repo.ListByAppointment(context.Background(), appt.AppointmentNumber)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.NotifyCancelled, got[0].Type)
	assert.Equal(t, "citizen-1", got[0].Recipient.Citizen)
	assert.Contains(t, got[0].Message, "travel")
	assert.False(t, got[0].CreatedAt.IsZero())
}
