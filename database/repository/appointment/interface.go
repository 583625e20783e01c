// File: database/repository/appointment/interface.go
package appointmentRepo

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"govbook/models"
)

const collectionName = "appointments"

// AppointmentRepository persists appointments. Every mutation after Insert is a
// compare-and-set on (version, status); a lost race is reported as models.ErrConflict.
type AppointmentRepository interface {
	Insert(ctx context.Context, appt *models.Appointment) error
	GetByID(ctx context.Context, id string) (*models.Appointment, error)
	GetByNumber(ctx context.Context, number string) (*models.Appointment, error)
	Update(ctx context.Context, next *models.Appointment, expectedVersion int, expectedStatus models.AppointmentStatus) error
	SetFeedback(ctx context.Context, id string, feedback models.Feedback) (*models.Appointment, error)
	CountActive(ctx context.Context, citizen, department, service string) (int64, error)
	ListByCitizen(ctx context.Context, citizen string) ([]models.Appointment, error)
	EnsureIndexes(ctx context.Context) error
}

type mongoAppointmentRepo struct {
	coll *mongo.Collection
}

// NewMongoAppointmentRepo constructs a new MongoDB AppointmentRepository.
func NewMongoAppointmentRepo(db *mongo.Database) AppointmentRepository {
	return &mongoAppointmentRepo{
		coll: db.Collection(collectionName),
	}
}
