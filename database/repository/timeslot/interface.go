// File: database/repository/timeslot/interface.go
package timeslotRepo

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"govbook/models"
)

const collectionName = "timeslots"

// TimeSlotRepository persists slots. ReserveUnit and ReleaseUnit are the only
// operations that touch currentCount, and each is a single atomic update.
type TimeSlotRepository interface {
	Create(ctx context.Context, slot *models.TimeSlot) error
	EnsureSlot(ctx context.Context, slot models.TimeSlot) (*models.TimeSlot, error)
	GetByID(ctx context.Context, slotID string) (*models.TimeSlot, error)
	List(ctx context.Context, department, service, date string) ([]models.TimeSlot, error)
	ReserveUnit(ctx context.Context, slotID, appointmentRef string) (*models.TimeSlot, error)
	ReleaseUnit(ctx context.Context, slotID, appointmentRef string) (*models.TimeSlot, error)
	SetBlocked(ctx context.Context, slotID string, blocked bool, reason string) (*models.TimeSlot, error)
	EnsureIndexes(ctx context.Context) error
}

type mongoTimeSlotRepo struct {
	coll *mongo.Collection
}

// NewMongoTimeSlotRepo constructs a new MongoDB TimeSlotRepository.
func NewMongoTimeSlotRepo(db *mongo.Database) TimeSlotRepository {
	return &mongoTimeSlotRepo{
		coll: db.Collection(collectionName),
	}
}
