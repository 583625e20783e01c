// File: database/repository/appointment/crud.go
package appointmentRepo

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"govbook/database"
	"govbook/models"
)

func (r *mongoAppointmentRepo) Insert(ctx context.Context, appt *models.Appointment) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if appt.RescheduleHistory == nil {
		appt.RescheduleHistory = []models.RescheduleEntry{}
	}
	if _, err := r.coll.InsertOne(ctx, appt); err != nil {
		if database.IsDuplicateKey(err) {
			if isNumberIndex(err) {
				return models.ErrDuplicateNumber
			}
			return models.ErrConflict
		}
		return database.Wrap("appointment.insert", err)
	}
	return nil
}

func (r *mongoAppointmentRepo) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	return r.findOne(ctx, "appointment.getByID", bson.M{"id": id})
}

func (r *mongoAppointmentRepo) GetByNumber(ctx context.Context, number string) (*models.Appointment, error) {
	return r.findOne(ctx, "appointment.getByNumber", bson.M{"appointmentNumber": number})
}

func (r *mongoAppointmentRepo) findOne(ctx context.Context, op string, filter bson.M) (*models.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var appt models.Appointment
	if err := r.coll.FindOne(ctx, filter).Decode(&appt); err != nil {
		return nil, database.Wrap(op, err)
	}
	return &appt, nil
}

// Update replaces the stored document only if it still carries expectedVersion and expectedStatus.
// On success next.Version is advanced to the stored value.
func (r *mongoAppointmentRepo) Update(ctx context.Context, next *models.Appointment, expectedVersion int, expectedStatus models.AppointmentStatus) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	candidate := next.Clone()
	candidate.Version = expectedVersion + 1
	candidate.UpdatedAt = time.Now().UTC()

	filter := bson.M{
		"id":      next.ID,
		"version": expectedVersion,
		"status":  expectedStatus,
	}
	res, err := r.coll.ReplaceOne(ctx, filter, candidate)
	if err != nil {
		return database.Wrap("appointment.update", err)
	}
	if res.MatchedCount == 0 {
		return models.ErrConflict
	}
	next.Version = candidate.Version
	next.UpdatedAt = candidate.UpdatedAt
	return nil
}

// SetFeedback attaches feedback to a completed appointment that has none yet.
func (r *mongoAppointmentRepo) SetFeedback(ctx context.Context, id string, feedback models.Feedback) (*models.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"id":       id,
		"status":   models.StatusCompleted,
		"feedback": bson.M{"$exists": false},
	}
	update := bson.M{
		"$set": bson.M{"feedback": feedback, "updatedAt": time.Now().UTC()},
		"$inc": bson.M{"version": 1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var out models.Appointment
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out)
	if err == mongo.ErrNoDocuments {
		return nil, models.ErrConflict
	}
	if err != nil {
		return nil, database.Wrap("appointment.setFeedback", err)
	}
	return &out, nil
}

func isNumberIndex(err error) bool {
	return strings.Contains(err.Error(), "appointmentNumber")
}
