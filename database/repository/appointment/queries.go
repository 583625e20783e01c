// File: database/repository/appointment/queries.go
package appointmentRepo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"govbook/database"
	"govbook/models"
	"govbook/services/lifecycle"
)

func (r *mongoAppointmentRepo) CountActive(ctx context.Context, citizen, department, service string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"citizen":    citizen,
		"department": department,
		"service":    service,
		"status":     bson.M{"$in": lifecycle.ActiveStatuses},
	}
	n, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, database.Wrap("appointment.countActive", err)
	}
	return n, nil
}

func (r *mongoAppointmentRepo) ListByCitizen(ctx context.Context, citizen string) ([]models.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "appointmentDate", Value: 1}, {Key: "appointmentTime", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{"citizen": citizen}, opts)
	if err != nil {
		return nil, database.Wrap("appointment.listByCitizen", err)
	}
	defer cursor.Close(ctx)

	appts := []models.Appointment{}
	if err := cursor.All(ctx, &appts); err != nil {
		return nil, database.Wrap("appointment.listByCitizen", err)
	}
	return appts, nil
}
