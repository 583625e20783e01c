// File: database/repository/timeslot/crud.go
package timeslotRepo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"govbook/database"
	"govbook/models"
)

func (r *mongoTimeSlotRepo) Create(ctx context.Context, slot *models.TimeSlot) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	prepare(slot)
	if _, err := r.coll.InsertOne(ctx, slot); err != nil {
		if database.IsDuplicateKey(err) {
			return models.ErrConflict
		}
		return database.Wrap("timeslot.create", err)
	}
	return nil
}

// EnsureSlot returns the slot stored under slot's natural key, inserting slot if none exists.
func (r *mongoTimeSlotRepo) EnsureSlot(ctx context.Context, slot models.TimeSlot) (*models.TimeSlot, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	prepare(&slot)
	filter := bson.M{"key": slot.Key}
	update := bson.M{"$setOnInsert": slot}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var out models.TimeSlot
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out)
	if err != nil && database.IsDuplicateKey(err) {
		// Lost the upsert race; the winner's document is now visible.
		err = r.coll.FindOne(ctx, filter).Decode(&out)
	}
	if err != nil {
		return nil, database.Wrap("timeslot.ensure", err)
	}
	return &out, nil
}

func (r *mongoTimeSlotRepo) GetByID(ctx context.Context, slotID string) (*models.TimeSlot, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var slot models.TimeSlot
	if err := r.coll.FindOne(ctx, bson.M{"id": slotID}).Decode(&slot); err != nil {
		return nil, database.Wrap("timeslot.get", err)
	}
	return &slot, nil
}

func (r *mongoTimeSlotRepo) List(ctx context.Context, department, service, date string) ([]models.TimeSlot, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"department": department, "date": date}
	if service != "" {
		filter["service"] = service
	}
	opts := options.Find().SetSort(bson.D{{Key: "startTime", Value: 1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, database.Wrap("timeslot.list", err)
	}
	defer cursor.Close(ctx)

	slots := []models.TimeSlot{}
	if err := cursor.All(ctx, &slots); err != nil {
		return nil, database.Wrap("timeslot.list", err)
	}
	return slots, nil
}

func (r *mongoTimeSlotRepo) SetBlocked(ctx context.Context, slotID string, blocked bool, reason string) (*models.TimeSlot, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if !blocked {
		reason = ""
	}
	// currentCount is deliberately absent from this update.
	update := bson.A{
		bson.M{"$set": bson.M{
			"isBlocked":   blocked,
			"blockReason": bson.M{"$literal": reason},
			"isAvailable": bson.M{"$and": bson.A{!blocked, bson.M{"$lt": bson.A{"$currentCount", "$maxCapacity"}}}},
			"version":     bson.M{"$add": bson.A{"$version", 1}},
			"updatedAt":   time.Now().UTC(),
		}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var out models.TimeSlot
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"id": slotID}, update, opts).Decode(&out); err != nil {
		return nil, database.Wrap("timeslot.setBlocked", err)
	}
	return &out, nil
}

// prepare fills identity, derived and audit fields before a slot is first written.
func prepare(slot *models.TimeSlot) {
	now := time.Now().UTC()
	if slot.ID == "" {
		slot.ID = uuid.New().String()
	}
	slot.Key = slot.Ref().Key()
	if slot.Appointments == nil {
		slot.Appointments = []string{}
	}
	slot.IsAvailable = slot.Available()
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = now
	}
	slot.UpdatedAt = now
}

var errNoMatch = errors.New("no slot matched the update guard")
