// File: database/repository/timeslot/capacity.go
package timeslotRepo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"govbook/database"
	"govbook/models"
)

// ReserveUnit claims one unit of capacity for appointmentRef.
// The guard and the increment run as one FindOneAndUpdate, so two callers racing for the
// last unit cannot both match. A reference already present is treated as reserved.
func (r *mongoTimeSlotRepo) ReserveUnit(ctx context.Context, slotID, appointmentRef string) (*models.TimeSlot, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"id":           slotID,
		"isBlocked":    false,
		"appointments": bson.M{"$ne": appointmentRef},
		"$expr":        bson.M{"$lt": bson.A{"$currentCount", "$maxCapacity"}},
	}
	update := bson.A{
		bson.M{"$set": bson.M{
			"currentCount": bson.M{"$add": bson.A{"$currentCount", 1}},
			"appointments": bson.M{"$concatArrays": bson.A{bson.M{"$ifNull": bson.A{"$appointments", bson.A{}}}, bson.A{bson.M{"$literal": appointmentRef}}}},
			"version":      bson.M{"$add": bson.A{"$version", 1}},
			"updatedAt":    time.Now().UTC(),
		}},
		bson.M{"$set": bson.M{
			"isAvailable": bson.M{"$and": bson.A{
				bson.M{"$not": bson.A{"$isBlocked"}},
				bson.M{"$lt": bson.A{"$currentCount", "$maxCapacity"}},
			}},
		}},
	}

	slot, err := r.findOneAndUpdate(ctx, filter, update)
	if err == nil {
		return slot, nil
	}
	if !errors.Is(err, errNoMatch) {
		return nil, database.Wrap("timeslot.reserve", err)
	}

	// The guard failed; re-read to report why.
	current, err := r.GetByID(ctx, slotID)
	if err != nil {
		return nil, err
	}
	switch {
	case containsRef(current.Appointments, appointmentRef):
		return current, nil
	case current.IsBlocked:
		return nil, models.ErrSlotBlocked
	default:
		return nil, models.ErrSlotFull
	}
}

// ReleaseUnit returns the unit held by appointmentRef. Releasing a reference the slot
// does not hold is a no-op, which makes compensation retries safe.
func (r *mongoTimeSlotRepo) ReleaseUnit(ctx context.Context, slotID, appointmentRef string) (*models.TimeSlot, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": slotID, "appointments": appointmentRef}
	update := bson.A{
		bson.M{"$set": bson.M{
			"currentCount": bson.M{"$max": bson.A{0, bson.M{"$subtract": bson.A{"$currentCount", 1}}}},
			"appointments": bson.M{"$filter": bson.M{
				"input": "$appointments",
				"as":    "ref",
				"cond":  bson.M{"$ne": bson.A{"$$ref", bson.M{"$literal": appointmentRef}}},
			}},
			"version":   bson.M{"$add": bson.A{"$version", 1}},
			"updatedAt": time.Now().UTC(),
		}},
		bson.M{"$set": bson.M{
			"isAvailable": bson.M{"$and": bson.A{
				bson.M{"$not": bson.A{"$isBlocked"}},
				bson.M{"$lt": bson.A{"$currentCount", "$maxCapacity"}},
			}},
		}},
	}

	slot, err := r.findOneAndUpdate(ctx, filter, update)
	if err == nil {
		return slot, nil
	}
	if !errors.Is(err, errNoMatch) {
		return nil, database.Wrap("timeslot.release", err)
	}
	return r.GetByID(ctx, slotID)
}

func (r *mongoTimeSlotRepo) findOneAndUpdate(ctx context.Context, filter bson.M, update bson.A) (*models.TimeSlot, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var out models.TimeSlot
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errNoMatch
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func containsRef(refs []string, ref string) bool {
	for _, r := range refs {
		if r == ref {
			return true
		}
	}
	return false
}
