// File: database/repository/notification/repository.go
package notificationRepo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"govbook/database"
	"govbook/models"
)

const collectionName = "notifications"

// NotificationRepository is the append-only log the delivery collaborator reads from.
type NotificationRepository interface {
	Append(ctx context.Context, rec *models.NotificationRecord) error
	ListByAppointment(ctx context.Context, appointmentNumber string) ([]models.NotificationRecord, error)
	EnsureIndexes(ctx context.Context) error
}

type mongoNotificationRepo struct {
	coll *mongo.Collection
}

// NewMongoNotificationRepo constructs a new MongoDB NotificationRepository.
func NewMongoNotificationRepo(db *mongo.Database) NotificationRepository {
	return &mongoNotificationRepo{coll: db.Collection(collectionName)}
}

// Append inserts rec. A record whose id is already stored is accepted silently, so
// redelivered queue tasks do not duplicate the log.
func (r *mongoNotificationRepo) Append(ctx context.Context, rec *models.NotificationRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	stamp(rec)
	if _, err := r.coll.InsertOne(ctx, rec); err != nil {
		if database.IsDuplicateKey(err) {
			return nil
		}
		return database.Wrap("notification.append", err)
	}
	return nil
}

func (r *mongoNotificationRepo) ListByAppointment(ctx context.Context, appointmentNumber string) ([]models.NotificationRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{"recipient.appointmentNumber": appointmentNumber}, opts)
	if err != nil {
		return nil, database.Wrap("notification.list", err)
	}
	defer cursor.Close(ctx)

	out := []models.NotificationRecord{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, database.Wrap("notification.list", err)
	}
	return out, nil
}

func (r *mongoNotificationRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_id"),
		},
		{
			Keys:    bson.D{{Key: "recipient.appointmentNumber", Value: 1}, {Key: "createdAt", Value: 1}},
			Options: options.Index().SetName("appointment_created_idx"),
		},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create notification indexes: %w", err)
	}
	return nil
}

// InMemory is a NotificationRepository guarded by a mutex.
type InMemory struct {
	mu      sync.Mutex
	records []models.NotificationRecord
	seen    map[string]struct{}
}

// NewInMemory returns an empty in-memory notification log.
func NewInMemory() *InMemory {
	return &InMemory{seen: make(map[string]struct{})}
}

func (s *InMemory) Append(_ context.Context, rec *models.NotificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stamp(rec)
	if _, ok := s.seen[rec.ID]; ok {
		return nil
	}
	s.seen[rec.ID] = struct{}{}
	s.records = append(s.records, *rec)
	return nil
}

func (s *InMemory) ListByAppointment(_ context.Context, appointmentNumber string) ([]models.NotificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.NotificationRecord{}
	for _, rec := range s.records {
		if rec.Recipient.AppointmentNumber == appointmentNumber {
			out = append(out, rec)
		}
	}
	return out, nil
}

// All returns every record in append order.
func (s *InMemory) All() []models.NotificationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.NotificationRecord(nil), s.records...)
}

func (s *InMemory) EnsureIndexes(context.Context) error { return nil }

func stamp(rec *models.NotificationRecord) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
}
