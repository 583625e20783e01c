// File: database/repository/appointment/memory.go
package appointmentRepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"govbook/models"
	"govbook/services/lifecycle"
)

// InMemory is an AppointmentRepository guarded by a single mutex.
type InMemory struct {
	mu       sync.Mutex
	byID     map[string]*models.Appointment
	byNumber map[string]string
}

// NewInMemory returns an empty in-memory appointment store.
func NewInMemory() *InMemory {
	return &InMemory{
		byID:     make(map[string]*models.Appointment),
		byNumber: make(map[string]string),
	}
}

func (s *InMemory) Insert(_ context.Context, appt *models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byNumber[appt.AppointmentNumber]; ok {
		return models.ErrDuplicateNumber
	}
	if _, ok := s.byID[appt.ID]; ok {
		return models.ErrConflict
	}
	if appt.RescheduleHistory == nil {
		appt.RescheduleHistory = []models.RescheduleEntry{}
	}
	s.byID[appt.ID] = appt.Clone()
	s.byNumber[appt.AppointmentNumber] = appt.ID
	return nil
}

func (s *InMemory) GetByID(_ context.Context, id string) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, ok := s.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return appt.Clone(), nil
}

func (s *InMemory) GetByNumber(_ context.Context, number string) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byNumber[number]
	if !ok {
		return nil, models.ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

func (s *InMemory) Update(_ context.Context, next *models.Appointment, expectedVersion int, expectedStatus models.AppointmentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[next.ID]
	if !ok || current.Version != expectedVersion || current.Status != expectedStatus {
		return models.ErrConflict
	}
	stored := next.Clone()
	stored.AppointmentNumber = current.AppointmentNumber
	stored.Version = expectedVersion + 1
	stored.UpdatedAt = time.Now().UTC()
	s.byID[next.ID] = stored

	next.Version = stored.Version
	next.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s *InMemory) SetFeedback(_ context.Context, id string, feedback models.Feedback) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[id]
	if !ok || current.Status != models.StatusCompleted || current.Feedback != nil {
		return nil, models.ErrConflict
	}
	fb := feedback
	current.Feedback = &fb
	current.Version++
	current.UpdatedAt = time.Now().UTC()
	return current.Clone(), nil
}

func (s *InMemory) CountActive(_ context.Context, citizen, department, service string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, appt := range s.byID {
		if appt.Citizen == citizen && appt.Department == department && appt.Service == service && lifecycle.IsActive(appt.Status) {
			n++
		}
	}
	return n, nil
}

func (s *InMemory) ListByCitizen(_ context.Context, citizen string) ([]models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Appointment{}
	for _, appt := range s.byID {
		if appt.Citizen == citizen {
			out = append(out, *appt.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AppointmentDate == out[j].AppointmentDate {
			return out[i].AppointmentTime < out[j].AppointmentTime
		}
		return out[i].AppointmentDate < out[j].AppointmentDate
	})
	return out, nil
}

func (s *InMemory) EnsureIndexes(context.Context) error { return nil }
