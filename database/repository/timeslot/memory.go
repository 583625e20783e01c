// File: database/repository/timeslot/memory.go
package timeslotRepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"govbook/models"
)

// InMemory is a TimeSlotRepository guarded by a single mutex. It backs STORE=memory and the tests.
type InMemory struct {
	mu    sync.Mutex
	byID  map[string]*models.TimeSlot
	byKey map[string]string
}

// NewInMemory returns an empty in-memory slot store.
func NewInMemory() *InMemory {
	return &InMemory{
		byID:  make(map[string]*models.TimeSlot),
		byKey: make(map[string]string),
	}
}

func (s *InMemory) Create(_ context.Context, slot *models.TimeSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prepare(slot)
	if _, ok := s.byKey[slot.Key]; ok {
		return models.ErrConflict
	}
	if _, ok := s.byID[slot.ID]; ok {
		return models.ErrConflict
	}
	stored := slot.Clone()
	s.byID[slot.ID] = &stored
	s.byKey[slot.Key] = slot.ID
	return nil
}

func (s *InMemory) EnsureSlot(_ context.Context, slot models.TimeSlot) (*models.TimeSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prepare(&slot)
	if id, ok := s.byKey[slot.Key]; ok {
		out := s.byID[id].Clone()
		return &out, nil
	}
	stored := slot.Clone()
	s.byID[slot.ID] = &stored
	s.byKey[slot.Key] = slot.ID
	out := stored.Clone()
	return &out, nil
}

func (s *InMemory) GetByID(_ context.Context, slotID string) (*models.TimeSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.byID[slotID]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := slot.Clone()
	return &out, nil
}

func (s *InMemory) List(_ context.Context, department, service, date string) ([]models.TimeSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.TimeSlot{}
	for _, slot := range s.byID {
		if slot.Department != department || slot.Date != date {
			continue
		}
		if service != "" && slot.Service != service {
			continue
		}
		out = append(out, slot.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime == out[j].StartTime {
			return out[i].Service < out[j].Service
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (s *InMemory) ReserveUnit(_ context.Context, slotID, appointmentRef string) (*models.TimeSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.byID[slotID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if containsRef(slot.Appointments, appointmentRef) {
		out := slot.Clone()
		return &out, nil
	}
	if slot.IsBlocked {
		return nil, models.ErrSlotBlocked
	}
	if slot.CurrentCount >= slot.MaxCapacity {
		return nil, models.ErrSlotFull
	}
	slot.CurrentCount++
	slot.Appointments = append(slot.Appointments, appointmentRef)
	touch(slot)
	out := slot.Clone()
	return &out, nil
}

func (s *InMemory) ReleaseUnit(_ context.Context, slotID, appointmentRef string) (*models.TimeSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.byID[slotID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if !containsRef(slot.Appointments, appointmentRef) {
		out := slot.Clone()
		return &out, nil
	}
	refs := slot.Appointments[:0:0]
	for _, ref := range slot.Appointments {
		if ref != appointmentRef {
			refs = append(refs, ref)
		}
	}
	slot.Appointments = refs
	if slot.CurrentCount > 0 {
		slot.CurrentCount--
	}
	touch(slot)
	out := slot.Clone()
	return &out, nil
}

func (s *InMemory) SetBlocked(_ context.Context, slotID string, blocked bool, reason string) (*models.TimeSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.byID[slotID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if !blocked {
		reason = ""
	}
	slot.IsBlocked = blocked
	slot.BlockReason = reason
	touch(slot)
	out := slot.Clone()
	return &out, nil
}

func (s *InMemory) EnsureIndexes(context.Context) error { return nil }

func touch(slot *models.TimeSlot) {
	slot.IsAvailable = slot.Available()
	slot.Version++
	slot.UpdatedAt = time.Now().UTC()
}
