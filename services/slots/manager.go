// Package slots owns reservation, release and blocking of slot capacity.
package slots

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	timeslotRepo "govbook/database/repository/timeslot"
	"govbook/metrics"
	"govbook/models"
	"govbook/services/authz"
)

// Manager is the only component that changes a slot's count or block flag.
type Manager struct {
	repo    timeslotRepo.TimeSlotRepository
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewManager wires a Manager over repo.
func NewManager(repo timeslotRepo.TimeSlotRepository, m *metrics.Metrics, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{repo: repo, metrics: m, logger: logger}
}

// Reserve claims one unit on slotID for appointmentRef.
func (m *Manager) Reserve(ctx context.Context, slotID, appointmentRef string) (models.ReservationToken, error) {
	slot, err := m.repo.ReserveUnit(ctx, slotID, appointmentRef)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrSlotFull):
			m.metrics.IncrementSlotRejection("full")
		case errors.Is(err, models.ErrSlotBlocked):
			m.metrics.IncrementSlotRejection("blocked")
		}
		return models.ReservationToken{}, err
	}
	m.logger.Debug("Reserved slot unit",
		zap.String("slotId", slot.ID),
		zap.String("appointmentRef", appointmentRef),
		zap.Int("currentCount", slot.CurrentCount),
		zap.Int("maxCapacity", slot.MaxCapacity))
	return models.ReservationToken{SlotID: slot.ID, AppointmentRef: appointmentRef}, nil
}

// Release returns the unit held by token. Releasing twice is harmless.
func (m *Manager) Release(ctx context.Context, token models.ReservationToken) error {
	slot, err := m.repo.ReleaseUnit(ctx, token.SlotID, token.AppointmentRef)
	if err != nil {
		return err
	}
	m.logger.Debug("Released slot unit",
		zap.String("slotId", slot.ID),
		zap.String("appointmentRef", token.AppointmentRef),
		zap.Int("currentCount", slot.CurrentCount))
	return nil
}

// Ensure returns the slot for slot's natural key, creating it with slot's capacity if absent.
func (m *Manager) Ensure(ctx context.Context, slot models.TimeSlot) (*models.TimeSlot, error) {
	return m.repo.EnsureSlot(ctx, slot)
}

// Get returns a slot by id.
func (m *Manager) Get(ctx context.Context, slotID string) (*models.TimeSlot, error) {
	return m.repo.GetByID(ctx, slotID)
}

// Block stops new reservations on slotID. Existing reservations are kept.
func (m *Manager) Block(ctx context.Context, p models.Principal, slotID, reason string) (*models.TimeSlot, error) {
	if err := authz.Require(p, authz.Staff...); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, models.NewValidationError("reason", "a block reason is required")
	}
	slot, err := m.repo.SetBlocked(ctx, slotID, true, reason)
	if err != nil {
		return nil, err
	}
	m.logger.Info("Slot blocked", zap.String("slotId", slotID), zap.String("by", p.UserID), zap.String("reason", reason))
	return slot, nil
}

// Unblock reopens slotID for reservations.
func (m *Manager) Unblock(ctx context.Context, p models.Principal, slotID string) (*models.TimeSlot, error) {
	if err := authz.Require(p, authz.Staff...); err != nil {
		return nil, err
	}
	slot, err := m.repo.SetBlocked(ctx, slotID, false, "")
	if err != nil {
		return nil, err
	}
	m.logger.Info("Slot unblocked", zap.String("slotId", slotID), zap.String("by", p.UserID))
	return slot, nil
}

// Provision creates a slot ahead of demand.
func (m *Manager) Provision(ctx context.Context, p models.Principal, req models.ProvisionSlotRequest) (*models.TimeSlot, error) {
	if err := authz.Require(p, authz.Staff...); err != nil {
		return nil, err
	}
	if err := validateProvision(req); err != nil {
		return nil, err
	}
	slot := &models.TimeSlot{
		Department:  req.Department,
		Service:     req.Service,
		Officer:     req.Officer,
		Date:        req.Date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		MaxCapacity: req.MaxCapacity,
	}
	if err := m.repo.Create(ctx, slot); err != nil {
		return nil, err
	}
	m.logger.Info("Slot provisioned",
		zap.String("slotId", slot.ID),
		zap.String("key", slot.Key),
		zap.Int("maxCapacity", slot.MaxCapacity),
		zap.String("by", p.UserID))
	return slot, nil
}

// List returns the slots of a department on date, optionally narrowed to one service.
func (m *Manager) List(ctx context.Context, p models.Principal, department, service, date string) ([]models.TimeSlot, error) {
	if err := authz.Require(p, models.RoleCitizen, models.RoleOfficer, models.RoleAdmin); err != nil {
		return nil, err
	}
	if department == "" {
		return nil, models.NewValidationError("department", "is required")
	}
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return nil, models.NewValidationError("date", "must be formatted as YYYY-MM-DD")
	}
	return m.repo.List(ctx, department, service, date)
}

func validateProvision(req models.ProvisionSlotRequest) error {
	if req.Department == "" {
		return models.NewValidationError("department", "is required")
	}
	if req.Service == "" {
		return models.NewValidationError("service", "is required")
	}
	if _, err := time.Parse(models.DateLayout, req.Date); err != nil {
		return models.NewValidationError("date", "must be formatted as YYYY-MM-DD")
	}
	start, err := time.Parse(models.TimeLayout, req.StartTime)
	if err != nil {
		return models.NewValidationError("startTime", "must be formatted as HH:MM")
	}
	end, err := time.Parse(models.TimeLayout, req.EndTime)
	if err != nil {
		return models.NewValidationError("endTime", "must be formatted as HH:MM")
	}
	if !end.After(start) {
		return models.NewValidationError("endTime", "must be after startTime")
	}
	if req.MaxCapacity < 1 {
		return models.NewValidationError("maxCapacity", "must be at least 1")
	}
	return nil
}
