// Package scheduling coordinates slots, the lifecycle and appointment persistence.
// It is the only writer of appointments.
package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	appointmentRepo "govbook/database/repository/appointment"
	"govbook/metrics"
	"govbook/models"
	"govbook/services/authz"
	"govbook/services/catalog"
	"govbook/services/notification"
	"govbook/services/numbering"
	"govbook/services/slots"
)

// Config carries the tunables of the engine.
type Config struct {
	Location                     *time.Location
	DefaultSlotCapacity          int
	FeedbackCommentMaxLength     int
	AllowDuplicateActiveBookings bool
}

// Deps are the collaborators the engine is wired with.
type Deps struct {
	Appointments appointmentRepo.AppointmentRepository
	Slots        *slots.Manager
	Catalog      catalog.Catalog
	Numbers      *numbering.Generator
	Notifier     notification.Notifier
	Metrics      *metrics.Metrics
	Logger       *zap.Logger

	// Optional.
	Clock   func() time.Time
	BackOff func() backoff.BackOff
}

// Engine implements booking, lifecycle transitions, rescheduling and feedback.
type Engine struct {
	appointments appointmentRepo.AppointmentRepository
	slots        *slots.Manager
	catalog      catalog.Catalog
	numbers      *numbering.Generator
	notifier     notification.Notifier
	metrics      *metrics.Metrics
	logger       *zap.Logger
	clock        func() time.Time
	newBackOff   func() backoff.BackOff
	cfg          Config
}

const (
	casAttempts         = 3
	compensationRetries = 5
	compensationTimeout = 30 * time.Second
	notifyTimeout       = 2 * time.Second
)

// NewEngine wires an Engine. Zero config values fall back to sensible defaults.
func NewEngine(deps Deps, cfg Config) *Engine {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.DefaultSlotCapacity <= 0 {
		cfg.DefaultSlotCapacity = 1
	}
	if cfg.FeedbackCommentMaxLength <= 0 {
		cfg.FeedbackCommentMaxLength = 1000
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newBackOff := deps.BackOff
	if newBackOff == nil {
		newBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 100 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		}
	}
	return &Engine{
		appointments: deps.Appointments,
		slots:        deps.Slots,
		catalog:      deps.Catalog,
		numbers:      deps.Numbers,
		notifier:     deps.Notifier,
		metrics:      deps.Metrics,
		logger:       logger,
		clock:        clock,
		newBackOff:   newBackOff,
		cfg:          cfg,
	}
}

func (e *Engine) now() time.Time {
	return e.clock().In(e.cfg.Location)
}

// Get returns the appointment to its owner or to staff.
func (e *Engine) Get(ctx context.Context, p models.Principal, number string) (*models.Appointment, error) {
	if err := authz.Require(p, citizenOrStaff...); err != nil {
		return nil, err
	}
	appt, err := e.appointments.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireOwnerOr(p, appt.Citizen, authz.Staff...); err != nil {
		return nil, err
	}
	return appt, nil
}

// ListMine returns the calling citizen's appointments.
func (e *Engine) ListMine(ctx context.Context, p models.Principal) ([]models.Appointment, error) {
	if err := authz.Require(p, models.RoleCitizen); err != nil {
		return nil, err
	}
	return e.appointments.ListByCitizen(ctx, p.UserID)
}

// lookupService resolves the catalog entry and rejects inactive or unknown services.
func (e *Engine) lookupService(ctx context.Context, department, service string) (models.ServiceInfo, error) {
	info, err := e.catalog.Lookup(ctx, department, service)
	if errors.Is(err, models.ErrNotFound) {
		return models.ServiceInfo{}, models.NewValidationError("service", "unknown service "+department+"/"+service)
	}
	if err != nil {
		return models.ServiceInfo{}, err
	}
	if !info.IsActive {
		return models.ServiceInfo{}, models.NewValidationError("service", "service is not accepting appointments")
	}
	return info, nil
}

func (e *Engine) slotCapacity(info models.ServiceInfo) int {
	if info.DefaultSlotCapacity > 0 {
		return info.DefaultSlotCapacity
	}
	return e.cfg.DefaultSlotCapacity
}
