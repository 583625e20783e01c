package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides observability for the scheduling engine.
// Each instance owns its registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	BookingsTotal       *prometheus.CounterVec
	TransitionsTotal    *prometheus.CounterVec
	SlotRejectionsTotal *prometheus.CounterVec
	CapacityLeaksTotal  prometheus.Counter
	NumberCollisions    prometheus.Counter
	NotificationsTotal  *prometheus.CounterVec
	BookDuration        prometheus.Histogram
}

// New creates a new Metrics instance with all engine metrics registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		BookingsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "govbook_bookings_total",
			Help: "Booking attempts by outcome",
		}, []string{"outcome"}),
		TransitionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "govbook_appointment_transitions_total",
			Help: "Committed appointment status transitions",
		}, []string{"from", "to"}),
		SlotRejectionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "govbook_slot_rejections_total",
			Help: "Reservations refused by a slot",
		}, []string{"reason"}),
		CapacityLeaksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "govbook_capacity_leaks_total",
			Help: "Compensating releases that could not be applied",
		}),
		NumberCollisions: factory.NewCounter(prometheus.CounterOpts{
			Name: "govbook_appointment_number_collisions_total",
			Help: "Appointment numbers rejected by the uniqueness index",
		}),
		NotificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "govbook_notifications_total",
			Help: "Notification intents by type and enqueue result",
		}, []string{"type", "result"}),
		BookDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "govbook_book_duration_seconds",
			Help:    "Duration of Book operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// Handler serves this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveBook records the outcome and duration of a Book call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveBook(start time.Time, outcome string) {
	m.BookingsTotal.WithLabelValues(outcome).Inc()
	m.BookDuration.Observe(time.Since(start).Seconds())
}

// IncrementTransition records a committed status change.
func (m *Metrics) IncrementTransition(from, to string) {
	m.TransitionsTotal.WithLabelValues(from, to).Inc()
}

// IncrementSlotRejection records a reservation refused for reason ("full", "blocked").
func (m *Metrics) IncrementSlotRejection(reason string) {
	m.SlotRejectionsTotal.WithLabelValues(reason).Inc()
}

// IncrementCapacityLeak records a compensation that gave up.
func (m *Metrics) IncrementCapacityLeak() {
	m.CapacityLeaksTotal.Inc()
}

// IncrementNotification records the enqueue result for a notification type.
func (m *Metrics) IncrementNotification(kind, result string) {
	m.NotificationsTotal.WithLabelValues(kind, result).Inc()
}
