// File: handlers/bundle.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// Appointment endpoints
	BookAppointmentHandler       gin.HandlerFunc
	ListMyAppointmentsHandler    gin.HandlerFunc
	GetAppointmentHandler        gin.HandlerFunc
	ConfirmAppointmentHandler    gin.HandlerFunc
	StartAppointmentHandler      gin.HandlerFunc
	CompleteAppointmentHandler   gin.HandlerFunc
	NoShowAppointmentHandler     gin.HandlerFunc
	CancelAppointmentHandler     gin.HandlerFunc
	RescheduleAppointmentHandler gin.HandlerFunc
	FeedbackHandler              gin.HandlerFunc

	// Slot endpoints
	ListSlotsHandler     gin.HandlerFunc
	ProvisionSlotHandler gin.HandlerFunc
	BlockSlotHandler     gin.HandlerFunc
	UnblockSlotHandler   gin.HandlerFunc

	// Operations
	HealthHandler  gin.HandlerFunc
	MetricsHandler http.Handler
}

// NewHandlerBundle assembles the bundle from the appointment and slot handlers.
func NewHandlerBundle(appointments *AppointmentHandler, slots *SlotHandler, metrics http.Handler) *HandlerBundle {
	return &HandlerBundle{
		BookAppointmentHandler:       appointments.BookAppointmentHandler,
		ListMyAppointmentsHandler:    appointments.ListMyAppointmentsHandler,
		GetAppointmentHandler:        appointments.GetAppointmentHandler,
		ConfirmAppointmentHandler:    appointments.ConfirmAppointmentHandler,
		StartAppointmentHandler:      appointments.StartAppointmentHandler,
		CompleteAppointmentHandler:   appointments.CompleteAppointmentHandler,
		NoShowAppointmentHandler:     appointments.NoShowAppointmentHandler,
		CancelAppointmentHandler:     appointments.CancelAppointmentHandler,
		RescheduleAppointmentHandler: appointments.RescheduleAppointmentHandler,
		FeedbackHandler:              appointments.FeedbackHandler,

		ListSlotsHandler:     slots.ListSlotsHandler,
		ProvisionSlotHandler: slots.ProvisionSlotHandler,
		BlockSlotHandler:     slots.BlockSlotHandler,
		UnblockSlotHandler:   slots.UnblockSlotHandler,

		HealthHandler:  HealthHandler,
		MetricsHandler: metrics,
	}
}
