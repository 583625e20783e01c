// File: handlers/appointment.go
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"govbook/models"
	"govbook/services/scheduling"
	"govbook/utils"
)

// AppointmentHandler exposes the scheduling engine over HTTP.
type AppointmentHandler struct {
	Engine *scheduling.Engine
}

func NewAppointmentHandler(engine *scheduling.Engine) *AppointmentHandler {
	return &AppointmentHandler{Engine: engine}
}

// BookAppointmentHandler handles POST /api/appointments.
func (h *AppointmentHandler) BookAppointmentHandler(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req models.BookingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}

	appt, err := h.Engine.Book(c.Request.Context(), p, req)
	if err != nil {
		utils.RespondError(c, "Failed to book appointment", err)
		return
	}

	getLogger(c).Info("Booked appointment via API",
		zap.String("appointmentNumber", appt.AppointmentNumber),
		zap.String("citizen", p.UserID))
	c.JSON(http.StatusCreated, gin.H{"appointment": appt})
}

// ListMyAppointmentsHandler handles GET /api/appointments.
func (h *AppointmentHandler) ListMyAppointmentsHandler(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	appts, err := h.Engine.ListMine(c.Request.Context(), p)
	if err != nil {
		utils.RespondError(c, "Failed to list appointments", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appointments": appts})
}

// GetAppointmentHandler handles GET /api/appointments/:number.
func (h *AppointmentHandler) GetAppointmentHandler(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	appt, err := h.Engine.Get(c.Request.Context(), p, c.Param("number"))
	if err != nil {
		utils.RespondError(c, "Failed to fetch appointment", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appointment": appt})
}

type transitionFunc func(ctx context.Context, p models.Principal, number string, in models.TransitionInput) (*models.Appointment, error)

// transitionHandler adapts one lifecycle operation to a POST endpoint with an optional body.
func transitionHandler(op transitionFunc, failure string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		var in models.TransitionInput
		if err := bindOptionalJSON(c, &in); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
			return
		}
		appt, err := op(c.Request.Context(), p, c.Param("number"), in)
		if err != nil {
			utils.RespondError(c, failure, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"appointment": appt})
	}
}

// ConfirmAppointmentHandler handles POST /api/appointments/:number/confirm.
func (h *AppointmentHandler) ConfirmAppointmentHandler(c *gin.Context) {
	transitionHandler(h.Engine.Confirm, "Failed to confirm appointment")(c)
}

// StartAppointmentHandler handles POST /api/appointments/:number/start.
func (h *AppointmentHandler) StartAppointmentHandler(c *gin.Context) {
	transitionHandler(h.Engine.Start, "Failed to start appointment")(c)
}

// CompleteAppointmentHandler handles POST /api/appointments/:number/complete.
func (h *AppointmentHandler) CompleteAppointmentHandler(c *gin.Context) {
	transitionHandler(h.Engine.Complete, "Failed to complete appointment")(c)
}

// NoShowAppointmentHandler handles POST /api/appointments/:number/no-show.
func (h *AppointmentHandler) NoShowAppointmentHandler(c *gin.Context) {
	transitionHandler(h.Engine.MarkNoShow, "Failed to mark appointment as no-show")(c)
}

// CancelAppointmentHandler handles POST /api/appointments/:number/cancel.
func (h *AppointmentHandler) CancelAppointmentHandler(c *gin.Context) {
	transitionHandler(h.Engine.Cancel, "Failed to cancel appointment")(c)
}

// RescheduleAppointmentHandler handles POST /api/appointments/:number/reschedule.
func (h *AppointmentHandler) RescheduleAppointmentHandler(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var in models.RescheduleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}
	appt, err := h.Engine.Reschedule(c.Request.Context(), p, c.Param("number"), in)
	if err != nil {
		utils.RespondError(c, "Failed to reschedule appointment", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appointment": appt})
}

// FeedbackHandler handles POST /api/appointments/:number/feedback.
func (h *AppointmentHandler) FeedbackHandler(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var in models.FeedbackInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}
	appt, err := h.Engine.SubmitFeedback(c.Request.Context(), p, c.Param("number"), in)
	if err != nil {
		utils.RespondError(c, "Failed to record feedback", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appointment": appt})
}
