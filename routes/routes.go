package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"govbook/handlers"
	"govbook/middleware"
	"govbook/models"
	"govbook/services/authz"
)

// RegisterAppointmentRoutes registers booking and lifecycle endpoints.
func RegisterAppointmentRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/appointments")
	api.Use(middleware.AuthMiddleware())
	{
		citizen := api.Group("")
		citizen.Use(middleware.RequireRole(models.RoleCitizen))
		citizen.POST("", hb.BookAppointmentHandler)
		citizen.GET("", hb.ListMyAppointmentsHandler)
		citizen.POST("/:number/feedback", hb.FeedbackHandler)

		// Ownership is checked by the engine.
		api.GET("/:number", hb.GetAppointmentHandler)
		api.POST("/:number/cancel", hb.CancelAppointmentHandler)
		api.POST("/:number/reschedule", hb.RescheduleAppointmentHandler)

		staff := api.Group("")
		staff.Use(middleware.RequireRole(authz.Staff...))
		staff.POST("/:number/confirm", hb.ConfirmAppointmentHandler)
		staff.POST("/:number/start", hb.StartAppointmentHandler)
		staff.POST("/:number/complete", hb.CompleteAppointmentHandler)
		staff.POST("/:number/no-show", hb.NoShowAppointmentHandler)
	}
}

// RegisterSlotRoutes registers slot listing and counter management endpoints.
func RegisterSlotRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/slots")
	api.Use(middleware.AuthMiddleware())
	{
		api.GET("", hb.ListSlotsHandler)

		staff := api.Group("")
		staff.Use(middleware.RequireRole(authz.Staff...))
		staff.POST("", hb.ProvisionSlotHandler)
		staff.POST("/:id/block", hb.BlockSlotHandler)
		staff.POST("/:id/unblock", hb.UnblockSlotHandler)
	}
}

// RegisterOpsRoutes registers health and metrics endpoints.
func RegisterOpsRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.HealthHandler)
	if hb.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(hb.MetricsHandler))
	}
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	RegisterOpsRoutes(r, hb)
	RegisterAppointmentRoutes(r, hb)
	RegisterSlotRoutes(r, hb)
}
