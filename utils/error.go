package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"govbook/models"
)

// ErrorResponse defines the structure of error responses
type ErrorResponse struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// HandleErrors is a middleware to catch panics and return structured errors
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				Logger := GetLogger()
				Logger.Error("Unhandled panic", zap.Any("error", err))

				c.JSON(http.StatusInternalServerError, ErrorResponse{
					Code:    "internal",
					Message: "Internal Server Error",
					Details: "An unexpected error occurred. Please try again later.",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// JSONError sends a standardized JSON error response
func JSONError(c *gin.Context, status int, message string, details string) {
	Logger := GetLogger()
	Logger.Warn(message, zap.String("details", details), zap.Int("status", status))
	c.JSON(status, ErrorResponse{Message: message, Details: details})
}

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{models.ErrNotFound, http.StatusNotFound, "not_found"},
	{models.ErrForbidden, http.StatusForbidden, "forbidden"},
	{models.ErrValidation, http.StatusBadRequest, "validation"},
	{models.ErrInvalidBookingWindow, http.StatusUnprocessableEntity, "invalid_booking_window"},
	{models.ErrSlotFull, http.StatusConflict, "slot_full"},
	{models.ErrSlotBlocked, http.StatusConflict, "slot_blocked"},
	{models.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{models.ErrDuplicateFeedback, http.StatusConflict, "duplicate_feedback"},
	{models.ErrDuplicateBooking, http.StatusConflict, "duplicate_booking"},
	{models.ErrConflict, http.StatusConflict, "conflict"},
	{models.ErrGenerationExhausted, http.StatusServiceUnavailable, "generation_exhausted"},
	{models.ErrStorageUnavailable, http.StatusServiceUnavailable, "storage_unavailable"},
}

// StatusFor maps an engine error to its HTTP status and stable error code.
func StatusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

// RespondError writes err using StatusFor. Server-side failures are logged at error level.
func RespondError(c *gin.Context, message string, err error) {
	status, code := StatusFor(err)
	logger := GetLogger()
	if status >= http.StatusInternalServerError {
		logger.Error(message, zap.Error(err), zap.String("code", code), zap.String("path", c.FullPath()))
	} else {
		logger.Debug(message, zap.Error(err), zap.String("code", code), zap.String("path", c.FullPath()))
	}
	details := err.Error()
	if status == http.StatusInternalServerError {
		details = "An unexpected error occurred. Please try again later."
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Code: code, Message: message, Details: details})
}
